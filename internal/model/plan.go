package model

import (
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
)

// PlanType is the goal domain of a plan. It tailors prompt content but not
// pipeline structure.
type PlanType string

const (
	PlanTypeStudy      PlanType = "study"
	PlanTypeWeightLoss PlanType = "weight_loss"
	PlanTypeFinancial  PlanType = "financial"
	PlanTypeLifeTasks  PlanType = "life_tasks"
)

// PlanTypes lists every valid plan type.
func PlanTypes() []PlanType {
	return []PlanType{PlanTypeStudy, PlanTypeWeightLoss, PlanTypeFinancial, PlanTypeLifeTasks}
}

// Valid reports whether t is a known plan type.
func (t PlanType) Valid() bool {
	switch t {
	case PlanTypeStudy, PlanTypeWeightLoss, PlanTypeFinancial, PlanTypeLifeTasks:
		return true
	}
	return false
}

// Plan is a user's goal over a date window. Plans are deactivated, never
// deleted.
type Plan struct {
	ID          string    `json:"plan_id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	PlanType    PlanType  `json:"plan_type" db:"plan_type"`
	Description string    `json:"description" db:"description"`
	StartDate   time.Time `json:"start_date" db:"start_date"`
	EndDate     time.Time `json:"end_date" db:"end_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	IsActive    bool      `json:"is_active" db:"is_active"`
}

// Validate checks the invariants a plan must satisfy before it is stored.
func (p Plan) Validate() error {
	switch {
	case strings.TrimSpace(p.UserID) == "":
		return fmt.Errorf("%w: user_id is required", apperrors.ErrInvalidInput)
	case strings.TrimSpace(p.Title) == "":
		return fmt.Errorf("%w: title is required", apperrors.ErrInvalidInput)
	case !p.PlanType.Valid():
		return fmt.Errorf("%w: unknown plan type %q", apperrors.ErrInvalidInput, p.PlanType)
	case p.StartDate.IsZero() || p.EndDate.IsZero():
		return fmt.Errorf("%w: start_date and end_date are required", apperrors.ErrInvalidInput)
	case p.StartDate.After(p.EndDate):
		return fmt.Errorf("%w: start_date must not be after end_date", apperrors.ErrInvalidInput)
	}
	return nil
}

// PlanStatus summarizes task completion for a plan.
type PlanStatus struct {
	PlanID         string  `json:"plan_id"`
	Title          string  `json:"title"`
	CompletionRate float64 `json:"completion_rate"`
	DaysRemaining  int     `json:"days_remaining"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	PendingTasks   int     `json:"pending_tasks"`
}

// PlanOverview is a plan together with its status, as returned by user
// listings.
type PlanOverview struct {
	Plan
	CompletionRate float64 `json:"completion_rate"`
	DaysRemaining  int     `json:"days_remaining"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	PendingTasks   int     `json:"pending_tasks"`
}

// Summarize computes the status of plan from its tasks as of now.
// CompletionRate is a percentage rounded to two decimals and is 0 for a
// plan without tasks. Every task that is not completed counts as pending.
func Summarize(plan Plan, tasks []Task, now time.Time) PlanStatus {
	completed := 0
	for _, t := range tasks {
		if t.Status == TaskStatusCompleted {
			completed++
		}
	}

	rate := 0.0
	if len(tasks) > 0 {
		rate = math.Round(float64(completed)/float64(len(tasks))*100*100) / 100
	}

	return PlanStatus{
		PlanID:         plan.ID,
		Title:          plan.Title,
		CompletionRate: rate,
		DaysRemaining:  DaysRemaining(plan.EndDate, now),
		TotalTasks:     len(tasks),
		CompletedTasks: completed,
		PendingTasks:   len(tasks) - completed,
	}
}

// DaysRemaining returns the whole days between now and end, never negative.
func DaysRemaining(end, now time.Time) int {
	days := int(end.Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
