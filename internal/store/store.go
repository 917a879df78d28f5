package store

import (
	"context"

	"github.com/nhle/agentic-planner/internal/model"
)

// PlanFilter controls plan queries.
type PlanFilter struct {
	// UserID restricts results to one user. Empty means all users.
	UserID string

	// ActiveOnly drops deactivated plans.
	ActiveOnly bool
}

// TaskFilter controls task queries.
type TaskFilter struct {
	// PlanIDs restricts results to tasks of these plans. A nil slice means
	// no restriction; a non-nil empty slice matches nothing.
	PlanIDs []string

	// Statuses restricts results to tasks in any of these statuses.
	Statuses []model.TaskStatus
}

// TaskUpdate is a partial task edit. Nil fields are left unchanged.
type TaskUpdate struct {
	Status       *model.TaskStatus
	CurrentValue *float64
	Memo         *string
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return u.Status == nil && u.CurrentValue == nil && u.Memo == nil
}

// Store defines the persistence interface for plans, tasks, and progress
// logs. Lookups of absent records return errors.ErrNotFound; backend
// failures are marked errors.ErrStorage.
type Store interface {
	// === Plans ===

	// CreatePlan stores plan, assigning its ID and CreatedAt.
	CreatePlan(ctx context.Context, plan model.Plan) (model.Plan, error)
	GetPlanByID(ctx context.Context, id string) (*model.Plan, error)

	// GetPlans returns matching plans, newest first.
	GetPlans(ctx context.Context, filter PlanFilter) ([]model.Plan, error)

	// === Tasks ===

	// CreateTasks stores a batch of tasks in one transaction and returns
	// them with their assigned IDs, in input order.
	CreateTasks(ctx context.Context, tasks []model.Task) ([]model.Task, error)
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)

	// GetTasks returns matching tasks in insertion order.
	GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)

	// UpdateTask applies a partial edit and returns the updated task.
	UpdateTask(ctx context.Context, id string, update TaskUpdate) (*model.Task, error)

	// === Progress ===

	// RecordProgress appends log. When applyToTask is set, the task's
	// status (and current value, if log.Value is set) are updated in the
	// same transaction; a missing task rolls back the log insert.
	RecordProgress(ctx context.Context, log model.ProgressLog, applyToTask bool) (model.ProgressLog, error)

	// GetProgressLogs returns a task's logs, oldest first.
	GetProgressLogs(ctx context.Context, taskID string) ([]model.ProgressLog, error)

	Close() error
}
