package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/agentic-planner/internal/clock"
	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/store"
)

// CreatePlanRequest describes a new plan. Description is the free-text goal
// the pipeline plans from.
type CreatePlanRequest struct {
	UserID      string         `json:"user_id"`
	Title       string         `json:"title"`
	PlanType    model.PlanType `json:"plan_type"`
	Description string         `json:"description"`
	StartDate   time.Time      `json:"start_date"`
	EndDate     time.Time      `json:"end_date"`
}

// CreatePlanResult reports a planning run.
type CreatePlanResult struct {
	PlanID       string `json:"plan_id"`
	Message      string `json:"message"`
	TasksCreated int    `json:"tasks_created"`
	PlanSummary  string `json:"plan_summary,omitempty"`
}

// Service creates plans and reports on them.
type Service struct {
	store    store.Store
	pipeline *Pipeline
	clock    clock.Clock
	logger   zerolog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the clock used for creation times and days remaining.
func WithClock(c clock.Clock) ServiceOption {
	return func(s *Service) {
		s.clock = c
	}
}

// NewService creates a plan service running pipeline against s.
func NewService(s store.Store, pipeline *Pipeline, opts ...ServiceOption) *Service {
	svc := &Service{
		store:    s,
		pipeline: pipeline,
		clock:    clock.RealClock{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreatePlan stores a new active plan and runs the planning pipeline for
// it. When the pipeline fails the plan stays stored without tasks, and the
// returned result still carries its ID alongside the error.
func (s *Service) CreatePlan(ctx context.Context, req CreatePlanRequest) (*CreatePlanResult, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", apperrors.ErrInvalidInput)
	}

	plan := model.Plan{
		UserID:      strings.TrimSpace(req.UserID),
		Title:       strings.TrimSpace(req.Title),
		PlanType:    req.PlanType,
		Description: req.Description,
		StartDate:   req.StartDate.UTC(),
		EndDate:     req.EndDate.UTC(),
		CreatedAt:   s.clock.Now(),
		IsActive:    true,
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	plan, err := s.store.CreatePlan(ctx, plan)
	if err != nil {
		return nil, err
	}
	log := s.logger.With().Str("plan_id", plan.ID).Str("user_id", plan.UserID).Logger()
	log.Info().Str("plan_type", string(plan.PlanType)).Msg("plan stored, planning tasks")

	st := s.pipeline.Execute(ctx, Input{
		GoalDescription: plan.Description,
		PlanType:        plan.PlanType,
		UserID:          plan.UserID,
		PlanID:          plan.ID,
		StartDate:       plan.StartDate,
		EndDate:         plan.EndDate,
	})

	result := &CreatePlanResult{PlanID: plan.ID}
	if st.Failed() {
		log.Warn().Str("error", st.Error).Msg("planning failed; plan kept without tasks")
		result.Message = st.Error
		return result, st.Err()
	}

	result.Message = "Plan created successfully"
	result.TasksCreated = st.TasksCount
	result.PlanSummary = st.PlanSummary
	log.Info().Int("tasks", st.TasksCount).Msg("plan created")
	return result, nil
}

// Status summarizes task completion for a plan.
func (s *Service) Status(ctx context.Context, planID string) (*model.PlanStatus, error) {
	plan, err := s.store.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.GetTasks(ctx, store.TaskFilter{PlanIDs: []string{plan.ID}})
	if err != nil {
		return nil, err
	}

	st := model.Summarize(*plan, tasks, s.clock.Now())
	return &st, nil
}

// UserPlans lists a user's active plans with their status, newest first.
func (s *Service) UserPlans(ctx context.Context, userID string) ([]model.PlanOverview, error) {
	plans, err := s.store.GetPlans(ctx, store.PlanFilter{UserID: userID, ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	planIDs := make([]string, len(plans))
	for i, p := range plans {
		planIDs[i] = p.ID
	}
	tasks, err := s.store.GetTasks(ctx, store.TaskFilter{PlanIDs: planIDs})
	if err != nil {
		return nil, err
	}

	byPlan := make(map[string][]model.Task, len(plans))
	for _, t := range tasks {
		byPlan[t.PlanID] = append(byPlan[t.PlanID], t)
	}

	now := s.clock.Now()
	out := make([]model.PlanOverview, 0, len(plans))
	for _, p := range plans {
		st := model.Summarize(p, byPlan[p.ID], now)
		out = append(out, model.PlanOverview{
			Plan:           p,
			CompletionRate: st.CompletionRate,
			DaysRemaining:  st.DaysRemaining,
			TotalTasks:     st.TotalTasks,
			CompletedTasks: st.CompletedTasks,
			PendingTasks:   st.PendingTasks,
		})
	}
	return out, nil
}

// PlanTasks lists the tasks of a plan. An unknown plan has no tasks.
func (s *Service) PlanTasks(ctx context.Context, planID string) ([]model.Task, error) {
	return s.store.GetTasks(ctx, store.TaskFilter{PlanIDs: []string{planID}})
}

// UserTasks lists the tasks of every plan a user owns, active or not.
func (s *Service) UserTasks(ctx context.Context, userID string) ([]model.Task, error) {
	plans, err := s.store.GetPlans(ctx, store.PlanFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	planIDs := make([]string, len(plans))
	for i, p := range plans {
		planIDs[i] = p.ID
	}
	return s.store.GetTasks(ctx, store.TaskFilter{PlanIDs: planIDs})
}
