package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/agentic-planner/internal/ai"
	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/store"
)

// Stage is one step of the planning pipeline. Run records its output on
// the state and returns an error instead of setting the error status; the
// pipeline owns status transitions on failure.
type Stage interface {
	Name() string
	Run(ctx context.Context, st *State) error
}

// GoalParser turns the free-text goal into a structured Goal.
type GoalParser struct {
	gen ai.Generator
}

// NewGoalParser creates a GoalParser.
func NewGoalParser(gen ai.Generator) *GoalParser {
	return &GoalParser{gen: gen}
}

// Name implements Stage.
func (p *GoalParser) Name() string { return "Goal parsing" }

// Run implements Stage.
func (p *GoalParser) Run(ctx context.Context, st *State) error {
	raw, err := p.gen.Generate(ctx, ai.Prompt{
		System:      goalParserInstruction(st.Input.PlanType),
		User:        goalParserMessage(st.Input.GoalDescription),
		Temperature: goalParserTemperature,
	})
	if err != nil {
		return apperrors.Mark(err, apperrors.ErrOracleFailed)
	}

	var out struct {
		ParsedGoal model.Goal `json:"parsed_goal"`
	}
	if err := ai.Decode(raw, parsedGoalSchema, &out); err != nil {
		return err
	}

	st.ParsedGoal = &out.ParsedGoal
	st.Status = StatusGoalParsed
	return nil
}

// PlanGenerator turns a parsed goal and the plan's date range into an
// ordered list of dated tasks. Task count and spacing are left to the
// generator and are not checked.
type PlanGenerator struct {
	gen ai.Generator
}

// NewPlanGenerator creates a PlanGenerator.
func NewPlanGenerator(gen ai.Generator) *PlanGenerator {
	return &PlanGenerator{gen: gen}
}

// Name implements Stage.
func (g *PlanGenerator) Name() string { return "Planning" }

// Run implements Stage.
func (g *PlanGenerator) Run(ctx context.Context, st *State) error {
	if st.ParsedGoal == nil {
		return fmt.Errorf("%w: no parsed goal to plan from", apperrors.ErrInvalidInput)
	}

	msg, err := planGeneratorMessage(*st.ParsedGoal)
	if err != nil {
		return err
	}

	raw, err := g.gen.Generate(ctx, ai.Prompt{
		System:      planGeneratorInstruction(st.Input.PlanType, st.Input.StartDate, st.Input.EndDate),
		User:        msg,
		Temperature: planGeneratorTemperature,
	})
	if err != nil {
		return apperrors.Mark(err, apperrors.ErrOracleFailed)
	}

	var out struct {
		Tasks       []model.PlannedTask `json:"tasks"`
		PlanSummary string              `json:"plan_summary"`
	}
	if err := ai.Decode(raw, taskPlanSchema, &out); err != nil {
		return err
	}

	for i := range out.Tasks {
		out.Tasks[i].Priority = normalizePriority(out.Tasks[i].Priority)
	}

	st.PlannedTasks = out.Tasks
	st.PlanSummary = out.PlanSummary
	st.Status = StatusPlanCreated
	return nil
}

func normalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case model.PriorityHigh:
		return model.PriorityHigh
	case model.PriorityLow:
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

// TaskSaver persists planned tasks under the input plan.
type TaskSaver struct {
	store store.Store
}

// NewTaskSaver creates a TaskSaver.
func NewTaskSaver(s store.Store) *TaskSaver {
	return &TaskSaver{store: s}
}

// Name implements Stage.
func (s *TaskSaver) Name() string { return "Task saving" }

// Run implements Stage. All tasks are stored in one batch; a bad target
// date or a storage failure stores none.
func (s *TaskSaver) Run(ctx context.Context, st *State) error {
	tasks := make([]model.Task, 0, len(st.PlannedTasks))
	for i, pt := range st.PlannedTasks {
		due, err := model.ParseDate(pt.TargetDate)
		if err != nil {
			return apperrors.Mark(fmt.Errorf("task %d (%q): %w", i+1, pt.Title, err), apperrors.ErrOracleMalformed)
		}
		tasks = append(tasks, model.Task{
			PlanID:       st.Input.PlanID,
			Title:        pt.Title,
			Description:  pt.Description,
			TargetDate:   due,
			Status:       model.TaskStatusPending,
			Unit:         pt.Unit,
			TargetValue:  pt.TargetValue,
			CurrentValue: 0,
		})
	}

	saved, err := s.store.CreateTasks(ctx, tasks)
	if err != nil {
		return err
	}

	st.SavedTasks = saved
	st.TasksCount = len(saved)
	st.Status = StatusTasksSaved
	return nil
}
