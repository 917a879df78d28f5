package planner_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/planner"
	"github.com/nhle/agentic-planner/internal/store"
	"github.com/nhle/agentic-planner/tests/testutil"
)

const goalReply = "```json\n" + `{
  "parsed_goal": {
    "main_objective": "Read 3 books in November",
    "target_metrics": [{"metric": "books", "target": 3, "unit": "books"}],
    "timeline": "one month",
    "key_milestones": ["finish book 1", "finish book 2"],
    "success_criteria": "three books finished"
  }
}` + "\n```"

const tasksReply = `{
  "tasks": [
    {"title": "Read book 1", "description": "Chapters 1-12", "target_date": "2026-11-10", "unit": "pages", "target_value": 300, "priority": "high"},
    {"title": "Read book 2", "description": "", "target_date": "2026-11-20T00:00:00", "unit": "pages", "target_value": 250, "priority": "URGENT"},
    {"title": "Read book 3", "target_date": "2026-11-30T00:00:00Z", "unit": "pages", "target_value": 280}
  ],
  "plan_summary": "One book every ten days"
}`

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newInput(t *testing.T, s store.Store) planner.Input {
	t.Helper()
	plan, err := s.CreatePlan(context.Background(), model.Plan{
		UserID:    "u1",
		Title:     "Reading",
		PlanType:  model.PlanTypeStudy,
		StartDate: day(2026, 11, 1),
		EndDate:   day(2026, 11, 30),
		IsActive:  true,
	})
	require.NoError(t, err)

	return planner.Input{
		GoalDescription: "Read 3 books in November",
		PlanType:        model.PlanTypeStudy,
		UserID:          "u1",
		PlanID:          plan.ID,
		StartDate:       plan.StartDate,
		EndDate:         plan.EndDate,
	}
}

func TestPipelineExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("successful run saves every planned task", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		gen := testutil.NewStubGenerator(goalReply, tasksReply)
		in := newInput(t, s)

		st := planner.NewPlanningPipeline(gen, s).Execute(ctx, in)

		require.Equal(t, planner.StatusTasksSaved, st.Status, st.Error)
		assert.Empty(t, st.Error)
		assert.NoError(t, st.Err())
		require.NotNil(t, st.ParsedGoal)
		assert.Equal(t, "Read 3 books in November", st.ParsedGoal.MainObjective)
		assert.Equal(t, model.Quantity("3"), st.ParsedGoal.TargetMetrics[0].Target)
		assert.Equal(t, "One book every ten days", st.PlanSummary)

		assert.Equal(t, len(st.SavedTasks), st.TasksCount)
		require.Equal(t, 3, st.TasksCount)
		for _, task := range st.SavedTasks {
			assert.Equal(t, in.PlanID, task.PlanID)
			assert.Equal(t, model.TaskStatusPending, task.Status)
			assert.Zero(t, task.CurrentValue)
			assert.NotEmpty(t, task.ID)
		}
		assert.True(t, st.SavedTasks[1].TargetDate.Equal(day(2026, 11, 20)))

		assert.Equal(t, model.PriorityHigh, st.PlannedTasks[0].Priority)
		assert.Equal(t, model.PriorityMedium, st.PlannedTasks[1].Priority)
		assert.Equal(t, model.PriorityMedium, st.PlannedTasks[2].Priority)

		stored, err := s.GetTasks(ctx, store.TaskFilter{PlanIDs: []string{in.PlanID}})
		require.NoError(t, err)
		assert.Len(t, stored, 3)
	})

	t.Run("prompts carry the goal, plan type, and dates", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		gen := testutil.NewStubGenerator(goalReply, tasksReply)
		in := newInput(t, s)

		planner.NewPlanningPipeline(gen, s).Execute(ctx, in)

		prompts := gen.Prompts()
		require.Len(t, prompts, 2)

		assert.Equal(t, "Goal: Read 3 books in November", prompts[0].User)
		assert.Contains(t, prompts[0].System, "Plan type: study")
		assert.Contains(t, prompts[0].System, `"parsed_goal"`)
		assert.InDelta(t, 0.1, prompts[0].Temperature, 1e-6)

		assert.True(t, strings.HasPrefix(prompts[1].User, "Parsed Goal: {"))
		assert.Contains(t, prompts[1].User, `"main_objective": "Read 3 books in November"`)
		assert.Contains(t, prompts[1].System, "Duration: 2026-11-01 to 2026-11-30")
		assert.Contains(t, prompts[1].System, "Distribute them evenly")
		assert.InDelta(t, 0.3, prompts[1].Temperature, 1e-6)
	})

	t.Run("malformed goal stops the run", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		gen := testutil.NewStubGenerator("I'm not sure what you mean.")
		in := newInput(t, s)

		st := planner.NewPlanningPipeline(gen, s).Execute(ctx, in)

		assert.Equal(t, planner.StatusError, st.Status)
		assert.True(t, strings.HasPrefix(st.Error, "Goal parsing failed: "), st.Error)
		assert.ErrorIs(t, st.Err(), apperrors.ErrOracleMalformed)
		assert.Equal(t, 1, gen.Calls())
		assert.Nil(t, st.ParsedGoal)
		assert.Zero(t, st.TasksCount)
	})

	t.Run("plan without tasks key saves nothing", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		gen := testutil.NewStubGenerator(goalReply, `{"plan_summary": "nothing to do"}`)
		in := newInput(t, s)

		st := planner.NewPlanningPipeline(gen, s).Execute(ctx, in)

		assert.Equal(t, planner.StatusError, st.Status)
		assert.True(t, strings.HasPrefix(st.Error, "Planning failed: "), st.Error)
		assert.Equal(t, apperrors.KindOracleMalformed, apperrors.KindOf(st.Err()))

		stored, err := s.GetTasks(ctx, store.TaskFilter{PlanIDs: []string{in.PlanID}})
		require.NoError(t, err)
		assert.Empty(t, stored)
	})

	t.Run("bad target date stores no tasks", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		gen := testutil.NewStubGenerator(goalReply, `{"tasks": [
			{"title": "ok", "target_date": "2026-11-05"},
			{"title": "bad", "target_date": "next tuesday"}
		]}`)
		in := newInput(t, s)

		st := planner.NewPlanningPipeline(gen, s).Execute(ctx, in)

		assert.Equal(t, planner.StatusError, st.Status)
		assert.True(t, strings.HasPrefix(st.Error, "Task saving failed: "), st.Error)
		assert.ErrorIs(t, st.Err(), apperrors.ErrOracleMalformed)

		stored, err := s.GetTasks(ctx, store.TaskFilter{PlanIDs: []string{in.PlanID}})
		require.NoError(t, err)
		assert.Empty(t, stored)
	})

	t.Run("empty task list succeeds with zero tasks", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		gen := testutil.NewStubGenerator(goalReply, `{"tasks": [], "plan_summary": ""}`)

		st := planner.NewPlanningPipeline(gen, s).Execute(ctx, newInput(t, s))

		assert.Equal(t, planner.StatusTasksSaved, st.Status)
		assert.Zero(t, st.TasksCount)
		assert.Empty(t, st.SavedTasks)
	})

	t.Run("generator failure", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		gen := testutil.NewStubGenerator().Push(testutil.Reply{Err: errors.New("connection refused")})

		st := planner.NewPlanningPipeline(gen, s).Execute(ctx, newInput(t, s))

		assert.Equal(t, planner.StatusError, st.Status)
		assert.ErrorIs(t, st.Err(), apperrors.ErrOracleFailed)
		assert.Contains(t, st.Error, "connection refused")
	})
}

type panicStage struct{}

func (panicStage) Name() string { return "Exploding" }

func (panicStage) Run(context.Context, *planner.State) error { panic("nil map write") }

type recordStage struct{ ran bool }

func (r *recordStage) Name() string { return "Recording" }

func (r *recordStage) Run(context.Context, *planner.State) error {
	r.ran = true
	return nil
}

func TestPipelineRecoversPanics(t *testing.T) {
	after := &recordStage{}
	p := planner.NewPipeline([]planner.Stage{panicStage{}, after})

	var st *planner.State
	require.NotPanics(t, func() {
		st = p.Execute(context.Background(), planner.Input{PlanID: "p1"})
	})

	assert.Equal(t, planner.StatusError, st.Status)
	assert.Contains(t, st.Error, "Exploding failed: panic: nil map write")
	assert.False(t, after.ran)
}

func TestPipelineHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	first := &recordStage{}
	st := planner.NewPipeline([]planner.Stage{first}).Execute(ctx, planner.Input{})

	assert.Equal(t, planner.StatusError, st.Status)
	assert.ErrorIs(t, st.Err(), context.Canceled)
	assert.False(t, first.ran)
}

func TestPlanGeneratorRequiresParsedGoal(t *testing.T) {
	gen := testutil.NewStubGenerator()
	st := planner.NewState(planner.Input{})

	err := planner.NewPlanGenerator(gen).Run(context.Background(), st)

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Zero(t, gen.Calls())
}
