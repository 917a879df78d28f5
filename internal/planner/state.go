package planner

import (
	"time"

	"github.com/nhle/agentic-planner/internal/model"
)

// Status is the progress marker of a planning run.
type Status string

// Pipeline statuses in the order a successful run passes through them.
const (
	StatusInitialized Status = "initialized"
	StatusGoalParsed  Status = "goal_parsed"
	StatusPlanCreated Status = "plan_created"
	StatusTasksSaved  Status = "tasks_saved"
	StatusError       Status = "error"
)

// Input is what a planning run starts from. PlanID must reference a stored
// plan; generated tasks are attached to it.
type Input struct {
	GoalDescription string
	PlanType        model.PlanType
	UserID          string
	PlanID          string
	StartDate       time.Time
	EndDate         time.Time
}

// State is threaded through the pipeline stages. Each stage reads what
// earlier stages wrote and records its own output.
type State struct {
	Input Input

	ParsedGoal   *model.Goal
	PlannedTasks []model.PlannedTask
	PlanSummary  string
	SavedTasks   []model.Task
	TasksCount   int

	Status Status

	// Error is the human-readable failure message, prefixed with the
	// failing stage. Empty unless Status is StatusError.
	Error string

	err error
}

// NewState returns the initial state for in.
func NewState(in Input) *State {
	return &State{Input: in, Status: StatusInitialized}
}

// Err returns the typed cause of a failed run, or nil.
func (s *State) Err() error {
	return s.err
}

// Failed reports whether the run ended in the error status.
func (s *State) Failed() bool {
	return s.Status == StatusError
}

func (s *State) fail(err error) {
	s.Status = StatusError
	s.Error = err.Error()
	s.err = err
}
