package model

import "time"

// TaskStatus is the lifecycle state of a planned task.
type TaskStatus string

// Task status constants. New tasks start as pending.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusSkipped    TaskStatus = "skipped"
)

// TaskStatuses lists every valid status in lifecycle order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusPending,
		TaskStatusInProgress,
		TaskStatusCompleted,
		TaskStatusSkipped,
	}
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusSkipped:
		return true
	}
	return false
}

// IsOpen reports whether progress can still be matched against a task in
// this status. Completed and skipped tasks are closed.
func (s TaskStatus) IsOpen() bool {
	return s == TaskStatusPending || s == TaskStatusInProgress
}

// Task is a concrete, dated, measurable step of a plan.
type Task struct {
	// ID is the store-assigned identifier.
	ID string `json:"id" db:"id"`

	// PlanID references the owning plan. Tasks are looked up by this
	// value; the plan does not hold a task list.
	PlanID string `json:"plan_id" db:"plan_id"`

	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	TargetDate  time.Time `json:"target_date" db:"target_date"`

	// Status and CurrentValue are written together by progress recording.
	Status TaskStatus `json:"status" db:"status"`

	// Unit is the measurement unit (pages, kg, USD, ...). Empty when the
	// task is not numeric.
	Unit         string  `json:"unit" db:"unit"`
	TargetValue  float64 `json:"target_value" db:"target_value"`
	CurrentValue float64 `json:"current_value" db:"current_value"`

	Memo      string    `json:"memo" db:"memo"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PlannedTask is a task proposed by the plan generator before it is
// persisted. TargetDate is kept as the raw date string.
type PlannedTask struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	TargetDate  string  `json:"target_date"`
	Unit        string  `json:"unit"`
	TargetValue float64 `json:"target_value"`
	Priority    string  `json:"priority"`
}

// Task priorities as requested from the plan generator.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)
