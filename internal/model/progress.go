package model

import "time"

// ProgressLog is an append-only record of one accepted progress update.
// Once written it is never modified or deleted.
type ProgressLog struct {
	ID     string     `json:"id" db:"id"`
	TaskID string     `json:"task_id" db:"task_id"`
	UserID string     `json:"user_id" db:"user_id"`
	Date   time.Time  `json:"date" db:"date"`
	Status TaskStatus `json:"status" db:"status"`

	// Value is nil for status-only entries.
	Value *float64 `json:"value,omitempty" db:"value"`

	Note      string    `json:"note" db:"note"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ProgressAnalysis is the generator's interpretation of a single free-text
// progress report.
type ProgressAnalysis struct {
	NewValue   float64    `json:"new_value"`
	NewStatus  TaskStatus `json:"new_status"`
	Confidence float64    `json:"confidence"`
	Note       string     `json:"note"`
	Reasoning  string     `json:"reasoning"`
}

// BulkUpdate is one task match extracted from a multi-task progress report.
type BulkUpdate struct {
	TaskID     string     `json:"task_id"`
	NewValue   float64    `json:"new_value"`
	NewStatus  TaskStatus `json:"new_status"`
	Note       string     `json:"note"`
	Confidence float64    `json:"confidence"`
}
