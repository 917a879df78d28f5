package progress

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/store"
)

// ManualEntry is a progress report entered directly, without analysis.
type ManualEntry struct {
	TaskID string           `json:"task_id"`
	UserID string           `json:"user_id"`
	Status model.TaskStatus `json:"status"`
	Value  *float64         `json:"value,omitempty"`
	Note   string           `json:"note,omitempty"`
}

// LogProgress records a manual entry. When the entry carries a value, the
// task's current value and status are updated with it; otherwise only the
// log is written.
func (u *Updater) LogProgress(ctx context.Context, e ManualEntry) (model.ProgressLog, error) {
	switch {
	case strings.TrimSpace(e.TaskID) == "":
		return model.ProgressLog{}, fmt.Errorf("%w: task_id is required", apperrors.ErrInvalidInput)
	case strings.TrimSpace(e.UserID) == "":
		return model.ProgressLog{}, fmt.Errorf("%w: user_id is required", apperrors.ErrInvalidInput)
	case !e.Status.Valid():
		return model.ProgressLog{}, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidInput, e.Status)
	}

	if _, err := u.store.GetTaskByID(ctx, e.TaskID); err != nil {
		return model.ProgressLog{}, err
	}

	saved, err := u.store.RecordProgress(ctx, model.ProgressLog{
		TaskID: e.TaskID,
		UserID: e.UserID,
		Date:   u.clock.Now(),
		Status: e.Status,
		Value:  e.Value,
		Note:   e.Note,
	}, e.Value != nil)
	if err != nil {
		return model.ProgressLog{}, err
	}

	u.logger.Info().
		Str("task_id", e.TaskID).
		Str("progress_id", saved.ID).
		Bool("task_updated", e.Value != nil).
		Msg("progress logged")
	return saved, nil
}

// TaskEdit is a direct edit of a task. Nil fields are left unchanged.
type TaskEdit struct {
	Status       *model.TaskStatus `json:"status,omitempty"`
	CurrentValue *float64          `json:"current_value,omitempty"`
	Memo         *string           `json:"memo,omitempty"`
}

// EditTask applies a direct edit. An edit that changes nothing is invalid.
func (u *Updater) EditTask(ctx context.Context, taskID string, edit TaskEdit) (*model.Task, error) {
	if edit.Status != nil && !edit.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidInput, *edit.Status)
	}

	update := store.TaskUpdate{
		Status:       edit.Status,
		CurrentValue: edit.CurrentValue,
		Memo:         edit.Memo,
	}
	if update.Empty() {
		return nil, fmt.Errorf("%w: no update data provided", apperrors.ErrInvalidInput)
	}

	return u.store.UpdateTask(ctx, taskID, update)
}

// History returns a task's progress logs, oldest first.
func (u *Updater) History(ctx context.Context, taskID string) ([]model.ProgressLog, error) {
	if _, err := u.store.GetTaskByID(ctx, taskID); err != nil {
		return nil, err
	}
	return u.store.GetProgressLogs(ctx, taskID)
}
