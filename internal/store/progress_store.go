package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/model"
)

const progressColumns = `id, task_id, user_id, date, status, value, note, created_at`

// RecordProgress inserts a progress log and, when applyToTask is set,
// writes its status and value onto the task within the same transaction.
func (s *SQLiteStore) RecordProgress(
	ctx context.Context,
	log model.ProgressLog,
	applyToTask bool,
) (model.ProgressLog, error) {
	log.ID = uuid.New().String()
	now := time.Now().UTC()
	if log.Date.IsZero() {
		log.Date = now
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.ProgressLog{}, storageErr(err, "beginning transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO progress_logs (`+progressColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.TaskID, log.UserID, log.Date.UTC(), string(log.Status),
		log.Value, log.Note, log.CreatedAt.UTC(),
	)
	if err != nil {
		return model.ProgressLog{}, storageErr(err, "inserting progress log for task %s", log.TaskID)
	}

	if applyToTask {
		query := "UPDATE tasks SET status = ? WHERE id = ?"
		args := []interface{}{string(log.Status), log.TaskID}
		if log.Value != nil {
			query = "UPDATE tasks SET status = ?, current_value = ? WHERE id = ?"
			args = []interface{}{string(log.Status), *log.Value, log.TaskID}
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return model.ProgressLog{}, storageErr(err, "updating task %s", log.TaskID)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return model.ProgressLog{}, fmt.Errorf("task %s: %w", log.TaskID, apperrors.ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.ProgressLog{}, storageErr(err, "committing progress for task %s", log.TaskID)
	}
	return log, nil
}

// GetProgressLogs retrieves a task's progress logs, oldest first.
func (s *SQLiteStore) GetProgressLogs(ctx context.Context, taskID string) ([]model.ProgressLog, error) {
	logs := []model.ProgressLog{}
	err := s.db.SelectContext(ctx, &logs,
		"SELECT "+progressColumns+" FROM progress_logs WHERE task_id = ? ORDER BY date ASC, rowid ASC",
		taskID)
	if err != nil {
		return nil, storageErr(err, "querying progress logs for task %s", taskID)
	}
	return logs, nil
}
