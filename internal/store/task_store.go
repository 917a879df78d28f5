package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/model"
)

const taskColumns = `id, plan_id, title, description, target_date, status, unit, target_value, current_value, memo, created_at`

// CreateTasks inserts a batch of tasks in a single transaction. Either all
// tasks are stored or none are.
func (s *SQLiteStore) CreateTasks(ctx context.Context, tasks []model.Task) ([]model.Task, error) {
	if len(tasks) == 0 {
		return []model.Task{}, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storageErr(err, "beginning transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, storageErr(err, "preparing task insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	saved := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		t.ID = uuid.New().String()
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.Status == "" {
			t.Status = model.TaskStatusPending
		}

		_, err := stmt.ExecContext(ctx,
			t.ID, t.PlanID, t.Title, t.Description, t.TargetDate.UTC(),
			string(t.Status), t.Unit, t.TargetValue, t.CurrentValue, t.Memo,
			t.CreatedAt.UTC(),
		)
		if err != nil {
			return nil, storageErr(err, "inserting task %q", t.Title)
		}
		saved = append(saved, t)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr(err, "committing tasks")
	}
	return saved, nil
}

// GetTaskByID retrieves a single task.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := s.db.GetContext(ctx, &task, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	if err != nil {
		return nil, lookupErr(err, "task", id)
	}
	return &task, nil
}

// GetTasks retrieves tasks matching filter in insertion order.
func (s *SQLiteStore) GetTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	tasks := []model.Task{}
	if filter.PlanIDs != nil && len(filter.PlanIDs) == 0 {
		return tasks, nil
	}

	var conditions []string
	var args []interface{}

	if len(filter.PlanIDs) > 0 {
		conditions = append(conditions, "plan_id IN (?)")
		args = append(args, filter.PlanIDs)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		conditions = append(conditions, "status IN (?)")
		args = append(args, statuses)
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY rowid ASC"

	if len(args) > 0 {
		var err error
		query, args, err = sqlx.In(query, args...)
		if err != nil {
			return nil, storageErr(err, "expanding task filter")
		}
		query = s.db.Rebind(query)
	}

	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, storageErr(err, "querying tasks")
	}
	return tasks, nil
}

// UpdateTask applies the non-nil fields of update to a task.
func (s *SQLiteStore) UpdateTask(ctx context.Context, id string, update TaskUpdate) (*model.Task, error) {
	if update.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", apperrors.ErrInvalidInput)
	}

	var sets []string
	var args []interface{}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.CurrentValue != nil {
		sets = append(sets, "current_value = ?")
		args = append(args, *update.CurrentValue)
	}
	if update.Memo != nil {
		sets = append(sets, "memo = ?")
		args = append(args, *update.Memo)
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, storageErr(err, "updating task %s", id)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}

	return s.GetTaskByID(ctx, id)
}
