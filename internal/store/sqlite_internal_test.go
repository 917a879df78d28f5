package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/model"
)

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newSQLiteStore(sqlx.NewDb(db, "sqlmock")), mock
}

func TestCreateTasksRollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO tasks")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	due := time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)
	_, err := s.CreateTasks(context.Background(), []model.Task{
		{PlanID: "p1", Title: "first", TargetDate: due},
		{PlanID: "p1", Title: "second", TargetDate: due},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordProgressRollsBackWhenTaskUpdateFails(t *testing.T) {
	value := 25.0
	log := model.ProgressLog{TaskID: "t1", UserID: "u1", Status: model.TaskStatusInProgress, Value: &value}

	t.Run("update error", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO progress_logs").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`UPDATE tasks SET status = \?, current_value = \?`).
			WithArgs("in_progress", 25.0, "t1").
			WillReturnError(errors.New("database is locked"))
		mock.ExpectRollback()

		_, err := s.RecordProgress(context.Background(), log, true)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrStorage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("task vanished", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO progress_logs").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE tasks").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := s.RecordProgress(context.Background(), log, true)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commits both writes", func(t *testing.T) {
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO progress_logs").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE tasks").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		saved, err := s.RecordProgress(context.Background(), log, true)
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetTasksExpandsInClause(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"id", "plan_id", "title", "description", "target_date", "status",
		"unit", "target_value", "current_value", "memo", "created_at",
	}).AddRow("t1", "p1", "Read", "", time.Now(), "pending", "pages", 100.0, 10.0, "", time.Now())

	mock.ExpectQuery(`FROM tasks WHERE plan_id IN \(\?, \?\) AND status IN \(\?\)`).
		WithArgs("p1", "p2", "pending").
		WillReturnRows(rows)

	tasks, err := s.GetTasks(context.Background(), TaskFilter{
		PlanIDs:  []string{"p1", "p2"},
		Statuses: []model.TaskStatus{model.TaskStatusPending},
	})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.TaskStatusPending, tasks[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseObjectID(t *testing.T) {
	_, err := parseObjectID("task", "not-hex")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	oid, err := parseObjectID("task", "65a1b2c3d4e5f60718293a4b")
	require.NoError(t, err)
	assert.Equal(t, "65a1b2c3d4e5f60718293a4b", oid.Hex())
}
