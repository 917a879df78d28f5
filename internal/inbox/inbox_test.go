package inbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/progress"
	"github.com/nhle/agentic-planner/tests/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type fakeMailbox struct {
	mu       sync.Mutex
	messages []Message
	listErr  error
	markErr  error
	seen     []uint32
	listed   chan struct{}

	// markFailures fails that many MarkSeen calls before markErr applies.
	markFailures int
}

func (f *fakeMailbox) Unseen(context.Context) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listed != nil {
		select {
		case f.listed <- struct{}{}:
		default:
		}
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Message
	for _, m := range f.messages {
		if !f.isSeen(m.UID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMailbox) isSeen(uid uint32) bool {
	for _, s := range f.seen {
		if s == uid {
			return true
		}
	}
	return false
}

func (f *fakeMailbox) MarkSeen(_ context.Context, uid uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markFailures > 0 {
		f.markFailures--
		return errors.New("connection reset")
	}
	if f.markErr != nil {
		return f.markErr
	}
	f.seen = append(f.seen, uid)
	return nil
}

type bulkCall struct {
	userID string
	report string
}

type fakeUpdater struct {
	mu      sync.Mutex
	calls   []bulkCall
	results map[string]progress.BulkResult
}

func (f *fakeUpdater) BulkUpdate(_ context.Context, userID, report string) progress.BulkResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, bulkCall{userID: userID, report: report})
	if res, ok := f.results[userID]; ok {
		return res
	}
	return progress.BulkResult{Status: progress.StatusSuccess, UpdatedTasks: []string{"t1"}, TotalUpdates: 1}
}

func TestMessageReport(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"subject and body", Message{Subject: "Weekly", Body: "read 20 pages\n"}, "Weekly\n\nread 20 pages"},
		{"body only", Message{Body: " ran 5k "}, "ran 5k"},
		{"subject only", Message{Subject: "saved 100 USD"}, "saved 100 USD"},
		{"empty", Message{Subject: " ", Body: "\n"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.Report())
		})
	}
}

func TestSyncOnce(t *testing.T) {
	ctx := context.Background()
	senders := map[string]string{"Alice@Example.com": "u1", "bob@example.com": "u2"}

	t.Run("applies known senders and marks them seen", func(t *testing.T) {
		mb := &fakeMailbox{messages: []Message{
			{UID: 1, From: "alice@example.com", Subject: "Reading", Body: "read 30 pages"},
			{UID: 2, From: "mallory@example.com", Body: "completed everything"},
			{UID: 3, From: "bob@example.com", Body: "ran 5k"},
		}}
		up := &fakeUpdater{}

		report, err := NewSyncer(mb, up, senders).SyncOnce(ctx)
		require.NoError(t, err)

		assert.Equal(t, SyncReport{Fetched: 3, Applied: 2, Skipped: 1, Updates: 2}, report)
		assert.Equal(t, []uint32{1, 3}, mb.seen)
		require.Len(t, up.calls, 2)
		assert.Equal(t, bulkCall{userID: "u1", report: "Reading\n\nread 30 pages"}, up.calls[0])
		assert.Equal(t, "u2", up.calls[1].userID)
	})

	t.Run("transient failure stays unseen", func(t *testing.T) {
		mb := &fakeMailbox{messages: []Message{
			{UID: 7, From: "alice@example.com", Body: "read 30 pages"},
		}}
		up := &fakeUpdater{results: map[string]progress.BulkResult{
			"u1": {Status: progress.StatusError, Error: "generator call failed", Err: apperrors.ErrOracleFailed},
		}}

		report, err := NewSyncer(mb, up, senders).SyncOnce(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Failed)
		assert.Zero(t, report.Applied)
		assert.Empty(t, mb.seen)
	})

	t.Run("terminal failure is consumed", func(t *testing.T) {
		mb := &fakeMailbox{messages: []Message{
			{UID: 7, From: "alice@example.com", Body: "read 30 pages"},
			{UID: 8, From: "bob@example.com", Body: "ran 5k"},
		}}
		up := &fakeUpdater{results: map[string]progress.BulkResult{
			"u1": {Status: progress.StatusError, Error: "no active plans found", Err: apperrors.ErrNoActivePlans},
			"u2": {Status: progress.StatusError, Error: "malformed generator output", Err: apperrors.ErrOracleMalformed},
		}}

		report, err := NewSyncer(mb, up, senders).SyncOnce(ctx)
		require.NoError(t, err)

		assert.Equal(t, 2, report.Failed)
		assert.Equal(t, []uint32{7, 8}, mb.seen)
	})

	t.Run("partially applied report is consumed", func(t *testing.T) {
		mb := &fakeMailbox{messages: []Message{{UID: 9, From: "alice@example.com", Body: "read"}}}
		up := &fakeUpdater{results: map[string]progress.BulkResult{
			"u1": {
				Status:       progress.StatusError,
				UpdatedTasks: []string{"t1"},
				TotalUpdates: 1,
				Error:        "storage operation failed",
				Err:          apperrors.ErrStorage,
			},
		}}

		report, err := NewSyncer(mb, up, senders).SyncOnce(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Failed)
		assert.Equal(t, 1, report.Updates)
		assert.Equal(t, []uint32{9}, mb.seen)
	})

	t.Run("empty mail is skipped", func(t *testing.T) {
		mb := &fakeMailbox{messages: []Message{{UID: 4, From: "alice@example.com"}}}
		up := &fakeUpdater{}

		report, err := NewSyncer(mb, up, senders).SyncOnce(ctx)
		require.NoError(t, err)

		assert.Equal(t, 1, report.Skipped)
		assert.Empty(t, up.calls)
	})

	t.Run("flagging failure does not apply the report twice", func(t *testing.T) {
		mb := &fakeMailbox{
			messages:     []Message{{UID: 5, From: "alice@example.com", Body: "read"}},
			markFailures: 1,
		}
		up := &fakeUpdater{}
		s := NewSyncer(mb, up, senders)

		first, err := s.SyncOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, first.Applied)
		assert.Empty(t, mb.seen)

		second, err := s.SyncOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, SyncReport{Fetched: 1, Skipped: 1}, second)
		assert.Equal(t, []uint32{5}, mb.seen)
		assert.Len(t, up.calls, 1)
	})

	t.Run("listing failure", func(t *testing.T) {
		mb := &fakeMailbox{listErr: errors.New("authentication failed")}

		_, err := NewSyncer(mb, &fakeUpdater{}, senders).SyncOnce(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "authentication failed")
	})

	t.Run("a second pass does not repeat applied mail", func(t *testing.T) {
		mb := &fakeMailbox{messages: []Message{{UID: 1, From: "alice@example.com", Body: "read"}}}
		up := &fakeUpdater{}
		s := NewSyncer(mb, up, senders)

		_, err := s.SyncOnce(ctx)
		require.NoError(t, err)
		report, err := s.SyncOnce(ctx)
		require.NoError(t, err)

		assert.Zero(t, report.Fetched)
		assert.Len(t, up.calls, 1)
	})
}

func TestPlainTextBody(t *testing.T) {
	t.Run("single part", func(t *testing.T) {
		raw := "From: alice@example.com\r\n" +
			"Subject: Reading\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" +
			"read 30 pages of chapter 4\r\n"
		assert.Equal(t, "read 30 pages of chapter 4", plainTextBody([]byte(raw)))
	})

	t.Run("multipart prefers text/plain", func(t *testing.T) {
		raw := "From: alice@example.com\r\n" +
			"Subject: Reading\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: multipart/alternative; boundary=XYZ\r\n" +
			"\r\n" +
			"--XYZ\r\n" +
			"Content-Type: text/html; charset=utf-8\r\n" +
			"\r\n" +
			"<p>read 30 pages</p>\r\n" +
			"--XYZ\r\n" +
			"Content-Type: text/plain; charset=utf-8\r\n" +
			"\r\n" +
			"read 30 pages\r\n" +
			"--XYZ--\r\n"
		assert.Equal(t, "read 30 pages", plainTextBody([]byte(raw)))
	})
}

func TestPollerRun(t *testing.T) {
	mb := &fakeMailbox{
		messages: []Message{{UID: 1, From: "alice@example.com", Body: "read"}},
		listed:   make(chan struct{}, 1),
	}
	up := &fakeUpdater{}
	p := NewPoller(NewSyncer(mb, up, map[string]string{"alice@example.com": "u1"}), time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case <-mb.listed:
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not sync on start")
	}

	p.Refresh()
	select {
	case <-mb.listed:
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not sync on refresh")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}

	assert.Equal(t, SyncIdle, p.Status().State)
	assert.False(t, p.Status().LastSync.IsZero())
	up.mu.Lock()
	assert.Len(t, up.calls, 1)
	up.mu.Unlock()
}

func TestPollerRecordsFailure(t *testing.T) {
	mb := &fakeMailbox{listErr: errors.New("dial tcp: timeout")}
	p := NewPoller(NewSyncer(mb, &fakeUpdater{}, nil), 0, zerolog.Nop())

	p.syncOnce(context.Background())

	st := p.Status()
	assert.Equal(t, SyncError, st.State)
	require.Error(t, st.Error)
	assert.True(t, st.LastSync.IsZero())
	assert.Equal(t, defaultPollInterval, p.interval)
}

func TestSyncOnceWritesOneLogPerReport(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	plan, err := s.CreatePlan(ctx, model.Plan{
		UserID:    "u1",
		Title:     "Reading",
		PlanType:  model.PlanTypeStudy,
		StartDate: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	})
	require.NoError(t, err)
	tasks, err := s.CreateTasks(ctx, []model.Task{{
		PlanID:      plan.ID,
		Title:       "Read book 1",
		Unit:        "pages",
		TargetValue: 300,
		TargetDate:  plan.EndDate,
	}})
	require.NoError(t, err)
	taskID := tasks[0].ID

	gen := testutil.NewStubGenerator(fmt.Sprintf(
		`{"bulk_updates":[{"task_id":%q,"new_value":30,"new_status":"in_progress","note":"read","confidence":0.9}],"summary":"reading"}`,
		taskID))
	mb := &fakeMailbox{
		messages:     []Message{{UID: 1, From: "alice@example.com", Body: "read 30 pages"}},
		markFailures: 1,
	}
	syncer := NewSyncer(mb, progress.NewUpdater(s, gen), map[string]string{"alice@example.com": "u1"})

	for range 2 {
		_, err := syncer.SyncOnce(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, gen.Calls())
	logs, err := s.GetProgressLogs(ctx, taskID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Equal(t, []uint32{1}, mb.seen)
}
