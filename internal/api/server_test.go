package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/agentic-planner/internal/api"
	"github.com/nhle/agentic-planner/internal/clock"
	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/planner"
	"github.com/nhle/agentic-planner/internal/progress"
	"github.com/nhle/agentic-planner/internal/store"
	"github.com/nhle/agentic-planner/tests/testutil"
)

const goalReply = `{"parsed_goal":{"main_objective":"Read 2 books","target_metrics":[{"metric":"books","target":2,"unit":"books"}],"timeline":"November"}}`

const tasksReply = "```json\n" + `{"tasks":[
	{"title":"Read book 1","description":"First book","target_date":"2026-11-15","unit":"pages","target_value":300,"priority":"high"},
	{"title":"Read book 2","description":"Second book","target_date":"2026-11-30","unit":"pages","target_value":250,"priority":"medium"}
],"plan_summary":"Two books, one per half month"}` + "\n```"

var now = time.Date(2026, 11, 16, 0, 0, 0, 0, time.UTC)

type harness struct {
	store *store.SQLiteStore
	gen   *testutil.StubGenerator
	srv   http.Handler
}

func newHarness(t *testing.T, replies ...string) *harness {
	t.Helper()
	s := testutil.NewTestStore(t)
	gen := testutil.NewStubGenerator(replies...)
	c := clock.Fixed(now)

	plans := planner.NewService(s, planner.NewPlanningPipeline(gen, s), planner.WithClock(c))
	updater := progress.NewUpdater(s, gen, progress.WithClock(c))
	srv := api.NewServer(plans, updater, api.WithAllowedOrigins([]string{"http://localhost:3000"}))

	return &harness{store: s, gen: gen, srv: srv.Handler()}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

// seedPlan stores an active plan for u1 with one open reading task.
func (h *harness) seedPlan(t *testing.T) (model.Plan, model.Task) {
	t.Helper()
	ctx := context.Background()
	plan, err := h.store.CreatePlan(ctx, model.Plan{
		UserID: "u1", Title: "Reading", PlanType: model.PlanTypeStudy,
		StartDate: now.AddDate(0, 0, -15), EndDate: now.AddDate(0, 0, 14), IsActive: true,
	})
	require.NoError(t, err)
	tasks, err := h.store.CreateTasks(ctx, []model.Task{{
		PlanID: plan.ID, Title: "Read book 1", Unit: "pages", TargetValue: 100, CurrentValue: 10,
		TargetDate: plan.EndDate,
	}})
	require.NoError(t, err)
	return plan, tasks[0]
}

const createBody = `{"user_id":"u1","title":"Reading","plan_type":"study","description":"Read 2 books in November","start_date":"2026-11-01","end_date":"2026-11-30T00:00:00"}`

func TestCreatePlan(t *testing.T) {
	t.Run("creates plan and tasks", func(t *testing.T) {
		h := newHarness(t, goalReply, tasksReply)

		rec := h.do(t, http.MethodPost, "/api/create", createBody)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		res := decode[planner.CreatePlanResult](t, rec)
		assert.NotEmpty(t, res.PlanID)
		assert.Equal(t, "Plan created successfully", res.Message)
		assert.Equal(t, 2, res.TasksCreated)

		rec = h.do(t, http.MethodGet, "/api/tasks/"+res.PlanID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		tasks := decode[[]model.Task](t, rec)
		require.Len(t, tasks, 2)
		assert.Equal(t, "Read book 1", tasks[0].Title)
		assert.Equal(t, model.TaskStatusPending, tasks[0].Status)
	})

	t.Run("bad date is rejected before planning", func(t *testing.T) {
		h := newHarness(t)

		rec := h.do(t, http.MethodPost, "/api/create", strings.Replace(createBody, "2026-11-01", "November 1st", 1))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		assert.Zero(t, h.gen.Calls())
	})

	t.Run("malformed goal keeps the plan and reports it", func(t *testing.T) {
		h := newHarness(t, "I am not JSON")

		rec := h.do(t, http.MethodPost, "/api/create", createBody)

		require.Equal(t, http.StatusBadGateway, rec.Code)
		p := decode[api.ProblemDetail](t, rec)
		assert.NotEmpty(t, p.PlanID)
		assert.True(t, strings.HasPrefix(p.Detail, "Goal parsing failed: "), p.Detail)

		tasks, err := h.store.GetTasks(context.Background(), store.TaskFilter{PlanIDs: []string{p.PlanID}})
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("invalid JSON body", func(t *testing.T) {
		h := newHarness(t)
		rec := h.do(t, http.MethodPost, "/api/create", `{"user_id":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPlanQueries(t *testing.T) {
	h := newHarness(t)
	plan, task := h.seedPlan(t)

	t.Run("status", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/status/"+plan.ID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		st := decode[model.PlanStatus](t, rec)
		assert.Equal(t, 1, st.TotalTasks)
		assert.Equal(t, 14, st.DaysRemaining)
		assert.Zero(t, st.CompletionRate)
	})

	t.Run("unknown plan status", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/status/missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("user plans", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/plans/user/u1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		plans := decode[[]model.PlanOverview](t, rec)
		require.Len(t, plans, 1)
		assert.Equal(t, plan.ID, plans[0].ID)
		assert.Equal(t, 1, plans[0].PendingTasks)
	})

	t.Run("user tasks", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/tasks/user/u1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		tasks := decode[[]model.Task](t, rec)
		require.Len(t, tasks, 1)
		assert.Equal(t, task.ID, tasks[0].ID)
	})

	t.Run("unknown user has empty lists", func(t *testing.T) {
		rec := h.do(t, http.MethodGet, "/api/tasks/user/nobody", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())

		rec = h.do(t, http.MethodGet, "/api/plans/user/nobody", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestEditTask(t *testing.T) {
	h := newHarness(t)
	_, task := h.seedPlan(t)

	rec := h.do(t, http.MethodPatch, "/api/tasks/"+task.ID, `{"status":"completed","memo":"done early"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[model.Task](t, rec)
	assert.Equal(t, model.TaskStatusCompleted, got.Status)
	assert.Equal(t, "done early", got.Memo)

	rec = h.do(t, http.MethodPatch, "/api/tasks/"+task.ID, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPatch, "/api/tasks/missing", `{"memo":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProgressEndpoints(t *testing.T) {
	t.Run("manual log", func(t *testing.T) {
		h := newHarness(t)
		_, task := h.seedPlan(t)

		rec := h.do(t, http.MethodPost, "/api/progress",
			`{"task_id":"`+task.ID+`","user_id":"u1","status":"in_progress","value":40,"note":"weekend"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decode[map[string]string](t, rec)
		assert.Equal(t, "Progress logged successfully", body["message"])
		assert.NotEmpty(t, body["progress_id"])
	})

	t.Run("ai update", func(t *testing.T) {
		h := newHarness(t, `{"progress_analysis":{"new_value":25,"new_status":"in_progress","confidence":0.9,"note":"15 more pages"}}`)
		_, task := h.seedPlan(t)

		rec := h.do(t, http.MethodPost, "/api/progress/ai-update",
			`{"task_id":"`+task.ID+`","user_id":"u1","user_input":"read 15 more pages"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		res := decode[progress.UpdateResult](t, rec)
		assert.Equal(t, progress.StatusSuccess, res.Status)
		assert.True(t, res.TaskUpdated)
		require.NotNil(t, res.Analysis)
		assert.InDelta(t, 25.0, res.Analysis.NewValue, 1e-9)
	})

	t.Run("ai update for unknown task", func(t *testing.T) {
		h := newHarness(t)

		rec := h.do(t, http.MethodPost, "/api/progress/ai-update",
			`{"task_id":"missing","user_id":"u1","user_input":"read 15 more pages"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		res := decode[progress.UpdateResult](t, rec)
		assert.Equal(t, progress.StatusError, res.Status)
		assert.False(t, res.TaskUpdated)
		assert.Zero(t, h.gen.Calls())
	})

	t.Run("bulk update applies confident matches", func(t *testing.T) {
		h := newHarness(t)
		_, task := h.seedPlan(t)
		h.gen.Push(testutil.Reply{Text: `{"bulk_updates":[{"task_id":"` + task.ID +
			`","new_value":50,"new_status":"in_progress","note":"40 pages","confidence":0.85}],"summary":"Reading moved on"}`})

		rec := h.do(t, http.MethodPost, "/api/progress/bulk-ai-update",
			`{"user_id":"u1","progress_updates":"read 40 pages"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		res := decode[progress.BulkResult](t, rec)
		assert.Equal(t, []string{task.ID}, res.UpdatedTasks)
		assert.Equal(t, 1, res.TotalUpdates)
		assert.Equal(t, "Reading moved on", res.Summary)
	})

	t.Run("bulk update without active plans", func(t *testing.T) {
		h := newHarness(t)

		rec := h.do(t, http.MethodPost, "/api/progress/bulk-ai-update",
			`{"user_id":"u1","progress_updates":"read 40 pages"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		res := decode[progress.BulkResult](t, rec)
		assert.Equal(t, progress.StatusError, res.Status)
		assert.Equal(t, apperrors.ErrNoActivePlans.Error(), res.Error)
		assert.Equal(t, 0, res.TotalUpdates)
	})
}

func TestHealthAndCORS(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodOptions, "/api/create", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	pre := httptest.NewRecorder()
	h.srv.ServeHTTP(pre, req)
	assert.Equal(t, http.StatusNoContent, pre.Code)
	assert.Equal(t, "http://localhost:3000", pre.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, pre.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	other := httptest.NewRecorder()
	h.srv.ServeHTTP(other, req)
	assert.Empty(t, other.Header().Get("Access-Control-Allow-Origin"))

	missing := h.do(t, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, "application/problem+json", missing.Header().Get("Content-Type"))
	p := decode[api.ProblemDetail](t, missing)
	assert.Equal(t, "/api/unknown", p.Instance)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{apperrors.ErrNotFound, http.StatusNotFound},
		{apperrors.ErrNoActivePlans, http.StatusNotFound},
		{apperrors.ErrInvalidInput, http.StatusBadRequest},
		{apperrors.ErrOracleMalformed, http.StatusBadGateway},
		{apperrors.ErrOracleFailed, http.StatusBadGateway},
		{apperrors.ErrStorage, http.StatusInternalServerError},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, api.StatusFor(tt.err), "%v", tt.err)
	}
}
