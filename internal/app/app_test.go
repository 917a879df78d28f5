package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/agentic-planner/internal/ai"
	"github.com/nhle/agentic-planner/internal/app"
	"github.com/nhle/agentic-planner/internal/credential"
	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/inbox"
	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/progress"
	"github.com/nhle/agentic-planner/tests/testutil"
)

func testConfig(t *testing.T) *model.AppConfig {
	t.Helper()
	cfg := model.DefaultAppConfig()
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "planner.db")
	return cfg
}

func TestNewOpensConfiguredStore(t *testing.T) {
	cfg := testConfig(t)

	a, err := app.New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	plans, err := a.Plans.UserPlans(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, plans)
	assert.InDelta(t, model.DefaultConfidenceThreshold, a.Progress.Threshold(), 1e-9)
}

func TestNewAppliesThreshold(t *testing.T) {
	cfg := testConfig(t)
	cfg.Progress.ConfidenceThreshold = 0.55

	a, err := app.New(context.Background(), cfg, zerolog.Nop(),
		app.WithStore(testutil.NewTestStore(t)),
		app.WithGenerator(testutil.NewStubGenerator()))
	require.NoError(t, err)

	assert.InDelta(t, 0.55, a.Progress.Threshold(), 1e-9)
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	_, err := app.OpenStore(context.Background(), model.StoreConfig{Driver: "postgres"})
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
}

func TestLazyGeneratorNeedsKey(t *testing.T) {
	cfg := testConfig(t)
	ring := keyring.NewArrayKeyring(nil)

	a, err := app.New(context.Background(), cfg, zerolog.Nop(),
		app.WithStore(testutil.NewTestStore(t)),
		app.WithVault(credential.NewVault(ring)))
	require.NoError(t, err)

	res := a.Progress.BulkUpdate(context.Background(), "u1", "read 20 pages")
	assert.ErrorIs(t, res.Err, apperrors.ErrNoActivePlans)

	ctx := context.Background()
	plan, err := a.Store.CreatePlan(ctx, model.Plan{
		UserID: "u1", Title: "Reading", PlanType: model.PlanTypeStudy, IsActive: true,
	})
	require.NoError(t, err)
	_, err = a.Store.CreateTasks(ctx, []model.Task{{PlanID: plan.ID, Title: "Read"}})
	require.NoError(t, err)

	res = a.Progress.BulkUpdate(ctx, "u1", "read 20 pages")
	assert.Equal(t, progress.StatusError, res.Status)
	assert.ErrorIs(t, res.Err, apperrors.ErrConfigInvalid)
	assert.Equal(t, apperrors.KindOracleFailed, apperrors.KindOf(res.Err))
}

func TestSyncer(t *testing.T) {
	t.Run("requires inbox host", func(t *testing.T) {
		a, err := app.New(context.Background(), testConfig(t), zerolog.Nop(),
			app.WithStore(testutil.NewTestStore(t)),
			app.WithGenerator(ai.GeneratorFunc(func(context.Context, ai.Prompt) (string, error) { return "", nil })))
		require.NoError(t, err)

		_, err = a.Syncer()
		assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
	})

	t.Run("uses injected mailbox", func(t *testing.T) {
		a, err := app.New(context.Background(), testConfig(t), zerolog.Nop(),
			app.WithStore(testutil.NewTestStore(t)),
			app.WithGenerator(testutil.NewStubGenerator()),
			app.WithMailbox(emptyMailbox{}))
		require.NoError(t, err)

		p, err := a.Poller()
		require.NoError(t, err)
		require.NotNil(t, p)

		s, err := a.Syncer()
		require.NoError(t, err)
		report, err := s.SyncOnce(context.Background())
		require.NoError(t, err)
		assert.Zero(t, report.Fetched)
	})
}

type emptyMailbox struct{}

func (emptyMailbox) Unseen(context.Context) ([]inbox.Message, error) { return nil, nil }
func (emptyMailbox) MarkSeen(context.Context, uint32) error          { return nil }
