// Package app assembles the planner from configuration: store, generator,
// plan service, progress updater and inbox poller.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/agentic-planner/internal/ai"
	"github.com/nhle/agentic-planner/internal/clock"
	"github.com/nhle/agentic-planner/internal/credential"
	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/inbox"
	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/planner"
	"github.com/nhle/agentic-planner/internal/progress"
	"github.com/nhle/agentic-planner/internal/store"
)

// App holds the wired services. Close releases the store.
type App struct {
	Config   *model.AppConfig
	Logger   zerolog.Logger
	Store    store.Store
	Plans    *planner.Service
	Progress *progress.Updater

	gen     ai.Generator
	mailbox inbox.Mailbox
	clock   clock.Clock

	vaultOnce sync.Once
	vault     *credential.Vault
	vaultErr  error
}

// Option overrides a dependency New would otherwise build from config.
type Option func(*App)

// WithStore uses s instead of opening the configured store.
func WithStore(s store.Store) Option {
	return func(a *App) { a.Store = s }
}

// WithGenerator uses gen instead of the configured provider.
func WithGenerator(gen ai.Generator) Option {
	return func(a *App) { a.gen = gen }
}

// WithVault uses v for secrets instead of the system keyring.
func WithVault(v *credential.Vault) Option {
	return func(a *App) { a.vault = v }
}

// WithMailbox uses mb instead of an IMAP client.
func WithMailbox(mb inbox.Mailbox) Option {
	return func(a *App) { a.mailbox = mb }
}

// WithClock sets the clock shared by the services.
func WithClock(c clock.Clock) Option {
	return func(a *App) { a.clock = c }
}

// New wires an App. The generator is built on first use, so commands that
// never call it run without an API key.
func New(ctx context.Context, cfg *model.AppConfig, logger zerolog.Logger, opts ...Option) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		clock:  clock.RealClock{},
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.Store == nil {
		s, err := OpenStore(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		a.Store = s
	}

	gen := a.gen
	if gen == nil {
		gen = a.lazyGenerator()
	}

	a.Plans = planner.NewService(a.Store,
		planner.NewPlanningPipeline(gen, a.Store,
			planner.WithPipelineLogger(logger.With().Str("component", "pipeline").Logger())),
		planner.WithLogger(logger.With().Str("component", "planner").Logger()),
		planner.WithClock(a.clock),
	)
	a.Progress = progress.NewUpdater(a.Store, gen,
		progress.WithThreshold(cfg.Progress.ConfidenceThreshold),
		progress.WithLogger(logger.With().Str("component", "progress").Logger()),
		progress.WithClock(a.clock),
	)
	return a, nil
}

// OpenStore opens the configured backend.
func OpenStore(ctx context.Context, cfg model.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case model.StoreDriverSQLite:
		return store.NewSQLiteStore(cfg.SQLitePath)
	case model.StoreDriverMongo:
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	}
	return nil, fmt.Errorf("%w: unknown store.driver %q", apperrors.ErrConfigInvalid, cfg.Driver)
}

// Vault returns the credential vault, opening the system keyring once.
func (a *App) Vault() (*credential.Vault, error) {
	a.vaultOnce.Do(func() {
		if a.vault == nil {
			a.vault, a.vaultErr = credential.Open()
		}
	})
	return a.vault, a.vaultErr
}

// secret resolves a configured secret, consulting the keyring only when
// value is empty.
func (a *App) secret(value, key string) (string, error) {
	if value != "" {
		return value, nil
	}
	v, err := a.Vault()
	if err != nil {
		return "", err
	}
	return v.Resolve("", key)
}

// lazyGenerator defers provider construction to the first call. A failed
// construction is retried on the next call.
func (a *App) lazyGenerator() ai.Generator {
	var (
		mu  sync.Mutex
		gen ai.Generator
	)
	return ai.GeneratorFunc(func(ctx context.Context, p ai.Prompt) (string, error) {
		mu.Lock()
		if gen == nil {
			key, err := a.secret(a.Config.AI.APIKey, credential.KeyAIAPIKey)
			if err == nil {
				gen, err = ai.New(ctx, a.Config.AI, key, a.Logger.With().Str("component", "ai").Logger())
			}
			if err != nil {
				mu.Unlock()
				return "", err
			}
		}
		g := gen
		mu.Unlock()
		return g.Generate(ctx, p)
	})
}

// Syncer builds the inbox syncer feeding the progress updater.
func (a *App) Syncer() (*inbox.Syncer, error) {
	mb := a.mailbox
	if mb == nil {
		cfg := a.Config.Inbox
		if cfg.Host == "" || cfg.Username == "" {
			return nil, fmt.Errorf("%w: inbox.host and inbox.username are required", apperrors.ErrConfigInvalid)
		}
		password, err := a.secret(cfg.Password, credential.KeyInboxPassword)
		if err != nil {
			return nil, err
		}
		mb = inbox.NewIMAPClient(cfg, password)
	}

	return inbox.NewSyncer(mb, a.Progress, a.Config.Inbox.Senders,
		inbox.WithSyncLogger(a.Logger.With().Str("component", "inbox").Logger())), nil
}

// Poller builds an inbox poller on the configured interval.
func (a *App) Poller() (*inbox.Poller, error) {
	syncer, err := a.Syncer()
	if err != nil {
		return nil, err
	}
	interval := time.Duration(a.Config.Inbox.PollIntervalSec) * time.Second
	return inbox.NewPoller(syncer, interval, a.Logger.With().Str("component", "poller").Logger()), nil
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
