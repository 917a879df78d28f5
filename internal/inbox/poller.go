package inbox

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SyncState is the state of the inbox poller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	}
	return "idle"
}

// SyncStatus is a snapshot of the poller.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Last     SyncReport
	Error    error
}

const (
	defaultPollInterval = 5 * time.Minute

	// syncTimeout bounds a single pass over the mailbox.
	syncTimeout = 2 * time.Minute
)

// Poller runs a Syncer on an interval.
type Poller struct {
	syncer    *Syncer
	interval  time.Duration
	logger    zerolog.Logger
	triggerCh chan struct{}

	mu     sync.Mutex
	status SyncStatus
}

// NewPoller creates a Poller. A non-positive interval means five minutes.
func NewPoller(syncer *Syncer, interval time.Duration, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{
		syncer:    syncer,
		interval:  interval,
		logger:    logger,
		triggerCh: make(chan struct{}, 1),
	}
}

// Run syncs immediately and then on every tick or Refresh until ctx ends.
// It returns nil on cancellation; a failed pass is recorded and retried.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.syncOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.syncOnce(ctx)
		case <-p.triggerCh:
			p.syncOnce(ctx)
		}
	}
}

// Refresh asks a running poller for an immediate pass. It never blocks;
// a refresh already pending absorbs this one.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the current poller status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) syncOnce(ctx context.Context) {
	p.setState(SyncRunning)

	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	report, err := p.syncer.SyncOnce(ctx)

	p.mu.Lock()
	p.status.Last = report
	p.status.Error = err
	if err != nil {
		p.status.State = SyncError
	} else {
		p.status.State = SyncIdle
		p.status.LastSync = time.Now()
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Error().Err(err).Msg("inbox sync failed")
		return
	}
	p.logger.Debug().
		Int("fetched", report.Fetched).
		Int("applied", report.Applied).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("inbox sync finished")
}

func (p *Poller) setState(state SyncState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.State = state
}
