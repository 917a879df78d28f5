package inbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/progress"
)

// BulkUpdater applies a free-text report to a user's open tasks.
type BulkUpdater interface {
	BulkUpdate(ctx context.Context, userID, report string) progress.BulkResult
}

// SyncReport counts what one pass over the mailbox did.
type SyncReport struct {
	Fetched int `json:"fetched"`
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`

	// Updates is the number of task updates across all applied messages.
	Updates int `json:"updates"`
}

// Syncer turns unseen mail into bulk progress updates. A Syncer is not
// safe for concurrent SyncOnce calls.
type Syncer struct {
	mailbox Mailbox
	updater BulkUpdater
	senders map[string]string
	logger  zerolog.Logger

	// unflagged holds UIDs whose report was consumed but whose \Seen flag
	// could not be set yet.
	unflagged map[uint32]bool
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithSyncLogger sets the syncer logger.
func WithSyncLogger(logger zerolog.Logger) SyncerOption {
	return func(s *Syncer) {
		s.logger = logger
	}
}

// NewSyncer creates a Syncer. senders maps a sender address to a user id;
// addresses are matched case-insensitively.
func NewSyncer(mailbox Mailbox, updater BulkUpdater, senders map[string]string, opts ...SyncerOption) *Syncer {
	normalized := make(map[string]string, len(senders))
	for addr, userID := range senders {
		normalized[strings.ToLower(strings.TrimSpace(addr))] = userID
	}

	s := &Syncer{
		mailbox:   mailbox,
		updater:   updater,
		senders:   normalized,
		logger:    zerolog.Nop(),
		unflagged: make(map[uint32]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncOnce processes every unseen message once. A report is consumed, and
// its message flagged \Seen, once it has been run through the bulk update,
// unless the update failed before applying anything for a reason that may
// clear up (generator unreachable, storage down). Messages from unknown
// senders stay unseen. A consumed message whose flag could not be set is
// never sent to the updater again; the flag is retried on the next pass.
func (s *Syncer) SyncOnce(ctx context.Context) (SyncReport, error) {
	messages, err := s.mailbox.Unseen(ctx)
	if err != nil {
		return SyncReport{}, fmt.Errorf("listing unseen mail: %w", err)
	}

	report := SyncReport{Fetched: len(messages)}
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		log := s.logger.With().Uint32("uid", msg.UID).Str("from", msg.From).Logger()

		if s.unflagged[msg.UID] {
			log.Debug().Msg("flagging mail consumed on an earlier pass")
			report.Skipped++
			s.markSeen(ctx, log, msg.UID)
			continue
		}

		userID, ok := s.senders[strings.ToLower(msg.From)]
		if !ok {
			log.Debug().Msg("skipping mail from unknown sender")
			report.Skipped++
			continue
		}

		text := msg.Report()
		if text == "" {
			log.Debug().Msg("skipping empty mail")
			report.Skipped++
			continue
		}

		res := s.updater.BulkUpdate(ctx, userID, text)
		report.Updates += res.TotalUpdates

		if res.Status == progress.StatusSuccess {
			log.Info().
				Str("user_id", userID).
				Int("updates", res.TotalUpdates).
				Msg("mailed report applied")
			report.Applied++
		} else {
			log.Warn().
				Str("user_id", userID).
				Int("updates", res.TotalUpdates).
				Str("error", res.Error).
				Msg("mailed report not applied")
			report.Failed++
			if res.TotalUpdates == 0 && retryable(res.Err) {
				continue
			}
		}

		s.unflagged[msg.UID] = true
		s.markSeen(ctx, log, msg.UID)
	}

	return report, nil
}

func (s *Syncer) markSeen(ctx context.Context, log zerolog.Logger, uid uint32) {
	if err := s.mailbox.MarkSeen(ctx, uid); err != nil {
		log.Error().Err(err).Msg("marking mail seen failed")
		return
	}
	delete(s.unflagged, uid)
}

// retryable reports whether a failed update may succeed on a later pass.
func retryable(err error) bool {
	switch apperrors.KindOf(err) {
	case apperrors.KindOracleFailed, apperrors.KindStorage:
		return true
	}
	return false
}
