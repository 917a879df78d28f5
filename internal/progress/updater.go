// Package progress reconciles free-text progress reports with stored tasks.
//
// A single-task update trusts the generator's reading of the report. A bulk
// update asks the generator to match a report against all of a user's open
// tasks and applies only the matches whose confidence clears the threshold.
package progress

import (
	"github.com/rs/zerolog"

	"github.com/nhle/agentic-planner/internal/ai"
	"github.com/nhle/agentic-planner/internal/clock"
	"github.com/nhle/agentic-planner/internal/model"
	"github.com/nhle/agentic-planner/internal/store"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Updater applies progress reports to tasks.
type Updater struct {
	store     store.Store
	gen       ai.Generator
	threshold float64
	clock     clock.Clock
	logger    zerolog.Logger
}

// Option configures an Updater.
type Option func(*Updater)

// WithThreshold sets the minimum confidence for bulk-matched updates.
func WithThreshold(t float64) Option {
	return func(u *Updater) {
		u.threshold = t
	}
}

// WithLogger sets the updater logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(u *Updater) {
		u.logger = logger
	}
}

// WithClock sets the clock used to date progress logs.
func WithClock(c clock.Clock) Option {
	return func(u *Updater) {
		u.clock = c
	}
}

// NewUpdater creates an Updater. The bulk confidence threshold defaults to
// model.DefaultConfidenceThreshold.
func NewUpdater(s store.Store, gen ai.Generator, opts ...Option) *Updater {
	u := &Updater{
		store:     s,
		gen:       gen,
		threshold: model.DefaultConfidenceThreshold,
		clock:     clock.RealClock{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Threshold returns the bulk confidence threshold in effect.
func (u *Updater) Threshold() float64 {
	return u.threshold
}
