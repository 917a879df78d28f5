package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/agentic-planner/internal/ai"
	"github.com/nhle/agentic-planner/internal/store"
)

// Pipeline runs stages in order, stopping at the first failure.
type Pipeline struct {
	stages []Stage
	logger zerolog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the logger for stage events.
func WithPipelineLogger(logger zerolog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a pipeline over the given stages.
func NewPipeline(stages []Stage, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		stages: stages,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewPlanningPipeline wires the goal parser, plan generator, and task saver.
func NewPlanningPipeline(gen ai.Generator, s store.Store, opts ...PipelineOption) *Pipeline {
	return NewPipeline([]Stage{
		NewGoalParser(gen),
		NewPlanGenerator(gen),
		NewTaskSaver(s),
	}, opts...)
}

// Execute runs every stage against a fresh state for in. It never returns
// an error or panics: failures, including stage panics, end the run with
// StatusError and a message naming the failing stage.
func (p *Pipeline) Execute(ctx context.Context, in Input) *State {
	st := NewState(in)
	log := p.logger.With().Str("plan_id", in.PlanID).Logger()

	for _, stage := range p.stages {
		start := time.Now()
		log.Debug().Str("stage", stage.Name()).Msg("stage started")

		if err := runStage(ctx, stage, st); err != nil {
			st.fail(fmt.Errorf("%s failed: %w", stage.Name(), err))
			log.Error().
				Err(err).
				Str("stage", stage.Name()).
				Dur("duration", time.Since(start)).
				Msg("stage failed")
			return st
		}

		log.Debug().
			Str("stage", stage.Name()).
			Str("status", string(st.Status)).
			Dur("duration", time.Since(start)).
			Msg("stage finished")
	}

	return st
}

func runStage(ctx context.Context, stage Stage, st *State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return stage.Run(ctx, st)
}
