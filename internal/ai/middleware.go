package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
)

// WithRateLimit caps next to perMinute calls per minute. Callers block until
// a token is available or their context ends. Zero or less disables the
// limit and returns next unchanged.
func WithRateLimit(next Generator, perMinute int) Generator {
	if perMinute <= 0 {
		return next
	}
	return &rateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1),
	}
}

type rateLimited struct {
	next    Generator
	limiter *rate.Limiter
}

func (r *rateLimited) Generate(ctx context.Context, p Prompt) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", apperrors.Mark(fmt.Errorf("waiting for rate limiter: %w", err), apperrors.ErrOracleFailed)
	}
	return r.next.Generate(ctx, p)
}

// WithLogging records the duration and size of every call to next.
func WithLogging(next Generator, logger zerolog.Logger) Generator {
	return &logged{next: next, logger: logger}
}

type logged struct {
	next   Generator
	logger zerolog.Logger
}

func (l *logged) Generate(ctx context.Context, p Prompt) (string, error) {
	start := time.Now()
	out, err := l.next.Generate(ctx, p)
	elapsed := time.Since(start)

	if err != nil {
		l.logger.Error().Err(err).Dur("duration", elapsed).Msg("generator call failed")
		return "", err
	}

	l.logger.Debug().
		Dur("duration", elapsed).
		Int("prompt_chars", len(p.System)+len(p.User)).
		Int("response_chars", len(out)).
		Float32("temperature", p.Temperature).
		Msg("generator call completed")
	return out, nil
}
