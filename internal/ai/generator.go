// Package ai talks to the external text generation service that parses
// goals, drafts plans, and interprets progress reports.
//
// Every provider answers a Prompt with raw text that is expected to hold a
// single JSON object, optionally wrapped in a markdown fence. Callers turn
// that text into typed values with Decode.
package ai

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
	"github.com/nhle/agentic-planner/internal/model"
)

// Prompt is one system instruction plus one user message.
type Prompt struct {
	System      string
	User        string
	Temperature float32
}

// Generator produces a text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, p Prompt) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, p Prompt) (string, error) {
	return f(ctx, p)
}

// New builds the configured provider wrapped with rate limiting and
// logging. apiKey is the resolved secret; cfg.APIKey is ignored.
func New(ctx context.Context, cfg model.AIConfig, apiKey string, logger zerolog.Logger) (Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: no API key for provider %q", apperrors.ErrConfigInvalid, cfg.Provider)
	}

	var (
		gen Generator
		err error
	)
	switch cfg.Provider {
	case model.ProviderGemini:
		gen, err = NewGemini(ctx, apiKey, cfg.Model, cfg.MaxTokens)
	case model.ProviderAnthropic:
		gen = NewAnthropic(apiKey, cfg.Model, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("%w: unknown ai.provider %q", apperrors.ErrConfigInvalid, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	gen = WithRateLimit(gen, cfg.RequestsPerMinute)
	return WithLogging(gen, logger.With().Str("provider", cfg.Provider).Logger()), nil
}
