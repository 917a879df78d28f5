package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini generates text with Google's Gemini API.
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGemini creates a Gemini generator. An empty model selects
// gemini-2.0-flash.
func NewGemini(ctx context.Context, apiKey, model string, maxTokens int) (*Gemini, error) {
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}

	return &Gemini{
		client:    client,
		model:     model,
		maxTokens: int32(maxTokens),
	}, nil
}

// Generate sends the prompt and asks for a JSON response body.
func (g *Gemini) Generate(ctx context.Context, p Prompt) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(p.Temperature),
		ResponseMIMEType: "application/json",
	}
	if p.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}
	if g.maxTokens > 0 {
		cfg.MaxOutputTokens = g.maxTokens
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(p.User), cfg)
	if err != nil {
		return "", apperrors.Mark(fmt.Errorf("gemini generate: %w", err), apperrors.ErrOracleFailed)
	}

	return resp.Text(), nil
}
