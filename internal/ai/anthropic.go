package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/nhle/agentic-planner/internal/errors"
)

const (
	defaultAnthropicModel     = "claude-sonnet-4-5-20250929"
	defaultAnthropicMaxTokens = 4096
	anthropicAPIURL           = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion       = "2023-06-01"
)

// Anthropic generates text with the Claude Messages API.
type Anthropic struct {
	apiKey    string
	model     string
	maxTokens int
	url       string
	client    *http.Client
}

// AnthropicOption configures an Anthropic generator.
type AnthropicOption func(*Anthropic)

// WithEndpoint overrides the Messages API URL.
func WithEndpoint(url string) AnthropicOption {
	return func(a *Anthropic) { a.url = url }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) AnthropicOption {
	return func(a *Anthropic) { a.client = c }
}

// NewAnthropic creates a Claude generator with the given configuration.
func NewAnthropic(apiKey, modelName string, maxTokens int, opts ...AnthropicOption) *Anthropic {
	if modelName == "" {
		modelName = defaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	a := &Anthropic{
		apiKey:    apiKey,
		model:     modelName,
		maxTokens: maxTokens,
		url:       anthropicAPIURL,
		client:    &http.Client{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate makes a single request to the Messages API and returns the
// concatenated text blocks of the reply.
func (a *Anthropic) Generate(ctx context.Context, p Prompt) (string, error) {
	temp := p.Temperature
	reqBody := apiRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      p.System,
		Temperature: &temp,
		Messages: []apiMessage{{
			Role:    "user",
			Content: []apiContentBlock{{Type: "text", Text: p.User}},
		}},
	}

	resp, err := a.callAPI(ctx, reqBody)
	if err != nil {
		return "", apperrors.Mark(err, apperrors.ErrOracleFailed)
	}

	var textParts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			textParts = append(textParts, block.Text)
		}
	}
	return strings.Join(textParts, ""), nil
}

func (a *Anthropic) callAPI(ctx context.Context, reqBody apiRequest) (*apiResponse, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

// --- Claude API types ---

type apiRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	System      string       `json:"system,omitempty"`
	Temperature *float32     `json:"temperature,omitempty"`
	Messages    []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
}

type apiContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Role       string            `json:"role"`
	Content    []apiContentBlock `json:"content"`
	Model      string            `json:"model"`
	StopReason string            `json:"stop_reason"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
