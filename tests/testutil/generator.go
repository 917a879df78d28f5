package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/nhle/agentic-planner/internal/ai"
)

// Reply is one scripted generator answer.
type Reply struct {
	Text string
	Err  error
}

// StubGenerator answers prompts from a script, in order, and records every
// prompt it receives. Calls beyond the script fail.
type StubGenerator struct {
	mu      sync.Mutex
	replies []Reply
	prompts []ai.Prompt
}

var _ ai.Generator = (*StubGenerator)(nil)

// NewStubGenerator returns a generator that answers with texts in order.
func NewStubGenerator(texts ...string) *StubGenerator {
	g := &StubGenerator{}
	for _, text := range texts {
		g.replies = append(g.replies, Reply{Text: text})
	}
	return g
}

// Push appends a reply to the script.
func (g *StubGenerator) Push(r Reply) *StubGenerator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies = append(g.replies, r)
	return g
}

// Generate returns the next scripted reply.
func (g *StubGenerator) Generate(_ context.Context, p ai.Prompt) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prompts = append(g.prompts, p)
	n := len(g.prompts)
	if n > len(g.replies) {
		return "", fmt.Errorf("stub generator: unexpected call %d", n)
	}
	r := g.replies[n-1]
	return r.Text, r.Err
}

// Calls returns how many times Generate was called.
func (g *StubGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// Prompts returns a copy of the received prompts.
func (g *StubGenerator) Prompts() []ai.Prompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ai.Prompt(nil), g.prompts...)
}

// LastPrompt returns the most recent prompt, or the zero Prompt.
func (g *StubGenerator) LastPrompt() ai.Prompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ai.Prompt{}
	}
	return g.prompts[len(g.prompts)-1]
}
