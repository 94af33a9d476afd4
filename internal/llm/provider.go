// Package llm wraps the hosted model providers behind a single interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse is returned when the provider answered without any text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Message is one turn of a conversation sent to a provider.
type Message struct {
	Role    string
	Content string
}

// StreamToken is a single chunk of a streaming response. The last token on a
// channel has Done set; a token with a non-nil Error is always the last one.
type StreamToken struct {
	Content string
	Done    bool
	Error   error
}

// Request describes a single-prompt generation call.
type Request struct {
	Model  string
	System string
	Prompt string
}

// ChatRequest describes a streaming multi-turn call.
type ChatRequest struct {
	Model    string
	System   string
	Messages []Message
}

// Provider is a hosted large-language-model backend.
type Provider interface {
	// StreamChat streams the assistant reply to the conversation. The channel
	// is closed after the final token.
	StreamChat(ctx context.Context, req ChatRequest) (<-chan StreamToken, error)

	// GenerateText returns the plain-text completion of a prompt.
	GenerateText(ctx context.Context, req Request) (string, error)

	// GenerateObject returns JSON text constrained to schema.
	GenerateObject(ctx context.Context, req Request, schema *Schema) (string, error)
}

// slots is a token bucket bounding concurrent provider calls.
type slots chan struct{}

func newSlots(n int) slots {
	if n < 1 {
		n = 1
	}
	s := make(slots, n)
	for i := 0; i < n; i++ {
		s <- struct{}{}
	}
	return s
}

// acquire blocks until a slot is available
func (s slots) acquire(ctx context.Context) error {
	select {
	case <-s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for model rate slot")
	}
}

func (s slots) release() {
	s <- struct{}{}
}

// send delivers tok unless ctx is done first.
func send(ctx context.Context, ch chan<- StreamToken, tok StreamToken) bool {
	select {
	case ch <- tok:
		return true
	case <-ctx.Done():
		return false
	}
}

// CleanJSON strips markdown code fences and anything around the outermost
// JSON object in raw model output.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
