// Package providers implements chat text-generation providers behind a
// unified interface.
//
// The triage flow engine and the voice pipeline depend only on the Provider
// interface; concrete adapters (Groq today) handle the provider-specific
// HTTP protocol, authentication and error mapping.
package providers

import (
	"context"
	"time"

	"github.com/careloop/triagekit/types"
)

// ChatRequest represents a request to a chat provider.
//
// Temperature and TopP are pointers so an explicit zero is distinct from
// "use the provider default" (nil).
type ChatRequest struct {
	System      string          `json:"system"`
	Messages    []types.Message `json:"messages"`
	Temperature *float32        `json:"temperature,omitempty"`
	TopP        *float32        `json:"top_p,omitempty"`
	MaxTokens   int             `json:"max_tokens"`
}

// ChatResponse represents a response from a chat provider.
type ChatResponse struct {
	Content string        `json:"content"`
	Latency time.Duration `json:"latency"`
	Raw     []byte        `json:"raw,omitempty"`
}

// ProviderDefaults holds default parameters applied when a request leaves
// the corresponding field zero.
type ProviderDefaults struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// Provider defines the contract for chat providers.
type Provider interface {
	ID() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// TestConnection reports whether the provider is reachable and
	// accepting requests. It must not mutate any conversation state.
	TestConnection(ctx context.Context) bool

	// Close cleans up provider resources (e.g. HTTP connections).
	Close() error
}
