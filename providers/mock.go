package providers

import (
	"context"
	"fmt"
)

// MockProvider is a provider implementation for testing and development.
// It returns canned responses without making any API calls.
type MockProvider struct {
	id    string
	value string
	err   error
	alive bool

	// Requests records every chat request received, in order.
	Requests []ChatRequest
}

// NewMockProvider creates a mock provider that answers every chat request
// with the given response text.
func NewMockProvider(id, response string) *MockProvider {
	return &MockProvider{
		id:    id,
		value: response,
		alive: true,
	}
}

// NewFailingMockProvider creates a mock provider whose calls always fail
// with the given error.
func NewFailingMockProvider(id string, err error) *MockProvider {
	return &MockProvider{
		id:  id,
		err: err,
	}
}

// ID returns the provider ID.
func (m *MockProvider) ID() string {
	return m.id
}

// SetResponse changes the canned response for subsequent chat requests.
func (m *MockProvider) SetResponse(response string) {
	m.value = response
}

// Chat returns the canned response, recording the request.
func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	m.Requests = append(m.Requests, req)
	if m.err != nil {
		return ChatResponse{}, fmt.Errorf("mock chat: %w", m.err)
	}
	return ChatResponse{Content: m.value}, nil
}

// TestConnection reports the configured liveness.
func (m *MockProvider) TestConnection(ctx context.Context) bool {
	return m.alive
}

// Close is a no-op for the mock provider.
func (m *MockProvider) Close() error {
	return nil
}
