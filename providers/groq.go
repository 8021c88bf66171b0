package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/careloop/triagekit/logger"
	"github.com/careloop/triagekit/types"
)

const (
	groqBaseURL = "https://api.groq.com/openai/v1"

	// ModelLlama4Scout is the default Groq chat model.
	ModelLlama4Scout = "meta-llama/llama-4-scout-17b-16e-instruct"

	// Timeouts for Groq requests. Health checks use the shorter timeout.
	defaultGroqTimeout     = 30 * time.Second
	groqHealthCheckTimeout = 10 * time.Second

	// HTTP status code threshold for server errors.
	groqServerErrorThreshold = 500

	defaultGroqTemperature = 0.7
	defaultGroqTopP        = 1.0
	defaultGroqMaxTokens   = 150
)

// GroqProvider implements the Provider interface for Groq's
// OpenAI-compatible chat completions API.
type GroqProvider struct {
	id       string
	model    string
	baseURL  string
	apiKey   string
	defaults ProviderDefaults
	client   *http.Client
}

// GroqOption configures the Groq provider.
type GroqOption func(*GroqProvider)

// WithGroqBaseURL sets a custom base URL (for testing or proxies).
func WithGroqBaseURL(url string) GroqOption {
	return func(p *GroqProvider) {
		p.baseURL = url
	}
}

// WithGroqClient sets a custom HTTP client.
func WithGroqClient(client *http.Client) GroqOption {
	return func(p *GroqProvider) {
		p.client = client
	}
}

// WithGroqModel sets the chat model.
func WithGroqModel(model string) GroqOption {
	return func(p *GroqProvider) {
		p.model = model
	}
}

// WithGroqAPIKey sets the API key explicitly, overriding the environment.
func WithGroqAPIKey(key string) GroqOption {
	return func(p *GroqProvider) {
		p.apiKey = key
	}
}

// NewGroqProvider creates a Groq chat provider. The API key is read from
// the GROQ_API_KEY environment variable unless overridden via WithGroqAPIKey.
func NewGroqProvider(opts ...GroqOption) *GroqProvider {
	p := &GroqProvider{
		id:      "groq",
		model:   ModelLlama4Scout,
		baseURL: groqBaseURL,
		apiKey:  os.Getenv("GROQ_API_KEY"),
		defaults: ProviderDefaults{
			Temperature: defaultGroqTemperature,
			TopP:        defaultGroqTopP,
			MaxTokens:   defaultGroqMaxTokens,
		},
		client: &http.Client{Timeout: defaultGroqTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.apiKey == "" {
		logger.Warn("GROQ_API_KEY not found in environment")
	}
	return p
}

// ID returns the provider ID.
func (p *GroqProvider) ID() string {
	return p.id
}

// Close closes the HTTP client and cleans up idle connections.
func (p *GroqProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// Groq API request/response structures (OpenAI-compatible).
type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	TopP        float32       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []groqChoice `json:"choices"`
	Error   *groqError   `json:"error,omitempty"`
}

type groqChoice struct {
	Index        int         `json:"index"`
	Message      groqMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type groqError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Chat sends a chat request to Groq.
func (p *GroqProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	start := time.Now()

	if p.apiKey == "" {
		return ChatResponse{}, ErrNoAPIKey
	}

	messages := make([]groqMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, groqMessage{
			Role:    types.RoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.Messages {
		messages = append(messages, groqMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	// Apply provider defaults where the request leaves a field unset
	temperature := p.defaults.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	topP := p.defaults.TopP
	if req.TopP != nil {
		topP = *req.TopP
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.defaults.MaxTokens
	}

	groqReq := groqRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
		Stream:      false,
	}

	reqBody, err := json.Marshal(groqReq)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	chatResp := ChatResponse{}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return chatResp, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	logger.APIRequest("Groq", http.MethodPost, p.baseURL+"/chat/completions", map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + p.apiKey,
	}, groqReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		chatResp.Latency = time.Since(start)
		return chatResp, NewProviderError(p.id, "", "request failed", err, true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		chatResp.Latency = time.Since(start)
		return chatResp, fmt.Errorf("failed to read response body: %w", err)
	}

	logger.APIResponse("Groq", resp.StatusCode, string(respBody), nil)

	if resp.StatusCode != http.StatusOK {
		chatResp.Latency = time.Since(start)
		chatResp.Raw = respBody
		return chatResp, p.handleError(resp.StatusCode, respBody)
	}

	var groqResp groqResponse
	if err := json.Unmarshal(respBody, &groqResp); err != nil {
		chatResp.Latency = time.Since(start)
		chatResp.Raw = respBody
		return chatResp, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if groqResp.Error != nil {
		chatResp.Latency = time.Since(start)
		chatResp.Raw = respBody
		return chatResp, NewProviderError(p.id, groqResp.Error.Code, groqResp.Error.Message, nil, false)
	}

	if len(groqResp.Choices) == 0 {
		chatResp.Latency = time.Since(start)
		chatResp.Raw = respBody
		return chatResp, ErrNoChoices
	}

	chatResp.Content = groqResp.Choices[0].Message.Content
	chatResp.Latency = time.Since(start)
	chatResp.Raw = respBody

	return chatResp, nil
}

// handleError maps an HTTP error response to a ProviderError.
func (p *GroqProvider) handleError(statusCode int, body []byte) error {
	var errResp groqResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == nil {
		return NewProviderError(
			p.id,
			fmt.Sprintf("%d", statusCode),
			string(body),
			nil,
			statusCode >= groqServerErrorThreshold,
		)
	}

	retryable := statusCode == http.StatusTooManyRequests ||
		statusCode >= groqServerErrorThreshold

	var cause error
	if statusCode == http.StatusTooManyRequests {
		cause = ErrRateLimited
	}

	return NewProviderError(p.id, errResp.Error.Code, errResp.Error.Message, cause, retryable)
}

// TestConnection sends a minimal completion request to verify the API
// is reachable. Uses a short timeout so health checks stay cheap.
func (p *GroqProvider) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, groqHealthCheckTimeout)
	defer cancel()

	_, err := p.Chat(ctx, ChatRequest{
		Messages:  []types.Message{{Role: types.RoleUser, Content: "Hello, are you working?"}},
		MaxTokens: 10,
	})
	if err != nil {
		logger.ProviderError(p.id, "test-connection", err)
		return false
	}
	return true
}
