package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/careloop/triagekit/logger"
)

const (
	azureEndpointTemplate   = "https://%s.stt.speech.microsoft.com"
	azureRecognizeEndpoint  = "/speech/recognition/conversation/cognitiveservices/v1"
	azureDefaultRegion      = "eastus2"
	azureContentTypeWAV     = "audio/wav; codecs=audio/pcm; samplerate=16000"
	azureRecognitionSuccess = "Success"

	// Timeouts for Azure Speech requests. Health checks use the shorter one.
	defaultAzureTimeout     = 30 * time.Second
	azureHealthCheckTimeout = 10 * time.Second

	// HTTP status code threshold for server errors.
	azureServerErrorThreshold = 500
)

// AzureService implements STT using the Azure Speech REST API.
type AzureService struct {
	apiKey  string
	region  string
	baseURL string
	client  *http.Client
}

// AzureOption configures the Azure STT service.
type AzureOption func(*AzureService)

// WithAzureBaseURL sets a custom base URL (for testing or proxies).
func WithAzureBaseURL(url string) AzureOption {
	return func(s *AzureService) {
		s.baseURL = url
	}
}

// WithAzureClient sets a custom HTTP client.
func WithAzureClient(client *http.Client) AzureOption {
	return func(s *AzureService) {
		s.client = client
	}
}

// WithAzureRegion sets the Azure region. Default is "eastus2".
func WithAzureRegion(region string) AzureOption {
	return func(s *AzureService) {
		s.region = region
		s.baseURL = fmt.Sprintf(azureEndpointTemplate, region)
	}
}

// WithAzureAPIKey sets the subscription key explicitly, overriding the environment.
func WithAzureAPIKey(key string) AzureOption {
	return func(s *AzureService) {
		s.apiKey = key
	}
}

// NewAzure creates an Azure Speech STT service. The subscription key is read
// from AZURE_SPEECH_API_KEY and the region from AZURE_SPEECH_REGION unless
// overridden via options.
func NewAzure(opts ...AzureOption) *AzureService {
	region := os.Getenv("AZURE_SPEECH_REGION")
	if region == "" {
		region = azureDefaultRegion
	}

	s := &AzureService{
		apiKey:  os.Getenv("AZURE_SPEECH_API_KEY"),
		region:  region,
		baseURL: fmt.Sprintf(azureEndpointTemplate, region),
		client:  &http.Client{Timeout: defaultAzureTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.apiKey == "" {
		logger.Warn("AZURE_SPEECH_API_KEY not found in environment")
	}
	return s
}

// Name returns the provider identifier.
func (s *AzureService) Name() string {
	return "azure-speech"
}

// azureResponse represents the detailed-format recognition response.
type azureResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText"`
	NBest             []struct {
		Display string `json:"Display"`
	} `json:"NBest"`
}

// Transcribe converts audio to text using the Azure Speech REST API.
// Raw PCM input is wrapped as WAV before upload.
func (s *AzureService) Transcribe(
	ctx context.Context, audio []byte, config TranscriptionConfig,
) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	// Apply defaults
	format := config.Format
	if format == "" {
		format = FormatWAV
	}
	sampleRate := config.SampleRate
	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}
	channels := config.Channels
	if channels == 0 {
		channels = DefaultChannels
	}
	bitDepth := config.BitDepth
	if bitDepth == 0 {
		bitDepth = DefaultBitDepth
	}
	language := config.Language
	if language == "" {
		language = DefaultLanguage
	}

	audioData := audio
	if format == FormatPCM {
		audioData = WrapPCMAsWAV(audio, sampleRate, channels, bitDepth)
	}

	endpoint := fmt.Sprintf("%s%s?language=%s&format=detailed", s.baseURL, azureRecognizeEndpoint, language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audioData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", s.apiKey)
	req.Header.Set("Content-Type", azureContentTypeWAV)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", NewTranscriptionError(s.Name(), "", "request failed", err, true)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	logger.APIResponse("AzureSpeech", resp.StatusCode, string(body), nil)

	if resp.StatusCode != http.StatusOK {
		return "", s.handleError(resp.StatusCode, body)
	}

	var result azureResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	// Prefer DisplayText, fall back to the top NBest candidate.
	text := strings.TrimSpace(result.DisplayText)
	if text == "" && len(result.NBest) > 0 {
		text = strings.TrimSpace(result.NBest[0].Display)
	}
	if text == "" {
		return "", NewTranscriptionError(s.Name(), result.RecognitionStatus, "no speech recognized", ErrNoSpeech, false)
	}

	return text, nil
}

// handleError maps an HTTP error response to a TranscriptionError.
func (s *AzureService) handleError(statusCode int, body []byte) error {
	retryable := statusCode == http.StatusTooManyRequests ||
		statusCode >= azureServerErrorThreshold

	var cause error
	switch statusCode {
	case http.StatusTooManyRequests:
		cause = ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		cause = fmt.Errorf("invalid subscription key")
	case http.StatusBadRequest:
		cause = ErrInvalidFormat
	}

	return NewTranscriptionError(
		s.Name(),
		fmt.Sprintf("%d", statusCode),
		string(body),
		cause,
		retryable,
	)
}

// TestConnection checks whether the recognition endpoint is reachable.
// Azure answers GET on the recognition path with a method-related status
// when the endpoint and key resolve, so any HTTP response counts as alive.
func (s *AzureService) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, azureHealthCheckTimeout)
	defer cancel()

	endpoint := s.baseURL + azureRecognizeEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		logger.ProviderError(s.Name(), "test-connection", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < azureServerErrorThreshold
}

// SupportedFormats returns audio formats accepted by the adapter.
func (s *AzureService) SupportedFormats() []string {
	return []string{
		FormatWAV,
		FormatPCM, // Wrapped as WAV internally
	}
}
