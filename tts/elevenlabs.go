package tts

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
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

	// ElevenLabsModelEnglish is the English monolingual v1 model.
	ElevenLabsModelEnglish = "eleven_monolingual_v1"
	// ElevenLabsModelMultilingual is the multilingual v2 model.
	ElevenLabsModelMultilingual = "eleven_multilingual_v2"

	// Timeouts for ElevenLabs requests. Health checks use the shorter one.
	defaultElevenLabsTimeout     = 30 * time.Second
	elevenLabsHealthCheckTimeout = 10 * time.Second

	// HTTP status code threshold for server errors.
	elevenLabsServerErrorThreshold = 500

	// Default voice settings.
	elevenLabsDefaultStability       = 0.5
	elevenLabsDefaultSimilarityBoost = 0.5

	// Default voice ID (Adam).
	elevenLabsDefaultVoice = "pNInz6obpgDQGcFmaJgB"

	// Audio format constants.
	elevenLabsFormatMP3    = "mp3_44100_128"
	elevenLabsFormatPCM    = "pcm_24000"
	elevenLabsBitDepth16   = 16
	elevenLabsSampleRate44 = 44100
	elevenLabsSampleRate24 = 24000
)

// ElevenLabsService implements TTS using ElevenLabs' API.
type ElevenLabsService struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	model        string
	defaultVoice string
}

// ElevenLabsOption configures the ElevenLabs TTS service.
type ElevenLabsOption func(*ElevenLabsService)

// WithElevenLabsBaseURL sets a custom base URL.
func WithElevenLabsBaseURL(url string) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.baseURL = url
	}
}

// WithElevenLabsClient sets a custom HTTP client.
func WithElevenLabsClient(client *http.Client) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.client = client
	}
}

// WithElevenLabsModel sets the TTS model.
func WithElevenLabsModel(model string) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.model = model
	}
}

// WithElevenLabsAPIKey sets the API key explicitly, overriding the environment.
func WithElevenLabsAPIKey(key string) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.apiKey = key
	}
}

// WithElevenLabsVoice sets the default voice ID.
func WithElevenLabsVoice(voiceID string) ElevenLabsOption {
	return func(s *ElevenLabsService) {
		s.defaultVoice = voiceID
	}
}

// NewElevenLabs creates an ElevenLabs TTS service. The API key is read from
// ELEVENLABS_API_KEY and the default voice from ELEVENLABS_VOICE_ID unless
// overridden via options.
func NewElevenLabs(opts ...ElevenLabsOption) *ElevenLabsService {
	voice := os.Getenv("ELEVENLABS_VOICE_ID")
	if voice == "" {
		voice = elevenLabsDefaultVoice
	}

	s := &ElevenLabsService{
		apiKey:       os.Getenv("ELEVENLABS_API_KEY"),
		baseURL:      elevenLabsBaseURL,
		client:       &http.Client{Timeout: defaultElevenLabsTimeout},
		model:        ElevenLabsModelEnglish,
		defaultVoice: voice,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.apiKey == "" {
		logger.Warn("ELEVENLABS_API_KEY not found in environment")
	}
	return s
}

// Name returns the provider identifier.
func (s *ElevenLabsService) Name() string {
	return "elevenlabs"
}

// elevenLabsRequest is the request body for ElevenLabs TTS API.
type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id,omitempty"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

// elevenLabsVoiceSettings configures voice parameters.
type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Synthesize converts text to audio using ElevenLabs' TTS API.
func (s *ElevenLabsService) Synthesize(
	ctx context.Context, text string, config SynthesisConfig,
) (io.ReadCloser, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	voice := config.Voice
	if voice == "" {
		voice = s.defaultVoice
	}

	model := config.Model
	if model == "" {
		model = s.model
	}

	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: model,
		VoiceSettings: &elevenLabsVoiceSettings{
			Stability:       elevenLabsDefaultStability,
			SimilarityBoost: elevenLabsDefaultSimilarityBoost,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", s.baseURL, voice)

	format := s.mapFormat(config.Format)
	if format != "" {
		endpoint += "?output_format=" + format
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		endpoint,
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, NewSynthesisError(s.Name(), "", "request failed", err, true)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, s.handleError(resp)
	}

	return resp.Body, nil
}

// mapFormat converts AudioFormat to ElevenLabs format string.
func (s *ElevenLabsService) mapFormat(format AudioFormat) string {
	switch format.Name {
	case "pcm":
		return elevenLabsFormatPCM
	default:
		return elevenLabsFormatMP3
	}
}

// elevenLabsErrorResponse represents an error response from ElevenLabs.
type elevenLabsErrorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// handleError processes an error response from ElevenLabs.
func (s *ElevenLabsService) handleError(resp *http.Response) error {
	var errResp elevenLabsErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return NewSynthesisError(
			s.Name(),
			fmt.Sprintf("%d", resp.StatusCode),
			"unknown error",
			err,
			resp.StatusCode >= elevenLabsServerErrorThreshold,
		)
	}

	retryable := resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= elevenLabsServerErrorThreshold

	var cause error
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		cause = ErrRateLimited
	case http.StatusUnauthorized:
		cause = fmt.Errorf("invalid API key")
	case http.StatusPaymentRequired:
		cause = ErrQuotaExceeded
	case http.StatusNotFound:
		cause = ErrInvalidVoice
	}

	return NewSynthesisError(
		s.Name(),
		errResp.Detail.Status,
		errResp.Detail.Message,
		cause,
		retryable,
	)
}

// TestConnection lists voices to verify the API key and endpoint.
func (s *ElevenLabsService) TestConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, elevenLabsHealthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/voices", nil)
	if err != nil {
		return false
	}
	req.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		logger.ProviderError(s.Name(), "test-connection", err)
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// SupportedVoices returns a sample of available ElevenLabs voices.
// ElevenLabs has many more voices including custom cloned voices; use the
// ElevenLabs API to get a complete list.
func (s *ElevenLabsService) SupportedVoices() []Voice {
	return []Voice{
		{
			ID:          "pNInz6obpgDQGcFmaJgB",
			Name:        "Adam",
			Language:    "en",
			Gender:      "male",
			Description: "American, deep, narrative",
		},
		{
			ID:          "21m00Tcm4TlvDq8ikWAM",
			Name:        "Rachel",
			Language:    "en",
			Gender:      "female",
			Description: "American, calm, young",
		},
		{
			ID:          "EXAVITQu4vr4xnSDxMaL",
			Name:        "Bella",
			Language:    "en",
			Gender:      "female",
			Description: "American, soft",
		},
		{
			ID:          "TxGEqnHWrfWFTfGW9XjX",
			Name:        "Josh",
			Language:    "en",
			Gender:      "male",
			Description: "American, young, deep",
		},
	}
}

// SupportedFormats returns audio formats supported by ElevenLabs.
func (s *ElevenLabsService) SupportedFormats() []AudioFormat {
	return []AudioFormat{
		{
			Name:       "mp3",
			MIMEType:   "audio/mpeg",
			SampleRate: elevenLabsSampleRate44,
			BitDepth:   0,
			Channels:   1,
		},
		{
			Name:       "pcm",
			MIMEType:   "audio/pcm",
			SampleRate: elevenLabsSampleRate24,
			BitDepth:   elevenLabsBitDepth16,
			Channels:   1,
		},
	}
}
