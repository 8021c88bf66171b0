// Package voice chains speech-to-text, chat generation, and text-to-speech
// into a single audio conversation turn.
//
// Each turn runs the three stages strictly in order. A failed stage aborts
// the turn and reports which stage failed along with any partial results
// already produced; conversation history is only extended after all three
// stages succeed.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/careloop/triagekit/logger"
	"github.com/careloop/triagekit/metrics/prometheus"
	"github.com/careloop/triagekit/providers"
	"github.com/careloop/triagekit/stt"
	"github.com/careloop/triagekit/tts"
	"github.com/careloop/triagekit/types"
)

// Pipeline stage names, used in errors and metrics labels.
const (
	StageTranscription      = "transcription"
	StageResponseGeneration = "response-generation"
	StageSpeechSynthesis    = "speech-synthesis"
)

const (
	// maxHistoryTurns bounds the rolling history kept per conversation.
	maxHistoryTurns = 20

	// replyMaxTokens bounds generated replies so they stay short enough to
	// speak aloud.
	replyMaxTokens = 150

	// healthCheckTimeout bounds each service probe in TestAllServices.
	healthCheckTimeout = 10 * time.Second
)

// conversationSystemPrompt frames replies for spoken delivery.
const conversationSystemPrompt = `You are a helpful and empathetic medical assistant having a voice conversation with a patient.

Guidelines:
1. Keep responses short (2-3 sentences) since they will be spoken aloud
2. Be warm, empathetic, and conversational
3. Ask one clarifying question at a time when more detail is needed
4. Provide general health guidance only, never specific diagnoses
5. Always recommend consulting a healthcare professional for serious concerns

Remember: your response will be converted to speech, so avoid lists, markdown, and other visual formatting.`

// StageError reports which pipeline stage failed, carrying whatever partial
// results earlier stages produced.
type StageError struct {
	Stage      string
	Transcript string
	ReplyText  string
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("voice %s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result holds the outputs of one successful voice turn.
type Result struct {
	Transcript string
	ReplyText  string
	ReplyAudio []byte
}

// Orchestrator runs the transcribe-generate-synthesize pipeline and keeps a
// bounded rolling history per conversation. It is safe for concurrent use.
type Orchestrator struct {
	sttService stt.Service
	provider   providers.Provider
	ttsService tts.Service

	sttConfig stt.TranscriptionConfig
	ttsConfig tts.SynthesisConfig

	mu        sync.Mutex
	histories map[string][]types.Message
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTranscriptionConfig overrides the audio input configuration.
func WithTranscriptionConfig(cfg stt.TranscriptionConfig) Option {
	return func(o *Orchestrator) {
		o.sttConfig = cfg
	}
}

// WithSynthesisConfig overrides the speech output configuration.
func WithSynthesisConfig(cfg tts.SynthesisConfig) Option {
	return func(o *Orchestrator) {
		o.ttsConfig = cfg
	}
}

// TurnOption adjusts a single voice turn without touching the
// orchestrator's defaults.
type TurnOption func(*turnSettings)

type turnSettings struct {
	language string
}

// WithLanguage sets the recognition language for this turn only
// (e.g. "es-ES"). Turns without it use the orchestrator's configured
// language.
func WithLanguage(code string) TurnOption {
	return func(ts *turnSettings) {
		ts.language = code
	}
}

// NewOrchestrator creates a voice pipeline over the given services.
func NewOrchestrator(sttService stt.Service, provider providers.Provider, ttsService tts.Service, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sttService: sttService,
		provider:   provider,
		ttsService: ttsService,
		sttConfig:  stt.DefaultTranscriptionConfig(),
		ttsConfig:  tts.DefaultSynthesisConfig(),
		histories:  make(map[string][]types.Message),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessTurn runs one full voice turn for a conversation: transcribe the
// audio, generate a reply informed by the conversation history, and
// synthesize the reply to speech.
//
// On failure the returned error is a *StageError naming the failing stage;
// the conversation history is left untouched so a retried turn sees the
// same context.
func (o *Orchestrator) ProcessTurn(ctx context.Context, conversationID string, audio []byte, opts ...TurnOption) (*Result, error) {
	var ts turnSettings
	for _, opt := range opts {
		opt(&ts)
	}

	sttConfig := o.sttConfig
	if ts.language != "" {
		sttConfig.Language = ts.language
	}

	transcript, err := o.transcribe(ctx, audio, sttConfig)
	if err != nil {
		prometheus.RecordVoiceTurn(StageTranscription)
		return nil, &StageError{Stage: StageTranscription, Err: err}
	}

	replyText, err := o.generateReply(ctx, conversationID, transcript)
	if err != nil {
		prometheus.RecordVoiceTurn(StageResponseGeneration)
		return nil, &StageError{Stage: StageResponseGeneration, Transcript: transcript, Err: err}
	}

	replyAudio, err := o.synthesize(ctx, replyText)
	if err != nil {
		prometheus.RecordVoiceTurn(StageSpeechSynthesis)
		return nil, &StageError{Stage: StageSpeechSynthesis, Transcript: transcript, ReplyText: replyText, Err: err}
	}

	o.appendHistory(conversationID, transcript, replyText)
	prometheus.RecordVoiceTurn("success")

	logger.Info("voice turn completed",
		"conversation_id", conversationID,
		"transcript_len", len(transcript),
		"reply_len", len(replyText),
		"audio_bytes", len(replyAudio))

	return &Result{
		Transcript: transcript,
		ReplyText:  replyText,
		ReplyAudio: replyAudio,
	}, nil
}

// ProcessTurnFile is a convenience wrapper that reads audio from a file and
// writes the synthesized reply to a temporary .mp3 file. The caller owns
// the returned file and is responsible for deleting it.
func (o *Orchestrator) ProcessTurnFile(ctx context.Context, conversationID, audioPath string, opts ...TurnOption) (*Result, string, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read audio file: %w", err)
	}

	result, err := o.ProcessTurn(ctx, conversationID, audio, opts...)
	if err != nil {
		return nil, "", err
	}

	out, err := os.CreateTemp("", "voice-reply-*.mp3")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create reply file: %w", err)
	}
	if _, err := out.Write(result.ReplyAudio); err != nil {
		out.Close()
		os.Remove(out.Name())
		return nil, "", fmt.Errorf("failed to write reply file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return nil, "", fmt.Errorf("failed to close reply file: %w", err)
	}

	return result, out.Name(), nil
}

func (o *Orchestrator) transcribe(ctx context.Context, audio []byte, config stt.TranscriptionConfig) (string, error) {
	start := time.Now()
	transcript, err := o.sttService.Transcribe(ctx, audio, config)
	prometheus.RecordVoiceStage(StageTranscription, time.Since(start).Seconds())
	if err != nil {
		logger.ProviderError(o.sttService.Name(), StageTranscription, err)
		return "", err
	}
	return transcript, nil
}

func (o *Orchestrator) generateReply(ctx context.Context, conversationID, transcript string) (string, error) {
	messages := append(o.History(conversationID), types.NewUserMessage(transcript))

	start := time.Now()
	resp, err := o.provider.Chat(ctx, providers.ChatRequest{
		System:    conversationSystemPrompt,
		Messages:  messages,
		MaxTokens: replyMaxTokens,
	})
	prometheus.RecordVoiceStage(StageResponseGeneration, time.Since(start).Seconds())
	if err != nil {
		logger.ProviderError(o.provider.ID(), StageResponseGeneration, err)
		return "", err
	}
	if resp.Content == "" {
		return "", errors.New("provider returned an empty reply")
	}
	return resp.Content, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, text string) ([]byte, error) {
	start := time.Now()
	stream, err := o.ttsService.Synthesize(ctx, text, o.ttsConfig)
	if err != nil {
		prometheus.RecordVoiceStage(StageSpeechSynthesis, time.Since(start).Seconds())
		logger.ProviderError(o.ttsService.Name(), StageSpeechSynthesis, err)
		return nil, err
	}
	defer stream.Close()

	audio, err := io.ReadAll(stream)
	prometheus.RecordVoiceStage(StageSpeechSynthesis, time.Since(start).Seconds())
	if err != nil {
		logger.ProviderError(o.ttsService.Name(), StageSpeechSynthesis, err)
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	return audio, nil
}

// History returns a copy of the conversation's rolling history, oldest
// first.
func (o *Orchestrator) History(conversationID string) []types.Message {
	o.mu.Lock()
	defer o.mu.Unlock()

	history := o.histories[conversationID]
	out := make([]types.Message, len(history))
	copy(out, history)
	return out
}

// ClearHistory discards the conversation's history.
func (o *Orchestrator) ClearHistory(conversationID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.histories, conversationID)
}

// appendHistory records a completed exchange, trimming the oldest entries
// beyond the bound.
func (o *Orchestrator) appendHistory(conversationID, transcript, reply string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	history := append(o.histories[conversationID],
		types.NewUserMessage(transcript),
		types.NewAssistantMessage(reply),
	)
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	o.histories[conversationID] = history
}

// TestAllServices probes each underlying service concurrently and reports
// per-service reachability. Probes run with a bounded timeout each; the
// returned map always has entries for "stt", "provider", and "tts".
func (o *Orchestrator) TestAllServices(ctx context.Context) map[string]bool {
	var (
		mu      sync.Mutex
		results = make(map[string]bool, 3)
	)

	record := func(name string, ok bool) {
		mu.Lock()
		results[name] = ok
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		probeCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
		record("stt", o.sttService.TestConnection(probeCtx))
		return nil
	})
	g.Go(func() error {
		probeCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
		record("provider", o.provider.TestConnection(probeCtx))
		return nil
	})
	g.Go(func() error {
		probeCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
		record("tts", o.ttsService.TestConnection(probeCtx))
		return nil
	})

	// Probes report via the map and never return errors.
	_ = g.Wait()

	return results
}
