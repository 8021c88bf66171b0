package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/careloop/triagekit/logger"
	"github.com/careloop/triagekit/sessionstore"
)

// ErrEmptyMessage is returned when a turn is submitted with no message text.
var ErrEmptyMessage = errors.New("message is empty")

// ChatResult is the outward-facing result of one triage turn.
type ChatResult struct {
	BotMessage     string `json:"response"`
	SessionID      string `json:"session_id"`
	QuestionNumber int    `json:"question_number"`
	IsComplete     bool   `json:"is_complete"`

	// Generated is true when the bot message came from the provider rather
	// than a static fallback.
	Generated bool `json:"ai_generated"`
}

// SessionStatus is a read-only snapshot of a session's progress.
type SessionStatus struct {
	SessionID      string    `json:"session_id"`
	QuestionNumber int       `json:"question_number"`
	IsComplete     bool      `json:"is_complete"`
	InitialSymptom string    `json:"initial_symptom"`
	Answers        []string  `json:"answers"`
	CreatedAt      time.Time `json:"created_at"`
	LastUpdatedAt  time.Time `json:"last_updated"`
}

// Service binds the flow engine to a session store. It owns the
// get-process-update cycle for each turn.
type Service struct {
	store  sessionstore.Store
	engine *Engine
}

// NewService creates a triage service over the given store and engine.
func NewService(store sessionstore.Store, engine *Engine) *Service {
	return &Service{store: store, engine: engine}
}

// ProcessTurn runs one triage turn for the session. The session state is
// loaded (fresh if absent or expired), advanced by the engine, and written
// back. An empty or whitespace-only message is rejected before the state is
// touched.
func (s *Service) ProcessTurn(ctx context.Context, sessionID, message string) (*ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	state, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	turn := s.engine.ProcessMessage(ctx, message, state)

	if err := s.store.Update(ctx, sessionID, turn.State); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	logger.Debug("triage turn processed",
		"session_id", sessionID,
		"question_number", turn.State.QuestionNumber,
		"is_complete", turn.State.IsComplete,
		"source", string(turn.Source))

	return &ChatResult{
		BotMessage:     turn.BotMessage,
		SessionID:      sessionID,
		QuestionNumber: turn.State.QuestionNumber,
		IsComplete:     turn.State.IsComplete,
		Generated:      turn.Source == SourceGenerated,
	}, nil
}

// ResetSession discards the session's state and starts a fresh consultation.
func (s *Service) ResetSession(ctx context.Context, sessionID string) error {
	if _, err := s.store.Reset(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	logger.Info("session reset", "session_id", sessionID)
	return nil
}

// Status returns the current progress of a session without advancing it.
// Reading the status of an absent or expired session reports a fresh one.
func (s *Service) Status(ctx context.Context, sessionID string) (*SessionStatus, error) {
	state, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return &SessionStatus{
		SessionID:      sessionID,
		QuestionNumber: state.QuestionNumber,
		IsComplete:     state.IsComplete,
		InitialSymptom: state.InitialSymptom,
		Answers:        state.Answers,
		CreatedAt:      state.CreatedAt,
		LastUpdatedAt:  state.LastUpdatedAt,
	}, nil
}
