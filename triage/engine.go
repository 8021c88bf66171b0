// Package triage implements the symptom-triage conversation flow.
//
// The flow is a bounded-depth state machine: an initial symptom message is
// classified, a fixed number of follow-up questions are asked, then a
// diagnosis is produced and the session is complete. All generated content
// comes from a Generator; static fallbacks cover generation failures so a
// turn always yields a well-formed bot message.
package triage

import (
	"context"

	"github.com/careloop/triagekit/logger"
	"github.com/careloop/triagekit/metrics/prometheus"
	"github.com/careloop/triagekit/sessionstore"
)

// DefaultMaxQuestions is the number of follow-up questions asked before a
// diagnosis is produced.
const DefaultMaxQuestions = 3

// Source identifies where a bot message came from.
type Source string

const (
	// SourceGenerated marks content produced by the text-generation provider.
	SourceGenerated Source = "generated"

	// SourceFallback marks static content substituted after a provider failure.
	SourceFallback Source = "fallback"

	// SourceComplete marks the fixed notice for turns on a completed session.
	SourceComplete Source = "complete"

	// SourceError marks the apologetic message for an unexpected failure.
	SourceError Source = "error"
)

// Turn is the result of processing one user message.
type Turn struct {
	// BotMessage is the next bot utterance.
	BotMessage string

	// Source distinguishes generated, fallback, and error content.
	Source Source

	// State is the updated session state. The caller must persist it; the
	// engine never writes to the store itself.
	State *sessionstore.SessionState
}

// Engine drives the triage conversation flow. It is a pure function of
// (message, state, generator): it never persists state and is safe for
// concurrent use.
type Engine struct {
	maxQuestions int
	classifier   *Classifier
	gen          Generator
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxQuestions sets the number of follow-up questions. Default is 3.
func WithMaxQuestions(n int) EngineOption {
	return func(e *Engine) {
		e.maxQuestions = n
	}
}

// WithClassifier sets a custom symptom classifier.
func WithClassifier(c *Classifier) EngineOption {
	return func(e *Engine) {
		e.classifier = c
	}
}

// NewEngine creates a flow engine using the given generator.
func NewEngine(gen Generator, opts ...EngineOption) *Engine {
	e := &Engine{
		maxQuestions: DefaultMaxQuestions,
		classifier:   DefaultClassifier(),
		gen:          gen,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessMessage processes one user message against the current session
// state and returns the next bot turn with the updated state.
//
// Any unexpected failure is converted into a fixed apologetic message with
// the incoming state unmodified, so the turn is effectively dropped.
func (e *Engine) ProcessMessage(ctx context.Context, message string, state *sessionstore.SessionState) (turn Turn) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("turn processing failed", "panic", r)
			turn = Turn{
				BotMessage: errorMessage,
				Source:     SourceError,
				State:      state.Clone(),
			}
			prometheus.RecordTriageTurn(string(SourceError))
		}
	}()

	if state.IsComplete {
		turn = Turn{
			BotMessage: completeMessage,
			Source:     SourceComplete,
			State:      state.Clone(),
		}
		prometheus.RecordTriageTurn(string(SourceComplete))
		return turn
	}

	normalized := normalizeMessage(message)

	if state.QuestionNumber == 0 {
		turn = e.handleInitialSymptom(ctx, normalized, state)
	} else {
		turn = e.handleFollowUpResponse(ctx, normalized, state)
	}

	prometheus.RecordTriageTurn(string(turn.Source))
	return turn
}

// handleInitialSymptom classifies the first message and asks question 1.
func (e *Engine) handleInitialSymptom(ctx context.Context, message string, state *sessionstore.SessionState) Turn {
	next := state.Clone()
	next.InitialSymptom = e.classifier.Classify(message)
	next.QuestionNumber = 1

	question, source := e.nextQuestion(ctx, next.InitialSymptom, 1, nil)

	return Turn{
		BotMessage: question,
		Source:     source,
		State:      next,
	}
}

// handleFollowUpResponse records the answer and either asks the next
// question or produces the diagnosis.
func (e *Engine) handleFollowUpResponse(ctx context.Context, message string, state *sessionstore.SessionState) Turn {
	next := state.Clone()
	next.Answers = append(next.Answers, message)

	if next.QuestionNumber >= e.maxQuestions {
		diagnosis, source := e.diagnosis(ctx, next.InitialSymptom, next.Answers)
		// The final increment moves past the question bound; IsComplete
		// stops any further transitions.
		next.QuestionNumber++
		next.IsComplete = true

		return Turn{
			BotMessage: diagnosis,
			Source:     source,
			State:      next,
		}
	}

	next.QuestionNumber++
	question, source := e.nextQuestion(ctx, next.InitialSymptom, next.QuestionNumber, next.Answers)

	return Turn{
		BotMessage: question,
		Source:     source,
		State:      next,
	}
}

// nextQuestion asks the generator for a follow-up question, substituting
// the static fallback for that position on failure.
func (e *Engine) nextQuestion(ctx context.Context, symptom string, questionNumber int, answers []string) (string, Source) {
	question, err := e.gen.GenerateFollowUpQuestion(ctx, symptom, questionNumber, answers)
	if err != nil || question == "" {
		if err != nil {
			logger.Warn("follow-up generation failed, using fallback",
				"symptom", symptom, "question_number", questionNumber, "error", err)
		}
		return fallbackQuestion(questionNumber), SourceFallback
	}
	return question, SourceGenerated
}

// diagnosis asks the generator for a diagnosis, substituting the static
// fallback on failure.
func (e *Engine) diagnosis(ctx context.Context, symptom string, answers []string) (string, Source) {
	diagnosis, err := e.gen.GenerateDiagnosis(ctx, symptom, answers)
	if err != nil || diagnosis == "" {
		if err != nil {
			logger.Warn("diagnosis generation failed, using fallback",
				"symptom", symptom, "error", err)
		}
		return fallbackDiagnosis(symptom, answers), SourceFallback
	}
	return diagnosis, SourceGenerated
}
