package triage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/triagekit/sessionstore"
)

func newTestService(gen Generator) (*Service, sessionstore.Store) {
	store := sessionstore.NewMemoryStore()
	return NewService(store, NewEngine(gen)), store
}

func TestProcessTurnRejectsEmptyMessage(t *testing.T) {
	svc, _ := newTestService(&scriptedGenerator{})

	for _, message := range []string{"", "   ", "\t\n"} {
		_, err := svc.ProcessTurn(context.Background(), "s1", message)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
}

func TestProcessTurnPersistsState(t *testing.T) {
	svc, store := newTestService(&scriptedGenerator{})

	result, err := svc.ProcessTurn(context.Background(), "s1", "I have a headache")
	require.NoError(t, err)

	assert.Equal(t, "s1", result.SessionID)
	assert.Equal(t, 1, result.QuestionNumber)
	assert.False(t, result.IsComplete)
	assert.True(t, result.Generated)

	state, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.QuestionNumber)
	assert.Equal(t, "headache", state.InitialSymptom)
}

func TestProcessTurnFullConsultation(t *testing.T) {
	svc, _ := newTestService(&scriptedGenerator{})
	ctx := context.Background()

	_, err := svc.ProcessTurn(ctx, "s1", "I have a headache")
	require.NoError(t, err)

	var result *ChatResult
	for _, answer := range []string{"two days", "no", "mild"} {
		result, err = svc.ProcessTurn(ctx, "s1", answer)
		require.NoError(t, err)
	}

	assert.True(t, result.IsComplete)
	assert.Equal(t, 4, result.QuestionNumber)

	// Further turns get the completion notice without advancing.
	result, err = svc.ProcessTurn(ctx, "s1", "anything else?")
	require.NoError(t, err)
	assert.True(t, result.IsComplete)
	assert.Equal(t, 4, result.QuestionNumber)
	assert.False(t, result.Generated)
	assert.Contains(t, result.BotMessage, "reset the session")
}

func TestProcessTurnFallbackNotGenerated(t *testing.T) {
	svc, _ := newTestService(&scriptedGenerator{emptyOutput: true})

	result, err := svc.ProcessTurn(context.Background(), "s1", "I have a fever")
	require.NoError(t, err)
	assert.False(t, result.Generated)
}

func TestResetSession(t *testing.T) {
	svc, _ := newTestService(&scriptedGenerator{})
	ctx := context.Background()

	_, err := svc.ProcessTurn(ctx, "s1", "I have a headache")
	require.NoError(t, err)

	require.NoError(t, svc.ResetSession(ctx, "s1"))

	status, err := svc.Status(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, status.QuestionNumber)
	assert.Empty(t, status.InitialSymptom)
	assert.False(t, status.IsComplete)
}

func TestStatusReportsProgress(t *testing.T) {
	svc, _ := newTestService(&scriptedGenerator{})
	ctx := context.Background()

	_, err := svc.ProcessTurn(ctx, "s1", "I have a headache")
	require.NoError(t, err)
	_, err = svc.ProcessTurn(ctx, "s1", "two days")
	require.NoError(t, err)

	status, err := svc.Status(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", status.SessionID)
	assert.Equal(t, 2, status.QuestionNumber)
	assert.Equal(t, "headache", status.InitialSymptom)
	assert.Equal(t, []string{"two days"}, status.Answers)
	assert.False(t, status.IsComplete)
}

func TestSessionsAreIsolated(t *testing.T) {
	svc, _ := newTestService(&scriptedGenerator{})
	ctx := context.Background()

	_, err := svc.ProcessTurn(ctx, "alice", "I have a headache")
	require.NoError(t, err)
	_, err = svc.ProcessTurn(ctx, "bob", "I have a fever")
	require.NoError(t, err)

	aliceStatus, err := svc.Status(ctx, "alice")
	require.NoError(t, err)
	bobStatus, err := svc.Status(ctx, "bob")
	require.NoError(t, err)

	assert.Equal(t, "headache", aliceStatus.InitialSymptom)
	assert.Equal(t, "fever", bobStatus.InitialSymptom)
}
