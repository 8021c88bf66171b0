package triage

import (
	"context"
	"fmt"
	"strings"

	"github.com/careloop/triagekit/logger"
	"github.com/careloop/triagekit/metrics/prometheus"
	"github.com/careloop/triagekit/providers"
	"github.com/careloop/triagekit/types"
)

// Token budgets for generated content.
const (
	questionMaxTokens  = 100
	diagnosisMaxTokens = 200
)

// assistantSystemPrompt frames the provider as a cautious triage assistant.
const assistantSystemPrompt = `You are a helpful medical assistant chatbot. Your role is to:

1. Ask relevant follow-up questions to understand symptoms better
2. Provide general health information and suggestions
3. Always recommend consulting healthcare professionals for proper diagnosis
4. Be empathetic, clear, and concise in your responses
5. Focus on common conditions and general health advice
6. Never provide specific medical diagnoses or treatment recommendations

Remember: You are not a replacement for professional medical advice.`

// Generator produces follow-up questions and diagnoses for the flow engine.
// Implementations may fail; the engine substitutes static fallbacks.
type Generator interface {
	// GenerateFollowUpQuestion produces question #questionNumber for the
	// given symptom, informed by the answers collected so far.
	GenerateFollowUpQuestion(ctx context.Context, symptom string, questionNumber int, previousAnswers []string) (string, error)

	// GenerateDiagnosis produces a diagnosis summary from the symptom and
	// all collected answers.
	GenerateDiagnosis(ctx context.Context, symptom string, answers []string) (string, error)
}

// ProviderGenerator implements Generator on top of a chat provider.
type ProviderGenerator struct {
	provider providers.Provider
}

// NewProviderGenerator creates a generator backed by the given provider.
func NewProviderGenerator(provider providers.Provider) *ProviderGenerator {
	return &ProviderGenerator{provider: provider}
}

// GenerateFollowUpQuestion asks the provider for the next follow-up question.
func (g *ProviderGenerator) GenerateFollowUpQuestion(
	ctx context.Context, symptom string, questionNumber int, previousAnswers []string,
) (string, error) {
	previous := "None"
	if len(previousAnswers) > 0 {
		previous = strings.Join(previousAnswers, ", ")
	}

	prompt := fmt.Sprintf(`You are a helpful medical assistant. The user mentioned they have: %q

Previous answers: %s

Generate question #%d to help assess their condition.
The question should be:
- Natural and conversational (not yes/no format)
- Open-ended to encourage detailed responses
- Specific to their symptoms
- Helpful for medical assessment
- Easy to understand

Examples of good questions:
- "How long have you been experiencing this?"
- "Can you describe what the pain feels like?"
- "Are there any other symptoms you've noticed?"
- "What makes it better or worse?"

Return only the question, no additional text.`, symptom, previous, questionNumber)

	return g.generate(ctx, "follow-up-question", prompt, questionMaxTokens)
}

// GenerateDiagnosis asks the provider for a diagnosis summary.
func (g *ProviderGenerator) GenerateDiagnosis(
	ctx context.Context, symptom string, answers []string,
) (string, error) {
	prompt := fmt.Sprintf(`You are a medical assistant. Based on the following information, provide a helpful diagnosis or health suggestion:

Initial symptom: %s
Answers to follow-up questions: %s

Provide:
1. A possible diagnosis or condition
2. General health advice
3. When to seek medical attention

Keep it concise, helpful, and always recommend consulting a healthcare professional for proper diagnosis.`,
		symptom, strings.Join(answers, ", "))

	return g.generate(ctx, "diagnosis", prompt, diagnosisMaxTokens)
}

// generate runs a single-turn chat with the assistant system prompt.
func (g *ProviderGenerator) generate(ctx context.Context, operation, prompt string, maxTokens int) (string, error) {
	logger.ProviderCall(g.provider.ID(), operation)

	resp, err := g.provider.Chat(ctx, providers.ChatRequest{
		System:    assistantSystemPrompt,
		Messages:  []types.Message{{Role: types.RoleUser, Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		logger.ProviderError(g.provider.ID(), operation, err)
		prometheus.RecordProviderFailure(g.provider.ID(), operation)
		return "", err
	}

	return strings.TrimSpace(resp.Content), nil
}
