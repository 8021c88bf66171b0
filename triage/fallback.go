package triage

import (
	"fmt"
	"strings"
)

// Fixed bot messages for degraded paths.
const (
	// errorMessage is returned when turn processing fails unexpectedly.
	errorMessage = "I'm sorry, I'm having trouble processing your message right now. " +
		"Please try again or consult a healthcare professional for immediate assistance."

	// completeMessage is returned for turns on an already-completed session.
	completeMessage = "This consultation is complete. Please reset the session to " +
		"start a new consultation."

	// genericFallbackQuestion covers question positions outside the table.
	genericFallbackQuestion = "How are you feeling now?"
)

// fallbackQuestions holds static questions used when generation is
// unavailable, keyed by question position.
var fallbackQuestions = map[int][]string{
	1: {
		"How long have you been experiencing this symptom?",
		"Can you describe the severity of your symptoms?",
		"When did you first notice this problem?",
	},
	2: {
		"Are you experiencing any other symptoms along with this?",
		"Have you taken any medication or tried any treatments?",
		"What makes your symptoms better or worse?",
	},
	3: {
		"How is this affecting your daily activities?",
		"Have you experienced something similar before?",
		"Is there anything else you'd like me to know about your condition?",
	},
}

// fallbackQuestion returns the static question for a position. Every
// position yields a defined question; positions outside the table get the
// generic one.
func fallbackQuestion(questionNumber int) string {
	questions, ok := fallbackQuestions[questionNumber]
	if !ok || len(questions) == 0 {
		return genericFallbackQuestion
	}
	return questions[0]
}

// fallbackDiagnosis builds a static diagnosis that echoes the symptom and
// answers and recommends professional consultation.
func fallbackDiagnosis(symptom string, answers []string) string {
	return fmt.Sprintf(`Based on your symptoms of %s and your responses (%s), I recommend that you:

1. Monitor your symptoms closely
2. Get adequate rest and stay hydrated
3. Consider over-the-counter pain relief if appropriate
4. Consult with a healthcare professional if symptoms persist or worsen

This is general advice only. Please seek professional medical attention for proper diagnosis and treatment.`,
		symptom, strings.Join(answers, ", "))
}
