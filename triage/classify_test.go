package triage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyKnownSymptoms(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		name     string
		message  string
		expected string
	}{
		{"headache keyword", "I have a headache", "headache"},
		{"migraine maps to headache", "terrible migraine since morning", "headache"},
		{"fever keyword", "I think I have a fever", "fever"},
		{"cough keyword", "been coughing all night", "cough"},
		{"pain keyword", "my back hurts", "pain"},
		{"nausea keyword", "feeling queasy after lunch", "nausea"},
		{"fatigue keyword", "so exhausted lately", "fatigue"},
		{"dizziness keyword", "I feel lightheaded", "dizziness"},
		{"case insensitive", "I HAVE A HEADACHE", "headache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Classify(tt.message))
		})
	}
}

func TestClassifyOrderIsDeterministic(t *testing.T) {
	c := DefaultClassifier()

	// "head pain" matches both the headache and pain groups; the earlier
	// group wins.
	assert.Equal(t, "headache", c.Classify("head pain and general soreness"))

	// "hot and tired" matches fever before fatigue.
	assert.Equal(t, "fever", c.Classify("I feel hot and tired"))
}

func TestClassifyUnknownSymptomCleansText(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		name     string
		message  string
		expected string
	}{
		{"strips i have", "I have a rash on my arm", "A rash on my arm"},
		{"strips i am experiencing", "I am experiencing blurry vision", "Blurry vision"},
		{"strips i feel", "i feel strange tingling", "Strange tingling"},
		{"no prefix", "blurry vision", "Blurry vision"},
		{"only one prefix stripped", "i have i feel strange", "I feel strange"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Classify(tt.message))
		})
	}
}

func TestClassifyPrefixOnlyMessageFallsBackToOriginal(t *testing.T) {
	c := DefaultClassifier()

	// Stripping leaves nothing, so the original text is returned as-is.
	assert.Equal(t, "I have", c.Classify("I have"))
}

func TestLoadClassifier(t *testing.T) {
	doc := `
- label: rash
  patterns: ["rash", "itchy skin"]
- label: insomnia
  patterns: ["can't sleep", "insomnia"]
`
	c, err := LoadClassifier(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "rash", c.Classify("I have an itchy skin problem"))
	assert.Equal(t, "insomnia", c.Classify("I can't sleep at all"))
}

func TestLoadClassifierRejectsEmptyTable(t *testing.T) {
	_, err := LoadClassifier(strings.NewReader("[]"))
	require.Error(t, err)
}

func TestLoadClassifierRejectsMalformedYAML(t *testing.T) {
	_, err := LoadClassifier(strings.NewReader("not: [valid"))
	require.Error(t, err)
}

func TestNormalizeMessage(t *testing.T) {
	assert.Equal(t, "I have a headache", normalizeMessage("  I   have a\theadache \n"))
	assert.Equal(t, "", normalizeMessage("   \t\n"))
}
