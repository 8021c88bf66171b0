package triage

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// SymptomPattern maps a symptom label to the substring patterns that
// identify it. Patterns are matched case-insensitively.
type SymptomPattern struct {
	Label    string   `yaml:"label"`
	Patterns []string `yaml:"patterns"`
}

// Classifier assigns a symptom label to a user message by scanning an
// ordered pattern table. Order is significant: the first group whose first
// matching pattern is found wins, scanning table order then pattern order
// within the group, so classification is deterministic.
type Classifier struct {
	patterns []SymptomPattern
}

// NewClassifier creates a classifier from an ordered pattern table.
func NewClassifier(patterns []SymptomPattern) *Classifier {
	return &Classifier{patterns: patterns}
}

// DefaultClassifier returns a classifier with the built-in symptom table.
func DefaultClassifier() *Classifier {
	return NewClassifier([]SymptomPattern{
		{Label: "headache", Patterns: []string{"headache", "head pain", "head ache", "migraine"}},
		{Label: "fever", Patterns: []string{"fever", "temperature", "hot", "burning up"}},
		{Label: "cough", Patterns: []string{"cough", "coughing", "hack"}},
		{Label: "pain", Patterns: []string{"pain", "hurt", "ache", "sore"}},
		{Label: "nausea", Patterns: []string{"nausea", "nauseous", "sick to stomach", "queasy"}},
		{Label: "fatigue", Patterns: []string{"tired", "fatigue", "exhausted", "weak"}},
		{Label: "dizziness", Patterns: []string{"dizzy", "dizziness", "lightheaded", "vertigo"}},
	})
}

// LoadClassifier reads a YAML pattern table from r. The YAML document is a
// sequence of {label, patterns} entries; sequence order is preserved.
func LoadClassifier(r io.Reader) (*Classifier, error) {
	var patterns []SymptomPattern
	if err := yaml.NewDecoder(r).Decode(&patterns); err != nil {
		return nil, fmt.Errorf("failed to decode symptom table: %w", err)
	}
	if len(patterns) == 0 {
		return nil, fmt.Errorf("symptom table is empty")
	}
	return NewClassifier(patterns), nil
}

// LoadClassifierFile reads a YAML pattern table from a file.
func LoadClassifierFile(path string) (*Classifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open symptom table: %w", err)
	}
	defer f.Close()
	return LoadClassifier(f)
}

// Classify extracts the main symptom from the user's message.
// If no pattern group matches, the message itself is cleaned up and used
// as the symptom label.
func (c *Classifier) Classify(message string) string {
	messageLower := strings.ToLower(message)

	for _, group := range c.patterns {
		for _, pattern := range group.Patterns {
			if strings.Contains(messageLower, pattern) {
				return group.Label
			}
		}
	}

	return cleanSymptomText(message)
}

// symptomPrefixes are common leading phrases stripped from free-form
// symptom descriptions. Only the first matching prefix is removed.
var symptomPrefixes = []string{
	"i have",
	"i am experiencing",
	"i feel",
	"i got",
	"i'm having",
}

// cleanSymptomText strips a leading phrase from the message and
// capitalizes the first character of the remainder.
func cleanSymptomText(text string) string {
	textLower := strings.ToLower(strings.TrimSpace(text))
	for _, prefix := range symptomPrefixes {
		if strings.HasPrefix(textLower, prefix) {
			textLower = strings.TrimSpace(strings.TrimPrefix(textLower, prefix))
			break
		}
	}

	if textLower == "" {
		return text
	}

	runes := []rune(textLower)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// normalizeMessage collapses whitespace runs to single spaces and trims
// the ends.
func normalizeMessage(message string) string {
	return strings.Join(strings.Fields(message), " ")
}
