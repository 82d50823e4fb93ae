package testgenpro

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// QuestionType selects the shape of a generated quiz and the grading rule applied to it
type QuestionType string

const (
	MultipleChoice QuestionType = "Multiple Choice"
	TrueFalse      QuestionType = "True/False"
	Descriptive    QuestionType = "Descriptive"
)

// QuestionTypes lists the supported types in display order
var QuestionTypes = []QuestionType{MultipleChoice, TrueFalse, Descriptive}

// ParseQuestionType accepts the display label or a short form (mcq, tf, descriptive)
func ParseQuestionType(s string) (QuestionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "multiple choice", "mcq", "mc", "multiple-choice":
		return MultipleChoice, nil
	case "true/false", "tf", "truefalse", "true-false":
		return TrueFalse, nil
	case "descriptive", "desc":
		return Descriptive, nil
	}
	return "", fmt.Errorf("unknown question type: %q", s)
}

// Gradable reports whether answers of this type can be scored automatically
func (qt QuestionType) Gradable() bool {
	return qt == MultipleChoice || qt == TrueFalse
}

// Question is a single generated question
type Question struct {
	Key               string            `json:"key"`
	Prompt            string            `json:"prompt"`
	Options           map[string]string `json:"options,omitempty"`     // MultipleChoice only
	CorrectKey        string            `json:"correct_key,omitempty"` // option key, or "true"/"false"
	ReferenceSolution string            `json:"reference_solution,omitempty"`
}

// OptionKeys returns the option keys in sorted order
func (q Question) OptionKeys() []string {
	keys := make([]string, 0, len(q.Options))
	for k := range q.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OptionValues returns the option display texts in key order
func (q Question) OptionValues() []string {
	keys := q.OptionKeys()
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = q.Options[k]
	}
	return values
}

// Quiz is an ordered set of questions of one type. It is never modified after
// creation; a new generation replaces it.
type Quiz struct {
	ID        string       `json:"id"`
	Type      QuestionType `json:"type"`
	Subject   string       `json:"subject"`
	Questions []Question   `json:"questions"`
	CreatedAt time.Time    `json:"created_at"`
}

// Question looks up a question by key
func (q *Quiz) Question(key string) (Question, bool) {
	for _, question := range q.Questions {
		if question.Key == key {
			return question, true
		}
	}
	return Question{}, false
}

// Len returns the number of questions
func (q *Quiz) Len() int {
	if q == nil {
		return 0
	}
	return len(q.Questions)
}

// AnswerRecord is the user's answer to one question
type AnswerRecord struct {
	SubmittedAnswer *string `json:"submitted_answer"`
	ResolvedKey     *string `json:"resolved_key"`
	ExpectedAnswer  string  `json:"expected_answer"`
}

// ScoreEntry is one completed, graded assessment
type ScoreEntry struct {
	Percentage float64   `json:"percentage"`
	RecordedAt time.Time `json:"recorded_at"`
}

// GenerationOutcome is what a successful quiz generation produces
type GenerationOutcome struct {
	Quiz   *Quiz  `json:"quiz"`
	Review string `json:"review,omitempty"`
}

func stringPtr(s string) *string {
	return &s
}
