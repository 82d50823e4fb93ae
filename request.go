package testgenpro

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	MinQuestions     = 3
	MaxQuestions     = 50
	MaxSubjectLength = 50
	MaxToneLength    = 50
	DefaultTone      = "Simple"
)

// QuizPromptTemplate asks the model for a quiz shaped like the response template.
// Placeholders are filled from GenerationRequest.Variables.
const QuizPromptTemplate = `Text:{text}
You are an expert {question_type} question maker. Given the above text, it is your job to create a quiz of {number} {question_type} questions for {subject} students in {tone} tone.
Make sure the questions are not repeated and check all the questions to be conforming the text as well.
Make sure to format your response like RESPONSE_JSON below and use it as a guide. Ensure to make {number} questions.
Respond with the JSON object only.
### RESPONSE_JSON
{response_json}`

// RequestInput holds the raw values a user supplies for a generation
type RequestInput struct {
	SourceText string
	Count      int
	Subject    string
	Tone       string
	Type       QuestionType
}

// GenerationRequest is a validated request ready for the ContentGenerator
type GenerationRequest struct {
	SourceText string
	Count      int
	Subject    string
	Tone       string
	Type       QuestionType
	Schema     ResponseSchema
	Shape      string // Schema.Template rendered as JSON
}

// NewGenerationRequest validates input and attaches the response shape for its type.
// Every problem found is reported, not only the first.
func NewGenerationRequest(in RequestInput, registry *SchemaRegistry) (*GenerationRequest, error) {
	if registry == nil {
		registry = DefaultSchemas()
	}

	var issues []Issue
	text := strings.TrimSpace(in.SourceText)
	if text == "" {
		issues = append(issues, Issue{Field: "text", Message: "source text is empty"})
	}
	if in.Count < MinQuestions || in.Count > MaxQuestions {
		issues = append(issues, Issue{Field: "number", Message: "must be between " + strconv.Itoa(MinQuestions) + " and " + strconv.Itoa(MaxQuestions)})
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		issues = append(issues, Issue{Field: "subject", Message: "is required"})
	} else if utf8.RuneCountInString(subject) > MaxSubjectLength {
		issues = append(issues, Issue{Field: "subject", Message: "must be at most " + strconv.Itoa(MaxSubjectLength) + " characters"})
	}
	tone := strings.TrimSpace(in.Tone)
	if tone == "" {
		tone = DefaultTone
	} else if utf8.RuneCountInString(tone) > MaxToneLength {
		issues = append(issues, Issue{Field: "tone", Message: "must be at most " + strconv.Itoa(MaxToneLength) + " characters"})
	}

	schema, err := registry.Schema(in.Type)
	if err != nil {
		issues = append(issues, Issue{Field: "question_type", Message: err.Error()})
	}
	if len(issues) > 0 {
		return nil, &RequestError{Issues: issues}
	}

	shape, err := schema.TemplateJSON()
	if err != nil {
		return nil, err
	}

	return &GenerationRequest{
		SourceText: text,
		Count:      in.Count,
		Subject:    subject,
		Tone:       tone,
		Type:       in.Type,
		Schema:     schema,
		Shape:      shape,
	}, nil
}

// Variables returns the values substituted into QuizPromptTemplate
func (r *GenerationRequest) Variables() map[string]string {
	return map[string]string{
		"text":          r.SourceText,
		"number":        strconv.Itoa(r.Count),
		"subject":       r.Subject,
		"tone":          r.Tone,
		"response_json": r.Shape,
		"question_type": string(r.Type),
	}
}

// RenderPrompt substitutes {name} placeholders in template with vars
func RenderPrompt(template string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
