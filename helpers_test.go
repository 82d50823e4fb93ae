package testgenpro

import (
	"context"
	"sync"
	"testing"
	"time"
)

const mcResponse = `{
  "1": {"mcq": "What is the capital of France?", "options": {"a": "Paris", "b": "Rome", "c": "Madrid", "d": "Berlin"}, "correct": "a"},
  "2": {"mcq": "2 + 2 = ?", "options": {"a": "3", "b": "4", "c": "5", "d": "22"}, "correct": "b"},
  "3": {"mcq": "Largest planet?", "options": {"a": "Mars", "b": "Venus", "c": "Jupiter", "d": "Earth"}, "correct": "c"}
}`

const tfResponse = `{
  "1": {"question": "The sky is blue.", "correct": "true"},
  "2": {"question": "Fire is cold.", "correct": "false"},
  "3": {"question": "Water is wet.", "correct": "true"}
}`

const descriptiveResponse = `{
  "1": {"question": "Explain photosynthesis.", "solution": "Plants turn light into chemical energy."},
  "2": {"question": "Describe the water cycle.", "solution": "Evaporation, condensation, precipitation."},
  "3": {"question": "What is gravity?", "solution": "The attraction between masses."}
}`

// generatorCall is one recorded GenerateContent invocation
type generatorCall struct {
	Template string
	Vars     map[string]string
	Shape    string
	Options  GenerateOptions
}

// fakeGenerator answers by module name
type fakeGenerator struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []generatorCall
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{responses: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, promptTemplate string, vars map[string]string, shape string, opts ...GenerateOption) (string, error) {
	var options GenerateOptions
	for _, opt := range opts {
		opt(&options)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, generatorCall{Template: promptTemplate, Vars: vars, Shape: shape, Options: options})
	if err := f.errs[options.Module]; err != nil {
		return "", err
	}
	return f.responses[options.Module], nil
}

func (f *fakeGenerator) callsFor(module string) []generatorCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []generatorCall
	for _, c := range f.calls {
		if c.Options.Module == module {
			out = append(out, c)
		}
	}
	return out
}

type fakeSpeech struct {
	audio []byte
	err   error
	text  string
	voice string
}

func (f *fakeSpeech) SynthesizeSpeech(ctx context.Context, text, voice string) ([]byte, error) {
	f.text, f.voice = text, voice
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

func textDocument(text string) Document {
	return Document{Name: "notes.txt", Kind: KindText, Data: []byte(text)}
}

func parseFixture(t *testing.T, raw string, qt QuestionType) *Quiz {
	t.Helper()
	quiz, err := ParseQuizResponse(raw, qt, nil)
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return quiz
}

// mcQuiz builds a two-question multiple choice quiz with correct keys a and b
func mcQuiz() *Quiz {
	return &Quiz{
		ID:   "quiz-mc",
		Type: MultipleChoice,
		Questions: []Question{
			{Key: "1", Prompt: "Capital of France?", Options: map[string]string{"a": "Paris", "b": "Rome", "c": "Madrid", "d": "Berlin"}, CorrectKey: "a"},
			{Key: "2", Prompt: "2 + 2 = ?", Options: map[string]string{"a": "3", "b": "4", "c": "5", "d": "22"}, CorrectKey: "b"},
		},
		CreatedAt: time.Now(),
	}
}

func tfQuiz() *Quiz {
	return &Quiz{
		ID:   "quiz-tf",
		Type: TrueFalse,
		Questions: []Question{
			{Key: "1", Prompt: "The sky is blue.", CorrectKey: "true"},
			{Key: "2", Prompt: "Fire is cold.", CorrectKey: "false"},
			{Key: "3", Prompt: "Water is wet.", CorrectKey: "true"},
		},
		CreatedAt: time.Now(),
	}
}

func descriptiveQuiz() *Quiz {
	return &Quiz{
		ID:   "quiz-desc",
		Type: Descriptive,
		Questions: []Question{
			{Key: "1", Prompt: "Explain photosynthesis.", ReferenceSolution: "Plants turn light into chemical energy."},
			{Key: "2", Prompt: "What is gravity?", ReferenceSolution: "The attraction between masses."},
		},
		CreatedAt: time.Now(),
	}
}
