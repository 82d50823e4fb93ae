package testgenpro

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestAssistant(gen *fakeGenerator, speech SpeechSynthesizer, review bool) *Assistant {
	return NewAssistant(nil, gen, speech, AssistantOptions{Review: review})
}

func TestGenerateQuiz(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses["QuizGenerator"] = "```json\n" + mcResponse + "\n```"
	gen.responses["QuizReviewer"] = "  The quiz fits the students.  "
	assistant := newTestAssistant(gen, nil, true)

	session := NewQuizSession(nil)
	outcome, err := assistant.GenerateQuiz(context.Background(), session, RequestInput{
		Count:   3,
		Subject: "Geography",
		Type:    MultipleChoice,
	}, textDocument("Paris is the capital of France."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Quiz.Len() != 3 || outcome.Quiz.Subject != "Geography" {
		t.Fatalf("unexpected quiz: %d questions, subject %q", outcome.Quiz.Len(), outcome.Quiz.Subject)
	}
	if outcome.Review != "The quiz fits the students." {
		t.Fatalf("unexpected review %q", outcome.Review)
	}
	if session.Quiz() != outcome.Quiz {
		t.Fatalf("session should hold the generated quiz")
	}

	calls := gen.callsFor("QuizGenerator")
	if len(calls) != 1 {
		t.Fatalf("expected one generation call, got %d", len(calls))
	}
	if calls[0].Vars["text"] != "Paris is the capital of France." || calls[0].Vars["tone"] != DefaultTone {
		t.Fatalf("unexpected prompt variables: %v", calls[0].Vars)
	}
	if calls[0].Shape == "" {
		t.Fatalf("quiz generation should request a JSON shape")
	}
	reviews := gen.callsFor("QuizReviewer")
	if len(reviews) != 1 || !strings.Contains(reviews[0].Vars["quiz"], "*a) Paris") {
		t.Fatalf("review should see the quiz with the correct option marked: %+v", reviews)
	}
}

func TestGenerateQuizMalformedLeavesSessionUntouched(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses["QuizGenerator"] = "Sorry, I cannot help with that."
	dir := t.TempDir()
	assistant := NewAssistant(nil, gen, nil, AssistantOptions{LogDir: dir})

	prior := mcQuiz()
	session := NewQuizSession(prior)
	if err := session.RecordAnswer("1", "Paris"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := assistant.GenerateQuiz(context.Background(), session, RequestInput{
		Count:   3,
		Subject: "Geography",
		Type:    MultipleChoice,
	}, textDocument("Some text."))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if session.Quiz() != prior {
		t.Fatalf("session quiz was replaced")
	}
	if _, ok := session.Answer("1"); !ok {
		t.Fatalf("session answers were cleared")
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.log"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one transcript, got %v (%v)", files, err)
	}
	data, err := os.ReadFile(files[0])
	if err != nil {
		t.Fatalf("failed to read transcript: %v", err)
	}
	if !strings.Contains(string(data), "Problematic quiz data") || !strings.Contains(string(data), "Sorry, I cannot help") {
		t.Fatalf("transcript should record the unparseable output:\n%s", data)
	}
}

func TestGenerateQuizInvalidRequest(t *testing.T) {
	gen := newFakeGenerator()
	assistant := newTestAssistant(gen, nil, false)
	session := NewQuizSession(nil)

	_, err := assistant.GenerateQuiz(context.Background(), session, RequestInput{
		SourceText: "Text.",
		Count:      1,
		Type:       TrueFalse,
	}, Document{})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if len(gen.calls) != 0 {
		t.Fatalf("invalid requests must not reach the generator")
	}
	if session.HasQuiz() {
		t.Fatalf("session should still be empty")
	}
}

func TestGenerateQuizGeneratorError(t *testing.T) {
	gen := newFakeGenerator()
	gen.errs["QuizGenerator"] = ErrGeneration
	assistant := newTestAssistant(gen, nil, false)
	session := NewQuizSession(nil)

	_, err := assistant.GenerateQuiz(context.Background(), session, RequestInput{
		Count: 3, Subject: "Math", Type: TrueFalse,
	}, textDocument("Numbers."))
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if session.HasQuiz() {
		t.Fatalf("session should still be empty")
	}
}

func TestGenerateQuizReviewFailureKeepsQuiz(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses["QuizGenerator"] = tfResponse
	gen.errs["QuizReviewer"] = ErrGeneration
	assistant := newTestAssistant(gen, nil, true)
	session := NewQuizSession(nil)

	outcome, err := assistant.GenerateQuiz(context.Background(), session, RequestInput{
		Count: 3, Subject: "Science", Type: TrueFalse,
	}, textDocument("Facts."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Review != "" || !session.HasQuiz() {
		t.Fatalf("expected quiz without review, got %+v", outcome)
	}
}

func TestGenerateQuizUnsupportedDocument(t *testing.T) {
	assistant := newTestAssistant(newFakeGenerator(), nil, false)
	_, err := assistant.GenerateQuiz(context.Background(), NewQuizSession(nil), RequestInput{
		Count: 3, Subject: "Math", Type: TrueFalse,
	}, Document{Name: "slides.pptx", Kind: "pptx", Data: []byte("x")})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestGenerateNotes(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses["NotesGenerator"] = "\n- Plants use light\n"
	assistant := newTestAssistant(gen, nil, false)

	notes, err := assistant.GenerateNotes(context.Background(), textDocument("Photosynthesis."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notes != "- Plants use light" {
		t.Fatalf("unexpected notes %q", notes)
	}

	calls := gen.callsFor("NotesGenerator")
	if len(calls) != 1 {
		t.Fatalf("expected one notes call, got %d", len(calls))
	}
	opts := calls[0].Options
	if opts.MaxTokens != DefaultNotesTokens || opts.Temperature == nil || *opts.Temperature != DefaultNotesTemp {
		t.Fatalf("unexpected notes options: %+v", opts)
	}
	if calls[0].Shape != "" {
		t.Fatalf("notes should be free text")
	}
}

func TestGenerateNotesEmpty(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses["NotesGenerator"] = "   "
	assistant := newTestAssistant(gen, nil, false)
	if _, err := assistant.GenerateNotes(context.Background(), textDocument("Text.")); !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestGeneratePodcast(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses["PodcastSummary"] = "A short summary."
	speech := &fakeSpeech{audio: []byte("ID3audio")}
	assistant := NewAssistant(nil, gen, speech, AssistantOptions{Voice: "nova"})

	podcast, err := assistant.GeneratePodcast(context.Background(), textDocument("Long text."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if podcast.Summary != "A short summary." || string(podcast.Audio) != "ID3audio" {
		t.Fatalf("unexpected podcast: %+v", podcast)
	}
	if speech.text != "A short summary." || speech.voice != "nova" {
		t.Fatalf("speech got text %q voice %q", speech.text, speech.voice)
	}
}

func TestGeneratePodcastErrors(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses["PodcastSummary"] = "Summary."

	assistant := newTestAssistant(gen, nil, false)
	if _, err := assistant.GeneratePodcast(context.Background(), textDocument("Text.")); !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis without a synthesizer, got %v", err)
	}

	assistant = newTestAssistant(gen, &fakeSpeech{err: ErrSynthesis}, false)
	if _, err := assistant.GeneratePodcast(context.Background(), textDocument("Text.")); !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
}

func TestSubmit(t *testing.T) {
	assistant := newTestAssistant(newFakeGenerator(), nil, false)
	session := NewQuizSession(mcQuiz())
	if err := session.RecordAnswer("1", "Paris"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := session.RecordAnswer("2", "4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	history := NewPerformanceHistory()
	eval, err := assistant.Submit(session, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.Percentage != 100 || history.Len() != 1 {
		t.Fatalf("expected a perfect score recorded once, got %v with %d entries", eval.Percentage, history.Len())
	}
}
