package testgenpro

import (
	"errors"
	"strings"
	"testing"
)

func TestEvaluateMultipleChoicePartial(t *testing.T) {
	quiz := &Quiz{
		ID:   "q",
		Type: MultipleChoice,
		Questions: []Question{
			{Key: "1", Prompt: "Capital of France?", Options: map[string]string{"a": "Paris", "b": "Rome"}, CorrectKey: "a"},
			{Key: "2", Prompt: "Pick five", Options: map[string]string{"a": "4", "b": "5"}, CorrectKey: "b"},
		},
	}
	session := NewQuizSession(quiz)
	if err := session.RecordAnswer("1", "Paris"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := session.RecordAnswer("2", "4"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history := NewPerformanceHistory()
	eval, err := Evaluate(session, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.CorrectCount != 1 || eval.TotalCount != 2 {
		t.Fatalf("got %d/%d, want 1/2", eval.CorrectCount, eval.TotalCount)
	}
	if FormatPercentage(eval.Percentage) != "50.00" {
		t.Fatalf("percentage = %s, want 50.00", FormatPercentage(eval.Percentage))
	}
	if eval.ScoreLine() != "Your score: 1/2 (50.00%)" {
		t.Fatalf("unexpected score line %q", eval.ScoreLine())
	}
	wantFeedback := []string{
		"Question 1: Correct",
		"Question 2: Incorrect. The correct answer is 5",
	}
	if strings.Join(eval.Feedback, "|") != strings.Join(wantFeedback, "|") {
		t.Fatalf("feedback = %q, want %q", eval.Feedback, wantFeedback)
	}
	if history.Len() != 1 || history.Series()[0] != 50 {
		t.Fatalf("expected one history entry of 50, got %v", history.Series())
	}
}

func TestEvaluateTrueFalseIncorrect(t *testing.T) {
	quiz := &Quiz{ID: "q", Type: TrueFalse, Questions: []Question{{Key: "1", Prompt: "Sky is blue", CorrectKey: "true"}}}
	session := NewQuizSession(quiz)
	if err := session.RecordAnswer("1", "False"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	eval, err := Evaluate(session, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.CorrectCount != 0 || FormatPercentage(eval.Percentage) != "0.00" {
		t.Fatalf("got %d correct (%s%%), want 0 (0.00%%)", eval.CorrectCount, FormatPercentage(eval.Percentage))
	}
	if eval.Feedback[0] != "Question 1: Incorrect. The correct answer is true" {
		t.Fatalf("unexpected feedback %q", eval.Feedback[0])
	}
}

func TestEvaluateAllCorrect(t *testing.T) {
	session := NewQuizSession(tfQuiz())
	for key, answer := range map[string]string{"1": "True", "2": "False", "3": "True"} {
		if err := session.RecordAnswer(key, answer); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	eval, err := Evaluate(session, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.CorrectCount != 3 || eval.Percentage != 100 {
		t.Fatalf("got %d correct (%v%%), want 3 (100%%)", eval.CorrectCount, eval.Percentage)
	}
}

func TestEvaluateUnansweredCountsIncorrect(t *testing.T) {
	session := NewQuizSession(mcQuiz())
	if err := session.RecordAnswer("1", "Paris"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eval, err := Evaluate(session, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.CorrectCount != 1 || eval.TotalCount != 2 {
		t.Fatalf("got %d/%d, want 1/2", eval.CorrectCount, eval.TotalCount)
	}
	if eval.Feedback[1] != "Question 2: Incorrect. The correct answer is 4" {
		t.Fatalf("unexpected feedback %q", eval.Feedback[1])
	}
}

func TestEvaluateCorrectKeyCaseInsensitive(t *testing.T) {
	quiz := &Quiz{ID: "q", Type: MultipleChoice, Questions: []Question{
		{Key: "1", Prompt: "Q", Options: map[string]string{"A": "x", "B": "y"}, CorrectKey: "A"},
	}}
	session := RestoreQuizSession("s", quiz, map[string]AnswerRecord{
		"1": {SubmittedAnswer: stringPtr("x"), ResolvedKey: stringPtr("a")},
	})
	eval, err := Evaluate(session, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.CorrectCount != 1 {
		t.Fatalf("expected case-insensitive match to count as correct")
	}
}

func TestEvaluateDescriptive(t *testing.T) {
	session := NewQuizSession(descriptiveQuiz())
	if err := session.RecordAnswer("1", "Light becomes sugar."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history := NewPerformanceHistory(ScoreEntry{Percentage: 70})
	eval, err := Evaluate(session, history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eval.Graded {
		t.Fatalf("descriptive evaluation should not be graded")
	}
	if history.Len() != 1 {
		t.Fatalf("descriptive evaluation must not append to history, got %d entries", history.Len())
	}
	want := []string{
		"Question 1: Your answer - Light becomes sugar.\nSuggested answer - Plants turn light into chemical energy.",
		"Question 2: Your answer - \nSuggested answer - The attraction between masses.",
	}
	for i := range want {
		if eval.Feedback[i] != want[i] {
			t.Fatalf("feedback %d = %q, want %q", i, eval.Feedback[i], want[i])
		}
	}
	if eval.ScoreLine() != "2 descriptive answers submitted for review" {
		t.Fatalf("unexpected score line %q", eval.ScoreLine())
	}
}

func TestEvaluateErrors(t *testing.T) {
	if _, err := Evaluate(NewQuizSession(nil), nil); !errors.Is(err, ErrNoQuiz) {
		t.Fatalf("expected ErrNoQuiz, got %v", err)
	}

	empty := &Quiz{ID: "empty", Type: MultipleChoice}
	history := NewPerformanceHistory()
	if _, err := Evaluate(NewQuizSession(empty), history); !errors.Is(err, ErrEmptyQuiz) {
		t.Fatalf("expected ErrEmptyQuiz, got %v", err)
	}
	if history.Len() != 0 {
		t.Fatalf("failed evaluation must not append to history")
	}
}

func TestEvaluateInconsistentQuiz(t *testing.T) {
	quiz := &Quiz{ID: "q", Type: MultipleChoice, Questions: []Question{
		{Key: "1", Prompt: "Q", Options: map[string]string{"a": "x"}, CorrectKey: "z"},
	}}
	_, err := Evaluate(NewQuizSession(quiz), nil)
	if !errors.Is(err, ErrExportInconsistency) {
		t.Fatalf("expected ErrExportInconsistency, got %v", err)
	}
}
