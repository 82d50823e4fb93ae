package testgenpro

import (
	"fmt"
	"strings"
)

// Evaluation is the result of submitting an assessment
type Evaluation struct {
	QuizID       string       `json:"quiz_id"`
	Type         QuestionType `json:"type"`
	Graded       bool         `json:"graded"` // false for Descriptive quizzes
	CorrectCount int          `json:"correct_count"`
	TotalCount   int          `json:"total_count"`
	Percentage   float64      `json:"percentage"`
	Feedback     []string     `json:"feedback"`
}

// ScoreLine renders the score the way it is shown to the user
func (e *Evaluation) ScoreLine() string {
	if !e.Graded {
		return fmt.Sprintf("%d descriptive answers submitted for review", e.TotalCount)
	}
	return fmt.Sprintf("Your score: %d/%d (%s%%)", e.CorrectCount, e.TotalCount, FormatPercentage(e.Percentage))
}

// FormatPercentage formats a percentage with two decimal places
func FormatPercentage(p float64) string {
	return fmt.Sprintf("%.2f", p)
}

// Evaluate scores the session's answers. MultipleChoice and TrueFalse quizzes
// are graded and their percentage is appended to history; Descriptive quizzes
// only produce feedback. Unanswered questions count as incorrect.
func Evaluate(session *QuizSession, history *PerformanceHistory) (*Evaluation, error) {
	quiz := session.Quiz()
	if quiz == nil {
		return nil, ErrNoQuiz
	}
	total := len(quiz.Questions)
	if total == 0 {
		return nil, ErrEmptyQuiz
	}

	eval := &Evaluation{
		QuizID:     quiz.ID,
		Type:       quiz.Type,
		Graded:     quiz.Type.Gradable(),
		TotalCount: total,
		Feedback:   make([]string, 0, total),
	}

	for _, q := range quiz.Questions {
		record, _ := session.Answer(q.Key)

		if !eval.Graded {
			submitted := ""
			if record.SubmittedAnswer != nil {
				submitted = *record.SubmittedAnswer
			}
			eval.Feedback = append(eval.Feedback,
				fmt.Sprintf("Question %s: Your answer - %s\nSuggested answer - %s", q.Key, submitted, q.ReferenceSolution))
			continue
		}

		if isCorrect(record, q) {
			eval.CorrectCount++
			eval.Feedback = append(eval.Feedback, fmt.Sprintf("Question %s: Correct", q.Key))
			continue
		}

		display, err := correctDisplay(quiz.Type, q)
		if err != nil {
			return nil, err
		}
		eval.Feedback = append(eval.Feedback, fmt.Sprintf("Question %s: Incorrect. The correct answer is %s", q.Key, display))
	}

	if eval.Graded {
		eval.Percentage = 100 * float64(eval.CorrectCount) / float64(total)
		if history != nil {
			history.Append(eval.Percentage)
		}
	}
	return eval, nil
}

// isCorrect compares the resolved key with the correct key. Both sides are
// lower-cased first; the model is not consistent about key case.
func isCorrect(record AnswerRecord, q Question) bool {
	if record.ResolvedKey == nil {
		return false
	}
	return strings.ToLower(*record.ResolvedKey) == strings.ToLower(q.CorrectKey)
}

// correctDisplay is the text shown for the correct answer: the option text for
// MultipleChoice, the literal key for TrueFalse
func correctDisplay(qt QuestionType, q Question) (string, error) {
	if qt != MultipleChoice {
		return q.CorrectKey, nil
	}
	text, ok := q.Options[q.CorrectKey]
	if !ok {
		return "", fmt.Errorf("%w: question %s correct key %q is not an option", ErrExportInconsistency, q.Key, q.CorrectKey)
	}
	return text, nil
}
