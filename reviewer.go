package testgenpro

import (
	"context"
	"fmt"
	"strings"
)

const reviewSystemPrompt = "You are an expert English grammarian and writer who reviews study quizzes for clarity and difficulty."

// reviewPromptTemplate asks for a short complexity analysis of a generated quiz
const reviewPromptTemplate = `Given a {question_type} quiz for {subject} students, evaluate the complexity of the questions and give a complete analysis of the quiz. Use at most 50 words for the complexity analysis.
If the quiz is not on par with the cognitive and analytical abilities of the students, name the questions that need to change and how their tone should change to fit the students' abilities.

Quiz:
{quiz}

Check from an expert English writer of the above quiz:`

// QuizReviewer asks the model for an editorial review of a generated quiz
type QuizReviewer struct {
	gen ContentGenerator
}

func NewQuizReviewer(gen ContentGenerator) *QuizReviewer {
	return &QuizReviewer{gen: gen}
}

// Review returns the model's review text. The quiz itself is left unchanged.
func (qr *QuizReviewer) Review(ctx context.Context, quiz *Quiz, subject string) (string, error) {
	VerboseLog("Reviewing quiz %s (%d questions)", quiz.ID, quiz.Len())

	review, err := qr.gen.GenerateContent(ctx, reviewPromptTemplate, map[string]string{
		"question_type": string(quiz.Type),
		"subject":       subject,
		"quiz":          qr.buildQuizText(quiz),
	}, "", WithSystemPrompt(reviewSystemPrompt), WithModule("QuizReviewer"))
	if err != nil {
		return "", fmt.Errorf("failed to review quiz: %w", err)
	}
	return strings.TrimSpace(review), nil
}

func (qr *QuizReviewer) buildQuizText(quiz *Quiz) string {
	var sb strings.Builder

	for _, q := range quiz.Questions {
		sb.WriteString(fmt.Sprintf("%s. %s\n", q.Key, q.Prompt))
		switch quiz.Type {
		case MultipleChoice:
			for _, k := range q.OptionKeys() {
				marker := " "
				if k == q.CorrectKey {
					marker = "*"
				}
				sb.WriteString(fmt.Sprintf("%s%s) %s\n", marker, k, q.Options[k]))
			}
		case TrueFalse:
			sb.WriteString(fmt.Sprintf("Answer: %s\n", q.CorrectKey))
		case Descriptive:
			sb.WriteString(fmt.Sprintf("Suggested answer: %s\n", q.ReferenceSolution))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
