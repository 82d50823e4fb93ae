package testgenpro

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// QuizSession pairs the active quiz with the answers recorded against it.
// A session belongs to one user; it is not safe for concurrent use.
type QuizSession struct {
	ID      string
	quiz    *Quiz
	answers map[string]AnswerRecord
}

// NewQuizSession creates a session, optionally holding a quiz
func NewQuizSession(quiz *Quiz) *QuizSession {
	return &QuizSession{
		ID:      uuid.NewString(),
		quiz:    quiz,
		answers: make(map[string]AnswerRecord),
	}
}

// Quiz returns the active quiz, or nil if none has been generated
func (s *QuizSession) Quiz() *Quiz {
	return s.quiz
}

// HasQuiz reports whether a quiz is active
func (s *QuizSession) HasQuiz() bool {
	return s.quiz != nil
}

// Replace installs a new quiz and discards all answers to the old one
func (s *QuizSession) Replace(quiz *Quiz) {
	s.quiz = quiz
	s.answers = make(map[string]AnswerRecord)
}

// RecordAnswer stores the user's answer to one question, replacing any earlier answer.
// For MultipleChoice the submitted value is the option's display text; for
// TrueFalse it is "True" or "False"; for Descriptive it is free text.
func (s *QuizSession) RecordAnswer(questionKey, submitted string) error {
	if s.quiz == nil {
		return ErrNoQuiz
	}
	question, ok := s.quiz.Question(questionKey)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionKey)
	}

	record := AnswerRecord{SubmittedAnswer: stringPtr(submitted)}
	switch s.quiz.Type {
	case MultipleChoice:
		if key, found := lo.Find(question.OptionKeys(), func(k string) bool {
			return question.Options[k] == submitted
		}); found {
			record.ResolvedKey = stringPtr(key)
		}
		record.ExpectedAnswer = question.CorrectKey
	case TrueFalse:
		if submitted == "True" || submitted == "False" {
			record.ResolvedKey = stringPtr(strings.ToLower(submitted))
		}
		record.ExpectedAnswer = question.CorrectKey
	case Descriptive:
		record.ExpectedAnswer = question.ReferenceSolution
	}

	s.answers[questionKey] = record
	return nil
}

// Answer returns the record for one question
func (s *QuizSession) Answer(questionKey string) (AnswerRecord, bool) {
	record, ok := s.answers[questionKey]
	return record, ok
}

// Answers returns a copy of all recorded answers
func (s *QuizSession) Answers() map[string]AnswerRecord {
	out := make(map[string]AnswerRecord, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// RestoreQuizSession rebuilds a session from stored state
func RestoreQuizSession(id string, quiz *Quiz, answers map[string]AnswerRecord) *QuizSession {
	if answers == nil {
		answers = make(map[string]AnswerRecord)
	}
	return &QuizSession{ID: id, quiz: quiz, answers: answers}
}
