package testgenpro

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedResponse means model output did not decode or validate
	ErrMalformedResponse = errors.New("malformed model response")

	ErrGeneration        = errors.New("content generation failed")
	ErrExtraction        = errors.New("text extraction failed")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrSynthesis         = errors.New("speech synthesis failed")

	ErrEmptyQuiz    = errors.New("quiz has no questions")
	ErrEmptyHistory = errors.New("no assessments taken yet")

	// ErrExportInconsistency means a stored quiz violates its own invariants
	ErrExportInconsistency = errors.New("quiz export inconsistency")

	ErrInvalidRequest  = errors.New("invalid generation request")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrNoQuiz          = errors.New("no quiz generated yet")
)

// Issue is a single problem with a generation request field
type Issue struct {
	Field   string
	Message string
}

// RequestError aggregates generation request validation issues
type RequestError struct {
	Issues []Issue
}

func (err *RequestError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return ErrInvalidRequest.Error()
	}
	lines := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		lines = append(lines, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return ErrInvalidRequest.Error() + ": " + strings.Join(lines, "; ")
}

func (err *RequestError) Unwrap() error {
	return ErrInvalidRequest
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
