package testgenpro

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TokenUsage is the token accounting reported for one model call
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Cost             float64 // estimated, USD
}

// Add accumulates another call's usage
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
	u.Cost += other.Cost
}

// LLMLogger writes a transcript of every model interaction for one run
// (a quiz generation, a notes request, a podcast). A nil *LLMLogger discards everything.
type LLMLogger struct {
	file  *os.File
	mu    sync.Mutex
	runID string
	usage TokenUsage
}

// NewLLMLogger creates <dir>/<runID>.log and writes its header
func NewLLMLogger(dir, runID, purpose string) (*LLMLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.log", runID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &LLMLogger{
		file:  file,
		runID: runID,
	}

	logger.Logf("=== %s Log ===\n", purpose)
	logger.Logf("Run ID: %s\n", runID)
	logger.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	logger.Logf("========================\n\n")

	return logger, nil
}

// LogRequestParams records the parameters of a quiz generation
func (ll *LLMLogger) LogRequestParams(req *GenerationRequest) {
	if ll == nil || req == nil {
		return
	}
	ll.Logf("Question Type: %s\n", req.Type)
	ll.Logf("Subject: %s\n", req.Subject)
	ll.Logf("Number of Questions: %d\n", req.Count)
	ll.Logf("Tone: %s\n", req.Tone)
	ll.Logf("Source Material Length: %d characters\n\n", len(req.SourceText))
}

// Logf writes a formatted log entry with timestamp
func (ll *LLMLogger) Logf(format string, args ...interface{}) {
	if ll == nil {
		return
	}
	ll.mu.Lock()
	defer ll.mu.Unlock()
	ll.writef(format, args...)
}

func (ll *LLMLogger) writef(format string, args ...interface{}) {
	if ll.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(ll.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	ll.file.Sync()
}

// LogLLMRequest logs an LLM request
func (ll *LLMLogger) LogLLMRequest(module, prompt string) {
	ll.Logf("=== LLM REQUEST (%s) ===\n", module)
	ll.Logf("Prompt:\n%s\n", prompt)
	ll.Logf("=====================\n\n")
}

// LogLLMResponse logs an LLM response
func (ll *LLMLogger) LogLLMResponse(module, response string) {
	ll.Logf("=== LLM RESPONSE (%s) ===\n", module)
	ll.Logf("Response:\n%s\n", response)
	ll.Logf("======================\n\n")
}

// LogUsage logs token counts for one call and adds them to the run total
func (ll *LLMLogger) LogUsage(module string, usage TokenUsage) {
	if ll == nil {
		return
	}
	ll.mu.Lock()
	ll.usage.Add(usage)
	ll.mu.Unlock()
	ll.Logf("Usage (%s): prompt=%d completion=%d total=%d cost=$%.6f\n",
		module, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, usage.Cost)
}

// LogParseFailure records model output that could not be turned into a quiz
func (ll *LLMLogger) LogParseFailure(err error, raw string) {
	ll.Logf("Parse failure: %v\nProblematic quiz data:\n%s\n\n", err, raw)
}

// Usage returns the accumulated usage of the run
func (ll *LLMLogger) Usage() TokenUsage {
	if ll == nil {
		return TokenUsage{}
	}
	ll.mu.Lock()
	defer ll.mu.Unlock()
	return ll.usage
}

// Close writes the footer and closes the log file
func (ll *LLMLogger) Close() error {
	if ll == nil {
		return nil
	}
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file != nil {
		ll.writef("=== Run Complete ===\n")
		ll.writef("Total tokens: %d (prompt %d, completion %d)\n", ll.usage.TotalTokens, ll.usage.PromptTokens, ll.usage.CompletionTokens)
		ll.writef("Total cost: $%.6f\n", ll.usage.Cost)
		ll.writef("Completed: %s\n", time.Now().Format(time.RFC3339))
		err := ll.file.Close()
		ll.file = nil
		return err
	}
	return nil
}
