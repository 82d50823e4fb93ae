package testgenpro

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// fakeOpenAI serves the chat and speech endpoints and records chat requests
type fakeOpenAI struct {
	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
	content  string
	status   int
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/v1/chat/completions":
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		status, content := f.status, f.content
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != 0 {
			w.WriteHeader(status)
			io.WriteString(w, `{"error": {"message": "quota exceeded", "type": "insufficient_quota"}}`)
			return
		}
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "chatcmpl-test",
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
			Usage: openai.Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500},
		})
	case "/v1/audio/speech":
		var req openai.CreateSpeechRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "audio/mpeg")
		io.WriteString(w, "mp3:"+string(req.Voice)+":"+req.Input)
	default:
		http.NotFound(w, r)
	}
}

func newFakeOpenAI(t *testing.T, fake *fakeOpenAI) openai.ClientConfig {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	return cfg
}

func TestOpenAIGeneratorQuizCall(t *testing.T) {
	fake := &fakeOpenAI{content: tfResponse}
	gen := NewOpenAIGeneratorWithConfig(newFakeOpenAI(t, fake), openai.GPT3Dot5Turbo, 6000)

	dir := t.TempDir()
	ll, err := NewLLMLogger(dir, "run-1", "Quiz Generation")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	ctx := WithLLMLogger(context.Background(), ll)

	out, err := gen.GenerateContent(ctx, "Make {number} questions. {response_json}", map[string]string{"number": "3"}, `{"1":{}}`,
		WithModule("QuizGenerator"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != tfResponse {
		t.Fatalf("unexpected content %q", out)
	}

	if len(fake.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(fake.requests))
	}
	req := fake.requests[0]
	if req.Messages[0].Content != `Make 3 questions. {"1":{}}` {
		t.Fatalf("unexpected prompt %q", req.Messages[0].Content)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("expected JSON response format")
	}

	usage := ll.Usage()
	if usage.TotalTokens != 1500 || usage.Cost != EstimateCost(openai.GPT3Dot5Turbo, 1000, 500) {
		t.Fatalf("unexpected usage %+v", usage)
	}
	if err := ll.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	data, _ := os.ReadFile(dir + "/run-1.log")
	if !strings.Contains(string(data), "LLM REQUEST (QuizGenerator)") || !strings.Contains(string(data), "Total tokens: 1500") {
		t.Fatalf("transcript incomplete:\n%s", data)
	}
}

func TestOpenAIGeneratorNotesOptions(t *testing.T) {
	fake := &fakeOpenAI{content: "notes"}
	gen := NewOpenAIGeneratorWithConfig(newFakeOpenAI(t, fake), "", 6000)

	_, err := gen.GenerateContent(context.Background(), NotesPromptTemplate, map[string]string{"text": "abc"}, "",
		WithSystemPrompt("be brief"), WithTemperature(0.5), WithMaxTokens(150))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := fake.requests[0]
	if req.Model != DefaultModel || req.MaxTokens != 150 || req.Temperature != 0.5 {
		t.Fatalf("unexpected request: model %s max %d temp %v", req.Model, req.MaxTokens, req.Temperature)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("expected a system message first: %+v", req.Messages)
	}
	if req.ResponseFormat != nil {
		t.Fatalf("free text calls should not request JSON")
	}
}

func TestOpenAIGeneratorAPIError(t *testing.T) {
	fake := &fakeOpenAI{status: http.StatusTooManyRequests}
	gen := NewOpenAIGeneratorWithConfig(newFakeOpenAI(t, fake), "", 6000)

	_, err := gen.GenerateContent(context.Background(), "hi", nil, "")
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if !strings.Contains(err.Error(), "rate limit") {
		t.Fatalf("expected rate limit message, got %v", err)
	}
}

func TestOpenAISpeech(t *testing.T) {
	speech := NewOpenAISpeechWithConfig(newFakeOpenAI(t, &fakeOpenAI{}), "")

	audio, err := speech.SynthesizeSpeech(context.Background(), "  Hello there.  ", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(audio) != "mp3:alloy:Hello there." {
		t.Fatalf("unexpected audio %q", audio)
	}

	if _, err := speech.SynthesizeSpeech(context.Background(), " ", "alloy"); !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis for empty input, got %v", err)
	}
	long := strings.Repeat("a", MaxSpeechInput+1)
	if _, err := speech.SynthesizeSpeech(context.Background(), long, "alloy"); !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis for long input, got %v", err)
	}
}

func TestEstimateCost(t *testing.T) {
	if got := EstimateCost("unknown-model", 1000, 1000); got != 0 {
		t.Fatalf("unknown model cost = %v, want 0", got)
	}
	if got := EstimateCost(openai.GPT4o, 1000, 1000); got <= 0 {
		t.Fatalf("expected a positive cost, got %v", got)
	}
}
