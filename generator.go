package testgenpro

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ContentGenerator produces text from a prompt template. When shape is non-empty
// the model is asked for a JSON document following it; the caller still has to
// validate what comes back.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, promptTemplate string, vars map[string]string, shape string, opts ...GenerateOption) (string, error)
}

// GenerateOptions tunes a single generation call
type GenerateOptions struct {
	System      string
	Temperature *float32
	MaxTokens   int
	Module      string // label used in transcripts and logs
}

type GenerateOption func(*GenerateOptions)

func WithSystemPrompt(s string) GenerateOption {
	return func(o *GenerateOptions) { o.System = s }
}

func WithTemperature(t float32) GenerateOption {
	return func(o *GenerateOptions) { o.Temperature = &t }
}

func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) { o.MaxTokens = n }
}

func WithModule(name string) GenerateOption {
	return func(o *GenerateOptions) { o.Module = name }
}

type llmLoggerKey struct{}

// WithLLMLogger attaches a transcript logger to ctx; generators write to it
func WithLLMLogger(ctx context.Context, ll *LLMLogger) context.Context {
	return context.WithValue(ctx, llmLoggerKey{}, ll)
}

func llmLoggerFrom(ctx context.Context) *LLMLogger {
	ll, _ := ctx.Value(llmLoggerKey{}).(*LLMLogger)
	return ll
}

// price per 1K tokens, input then output
var modelPrices = map[string][2]float64{
	openai.GPT3Dot5Turbo: {0.0005, 0.0015},
	openai.GPT4o:         {0.0025, 0.01},
	openai.GPT4oMini:     {0.00015, 0.0006},
	openai.GPT4Turbo:     {0.01, 0.03},
}

// EstimateCost returns the USD cost of a call, or 0 for unknown models
func EstimateCost(model string, promptTokens, completionTokens int) float64 {
	p, ok := modelPrices[model]
	if !ok {
		return 0
	}
	return float64(promptTokens)/1000*p[0] + float64(completionTokens)/1000*p[1]
}

// OpenAIGenerator implements ContentGenerator with the OpenAI chat completions API
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
}

// NewOpenAIGenerator creates a generator for model, allowing at most rpm calls per minute
func NewOpenAIGenerator(apiKey, model string, rpm int) *OpenAIGenerator {
	return newOpenAIGenerator(openai.NewClient(apiKey), model, rpm)
}

// NewOpenAIGeneratorWithConfig is NewOpenAIGenerator with a custom client config (base URL, HTTP client)
func NewOpenAIGeneratorWithConfig(cfg openai.ClientConfig, model string, rpm int) *OpenAIGenerator {
	return newOpenAIGenerator(openai.NewClientWithConfig(cfg), model, rpm)
}

func newOpenAIGenerator(client *openai.Client, model string, rpm int) *OpenAIGenerator {
	if model == "" {
		model = DefaultModel
	}
	if rpm <= 0 {
		rpm = DefaultRPM
	}
	return &OpenAIGenerator{
		client:  client,
		model:   model,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
	}
}

// GenerateContent renders the template and sends one chat completion request
func (g *OpenAIGenerator) GenerateContent(ctx context.Context, promptTemplate string, vars map[string]string, shape string, opts ...GenerateOption) (string, error) {
	options := GenerateOptions{Module: "generate"}
	for _, opt := range opts {
		opt(&options)
	}

	if shape != "" {
		if _, ok := vars["response_json"]; !ok {
			merged := make(map[string]string, len(vars)+1)
			for k, v := range vars {
				merged[k] = v
			}
			merged["response_json"] = shape
			vars = merged
		}
	}
	prompt := RenderPrompt(promptTemplate, vars)

	req := openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: options.MaxTokens,
	}
	if options.System != "" {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: options.System})
	}
	req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
	if options.Temperature != nil {
		req.Temperature = *options.Temperature
	}
	if shape != "" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	ll := llmLoggerFrom(ctx)
	ll.LogLLMRequest(options.Module, prompt)

	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	usage := TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		Cost:             EstimateCost(g.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	}
	ll.LogUsage(options.Module, usage)
	Log.WithFields(logrus.Fields{
		"module":            options.Module,
		"model":             g.model,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
		"cost":              usage.Cost,
	}).Info("model call complete")

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrGeneration)
	}
	content := resp.Choices[0].Message.Content
	ll.LogLLMResponse(options.Module, content)
	return content, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: rate limit or quota exceeded: %s", ErrGeneration, apiErr.Message)
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key: %s", ErrGeneration, apiErr.Message)
		}
		return fmt.Errorf("%w: %s", ErrGeneration, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrGeneration, err)
}

// SpeechSynthesizer turns text into audio
type SpeechSynthesizer interface {
	SynthesizeSpeech(ctx context.Context, text, voice string) ([]byte, error)
}

// MaxSpeechInput is the longest text the speech endpoint accepts, in characters
const MaxSpeechInput = 4096

// OpenAISpeech implements SpeechSynthesizer with the OpenAI audio API, producing mp3
type OpenAISpeech struct {
	client *openai.Client
	model  string
}

func NewOpenAISpeech(apiKey, model string) *OpenAISpeech {
	return NewOpenAISpeechWithConfig(openai.DefaultConfig(apiKey), model)
}

func NewOpenAISpeechWithConfig(cfg openai.ClientConfig, model string) *OpenAISpeech {
	if model == "" {
		model = DefaultTTSModel
	}
	return &OpenAISpeech{client: openai.NewClientWithConfig(cfg), model: model}
}

func (s *OpenAISpeech) SynthesizeSpeech(ctx context.Context, text, voice string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty input", ErrSynthesis)
	}
	if len([]rune(text)) > MaxSpeechInput {
		return nil, fmt.Errorf("%w: input longer than %d characters", ErrSynthesis, MaxSpeechInput)
	}
	if voice == "" {
		voice = DefaultVoice
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	defer resp.Close()

	audio, err := readAllLimited(resp, 50<<20)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read audio: %v", ErrSynthesis, err)
	}
	return audio, nil
}
