package testgenpro

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application settings read from the environment
type Config struct {
	OpenAIKey        string
	Model            string  // chat model for quizzes, notes and reviews
	TTSModel         string  // speech model for podcasts
	Voice            string  // speech voice
	RequestsPerMin   int     // client-side cap on model calls
	NotesMaxTokens   int     // completion limit for notes and summaries
	NotesTemperature float32 // sampling temperature for notes and summaries

	DBPath        string // sqlite database for web session state
	SessionSecret string // cookie signing key for the web server
	Port          string
	LogDir        string // per-generation LLM transcripts
	Users         map[string]string
	Verbose       bool
}

// Defaults used when the environment leaves a setting unset
const (
	DefaultModel         = "gpt-3.5-turbo"
	DefaultTTSModel      = "tts-1"
	DefaultVoice         = "alloy"
	DefaultRPM           = 20
	DefaultNotesTokens   = 150
	DefaultNotesTemp     = 0.5
	DefaultDBPath        = "file:testgenpro?mode=memory&cache=shared"
	DefaultPort          = "8180"
	DefaultLogDir        = "log"
	DefaultUsers         = "user1:password1,user2:password2"
	defaultSessionSecret = "testgenpro-dev-secret-change-me"
)

// LoadConfig loads .env if present, then reads the environment
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		Model:            envOr("OPENAI_MODEL", DefaultModel),
		TTSModel:         envOr("OPENAI_TTS_MODEL", DefaultTTSModel),
		Voice:            envOr("OPENAI_VOICE", DefaultVoice),
		RequestsPerMin:   DefaultRPM,
		NotesMaxTokens:   DefaultNotesTokens,
		NotesTemperature: DefaultNotesTemp,
		DBPath:           envOr("DB_PATH", DefaultDBPath),
		SessionSecret:    envOr("SESSION_SECRET", defaultSessionSecret),
		Port:             envOr("PORT", DefaultPort),
		LogDir:           envOr("LOG_DIR", DefaultLogDir),
	}

	var err error
	if cfg.RequestsPerMin, err = envInt("OPENAI_RPM", DefaultRPM); err != nil {
		return nil, err
	}
	if cfg.NotesMaxTokens, err = envInt("NOTES_MAX_TOKENS", DefaultNotesTokens); err != nil {
		return nil, err
	}
	if v := os.Getenv("NOTES_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return nil, fmt.Errorf("NOTES_TEMPERATURE: %w", err)
		}
		cfg.NotesTemperature = float32(f)
	}
	if v := os.Getenv("VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}

	if cfg.Users, err = ParseUserList(envOr("STUDY_USERS", DefaultUsers)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequireOpenAIKey fails if no API key is configured
func (c *Config) RequireOpenAIKey() error {
	if c.OpenAIKey == "" {
		return fmt.Errorf("OpenAI API key is required: set OPENAI_API_KEY")
	}
	return nil
}

// ParseUserList parses "name:password,name:password"
func ParseUserList(s string) (map[string]string, error) {
	users := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, password, ok := strings.Cut(part, ":")
		if !ok || name == "" || password == "" {
			return nil, fmt.Errorf("STUDY_USERS: malformed entry %q", part)
		}
		users[name] = password
	}
	return users, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: must be a positive integer, got %q", key, v)
	}
	return n, nil
}
