package testgenpro

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ResponseMarker is a prompt heading the model sometimes echoes back ahead of its JSON
const ResponseMarker = "### RESPONSE_JSON"

// CleanModelOutput removes code fences and the echoed response marker
func CleanModelOutput(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		rest := s[4:]
		if rest == "" || rest[0] == '\n' || rest[0] == '\r' || rest[0] == ' ' || rest[0] == '{' {
			s = rest
		}
	}
	s = strings.Replace(s, ResponseMarker, "", 1)
	return strings.TrimSpace(s)
}

// ParseQuizResponse decodes raw model output into a Quiz of the requested type.
// It has no side effects; every failure wraps ErrMalformedResponse.
func ParseQuizResponse(raw string, qt QuestionType, registry *SchemaRegistry) (*Quiz, error) {
	if registry == nil {
		registry = DefaultSchemas()
	}
	schema, err := registry.Schema(qt)
	if err != nil {
		return nil, malformed("%v", err)
	}

	cleaned := CleanModelOutput(raw)
	if cleaned == "" {
		return nil, malformed("empty response")
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
		return nil, malformed("failed to decode quiz JSON: %v", err)
	}
	if len(entries) == 0 {
		return nil, malformed("response contains no questions")
	}

	keys := orderedKeys(lo.Keys(entries))
	questions := make([]Question, 0, len(keys))
	for _, key := range keys {
		question, err := decodeQuestion(key, entries[key], schema)
		if err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}

	return &Quiz{
		ID:        uuid.NewString(),
		Type:      qt,
		Questions: questions,
		CreatedAt: time.Now(),
	}, nil
}

func decodeQuestion(key string, raw json.RawMessage, schema ResponseSchema) (Question, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Question{}, malformed("question %s is not an object", key)
	}

	for _, name := range schema.Required {
		value, ok := fields[name]
		if !ok || isNull(value) {
			return Question{}, malformed("question %s is missing %q", key, name)
		}
	}

	question := Question{Key: key}
	for _, name := range schema.PromptFields {
		if text, ok := stringField(fields, name); ok && text != "" {
			question.Prompt = text
			break
		}
	}
	if question.Prompt == "" {
		return Question{}, malformed("question %s has no question text (%s)", key, strings.Join(schema.PromptFields, " or "))
	}

	switch schema.Type {
	case MultipleChoice:
		var options map[string]string
		if err := json.Unmarshal(fields["options"], &options); err != nil || len(options) == 0 {
			return Question{}, malformed("question %s: options must be a non-empty object of strings", key)
		}
		correct, ok := stringField(fields, "correct")
		if !ok {
			return Question{}, malformed("question %s: correct must be a string", key)
		}
		optionKey, found := matchOptionKey(options, correct)
		if !found {
			return Question{}, malformed("question %s: correct answer %q is not one of the options", key, correct)
		}
		question.Options = options
		question.CorrectKey = optionKey

	case TrueFalse:
		correct, ok := trueFalseField(fields["correct"])
		if !ok {
			return Question{}, malformed("question %s: correct must be true or false", key)
		}
		question.CorrectKey = correct

	case Descriptive:
		solution, ok := stringField(fields, "solution")
		if !ok || solution == "" {
			return Question{}, malformed("question %s: solution must be a non-empty string", key)
		}
		question.ReferenceSolution = solution
	}

	return question, nil
}

// matchOptionKey finds the option key named by correct, exactly or ignoring case
func matchOptionKey(options map[string]string, correct string) (string, bool) {
	correct = strings.TrimSpace(correct)
	if _, ok := options[correct]; ok {
		return correct, true
	}
	return lo.FindKeyBy(options, func(k string, _ string) bool {
		return strings.EqualFold(k, correct)
	})
}

func stringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// trueFalseField accepts "true"/"false" in any case, or a JSON boolean
func trueFalseField(raw json.RawMessage) (string, bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if s != "true" && s != "false" {
		return "", false
	}
	return s, true
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// orderedKeys sorts keys numerically when they are all integers, otherwise lexically
func orderedKeys(keys []string) []string {
	numeric := lo.EveryBy(keys, func(k string) bool {
		_, err := strconv.Atoi(k)
		return err == nil
	})
	sort.Slice(keys, func(i, j int) bool {
		if numeric {
			a, _ := strconv.Atoi(keys[i])
			b, _ := strconv.Atoi(keys[j])
			return a < b
		}
		return keys[i] < keys[j]
	})
	return keys
}
