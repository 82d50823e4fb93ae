package testgenpro

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed schemas.yaml
var defaultSchemasYAML []byte

// ResponseSchema is the output shape the model must follow for one question type
type ResponseSchema struct {
	Type         QuestionType           `yaml:"type"`
	PromptFields []string               `yaml:"prompt_fields"`
	Required     []string               `yaml:"required"`
	Template     map[string]interface{} `yaml:"template"`
}

// TemplateJSON renders the example shape as JSON for inclusion in a prompt
func (s ResponseSchema) TemplateJSON() (string, error) {
	data, err := json.Marshal(s.Template)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s template: %w", s.Type, err)
	}
	return string(data), nil
}

// SchemaRegistry holds one ResponseSchema per QuestionType
type SchemaRegistry struct {
	schemas map[QuestionType]ResponseSchema
}

// LoadSchemas parses a registry from YAML. All three question types must be present.
func LoadSchemas(data []byte) (*SchemaRegistry, error) {
	var doc struct {
		Schemas []ResponseSchema `yaml:"schemas"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schemas: %w", err)
	}

	registry := &SchemaRegistry{schemas: make(map[QuestionType]ResponseSchema)}
	for _, schema := range doc.Schemas {
		qt, err := ParseQuestionType(string(schema.Type))
		if err != nil {
			return nil, fmt.Errorf("schema: %w", err)
		}
		if len(schema.PromptFields) == 0 {
			return nil, fmt.Errorf("schema %s: no prompt fields", qt)
		}
		if _, dup := registry.schemas[qt]; dup {
			return nil, fmt.Errorf("schema %s: defined twice", qt)
		}
		schema.Type = qt
		registry.schemas[qt] = schema
	}

	for _, qt := range QuestionTypes {
		if _, ok := registry.schemas[qt]; !ok {
			return nil, fmt.Errorf("schema %s: missing", qt)
		}
	}
	return registry, nil
}

var (
	defaultRegistry     *SchemaRegistry
	defaultRegistryErr  error
	defaultRegistryOnce sync.Once
)

// DefaultSchemas returns the registry built from the embedded schemas.yaml
func DefaultSchemas() *SchemaRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry, defaultRegistryErr = LoadSchemas(defaultSchemasYAML)
	})
	if defaultRegistryErr != nil {
		panic(fmt.Sprintf("embedded schemas.yaml is invalid: %v", defaultRegistryErr))
	}
	return defaultRegistry
}

// Schema returns the schema for a question type
func (r *SchemaRegistry) Schema(qt QuestionType) (ResponseSchema, error) {
	schema, ok := r.schemas[qt]
	if !ok {
		return ResponseSchema{}, fmt.Errorf("no response schema for question type %q", qt)
	}
	return schema, nil
}
