package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"websift/internal/domain"
)

// SchemaValidatingTool checks call arguments against the tool's JSON Schema
// before the tool sees them.
type SchemaValidatingTool struct {
	inner    domain.Tool
	schema   *jsonschema.Schema
	required []string
}

// WithSchemaValidation wraps t. A tool without a schema is returned as is.
func WithSchemaValidation(t domain.Tool) (domain.Tool, error) {
	raw := t.Schema().Parameters
	if len(raw) == 0 || string(raw) == "null" {
		return t, nil
	}

	var head struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode schema for %q: %w", t.Name(), err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource for %q: %w", t.Name(), err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema for %q: %w", t.Name(), err)
	}

	return &SchemaValidatingTool{inner: t, schema: compiled, required: head.Required}, nil
}

func (s *SchemaValidatingTool) Name() string              { return s.inner.Name() }
func (s *SchemaValidatingTool) Description() string       { return s.inner.Description() }
func (s *SchemaValidatingTool) Schema() domain.ToolSchema { return s.inner.Schema() }

// Execute reports a missing required field in the same words the tool would
// use, then runs full schema validation.
func (s *SchemaValidatingTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	if len(bytes.TrimSpace(params)) == 0 {
		params = json.RawMessage("{}")
	}

	var v any
	if err := json.Unmarshal(params, &v); err != nil {
		return InvalidInputResult("invalid JSON: %v", err), nil
	}

	if obj, ok := v.(map[string]any); ok {
		for _, name := range s.required {
			if val, present := obj[name]; !present || val == nil {
				return MissingParamResult(name), nil
			}
		}
	}

	if err := s.schema.Validate(v); err != nil {
		return InvalidInputResult("schema validation failed: %v", err), nil
	}

	return s.inner.Execute(ctx, params)
}
