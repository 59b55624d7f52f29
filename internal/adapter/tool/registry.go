package tool

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"websift/internal/domain"
)

// Registry holds the tools a host can call, keyed by name.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]domain.Tool
	logger *slog.Logger
}

// NewRegistry creates an empty registry. Tools registered through it are
// wrapped with schema validation; a schema that does not compile is logged
// and the tool is kept unwrapped.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]domain.Tool),
		logger: logger,
	}
}

// Register adds t. Names must be unique.
func (r *Registry) Register(t domain.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	wrapped, err := WithSchemaValidation(t)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("schema validation disabled for tool", "tool", name, "error", err)
		}
	} else {
		t = wrapped
	}

	r.tools[name] = t
	return nil
}

// Get looks a tool up by name.
func (r *Registry) Get(name string) (domain.Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, domain.NewDomainError("Registry.Get", domain.ErrToolNotFound, name)
	}
	return t, nil
}

// List returns the registered tools ordered by name.
func (r *Registry) List() []domain.Tool {
	r.mu.RLock()
	tools := make([]domain.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	r.mu.RUnlock()

	slices.SortFunc(tools, func(a, b domain.Tool) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return tools
}

// Schemas returns the schema of every tool, ordered by name.
func (r *Registry) Schemas() []domain.ToolSchema {
	tools := r.List()
	schemas := make([]domain.ToolSchema, 0, len(tools))
	for _, t := range tools {
		schemas = append(schemas, t.Schema())
	}
	return schemas
}
