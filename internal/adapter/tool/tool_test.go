package tool

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"websift/internal/domain"
)

func newTestLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type mockTool struct {
	name string
}

func (m *mockTool) Name() string              { return m.name }
func (m *mockTool) Description() string       { return "mock" }
func (m *mockTool) Schema() domain.ToolSchema { return domain.ToolSchema{Name: m.name} }
func (m *mockTool) Execute(context.Context, json.RawMessage) (*domain.ToolResult, error) {
	return &domain.ToolResult{Content: "ok"}, nil
}

func TestRegistryBasic(t *testing.T) {
	reg := NewRegistry(nil)
	if err := reg.Register(&mockTool{name: "test"}); err != nil {
		t.Fatal(err)
	}

	tool, err := reg.Get("test")
	if err != nil {
		t.Fatal(err)
	}
	if tool.Name() != "test" {
		t.Errorf("Name = %q, want %q", tool.Name(), "test")
	}
	if n := len(reg.Schemas()); n != 1 {
		t.Errorf("Schemas len = %d, want 1", n)
	}
}

func TestRegistryNotFound(t *testing.T) {
	reg := NewRegistry(nil)
	_, err := reg.Get("nonexistent")
	if !errors.Is(err, domain.ErrToolNotFound) {
		t.Errorf("err = %v, want ErrToolNotFound", err)
	}
	if domain.ErrorCodeOf(err) != domain.CodeToolNotFound {
		t.Errorf("code = %s", domain.ErrorCodeOf(err))
	}
}

func TestRegistryDuplicate(t *testing.T) {
	reg := NewRegistry(nil)
	if err := reg.Register(&mockTool{name: "dup"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register(&mockTool{name: "dup"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestRegistryListSorted(t *testing.T) {
	reg := NewRegistry(nil)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(&mockTool{name: name}); err != nil {
			t.Fatal(err)
		}
	}

	var names []string
	for _, tool := range reg.List() {
		names = append(names, tool.Name())
	}
	want := []string{"alpha", "mid", "zeta"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("List order = %v, want %v", names, want)
		}
	}

	schemas := reg.Schemas()
	if schemas[0].Name != "alpha" || schemas[2].Name != "zeta" {
		t.Errorf("Schemas order = %v", schemas)
	}
}
