package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"websift/internal/adapter/artifact"
	"websift/internal/domain"
	"websift/internal/infra/config"
	"websift/internal/infra/logger"
	"websift/internal/usecase/search"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "websift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "websift dev\n", out)
}

func TestShowCommand(t *testing.T) {
	dir := t.TempDir()
	content := "body"
	p := domain.ProcessedResults{
		Query:  "foo",
		Domain: "go.dev",
		Results: []domain.SearchResult{{
			Title: "A", URL: "https://go.dev/a", Snippet: "a",
			Content: &content, CodeSnippets: []string{"x := 1"}, Headings: []string{"H1"},
		}},
		KeyPhrases:    []string{},
		SearchSummary: "H1",
		Timestamp:     "2026-10-18T09:15:30.123Z",
	}
	path, err := artifact.NewFileStore(logger.Discard()).Persist(context.Background(), dir, p)
	require.NoError(t, err)

	out, _, err := execute(t, "", "show", path)
	require.NoError(t, err)
	assert.Equal(t, search.FormatReport(p, path)+"\n", out)
	assert.Contains(t, out, `Web search results for "foo"`)
	assert.Contains(t, out, "Code snippets: 1")
}

func TestShowCommand_Missing(t *testing.T) {
	_, _, err := execute(t, "", "show", filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIO))
}

func TestSearchCommand_RequiresQuery(t *testing.T) {
	_, _, err := execute(t, "", "search")
	require.Error(t, err)
}

func TestSearchCommand_DeniedByConfig(t *testing.T) {
	cfg := writeConfig(t, fmt.Sprintf(`
logger:
  output: %s
search:
  output_dir: %s
approval:
  enabled: true
  always_deny: [web_search]
`, filepath.Join(t.TempDir(), "log.txt"), t.TempDir()))

	out, errOut, err := execute(t, "", "--config", cfg, "search", "golang", "generics")
	require.ErrorIs(t, err, errReported)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "not approved")
	assert.Equal(t, 1, exitCode(err))
}

func TestSearchCommand_PromptDeclined(t *testing.T) {
	cfg := writeConfig(t, fmt.Sprintf(`
logger:
  output: %s
approval:
  enabled: true
  interactive: true
`, filepath.Join(t.TempDir(), "log.txt")))

	_, errOut, err := execute(t, "n\n", "--config", cfg, "search", "golang")
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, errOut, `Allow tool "web_search"`)
	assert.Contains(t, errOut, "not approved")
}

func TestSearchCommand_InvalidConfig(t *testing.T) {
	cfg := writeConfig(t, "search:\n  engine: altavista\n")
	_, _, err := execute(t, "", "--config", cfg, "search", "golang")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigLoad)
	assert.Equal(t, 3, exitCode(err))
}

func TestSearchCommand_InvalidInputExitCode(t *testing.T) {
	cfg := writeConfig(t, fmt.Sprintf(`
logger:
  output: %s
search:
  output_dir: %s
`, filepath.Join(t.TempDir(), "log.txt"), t.TempDir()))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"blank query", []string{"search", "--yes", "   "}, "missing value for required parameter 'query'"},
		{"negative max results", []string{"search", "--yes", "--max-results=-3", "golang"}, "schema validation failed"},
		{"negative window", []string{"search", "--yes", "--window=-1", "golang"}, "schema validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut, err := execute(t, "", append([]string{"--config", cfg}, tt.args...)...)
			require.ErrorIs(t, err, errReported)
			assert.Empty(t, out)
			assert.Contains(t, errOut, tt.want)
			assert.Equal(t, 2, exitCode(err))
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(&domain.MissingParameterError{Name: "query"}))
	assert.Equal(t, 2, exitCode(&toolFailure{code: domain.CodeInvalidInput}))
	assert.Equal(t, 1, exitCode(&toolFailure{code: domain.CodeToolApprovalDenied}))
	assert.Equal(t, 1, exitCode(&toolFailure{}))
	assert.Equal(t, 1, exitCode(domain.ErrNavigation))
	assert.Equal(t, 1, exitCode(errReported))
}

func TestNewApprover(t *testing.T) {
	call := domain.ToolCall{Name: "web_search"}
	ctx := context.Background()

	disabled := config.ApprovalConfig{Enabled: false}
	assert.Nil(t, newApprover(disabled, approvalPrompt, nil, nil))

	enabled := config.ApprovalConfig{Enabled: true, Interactive: true}
	assert.Nil(t, newApprover(enabled, approvalSkip, nil, nil))

	host := newApprover(config.ApprovalConfig{Enabled: true, AlwaysDeny: []string{"other"}}, approvalHost, nil, nil)
	ok, err := host.RequestApproval(ctx, call)
	assert.NoError(t, err)
	assert.True(t, ok, "host mode approves unlisted tools")

	strict := newApprover(config.ApprovalConfig{Enabled: true, Interactive: false}, approvalPrompt, nil, nil)
	ok, err = strict.RequestApproval(ctx, call)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrToolApprovalDenied)

	var prompt bytes.Buffer
	interactive := newApprover(enabled, approvalPrompt, strings.NewReader("yes\n"), &prompt)
	ok, err = interactive.RequestApproval(ctx, call)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, prompt.String(), "web_search")
}

type stubRunner struct {
	out *search.Outcome
	err error
}

func (s stubRunner) Run(context.Context, domain.SearchRequest) (*search.Outcome, error) {
	return s.out, s.err
}

func TestRecordingRunner(t *testing.T) {
	want := &search.Outcome{RunID: "r1"}
	r := &recordingRunner{inner: stubRunner{out: want}}
	assert.Nil(t, r.Last())

	_, err := r.Run(context.Background(), domain.SearchRequest{Query: "q"})
	require.NoError(t, err)
	assert.Same(t, want, r.Last())

	r.inner = stubRunner{err: domain.ErrBrowser}
	_, err = r.Run(context.Background(), domain.SearchRequest{Query: "q"})
	require.Error(t, err)
	assert.Same(t, want, r.Last(), "failed runs keep the previous outcome")
}

func TestNewRuntime_RegistersWebSearch(t *testing.T) {
	cfg := writeConfig(t, fmt.Sprintf("logger:\n  output: %s\n", filepath.Join(t.TempDir(), "log.txt")))

	rt, err := newRuntime(context.Background(), cfg, approvalHost, nil, nil)
	require.NoError(t, err)
	defer rt.Close(context.Background())

	tools := rt.registry.List()
	require.Len(t, tools, 1)
	assert.Equal(t, "web_search", tools[0].Name())
}

func TestNewRuntime_MCPKeepsStdoutClean(t *testing.T) {
	cfg := writeConfig(t, "logger:\n  output: stdout\n")

	rt, err := newRuntime(context.Background(), cfg, approvalHost, nil, nil)
	require.NoError(t, err)
	defer rt.Close(context.Background())
	assert.Equal(t, "stderr", rt.cfg.Logger.Output)
}
