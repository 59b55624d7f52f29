package tool

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"websift/internal/domain"
	"websift/internal/infra/tracer"
	"websift/internal/usecase/search"
)

const (
	maxQueryLength    = 2048
	webSearchStage    = "performing web search"
	webSearchToolName = "web_search"
)

// SearchRunner runs one search. *search.Searcher is the production runner.
type SearchRunner interface {
	Run(ctx context.Context, req domain.SearchRequest) (*search.Outcome, error)
}

// WebSearchDefaults fill optional parameters the caller leaves out.
type WebSearchDefaults struct {
	MaxResults        int
	SlidingWindowSize int
	OutputDirectory   string
}

// WebSearchTool searches the web through a headless browser, saves the
// processed results as JSON and answers with a text report.
type WebSearchTool struct {
	runner   SearchRunner
	approver domain.ToolApprover
	reporter domain.ErrorReporter
	defaults WebSearchDefaults
	logger   *slog.Logger
}

// NewWebSearchTool creates the tool. approver and reporter may be nil.
func NewWebSearchTool(runner SearchRunner, approver domain.ToolApprover, reporter domain.ErrorReporter, defaults WebSearchDefaults, logger *slog.Logger) *WebSearchTool {
	return &WebSearchTool{
		runner:   runner,
		approver: approver,
		reporter: reporter,
		defaults: defaults,
		logger:   logger,
	}
}

func (t *WebSearchTool) Name() string { return webSearchToolName }
func (t *WebSearchTool) Description() string {
	return "Search the web with a headless browser and extract text, code and headings from each result page"
}

func (t *WebSearchTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "The search query"},
				"domain": {"type": "string", "description": "Restrict results to this host, e.g. go.dev (optional)"},
				"maxResults": {"type": "integer", "minimum": 1, "description": "Number of results to process (default: 5)"},
				"slidingWindowSize": {"type": "integer", "minimum": 1, "description": "Words per key phrase window (default: 100)"},
				"chunkDir": {"type": "string", "description": "Directory for the JSON artifact (default: ./web-search-results)"}
			},
			"required": ["query"]
		}`),
	}
}

type webSearchParams struct {
	Query             string `json:"query"`
	Domain            string `json:"domain,omitempty"`
	MaxResults        int    `json:"maxResults,omitempty"`
	SlidingWindowSize int    `json:"slidingWindowSize,omitempty"`
	ChunkDir          string `json:"chunkDir,omitempty"`
}

func (t *WebSearchTool) Execute(ctx context.Context, params json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.web_search", t.logger, params,
		func(ctx context.Context, span trace.Span, p webSearchParams) (any, error) {
			if strings.TrimSpace(p.Query) == "" {
				return MissingParamResult("query"), nil
			}
			if err := ValidateAll(
				ValidateMaxLength("query", p.Query, maxQueryLength),
				ValidateHostname("domain", strings.TrimSpace(p.Domain)),
				ValidateMin("maxResults", p.MaxResults, 1),
				ValidateMin("slidingWindowSize", p.SlidingWindowSize, 1),
			); err != nil {
				return InvalidInputResult("invalid parameters: %v", err), nil
			}

			req := t.request(p)
			if err := req.Validate(); err != nil {
				var missing *domain.MissingParameterError
				if errors.As(err, &missing) {
					return MissingParamResult(missing.Name), nil
				}
				return InvalidInputResult("invalid parameters: %v", err), nil
			}

			span.SetAttributes(
				tracer.StringAttr("search.query", req.Query),
				tracer.IntAttr("search.max_results", req.MaxResults),
			)

			if denied := t.approve(ctx, params); denied != nil {
				return denied, nil
			}

			out, err := t.runner.Run(ctx, req)
			if err != nil {
				if t.reporter != nil {
					t.reporter.Report(ctx, webSearchStage, err)
				}
				return nil, err
			}

			span.SetAttributes(
				tracer.StringAttr("search.run_id", out.RunID),
				tracer.StringAttr("search.artifact", out.ArtifactPath),
			)
			return out.Report, nil
		})
}

// request applies the tool's configured defaults, then the domain ones.
func (t *WebSearchTool) request(p webSearchParams) domain.SearchRequest {
	req := domain.SearchRequest{
		Query:             p.Query,
		Domain:            p.Domain,
		MaxResults:        p.MaxResults,
		SlidingWindowSize: p.SlidingWindowSize,
		OutputDirectory:   p.ChunkDir,
	}
	if req.MaxResults == 0 {
		req.MaxResults = t.defaults.MaxResults
	}
	if req.SlidingWindowSize == 0 {
		req.SlidingWindowSize = t.defaults.SlidingWindowSize
	}
	if strings.TrimSpace(req.OutputDirectory) == "" {
		req.OutputDirectory = t.defaults.OutputDirectory
	}
	return req.Normalize()
}

// approve returns nil when the call may proceed, or the result to hand
// back when it may not.
func (t *WebSearchTool) approve(ctx context.Context, params json.RawMessage) *domain.ToolResult {
	if t.approver == nil {
		return nil
	}
	call := domain.ToolCall{Name: t.Name(), Arguments: params}
	if !t.approver.NeedsApproval(call) {
		return nil
	}
	ok, err := t.approver.RequestApproval(ctx, call)
	if err != nil {
		t.logger.Info("web search not approved", "error", err)
		return deniedResult(ErrResult("web search not approved: %v", err))
	}
	if !ok {
		t.logger.Info("web search not approved")
		return deniedResult(ErrResult("web search not approved"))
	}
	return nil
}

func deniedResult(r *domain.ToolResult) *domain.ToolResult {
	r.Code = domain.CodeToolApprovalDenied
	return r
}
