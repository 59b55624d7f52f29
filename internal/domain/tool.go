package domain

import (
	"context"
	"encoding/json"
)

// ToolSchema describes a tool to a host that invokes it by name.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall represents an agent's request to invoke a tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of executing a tool.
type ToolResult struct {
	ToolCallID  string `json:"tool_call_id"`
	Content     string `json:"content"`
	IsError     bool   `json:"is_error"`
	IsRetryable bool   `json:"is_retryable,omitempty"`
	// Code categorizes an error result; empty when unknown.
	Code ErrorCode `json:"code,omitempty"`
}

// Tool is the interface every tool must implement.
type Tool interface {
	Name() string
	Description() string
	Schema() ToolSchema
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolApprover decides whether a tool call requires human approval.
type ToolApprover interface {
	// NeedsApproval returns true if the tool call should be gated on approval.
	NeedsApproval(call ToolCall) bool
	// RequestApproval blocks until the call is approved or denied.
	RequestApproval(ctx context.Context, call ToolCall) (bool, error)
}

// ErrorReporter receives failures that escape a tool's handler. stage is a
// short human label for what was being attempted ("performing web search").
type ErrorReporter interface {
	Report(ctx context.Context, stage string, err error)
}
