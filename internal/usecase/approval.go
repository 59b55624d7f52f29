package usecase

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"websift/internal/domain"
)

// ConfigApprover is a ToolApprover driven by allow/deny lists.
//
// Tools in the deny list are always rejected and tools in the approve list
// run without asking. Anything else goes to the fallback approver when one
// is set, and is denied otherwise.
type ConfigApprover struct {
	alwaysApprove map[string]bool
	alwaysDeny    map[string]bool
	fallback      domain.ToolApprover
}

// NewConfigApprover creates a ConfigApprover from allow/deny lists.
func NewConfigApprover(approve, deny []string) *ConfigApprover {
	a := &ConfigApprover{
		alwaysApprove: make(map[string]bool, len(approve)),
		alwaysDeny:    make(map[string]bool, len(deny)),
	}
	for _, name := range approve {
		a.alwaysApprove[name] = true
	}
	for _, name := range deny {
		a.alwaysDeny[name] = true
	}
	return a
}

// WithFallback sets the approver consulted for unlisted tools.
func (c *ConfigApprover) WithFallback(f domain.ToolApprover) *ConfigApprover {
	c.fallback = f
	return c
}

// NeedsApproval returns false if the tool is in the always-approve list,
// true otherwise (including always-deny and unknown tools).
func (c *ConfigApprover) NeedsApproval(call domain.ToolCall) bool {
	return !c.alwaysApprove[call.Name]
}

// RequestApproval applies deny, then approve, then the fallback.
func (c *ConfigApprover) RequestApproval(ctx context.Context, call domain.ToolCall) (bool, error) {
	if c.alwaysDeny[call.Name] {
		return false, domain.ErrToolApprovalDenied
	}
	if c.alwaysApprove[call.Name] {
		return true, nil
	}
	if c.fallback != nil {
		return c.fallback.RequestApproval(ctx, call)
	}
	return false, domain.NewDomainError(
		"ConfigApprover.RequestApproval",
		domain.ErrToolApprovalDenied,
		fmt.Sprintf("tool %q is not in the approve list and no interactive approver is configured", call.Name),
	)
}

// PromptApprover asks a human on a terminal. Only "y" or "yes" approves.
type PromptApprover struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewPromptApprover reads answers from in and writes prompts to out.
func NewPromptApprover(in io.Reader, out io.Writer) *PromptApprover {
	return &PromptApprover{in: bufio.NewReader(in), out: out}
}

// NeedsApproval always returns true.
func (p *PromptApprover) NeedsApproval(domain.ToolCall) bool { return true }

// RequestApproval prints the call and waits for an answer or ctx.
func (p *PromptApprover) RequestApproval(ctx context.Context, call domain.ToolCall) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "Allow tool %q with arguments %s? [y/N]: ", call.Name, compactArgs(call.Arguments))

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return false, domain.NewDomainError("PromptApprover.RequestApproval", domain.ErrToolApprovalTimeout, ctx.Err().Error())
	case a := <-ch:
		if a.err != nil && a.line == "" {
			return false, domain.NewDomainError("PromptApprover.RequestApproval", domain.ErrToolApprovalDenied, "no answer")
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, domain.ErrToolApprovalDenied
		}
	}
}

func compactArgs(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return "{}"
	}
	return s
}

// AutoApprover approves every call. It backs ConfigApprover when the client
// gates calls itself, as MCP hosts do.
type AutoApprover struct{}

func (AutoApprover) NeedsApproval(domain.ToolCall) bool { return false }

func (AutoApprover) RequestApproval(context.Context, domain.ToolCall) (bool, error) {
	return true, nil
}
