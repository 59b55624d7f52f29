package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// symbols are the status markers printed before stderr lines.
type symbols struct {
	ok, warn, fail string
}

var (
	unicodeSymbols = symbols{ok: "✓", warn: "⚠", fail: "✗"}
	asciiSymbols   = symbols{ok: "[OK]", warn: "[!]", fail: "[ERR]"}
)

// unicodeSupported reports whether the terminal likely renders Unicode.
// WEBSIFT_ASCII_SYMBOLS=1 forces ASCII.
func unicodeSupported() bool {
	if v := os.Getenv("WEBSIFT_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		return false
	}
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		val := strings.ToLower(os.Getenv(key))
		if strings.Contains(val, "utf-8") || strings.Contains(val, "utf8") {
			return true
		}
	}
	return false
}

// status writes styled one-line messages. Colors are dropped automatically
// when w is not a terminal.
type status struct {
	w   io.Writer
	sym symbols

	okStyle   lipgloss.Style
	warnStyle lipgloss.Style
	failStyle lipgloss.Style
	dimStyle  lipgloss.Style
}

func newStatus(w io.Writer) *status {
	sym := asciiSymbols
	if unicodeSupported() {
		sym = unicodeSymbols
	}
	r := lipgloss.NewRenderer(w)
	return &status{
		w:         w,
		sym:       sym,
		okStyle:   r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		warnStyle: r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		failStyle: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		dimStyle:  r.NewStyle().Faint(true),
	}
}

func (s *status) OK(format string, args ...any) {
	fmt.Fprintln(s.w, s.okStyle.Render(s.sym.ok), fmt.Sprintf(format, args...))
}

func (s *status) Warn(format string, args ...any) {
	fmt.Fprintln(s.w, s.warnStyle.Render(s.sym.warn), fmt.Sprintf(format, args...))
}

func (s *status) Fail(format string, args ...any) {
	fmt.Fprintln(s.w, s.failStyle.Render(s.sym.fail), fmt.Sprintf(format, args...))
}

func (s *status) Hint(format string, args ...any) {
	fmt.Fprintln(s.w, "   ", s.dimStyle.Render(fmt.Sprintf(format, args...)))
}
