package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const ansiReset = "\x1b[0m"

// statusCheck is one line of a readiness report.
type statusCheck struct {
	Label   string
	Kind    statusKind
	Message string
}

// render formats the check as "  Label:          [KIND] message".
func (c statusCheck) render(colorize bool) string {
	style := statusStyles[c.Kind]
	status := "[" + style.label + "]"
	if c.Message != "" {
		status += " " + c.Message
	}
	line := fmt.Sprintf("  %-16s %s", c.Label+":", status)
	if colorize {
		return style.color + line + ansiReset
	}
	return line
}

func renderChecks(checks []statusCheck, colorize bool) []string {
	lines := make([]string, 0, len(checks))
	for _, c := range checks {
		lines = append(lines, c.render(colorize))
	}
	return lines
}

// worstKind returns the most severe kind among checks.
func worstKind(checks []statusCheck) statusKind {
	worst := statusInfo
	for _, c := range checks {
		worst = max(worst, c.Kind)
	}
	return worst
}

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
