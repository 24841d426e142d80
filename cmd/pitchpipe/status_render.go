package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// statusKind carries the bracketed label and color for one status line.
type statusKind struct {
	label string
	color string
}

var (
	statusInfo  = statusKind{label: "INFO", color: ansiBlue}
	statusOK    = statusKind{label: "OK", color: ansiGreen}
	statusWarn  = statusKind{label: "WARN", color: ansiYellow}
	statusError = statusKind{label: "ERROR", color: ansiRed}
)

const (
	statusIndent     = "  "
	statusLabelWidth = 20
)

func renderStatusLine(label string, kind statusKind, detail string, colorize bool) string {
	status := "[" + kind.label + "]"
	if detail != "" {
		status += " " + detail
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", status)
	if colorize && kind.color != "" {
		line = kind.color + line + ansiReset
	}
	return line
}

// renderSectionHeader returns the "== Title ==" banner with its underline,
// joined by a newline so callers print it as one block.
func renderSectionHeader(title string, colorize bool) string {
	banner := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(banner))
	if colorize {
		banner = ansiBlue + banner + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return banner + "\n" + rule
}

// shouldColorize enables ANSI color only when the writer is a real terminal.
func shouldColorize(writer io.Writer) bool {
	type fder interface{ Fd() uintptr }
	f, ok := writer.(fder)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
