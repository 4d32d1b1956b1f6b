package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"kodarr/internal/preflight"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

var statusStyles = map[statusKind]struct {
	label string
	color text.Colors
}{
	statusInfo:  {"INFO", text.Colors{text.FgBlue}},
	statusOK:    {"OK", text.Colors{text.FgGreen}},
	statusWarn:  {"WARN", text.Colors{text.FgYellow}},
	statusError: {"ERROR", text.Colors{text.FgRed}},
}

const statusLabelWidth = 20

// statusReport accumulates the sectioned output of `kodarr status`.
type statusReport struct {
	colorize bool
	b        strings.Builder
}

func newStatusReport(w io.Writer) *statusReport {
	return &statusReport{colorize: shouldColorize(w)}
}

func (r *statusReport) section(title string) {
	if r.b.Len() > 0 {
		r.b.WriteByte('\n')
	}
	heading := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(heading))
	r.writeln(r.paint(text.Colors{text.FgBlue, text.Bold}, heading))
	r.writeln(r.paint(text.Colors{text.FgBlue}, rule))
}

func (r *statusReport) line(label string, kind statusKind, message string) {
	r.writeln(formatStatusLine(label, kind, message, r.colorize))
}

func (r *statusReport) check(result preflight.Result) {
	kind := statusOK
	if !result.Passed {
		kind = statusError
	}
	r.line(result.Name, kind, result.Detail)
}

func (r *statusReport) block(rendered string) {
	r.writeln(rendered)
}

func (r *statusReport) String() string { return r.b.String() }

func (r *statusReport) writeln(s string) {
	r.b.WriteString(s)
	r.b.WriteByte('\n')
}

func (r *statusReport) paint(colors text.Colors, s string) string {
	if !r.colorize {
		return s
	}
	return colors.Sprint(s)
}

func formatStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style, ok := statusStyles[kind]
	if !ok {
		style = statusStyles[statusInfo]
	}
	badge := "[" + style.label + "]"
	if message != "" {
		badge += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", badge)
	if colorize {
		return style.color.Sprint(line)
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
