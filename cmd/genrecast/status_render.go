package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusLevel int

const (
	levelInfo statusLevel = iota
	levelOK
	levelWarn
	levelError
)

var levelStyles = map[statusLevel]struct {
	tag   string
	color text.Colors
}{
	levelInfo:  {"INFO", text.Colors{text.FgBlue}},
	levelOK:    {"OK", text.Colors{text.FgGreen}},
	levelWarn:  {"WARN", text.Colors{text.FgYellow}},
	levelError: {"ERROR", text.Colors{text.FgRed, text.Bold}},
}

// statusWriter prints "label: [TAG] detail" lines grouped under section
// headings, colouring only when writing to a terminal.
type statusWriter struct {
	out   io.Writer
	color bool
}

func newStatusWriter(out io.Writer) *statusWriter {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &statusWriter{out: out, color: color}
}

func (w *statusWriter) section(title string) {
	heading := "== " + strings.TrimSpace(title) + " =="
	if w.color {
		heading = text.Colors{text.FgBlue, text.Bold}.Sprint(heading)
	}
	fmt.Fprintln(w.out, heading)
}

func (w *statusWriter) line(label string, lvl statusLevel, detail string) {
	style := levelStyles[lvl]
	status := "[" + style.tag + "]"
	if detail != "" {
		status += " " + detail
	}
	row := fmt.Sprintf("  %-22s %s", label+":", status)
	if w.color {
		row = style.color.Sprint(row)
	}
	fmt.Fprintln(w.out, row)
}
