package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "2006-01-02T15:04:05.000"

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// consoleHandler renders one line per record:
//
//	2026-01-02T15:04:05.000 INFO  [pipeline] run 01234567/reduce: stage completed components=3
//
// The run and stage prefix replaces the run_id and stage fields at info and
// above; debug records keep them as ordinary fields.
type consoleHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     *slog.LevelVar
	preset    []field
	groups    []string
	addSource bool
	color     bool
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource, color bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: lvl, addSource: addSource, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}

	fields := make([]field, 0, len(h.preset)+record.NumAttrs())
	fields = append(fields, h.preset...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.groups, attr)
		return true
	})
	fields = lastWins(fields)

	var component, runID, stageName string
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = plainString(f.value)
		case FieldRunID:
			runID = plainString(f.value)
		case FieldStage:
			stageName = plainString(f.value)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var line bytes.Buffer
	line.WriteString(h.paint(ansiDim, ts.Local().Format(consoleTimeLayout)))
	line.WriteByte(' ')
	line.WriteString(h.paint(levelColor(record.Level), padLevel(record.Level)))
	if component != "" {
		line.WriteString(" [" + component + "]")
	}
	if prefix := runPrefix(runID, stageName); prefix != "" {
		line.WriteString(" " + h.paint(ansiBold, prefix) + ":")
	}
	line.WriteByte(' ')
	if msg := strings.TrimSpace(record.Message); msg != "" {
		line.WriteString(msg)
	} else {
		line.WriteString("(no message)")
	}

	debug := record.Level < slog.LevelInfo
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			continue
		case FieldRunID, FieldStage:
			if !debug {
				continue
			}
		}
		line.WriteByte(' ')
		line.WriteString(h.paint(ansiDim, f.key+"="))
		line.WriteString(renderValue(f.value))
	}
	if h.addSource {
		if src := record.Source(); src != nil {
			line.WriteString(h.paint(ansiDim, " @"+filepath.Base(src.File)+":"+strconv.Itoa(src.Line)))
		}
	}
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(line.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.derive()
	for _, attr := range attrs {
		next.preset = appendField(next.preset, next.groups, attr)
	}
	return next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.derive()
	next.groups = append(next.groups, name)
	return next
}

func (h *consoleHandler) derive() *consoleHandler {
	next := *h
	next.preset = append([]field(nil), h.preset...)
	next.groups = append([]string(nil), h.groups...)
	return &next
}

func (h *consoleHandler) paint(code, text string) string {
	if !h.color {
		return text
	}
	return code + text + ansiReset
}

// runPrefix renders "run 1a2b3c4d/stage" with the run ID cut to eight characters.
func runPrefix(runID, stageName string) string {
	runID = strings.TrimSpace(runID)
	stageName = strings.TrimSpace(stageName)
	if len(runID) > 8 {
		runID = runID[:8]
	}
	switch {
	case runID != "" && stageName != "":
		return "run " + runID + "/" + stageName
	case runID != "":
		return "run " + runID
	default:
		return stageName
	}
}

func padLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return ansiRed
	case level >= slog.LevelWarn:
		return ansiYellow
	case level >= slog.LevelInfo:
		return ansiBlue
	default:
		return ansiDim
	}
}
