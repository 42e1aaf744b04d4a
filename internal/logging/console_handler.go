package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// consoleHandler writes one line per record:
//
//	<timestamp> LEVEL component: message [file:line] key=value ...
//
// Attributes added through With are rendered once and reused. The component
// attribute becomes the line prefix instead of a key=value pair.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     *slog.LevelVar
	addSource bool

	component string
	groups    []string
	preset    string
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	component := h.component
	var fields strings.Builder
	record.Attrs(func(attr slog.Attr) bool {
		component = writeAttr(&fields, h.groups, attr, component)
		return true
	})

	var line strings.Builder
	line.WriteString(formatTimestamp(ts))
	line.WriteByte(' ')
	line.WriteString(levelLabel(record.Level))
	line.WriteByte(' ')
	if component != "" {
		line.WriteString(component)
		line.WriteString(": ")
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	line.WriteString(msg)
	if h.addSource {
		if loc := sourceLocation(record.Source()); loc != "" {
			line.WriteString(" [" + loc + "]")
		}
	}
	line.WriteString(h.preset)
	line.WriteString(fields.String())
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	var sb strings.Builder
	sb.WriteString(h.preset)
	for _, attr := range attrs {
		clone.component = writeAttr(&sb, h.groups, attr, clone.component)
	}
	clone.preset = sb.String()
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// writeAttr renders attr as " key=value", flattening groups into dotted keys.
// A top level component attribute is not written; the returned string is the
// component in effect after attr.
func writeAttr(sb *strings.Builder, groups []string, attr slog.Attr, component string) string {
	if attr.Equal(slog.Attr{}) {
		return component
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		inner := groups
		if attr.Key != "" {
			inner = append(append([]string(nil), groups...), attr.Key)
		}
		for _, child := range value.Group() {
			component = writeAttr(sb, inner, child, component)
		}
		return component
	}
	if len(groups) == 0 && attr.Key == FieldComponent {
		if component == "" {
			component = rawValue(value)
		}
		return component
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(append(append([]string(nil), groups...), key), ".")
	}
	if key == "" {
		return component
	}
	sb.WriteByte(' ')
	sb.WriteString(key)
	sb.WriteByte('=')
	sb.WriteString(formatValue(value))
	return component
}
