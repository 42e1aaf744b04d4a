package logging

import (
	"io"
	"log/slog"
	"strings"
)

// newJSONHandler emits one object per line with the keys ts, level, msg and
// source (debug only) followed by the record attributes.
func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: renameJSONKeys,
	})
}

func renameJSONKeys(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return attr
	}
	switch attr.Key {
	case slog.TimeKey:
		return slog.String("ts", formatTimestamp(attr.Value.Time()))
	case slog.LevelKey:
		return slog.String("level", strings.ToLower(attr.Value.String()))
	case slog.MessageKey:
		return slog.String("msg", attr.Value.String())
	case slog.SourceKey:
		if src, ok := attr.Value.Any().(*slog.Source); ok {
			return slog.String("source", sourceLocation(src))
		}
	}
	return attr
}
