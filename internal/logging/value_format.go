package logging

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
)

// rawValue renders v without quoting.
func rawValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

// formatValue renders v for a key=value pair, quoting anything a reader
// could not split on whitespace.
func formatValue(v slog.Value) string {
	s := rawValue(v)
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}

func sourceLocation(src *slog.Source) string {
	if src == nil || src.File == "" {
		return ""
	}
	return filepath.Base(src.File) + ":" + strconv.Itoa(src.Line)
}
