package logger

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// shortIDLen is how much of a bootstrap id the text format shows.
const shortIDLen = 8

// TextHandler writes one line per record:
//
//	[2006-01-02 15:04:05.000] [LEVEL] message key=value ...
//
// Bootstrap ids are shortened, groups become dotted key prefixes and
// ambiguous strings are quoted.
type TextHandler struct {
	level    slog.Leveler
	w        io.Writer
	mu       *sync.Mutex
	prefix   string // rendered WithAttrs attributes
	group    string // dotted group path, with trailing dot
	useColor bool
}

// NewTextHandler creates a TextHandler writing to w.
func NewTextHandler(w io.Writer, opts *slog.HandlerOptions, useColor bool) *TextHandler {
	h := &TextHandler{w: w, mu: &sync.Mutex{}, useColor: useColor, level: slog.LevelInfo}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *TextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *TextHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(r.Time.Format("2006-01-02 15:04:05.000"))
	b.WriteString("] [")
	b.WriteString(h.levelLabel(r.Level))
	b.WriteString("] ")
	b.WriteString(r.Message)
	b.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&b, h.group, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *TextHandler) levelLabel(level slog.Level) string {
	label, color := "ERROR", ansiRed
	switch {
	case level < slog.LevelInfo:
		label, color = "DEBUG", ansiGray
	case level < slog.LevelWarn:
		label, color = "INFO", ansiGreen
	case level < slog.LevelError:
		label, color = "WARN", ansiYellow
	}
	return h.paint(color, label)
}

func (h *TextHandler) paint(color, s string) string {
	if !h.useColor {
		return s
	}
	return color + s + ansiReset
}

func (h *TextHandler) writeAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		inner := group
		if a.Key != "" {
			inner = group + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(b, inner, ga)
		}
		return
	}

	key := group + a.Key
	val := renderValue(a.Key, a.Value)
	if a.Key == KeyError {
		val = h.paint(ansiRed, val)
	}
	b.WriteByte(' ')
	b.WriteString(h.paint(ansiCyan, key))
	b.WriteByte('=')
	b.WriteString(val)
}

func renderValue(key string, v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if key == KeyBootstrapID && len(s) > shortIDLen {
			s = s[:shortIDLen]
		}
		if s == "" || strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', 3, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return v.String()
	}
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.prefix)
	for _, a := range attrs {
		h.writeAttr(&b, h.group, a)
	}
	clone := *h
	clone.prefix = b.String()
	return &clone
}

func (h *TextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.group + name + "."
	return &clone
}
