// Package logger is the process-wide structured logger of bootkit.
//
// It wraps log/slog with a colored text handler for terminals and the
// standard JSON handler for machines. Logs go to stderr by default so that
// command output on stdout stays machine readable.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level represents log levels
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Config holds logger configuration
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

var (
	currentLevel  atomic.Int32
	currentFormat atomic.Value // "text" or "json"

	mu       sync.RWMutex
	slogger  *slog.Logger
	output   io.Writer = os.Stderr
	useColor bool
)

func init() {
	currentLevel.Store(int32(LevelInfo))
	currentFormat.Store("text")
	useColor = colorFor(output)
	reconfigure()
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", s)
	}
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// reconfigure rebuilds the handler from the current settings.
func reconfigure() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: toSlogLevel(Level(currentLevel.Load()))}

	var h slog.Handler
	if format, _ := currentFormat.Load().(string); format == "json" {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = NewTextHandler(output, opts, useColor)
	}
	slogger = slog.New(h)
}

// Init configures the logger. Output can be "stdout", "stderr" or a file
// path; files never get colors.
func Init(cfg Config) error {
	if cfg.Output != "" {
		var w io.Writer
		switch strings.ToLower(cfg.Output) {
		case "stdout":
			w = os.Stdout
		case "stderr":
			w = os.Stderr
		default:
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
			}
			w = f
		}
		mu.Lock()
		output = w
		useColor = colorFor(w)
		mu.Unlock()
	}

	if cfg.Level != "" {
		if _, err := ParseLevel(cfg.Level); err != nil {
			return err
		}
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		if f := strings.ToLower(cfg.Format); f != "text" && f != "json" {
			return fmt.Errorf("invalid log format %q (valid: text, json)", cfg.Format)
		}
		SetFormat(cfg.Format)
	}

	reconfigure()
	return nil
}

// InitWithWriter sends output to w. Tests use it to capture logs.
func InitWithWriter(w io.Writer, level, format string, enableColor bool) {
	mu.Lock()
	output = w
	useColor = enableColor
	mu.Unlock()

	if level != "" {
		SetLevel(level)
	}
	if format != "" {
		SetFormat(format)
	}
	reconfigure()
}

// SetLevel sets the minimum log level. Invalid names are ignored.
func SetLevel(level string) {
	l, err := ParseLevel(level)
	if err != nil {
		return
	}
	currentLevel.Store(int32(l))
	reconfigure()
}

// SetFormat sets the output format (text or json). Invalid names are ignored.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	currentFormat.Store(format)
	reconfigure()
}

// Enabled reports whether messages at level are emitted.
func Enabled(level Level) bool {
	return level >= Level(currentLevel.Load())
}

func getLogger() *slog.Logger {
	mu.RLock()
	l := slogger
	mu.RUnlock()
	return l
}

// emit logs msg at level. Context fields are prepended when ctx carries a
// LogContext.
func emit(ctx context.Context, level Level, msg string, args []any) {
	if level < LevelError && !Enabled(level) {
		return
	}
	getLogger().Log(ctx, toSlogLevel(level), msg, appendContextFields(ctx, args)...)
}

// Debug logs at debug level. Args are slog key/value pairs or slog.Attr.
func Debug(msg string, args ...any) { emit(context.Background(), LevelDebug, msg, args) }

// Info logs at info level.
func Info(msg string, args ...any) { emit(context.Background(), LevelInfo, msg, args) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { emit(context.Background(), LevelWarn, msg, args) }

// Error logs at error level. Errors are never filtered.
func Error(msg string, args ...any) { emit(context.Background(), LevelError, msg, args) }

// DebugCtx logs at debug level, prefixed with the LogContext fields of ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelDebug, msg, args) }

// InfoCtx logs at info level with the LogContext fields of ctx.
func InfoCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelInfo, msg, args) }

// WarnCtx logs at warn level with the LogContext fields of ctx.
func WarnCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelWarn, msg, args) }

// ErrorCtx logs at error level with the LogContext fields of ctx.
func ErrorCtx(ctx context.Context, msg string, args ...any) { emit(ctx, LevelError, msg, args) }

func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	ctxArgs := make([]any, 0, 10+len(args))
	if lc.BootstrapID != "" {
		ctxArgs = append(ctxArgs, KeyBootstrapID, lc.BootstrapID)
	}
	if lc.Phase != "" {
		ctxArgs = append(ctxArgs, KeyPhase, lc.Phase)
	}
	if lc.Component != "" {
		ctxArgs = append(ctxArgs, KeyComponent, lc.Component)
	}
	if lc.TraceID != "" {
		ctxArgs = append(ctxArgs, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		ctxArgs = append(ctxArgs, KeySpanID, lc.SpanID)
	}
	return append(ctxArgs, args...)
}

// With returns a logger with pre-bound attributes.
func With(args ...any) *slog.Logger {
	return getLogger().With(args...)
}

// Duration returns the time since start in milliseconds.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
