package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// captureOutput redirects logger output to a buffer and restores the
// previous writer, level and format afterwards.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()
	reconfigure()

	t.Cleanup(func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		currentLevel.Store(int32(LevelInfo))
		currentFormat.Store("text")
		reconfigure()
	})
	return buf
}

func decodeJSON(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry), buf.String())
	return entry
}

// ============================================================================
// Level Filtering Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		present []string
		absent  []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureOutput(t)
			SetLevel(tt.level)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tt.present {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{" INFO ", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"Error", LevelError, false},
		{"trace", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvalidLevelIgnored(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("WARN")
	SetLevel("verbose")

	Info("hidden")
	assert.Empty(t, buf.String())
	assert.True(t, Enabled(LevelWarn))
	assert.False(t, Enabled(LevelInfo))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}

// ============================================================================
// Text Format Tests
// ============================================================================

func TestTextFormat(t *testing.T) {
	t.Run("LevelAndAttributes", func(t *testing.T) {
		buf := captureOutput(t)

		Info("property bound", KeyProperty, "http-server.port", KeyCount, 3)

		out := buf.String()
		assert.Contains(t, out, "[INFO] property bound")
		assert.Contains(t, out, "property=http-server.port")
		assert.Contains(t, out, "count=3")
	})

	t.Run("QuotesAmbiguousStrings", func(t *testing.T) {
		buf := captureOutput(t)

		Info("msg", "a", "value with spaces", "b", "x=y", "c", "")

		out := buf.String()
		assert.Contains(t, out, `a="value with spaces"`)
		assert.Contains(t, out, `b="x=y"`)
		assert.Contains(t, out, `c=""`)
	})

	t.Run("GroupsPrefixKeys", func(t *testing.T) {
		buf := captureOutput(t)

		With().WithGroup("http").Info("listening", "port", 8080)
		assert.Contains(t, buf.String(), "http.port=8080")
	})

	t.Run("GroupAttributesFlatten", func(t *testing.T) {
		buf := captureOutput(t)

		Info("bound", slog.Group("server", slog.Int("port", 9090), slog.Bool("tls", false)))
		assert.Contains(t, buf.String(), "server.port=9090 server.tls=false")
	})

	t.Run("ShortensBootstrapID", func(t *testing.T) {
		buf := captureOutput(t)

		Info("ready", BootstrapID("0d9f2c4e-3b1a-4c55-9e8f-1a2b3c4d5e6f"))
		out := buf.String()
		assert.Contains(t, out, "bootstrap_id=0d9f2c4e\n")
		assert.NotContains(t, out, "3b1a")
	})
}

// ============================================================================
// JSON Format Tests
// ============================================================================

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("json")

	Info("test message", "key1", "value1", "key2", 42)

	entry := decodeJSON(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value1", entry["key1"])
	assert.Equal(t, float64(42), entry["key2"])
	assert.Contains(t, entry, "time")
}

func TestFormatSwitching(t *testing.T) {
	buf := captureOutput(t)

	SetFormat("text")
	Info("text message")
	textOutput := buf.String()
	buf.Reset()

	SetFormat("xml") // ignored
	SetFormat("JSON")
	Info("json message")

	assert.Contains(t, textOutput, "[INFO]")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

// ============================================================================
// Context Logging Tests
// ============================================================================

func TestContextLogging(t *testing.T) {
	t.Run("LogContextInjectsFields", func(t *testing.T) {
		buf := captureOutput(t)
		SetFormat("json")

		lc := NewLogContext("6f1c").WithPhase("bind").WithComponent("http-server").WithTrace("abc123", "xyz789")
		InfoCtx(WithContext(context.Background(), lc), "bound", "extra_field", "value")

		entry := decodeJSON(t, buf)
		assert.Equal(t, "6f1c", entry[KeyBootstrapID])
		assert.Equal(t, "bind", entry[KeyPhase])
		assert.Equal(t, "http-server", entry[KeyComponent])
		assert.Equal(t, "abc123", entry[KeyTraceID])
		assert.Equal(t, "xyz789", entry[KeySpanID])
		assert.Equal(t, "value", entry["extra_field"])
	})

	t.Run("ContextHelpers", func(t *testing.T) {
		buf := captureOutput(t)
		SetLevel("DEBUG")
		SetFormat("json")

		ctx := WithContext(context.Background(), NewLogContext("run-1"))
		ctx = ContextWithPhase(ctx, "graph")
		ctx = ContextWithComponent(ctx, "node")
		DebugCtx(ctx, "constructed")

		entry := decodeJSON(t, buf)
		assert.Equal(t, "run-1", entry[KeyBootstrapID])
		assert.Equal(t, "graph", entry[KeyPhase])
		assert.Equal(t, "node", entry[KeyComponent])
	})

	t.Run("HelpersWithoutLogContext", func(t *testing.T) {
		ctx := ContextWithPhase(context.Background(), "start")
		require.NotNil(t, FromContext(ctx))
		assert.Equal(t, "start", FromContext(ctx).Phase)
		assert.Empty(t, FromContext(ctx).BootstrapID)
	})

	t.Run("NilContextHandled", func(t *testing.T) {
		buf := captureOutput(t)

		require.NotPanics(t, func() {
			//nolint:staticcheck // nil context is tolerated on purpose
			WarnCtx(nil, "test message")
		})
		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("ContextWithoutLogContextHandled", func(t *testing.T) {
		buf := captureOutput(t)

		ErrorCtx(context.Background(), "test message")
		assert.Contains(t, buf.String(), "test message")
	})
}

// ============================================================================
// LogContext Tests
// ============================================================================

func TestLogContext(t *testing.T) {
	t.Run("Clone", func(t *testing.T) {
		lc := &LogContext{BootstrapID: "id", Phase: "bind"}

		clone := lc.Clone()
		assert.Equal(t, *lc, *clone)

		clone.Phase = "graph"
		assert.Equal(t, "bind", lc.Phase)
	})

	t.Run("CloneNil", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Nil(t, lc.WithPhase("x"))
		assert.Zero(t, lc.DurationMs())
	})

	t.Run("WithPhaseLeavesOriginal", func(t *testing.T) {
		lc := NewLogContext("id")
		lc2 := lc.WithPhase("strict")

		assert.Equal(t, "strict", lc2.Phase)
		assert.Empty(t, lc.Phase)
		assert.GreaterOrEqual(t, lc.DurationMs(), 0.0)
	})
}

// ============================================================================
// Field Helper Tests
// ============================================================================

func TestFieldHelpers(t *testing.T) {
	t.Run("ErrHandlesNil", func(t *testing.T) {
		assert.Equal(t, "", Err(nil).Key)
	})

	t.Run("ErrFormatsError", func(t *testing.T) {
		attr := Err(errors.New("boom"))
		assert.Equal(t, KeyError, attr.Key)
		assert.Equal(t, "boom", attr.Value.String())
	})

	t.Run("Keys", func(t *testing.T) {
		assert.Equal(t, KeyPhase, Phase("bind").Key)
		assert.Equal(t, KeyComponent, Component("node").Key)
		assert.Equal(t, KeyProperty, Property("node.environment").Key)
		assert.Equal(t, int64(2), Ordinal(2).Value.Int64())
		assert.True(t, Strict(true).Value.Bool())
	})

	t.Run("AttrsRenderInText", func(t *testing.T) {
		buf := captureOutput(t)

		Warn("unused", Property("node.color"), Err(nil), Kind("UnusedConfiguration"))
		out := buf.String()
		assert.Contains(t, out, "property=node.color")
		assert.Contains(t, out, "kind=UnusedConfiguration")
		assert.NotContains(t, out, "error=")
	})
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func TestConcurrentLogging(t *testing.T) {
	t.Run("ConcurrentLogsDoNotRace", func(t *testing.T) {
		buf := captureOutput(t)

		const numGoroutines = 10
		const logsPerGoroutine = 100

		var wg sync.WaitGroup
		wg.Add(numGoroutines)
		for i := 0; i < numGoroutines; i++ {
			go func(id int) {
				defer wg.Done()
				for j := 0; j < logsPerGoroutine; j++ {
					Info("goroutine log", "id", id, "iteration", j)
				}
			}(i)
		}
		wg.Wait()

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		assert.Equal(t, numGoroutines*logsPerGoroutine, len(lines))
	})

	t.Run("ConcurrentLevelChanges", func(t *testing.T) {
		// io.Discard: reconfiguring swaps handlers while others write.
		InitWithWriter(io.Discard, "DEBUG", "text", false)
		t.Cleanup(func() {
			InitWithWriter(os.Stderr, "INFO", "text", false)
		})

		var wg sync.WaitGroup
		wg.Add(10)
		for i := 0; i < 5; i++ {
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					if j%2 == 0 {
						SetLevel("DEBUG")
					} else {
						SetLevel("ERROR")
					}
				}
			}()
			go func(id int) {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					Debug("debug", "id", id)
					Error("error", "id", id)
				}
			}(i)
		}
		require.NotPanics(t, wg.Wait)
	})
}

// ============================================================================
// Init Tests
// ============================================================================

func TestInit(t *testing.T) {
	t.Run("InitWithWriter", func(t *testing.T) {
		buf := new(bytes.Buffer)
		InitWithWriter(buf, "DEBUG", "text", false)
		t.Cleanup(func() { InitWithWriter(os.Stderr, "INFO", "text", false) })

		Debug("test message")
		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("InitWithFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bootkit.log")
		require.NoError(t, Init(Config{Level: "info", Format: "json", Output: path}))
		t.Cleanup(func() { InitWithWriter(os.Stderr, "INFO", "text", false) })

		Info("to file")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"to file"`)
	})

	t.Run("InitRejectsInvalidValues", func(t *testing.T) {
		assert.Error(t, Init(Config{Level: "loud"}))
		assert.Error(t, Init(Config{Format: "xml"}))
	})

	t.Run("InitWithEmptyConfig", func(t *testing.T) {
		require.NoError(t, Init(Config{}))
	})
}

// ============================================================================
// Benchmark Tests
// ============================================================================

func BenchmarkLogDisabled(b *testing.B) {
	InitWithWriter(io.Discard, "ERROR", "text", false)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Debug("test message", "key", "value")
	}
}

func BenchmarkLogJSON(b *testing.B) {
	InitWithWriter(io.Discard, "DEBUG", "json", false)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Info("test message", "key", "value", "count", i)
	}
}

func BenchmarkLogCtx(b *testing.B) {
	InitWithWriter(io.Discard, "DEBUG", "json", false)
	ctx := WithContext(context.Background(), NewLogContext("bench").WithPhase("bind"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		InfoCtx(ctx, "test message", "count", i)
	}
}
