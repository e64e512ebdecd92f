package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/bootkit/internal/cli/output"
	"github.com/marmos91/bootkit/internal/components"
	"github.com/marmos91/bootkit/internal/logger"
	"github.com/marmos91/bootkit/pkg/configbind"
	bserrors "github.com/marmos91/bootkit/pkg/errors"
	"github.com/marmos91/bootkit/pkg/properties"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	stdout string
	stderr string
	err    error
}

// execute runs the command tree with args against an empty config home.
func execute(t *testing.T, args ...string) result {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Cleanup(func() { logger.InitWithWriter(os.Stderr, "INFO", "text", false) })

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func runtimeValue(reports []configbind.PropertyReport, key string) (string, bool) {
	for _, r := range reports {
		if r.Key == key {
			return r.Runtime, true
		}
	}
	return "", false
}

func TestVersion(t *testing.T) {
	Version = "1.2.3"
	t.Cleanup(func() { Version = "dev" })

	res := execute(t, "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "bootkit 1.2.3")
	assert.Contains(t, res.stdout, "commit:")
}

func TestCheckReportsProperties(t *testing.T) {
	res := execute(t, "check", "-D", "node.environment=test", "-D", "http-server.port=9090", "-o", "json")
	require.NoError(t, res.err, res.stderr)

	var reports []configbind.PropertyReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &reports))

	env, ok := runtimeValue(reports, "node.environment")
	require.True(t, ok)
	assert.Equal(t, "test", env)

	port, ok := runtimeValue(reports, "http-server.port")
	require.True(t, ok)
	assert.Equal(t, "9090", port)
}

func TestCheckTable(t *testing.T) {
	res := execute(t, "check", "-D", "node.environment=test")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "node.environment")
	assert.Contains(t, res.stdout, "Configuration OK: 4 components, strict=true")
}

func TestCheckSubstitutesEnvironment(t *testing.T) {
	t.Setenv("BOOTKIT_TEST_ENVIRONMENT", "staging")

	res := execute(t, "check", "-D", "node.environment=${ENV:BOOTKIT_TEST_ENVIRONMENT}", "-o", "json")
	require.NoError(t, res.err, res.stderr)

	var reports []configbind.PropertyReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &reports))
	env, _ := runtimeValue(reports, "node.environment")
	assert.Equal(t, "staging", env)
}

func TestCheckEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BOOTKIT_TEST_FROM_FILE=qa\n"), 0o600))

	res := execute(t, "check", "--env-file", envFile, "-D", "node.environment=${ENV:BOOTKIT_TEST_FROM_FILE}", "-o", "json")
	require.NoError(t, res.err, res.stderr)

	var reports []configbind.PropertyReport
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &reports))
	env, _ := runtimeValue(reports, "node.environment")
	assert.Equal(t, "qa", env)
}

func TestCheckFailures(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		kind     bserrors.ErrorKind
		exitCode int
	}{
		{
			name:     "unused property",
			args:     []string{"-D", "node.environment=test", "-D", "bogus.key=1"},
			kind:     bserrors.ErrUnusedConfiguration,
			exitCode: 1,
		},
		{
			name:     "missing required",
			args:     nil,
			kind:     bserrors.ErrMissingRequired,
			exitCode: 1,
		},
		{
			name:     "unset variable",
			args:     []string{"-D", "node.environment=${ENV:BOOTKIT_TEST_NEVER_SET}"},
			kind:     bserrors.ErrSubstitution,
			exitCode: 1,
		},
		{
			name:     "bad coercion",
			args:     []string{"-D", "node.environment=test", "-D", "http-server.port=abc"},
			kind:     bserrors.ErrConfigCoercion,
			exitCode: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"check", "-o", "json"}, tt.args...)
			res := execute(t, args...)
			require.Error(t, res.err)
			assert.True(t, Reported(res.err))
			assert.True(t, bserrors.IsKind(res.err, tt.kind), res.err.Error())
			assert.Equal(t, tt.exitCode, ExitCode(res.err))

			var report output.ErrorReport
			require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
			assert.Equal(t, tt.exitCode, report.ExitCode)
			assert.NotEmpty(t, report.Messages)
		})
	}
}

func TestCheckStrictConfigOff(t *testing.T) {
	res := execute(t, "check", "--strict-config=false", "-D", "node.environment=test", "-D", "bogus.key=1")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "strict=false")
	assert.Contains(t, res.stderr, "bogus.key")
}

func TestInvalidPropertyArgument(t *testing.T) {
	res := execute(t, "check", "-D", "no-equals-sign")
	require.Error(t, res.err)
	assert.False(t, Reported(res.err))
	assert.Contains(t, res.err.Error(), "expected key=value")
	assert.Equal(t, 1, ExitCode(res.err))
}

func TestInvalidSettings(t *testing.T) {
	res := execute(t, "check", "--log-level", "LOUD")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "invalid settings")
}

func TestGraph(t *testing.T) {
	res := execute(t, "graph", "-D", "node.environment=test", "-o", "json")
	require.NoError(t, res.err, res.stderr)

	var nodes []output.GraphNode
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &nodes))
	require.Len(t, nodes, 4)

	order := make([]string, len(nodes))
	for i, n := range nodes {
		order[i] = n.TypeID
	}
	assert.Equal(t, []string{
		string(components.TelemetryID),
		string(components.NodeID),
		string(components.MetricsID),
		string(components.HTTPServerID),
	}, order)
	assert.Equal(t, []string{"node", "metrics"}, nodes[3].Deps)
	assert.True(t, nodes[3].StartHook)
	assert.True(t, nodes[3].StopHook)
}

func TestGraphFailureIsReported(t *testing.T) {
	res := execute(t, "graph")
	require.Error(t, res.err)
	assert.True(t, Reported(res.err))
	assert.Contains(t, res.stdout, "MissingRequired")
}

func TestConfigInitRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")

	res := execute(t, "config", "init", "--config", path)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, path)

	props, err := properties.LoadFile(path)
	require.NoError(t, err)
	port, ok := props.Get("http-server.port")
	require.True(t, ok)
	assert.Equal(t, "8080", port)
	assert.False(t, props.Has("node.environment"))

	res = execute(t, "check", "--config", path, "-D", "node.environment=test")
	require.NoError(t, res.err, res.stdout)
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte("node:\n  environment: dev\n"), 0o600))

	res := execute(t, "config", "init", "--config", path)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "--force")

	res = execute(t, "config", "init", "--config", path, "--force")
	require.NoError(t, res.err)
}

func TestDefaultPropertyFileMarksRequired(t *testing.T) {
	data, err := DefaultPropertyFile(components.Schemas())
	require.NoError(t, err)
	assert.Contains(t, string(data), "# node.environment: (required")
	assert.Contains(t, string(data), "max-request-size: 1MiB")
}

func TestConfigSchema(t *testing.T) {
	res := execute(t, "config", "schema")
	require.NoError(t, res.err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &doc))
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	for prefix := range components.Schemas() {
		assert.Contains(t, props, prefix)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Cleanup(func() { logger.InitWithWriter(os.Stderr, "INFO", "text", false) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stderr syncBuffer
	cmd := NewRootCmd()
	cmd.SetOut(&stderr)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"run", "--stop-timeout", "5s",
		"-D", "node.environment=test",
		"-D", "node.data-dir=" + t.TempDir(),
		"-D", "http-server.host=127.0.0.1",
		"-D", "http-server.port=0"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), "Components running")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop")
	}
	assert.Contains(t, stderr.String(), "Shutdown complete")
}

func TestRunStartFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	res := execute(t, "run",
		"-D", "node.environment=test",
		"-D", "node.data-dir="+filepath.Join(blocker, "sub"),
		"-D", "http-server.port=0")
	require.Error(t, res.err)
	assert.True(t, bserrors.IsKind(res.err, bserrors.ErrLifecycleHook))
	assert.Equal(t, 3, ExitCode(res.err))
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(bserrors.New(bserrors.ErrUnusedConfiguration, "x")))
	assert.Equal(t, 2, ExitCode(bserrors.New(bserrors.ErrCircularDependency, "x")))
	assert.Equal(t, 3, ExitCode(bserrors.New(bserrors.ErrLifecycleHook, "x")))
	assert.Equal(t, 1, ExitCode(&reportedError{err: bserrors.New(bserrors.ErrMissingRequired, "x")}))
}
