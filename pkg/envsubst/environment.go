package envsubst

import (
	"fmt"
	"os"
	"strings"

	"github.com/subosito/gotenv"
)

// Environment is a read-only snapshot of environment variables.
type Environment map[string]string

// FromOS snapshots the current process environment.
func FromOS() Environment {
	env := make(Environment)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		env[name] = value
	}
	return env
}

// LoadEnvFile reads a dotenv-style file (NAME=value lines, optional "export"
// prefix, quoted values) into an Environment. The process environment is not
// modified.
func LoadEnvFile(path string) (Environment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open env file: %w", err)
	}
	defer func() { _ = f.Close() }()

	parsed, err := gotenv.StrictParse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file %s: %w", path, err)
	}
	return Environment(parsed), nil
}

// Lookup returns the value of name.
func (e Environment) Lookup(name string) (string, bool) {
	v, ok := e[name]
	return v, ok
}

// Overlay returns a new Environment with other layered on top of e.
func (e Environment) Overlay(other Environment) Environment {
	out := make(Environment, len(e)+len(other))
	for k, v := range e {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
