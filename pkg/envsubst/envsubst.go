// Package envsubst expands ${ENV:NAME} tokens in property values.
//
// A token is the literal "${ENV:" followed by a name matching
// [A-Za-z_][A-Za-z0-9_]* and a closing "}". Substitution follows three rules:
//
//   - values without a well-formed token pass through unchanged;
//   - tokens whose name is set in the environment are replaced by its value;
//   - if any referenced name is unset, the entry is dropped from the result
//     and one error is reported for it.
//
// Text that looks like a token but whose interior does not match the name
// grammar (for example "${ENV:!!!}") is kept literally and is not an error.
// Tokens may appear anywhere in a value, and a value may contain several.
package envsubst

import (
	"fmt"
	"regexp"

	bserrors "github.com/marmos91/bootkit/pkg/errors"
	"github.com/marmos91/bootkit/pkg/properties"
)

// tokenPattern matches a well-formed environment token.
var tokenPattern = regexp.MustCompile(`\$\{ENV:([A-Za-z_][A-Za-z0-9_]*)\}`)

// ErrorFunc receives one substitution failure.
type ErrorFunc func(key, message string)

// UnsetVariableMessage formats the error reported for an unset variable.
func UnsetVariableMessage(key, name string) string {
	return fmt.Sprintf("Configuration property '%s' references unset environment variable '%s'", key, name)
}

// ReplaceEnvironmentVariables expands tokens in every value of props against
// env and returns a new map. props is not modified.
//
// Errors are passed to onError in the iteration order of props; surviving
// entries keep that order in the result. onError may be nil.
func ReplaceEnvironmentVariables(props *properties.Map, env Environment, onError ErrorFunc) *properties.Map {
	out := properties.New()

	props.Each(func(key, value string) bool {
		replaced, missing, ok := expand(value, env)
		if !ok {
			if onError != nil {
				onError(key, UnsetVariableMessage(key, missing))
			}
			return true
		}
		out.Set(key, replaced)
		return true
	})

	return out
}

// Replace is ReplaceEnvironmentVariables with the errors aggregated into a
// single SubstitutionError. The substituted map is returned even on error so
// callers can inspect what survived.
func Replace(props *properties.Map, env Environment) (*properties.Map, error) {
	collector := bserrors.NewCollector(bserrors.ErrSubstitution)
	out := ReplaceEnvironmentVariables(props, env, func(_, msg string) {
		collector.Add(bserrors.ErrSubstitution, msg)
	})
	return out, collector.Err()
}

// References returns the environment variable names referenced by value, in
// order of appearance. Malformed tokens are ignored.
func References(value string) []string {
	var names []string
	for _, m := range tokenPattern.FindAllStringSubmatch(value, -1) {
		names = append(names, m[1])
	}
	return names
}

// expand replaces every token in value. It returns ok=false and the first
// unset name when any referenced variable is missing.
func expand(value string, env Environment) (result, missing string, ok bool) {
	matches := tokenPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return value, "", true
	}

	buf := make([]byte, 0, len(value))
	last := 0
	for _, m := range matches {
		name := value[m[2]:m[3]]
		envValue, found := env.Lookup(name)
		if !found {
			return "", name, false
		}
		buf = append(buf, value[last:m[0]]...)
		buf = append(buf, envValue...)
		last = m[1]
	}
	buf = append(buf, value[last:]...)
	return string(buf), "", true
}
