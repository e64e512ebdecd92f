// Package properties holds the ordered string property map that flows through
// the bootstrap pipeline, plus loaders for property files.
package properties

import (
	"regexp"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// keyPattern is the grammar for configuration property keys.
var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidKey reports whether key is a dotted lowercase property identifier.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// Map is an insertion-ordered map of property keys to string values.
//
// The zero value is not usable; create maps with New, FromMap or Of.
type Map struct {
	om *orderedmap.OrderedMap[string, string]
}

// New returns an empty Map.
func New() *Map {
	return &Map{om: orderedmap.New[string, string]()}
}

// FromMap builds a Map from a Go map. Keys are inserted in sorted order so
// that downstream iteration is deterministic.
func FromMap(m map[string]string) *Map {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := New()
	for _, k := range keys {
		out.Set(k, m[k])
	}
	return out
}

// Of builds a Map from alternating key/value arguments, preserving argument
// order. A trailing key without a value is ignored.
func Of(kv ...string) *Map {
	out := New()
	for i := 0; i+1 < len(kv); i += 2 {
		out.Set(kv[i], kv[i+1])
	}
	return out
}

// Set stores value under key. Updating an existing key keeps its position.
func (m *Map) Set(key, value string) {
	m.om.Set(key, value)
}

// Get returns the value for key.
func (m *Map) Get(key string) (string, bool) {
	return m.om.Get(key)
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.om.Get(key)
	return ok
}

// Delete removes key, reporting whether it was present.
func (m *Map) Delete(key string) bool {
	_, ok := m.om.Delete(key)
	return ok
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return m.om.Len()
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, m.om.Len())
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Each calls fn for every entry in insertion order. Iteration stops when fn
// returns false.
func (m *Map) Each(fn func(key, value string) bool) {
	if m == nil {
		return
	}
	for pair := m.om.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Clone returns an independent copy.
func (m *Map) Clone() *Map {
	out := New()
	m.Each(func(k, v string) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// ToMap returns the entries as a plain Go map.
func (m *Map) ToMap() map[string]string {
	out := make(map[string]string, m.Len())
	m.Each(func(k, v string) bool {
		out[k] = v
		return true
	})
	return out
}

// Equal reports whether both maps hold the same entries in the same order.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	a, b := m.Keys(), other.Keys()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
		va, _ := m.Get(a[i])
		vb, _ := other.Get(b[i])
		if va != vb {
			return false
		}
	}
	return true
}

// Merge layers overlay on top of base and returns a new Map. Overlay values
// win on collision. Keys of base come first, followed by keys that only exist
// in overlay. Either argument may be nil.
func Merge(base, overlay *Map) *Map {
	out := New()
	base.Each(func(k, v string) bool {
		out.Set(k, v)
		return true
	})
	overlay.Each(func(k, v string) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// InvalidKeys returns the keys of m that do not satisfy ValidKey.
func InvalidKeys(m *Map) []string {
	var bad []string
	m.Each(func(k, _ string) bool {
		if !ValidKey(k) {
			bad = append(bad, k)
		}
		return true
	})
	return bad
}
