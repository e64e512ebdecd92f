// Package ledger tracks which configuration properties have been consumed.
//
// The ledger is built from the substituted property map. Reading a present
// key through Get or ConsumeIfPresent marks it consumed; the flag never
// reverts. After initialization the ledger is frozen and may be inspected
// concurrently by read-only observers.
package ledger

import (
	"sync"

	"github.com/marmos91/bootkit/pkg/properties"
)

type entry struct {
	value    string
	consumed bool
}

// Ledger maps property keys to their value and consumption state.
type Ledger struct {
	mu      sync.RWMutex
	keys    []string
	entries map[string]*entry
	frozen  bool
}

// New builds a ledger from props. Every key starts unconsumed.
func New(props *properties.Map) *Ledger {
	l := &Ledger{
		entries: make(map[string]*entry, props.Len()),
	}
	props.Each(func(k, v string) bool {
		l.keys = append(l.keys, k)
		l.entries[k] = &entry{value: v}
		return true
	})
	return l
}

// Get returns the value of key and marks it consumed when present.
func (l *Ledger) Get(key string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		return "", false
	}
	if !l.frozen {
		e.consumed = true
	}
	return e.value, true
}

// ConsumeIfPresent is Get under a name that reads better at binding sites.
func (l *Ledger) ConsumeIfPresent(key string) (string, bool) {
	return l.Get(key)
}

// Peek returns the value of key without consuming it.
func (l *Ledger) Peek(key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[key]
	if !ok {
		return "", false
	}
	return e.value, true
}

// IsConsumed reports whether key is present and has been consumed.
func (l *Ledger) IsConsumed(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[key]
	return ok && e.consumed
}

// Keys returns every key in insertion order.
func (l *Ledger) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.keys...)
}

// Len returns the number of properties.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.keys)
}

// UnconsumedKeys returns the keys that have not been read, in insertion order.
func (l *Ledger) UnconsumedKeys() []string {
	return l.filter(false)
}

// ConsumedKeys returns the keys that have been read, in insertion order.
func (l *Ledger) ConsumedKeys() []string {
	return l.filter(true)
}

// UnconsumedWithPrefix returns unconsumed keys that start with prefix + ".".
// An empty prefix matches nothing.
func (l *Ledger) UnconsumedWithPrefix(prefix string) []string {
	if prefix == "" {
		return nil
	}
	p := prefix + "."
	var out []string
	for _, k := range l.UnconsumedKeys() {
		if len(k) > len(p) && k[:len(p)] == p {
			out = append(out, k)
		}
	}
	return out
}

// Freeze stops further reads from changing consumption state.
func (l *Ledger) Freeze() {
	l.mu.Lock()
	l.frozen = true
	l.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (l *Ledger) Frozen() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frozen
}

func (l *Ledger) filter(consumed bool) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0)
	for _, k := range l.keys {
		if l.entries[k].consumed == consumed {
			out = append(out, k)
		}
	}
	return out
}
