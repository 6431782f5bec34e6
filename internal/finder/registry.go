package finder

import "github.com/roach88/plugmods/internal/module"

// Registry is the host application's table of defined modules. The
// context only borrows it: entries are read, never mutated or deleted.
type Registry interface {
	// Get returns the module under key.
	Get(key string) (module.Value, bool)

	// Keys returns every key in enumeration order.
	Keys() []string
}

// Publisher is a Registry that accepts new entries. Register uses it to
// expose aliases next to the original keys.
type Publisher interface {
	Registry
	Set(key string, v module.Value)
}

// MapRegistry is an insertion-ordered, writable Registry.
type MapRegistry struct {
	keys    []string
	entries map[string]module.Value
}

// NewMapRegistry creates an empty registry.
func NewMapRegistry() *MapRegistry {
	return &MapRegistry{entries: make(map[string]module.Value)}
}

// Get implements Registry. A nil *MapRegistry holds nothing.
func (r *MapRegistry) Get(key string) (module.Value, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.entries[key]
	return v, ok
}

// Keys implements Registry. The returned slice is a copy.
func (r *MapRegistry) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Set implements Publisher. Re-setting a key keeps its position.
func (r *MapRegistry) Set(key string, v module.Value) {
	if _, exists := r.entries[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.entries[key] = v
}

// Len returns the number of keys.
func (r *MapRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}
