// Package registry provides the generic keyed registry used for metrics,
// loaders, evaluators, benchmark packs, and provider factories. Entries are
// addressed by a primary key plus optional aliases; lookups resolve either.
// Registries are populated at startup and treated as read-only afterwards.
package registry

import (
	"sort"
	"sync"
)

// Registry is a generic name+alias keyed store.
//
// Invariants: every alias points to exactly one primary key, and every
// alias's target exists in the primary map. Size counts primaries only.
type Registry[T any] struct {
	name            string
	throwOnConflict bool

	mu      sync.RWMutex
	entries map[string]T
	aliases map[string]string
}

// Options configures registry construction.
type Options struct {
	// ThrowOnConflict makes Register fail on any key or alias collision.
	// When false the first registration wins and duplicates are ignored.
	ThrowOnConflict bool
}

// New creates a registry. The name appears in error diagnostics.
func New[T any](name string, opts Options) *Registry[T] {
	return &Registry[T]{
		name:            name,
		throwOnConflict: opts.ThrowOnConflict,
		entries:         make(map[string]T),
		aliases:         make(map[string]string),
	}
}

// Name returns the registry's diagnostic name.
func (r *Registry[T]) Name() string { return r.name }

// Register stores value under key with optional aliases. In strict mode a
// collision on the key, any alias, or an existing alias fails with
// *ConflictError; in lenient mode the first registration wins.
func (r *Registry[T]) Register(key string, value T, aliases ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conflict := r.findConflict(key, aliases); conflict != "" {
		if r.throwOnConflict {
			return &ConflictError{Registry: r.name, Key: conflict, Available: r.keysLocked()}
		}
		return nil
	}

	r.entries[key] = value
	for _, a := range aliases {
		r.aliases[a] = key
	}
	return nil
}

// findConflict returns the first colliding name, or "".
func (r *Registry[T]) findConflict(key string, aliases []string) string {
	if _, ok := r.entries[key]; ok {
		return key
	}
	if _, ok := r.aliases[key]; ok {
		return key
	}
	for _, a := range aliases {
		if _, ok := r.entries[a]; ok {
			return a
		}
		if _, ok := r.aliases[a]; ok {
			return a
		}
	}
	return ""
}

// Get looks up by primary key or alias.
func (r *Registry[T]) Get(nameOrAlias string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if v, ok := r.entries[nameOrAlias]; ok {
		return v, true
	}
	if primary, ok := r.aliases[nameOrAlias]; ok {
		v, ok := r.entries[primary]
		return v, ok
	}
	var zero T
	return zero, false
}

// GetOrError looks up by primary key or alias, failing with *NotFoundError
// carrying the full list of known primary keys.
func (r *Registry[T]) GetOrError(nameOrAlias string) (T, error) {
	if v, ok := r.Get(nameOrAlias); ok {
		return v, nil
	}
	var zero T
	return zero, &NotFoundError{Registry: r.name, Key: nameOrAlias, Available: r.Keys()}
}

// Has reports whether nameOrAlias resolves to an entry.
func (r *Registry[T]) Has(nameOrAlias string) bool {
	_, ok := r.Get(nameOrAlias)
	return ok
}

// Delete removes the entry stored under the primary key and every alias
// pointing to it. Aliases alone are not deletable.
func (r *Registry[T]) Delete(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[key]; !ok {
		return false
	}
	delete(r.entries, key)
	for a, target := range r.aliases {
		if target == key {
			delete(r.aliases, a)
		}
	}
	return true
}

// Keys returns sorted primary keys, excluding aliases.
func (r *Registry[T]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keysLocked()
}

func (r *Registry[T]) keysLocked() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResolveAlias maps an alias to its primary key. Primary keys and unknown
// names map to themselves, so ResolveAlias is idempotent.
func (r *Registry[T]) ResolveAlias(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.entries[name]; ok {
		return name
	}
	if primary, ok := r.aliases[name]; ok {
		return primary
	}
	return name
}

// Size counts primary entries only.
func (r *Registry[T]) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
