package registry

import (
	"fmt"
	"strings"
)

// NotFoundError reports a lookup for a key that is neither a primary key nor
// an alias. Available carries the known primary keys for diagnostics.
type NotFoundError struct {
	Registry  string
	Key       string
	Available []string
}

func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("%s registry: %q not found (registry is empty)", e.Registry, e.Key)
	}
	return fmt.Sprintf("%s registry: %q not found (available: %s)",
		e.Registry, e.Key, strings.Join(e.Available, ", "))
}

// ConflictError reports a strict-mode registration whose key or alias
// collides with an existing entry.
type ConflictError struct {
	Registry  string
	Key       string
	Available []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s registry: %q already registered", e.Registry, e.Key)
}
