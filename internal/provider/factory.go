package provider

import (
	"fmt"

	"github.com/ashikshafi08/memorybench-sub000/internal/config"
	"github.com/ashikshafi08/memorybench-sub000/internal/registry"
)

// AdapterFactory builds one local adapter instance scoped to a run tag.
type AdapterFactory func(cfg *config.ProviderConfig, scope string) (Provider, error)

// Adapters maps local adapter names to factories. Lenient mode lets a
// deployment override a built-in adapter by pre-registering its name.
type Adapters struct {
	inner *registry.Registry[AdapterFactory]
}

// NewAdapters creates an empty adapter registry.
func NewAdapters() *Adapters {
	return &Adapters{inner: registry.New[AdapterFactory]("provider-adapters", registry.Options{ThrowOnConflict: false})}
}

// Register binds an adapter factory to a name.
func (a *Adapters) Register(name string, f AdapterFactory, aliases ...string) error {
	return a.inner.Register(name, f, aliases...)
}

// Keys lists registered adapter names.
func (a *Adapters) Keys() []string { return a.inner.Keys() }

// DefaultAdapters registers the built-in local adapters.
func DefaultAdapters() *Adapters {
	a := NewAdapters()
	_ = a.Register("memdb", func(cfg *config.ProviderConfig, scope string) (Provider, error) {
		return NewMemDB(cfg.Name, scope), nil
	}, "memory", "lexical")
	return a
}

// New constructs a provider instance from its config, scoped to the run tag
// derived for one (benchmark, run) pair.
func (a *Adapters) New(cfg *config.ProviderConfig, scope string) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case config.ProviderHosted:
		return NewHosted(cfg.Name, scope, cfg.Hosted)
	case config.ProviderLocal:
		factory, err := a.inner.GetOrError(cfg.Local.Adapter)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", cfg.Name, err)
		}
		return factory(cfg, scope)
	case config.ProviderContainer:
		// Container lifecycle management is not wired into this build; the
		// compose manifest route requires a docker host.
		return nil, fmt.Errorf("provider %s: container providers require a docker runtime (unsupported here)", cfg.Name)
	}
	return nil, fmt.Errorf("provider %s: unknown type %q", cfg.Name, cfg.Type)
}
