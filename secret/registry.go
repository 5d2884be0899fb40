package secret

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ProviderFactory creates a Provider from settings.
type ProviderFactory func(settings map[string]string) (Provider, error)

// Registry maps provider names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory ProviderFactory) error {
	name = strings.TrimSpace(name)
	if name == "" || factory == nil {
		return fmt.Errorf("%w: empty registration", ErrInvalidRef)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateProvider, name)
	}
	r.factories[name] = factory
	return nil
}

// Create builds the named provider.
func (r *Registry) Create(name string, settings map[string]string) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return factory(settings)
}

// Resolver builds a resolver with the named providers, all created from the
// same settings.
func (r *Registry) Resolver(strict bool, names []string, settings map[string]string) (*Resolver, error) {
	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		p, err := r.Create(name, settings)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}
	return NewResolver(strict, providers...), nil
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultRegistry holds the built-in providers: "env", and "file" which
// reads the "dir" setting.
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	_ = r.Register("env", func(map[string]string) (Provider, error) {
		return EnvProvider{}, nil
	})
	_ = r.Register("file", func(settings map[string]string) (Provider, error) {
		return NewFileProvider(settings["dir"]), nil
	})
	return r
}()
