// Package provider implements the generic registry behind the ASR and LLM
// adapter layers: one interface, N vendor implementations selected by vendor
// id at orchestration time.
package provider

import (
	"sort"
	"sync"

	"github.com/taoxee/scribeflow/errors"
)

// Provider is the minimal contract every vendor adapter satisfies.
type Provider interface {
	// Name returns the stable vendor id this adapter serves.
	Name() string
}

// Registry manages named provider instances.
type Registry[T Provider] struct {
	mu        sync.RWMutex
	instances map[string]T
}

// NewRegistry creates a new empty Registry.
func NewRegistry[T Provider]() *Registry[T] {
	return &Registry[T]{
		instances: make(map[string]T),
	}
}

// Register adds a provider under its own name.
func (r *Registry[T]) Register(p T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[p.Name()] = p
}

// Get returns the provider registered under the vendor id.
func (r *Registry[T]) Get(name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	if !ok {
		var zero T
		return zero, errors.NotFound("provider", name)
	}
	return inst, nil
}

// List returns sorted names of all registered providers.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
