package backend

import (
	"fmt"
	"strings"
	"sync"
)

// Registry maps backend ids to backends, preserving registration order.
// Lookups are case-insensitive.
type Registry struct {
	mu      sync.RWMutex
	order   []string
	byID    map[string]Backend
	aliases map[string]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byID:    make(map[string]Backend),
		aliases: make(map[string]string),
	}
}

func key(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Register adds b. Registering the same id twice is an error.
func (r *Registry) Register(b Backend) error {
	k := key(b.ID())
	if k == "" {
		return fmt.Errorf("backend id is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[k]; exists {
		return fmt.Errorf("backend %q already registered", b.ID())
	}
	r.byID[k] = b
	r.order = append(r.order, k)
	return nil
}

// Alias makes alias resolve to the registered backend id.
func (r *Registry) Alias(alias, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[key(id)]; !ok {
		return fmt.Errorf("alias %q targets unknown backend %q", alias, id)
	}
	r.aliases[key(alias)] = key(id)
	return nil
}

// Resolve returns the backend for id, or an Unsupported error.
func (r *Registry) Resolve(id string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k := key(id)
	if target, ok := r.aliases[k]; ok {
		k = target
	}
	if b, ok := r.byID[k]; ok {
		return b, nil
	}
	return nil, Unsupported(id)
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.order))
	for _, k := range r.order {
		ids = append(ids, r.byID[k].ID())
	}
	return ids
}

// Backends returns the registered backends in registration order.
func (r *Registry) Backends() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Backend, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.byID[k])
	}
	return out
}

// Len returns the number of registered backends
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
