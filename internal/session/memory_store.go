package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Context
	now      func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Context), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &c, nil
}

func (m *MemoryStore) Put(_ context.Context, c *Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if prev, ok := m.sessions[c.ID]; ok {
		c.CreatedAt = prev.CreatedAt
	} else if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	m.sessions[c.ID] = *c
	return nil
}

func (m *MemoryStore) update(id string, fn func(*Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	c, ok := m.sessions[id]
	if !ok {
		c = Context{ID: id, CreatedAt: now}
	}
	fn(&c)
	c.UpdatedAt = now
	m.sessions[id] = c
}

func (m *MemoryStore) SetText(_ context.Context, id, text, source string) error {
	m.update(id, func(c *Context) {
		c.Text = text
		c.Source = source
		c.Summary = ""
		c.Backend = ""
	})
	return nil
}

func (m *MemoryStore) SetSummary(_ context.Context, id, summary, backend string) error {
	m.update(id, func(c *Context) {
		c.Summary = summary
		c.Backend = backend
	})
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Context, 0, len(m.sessions))
	for _, c := range m.sessions {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
