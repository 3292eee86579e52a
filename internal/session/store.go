// Package session keeps per-session document context (extracted text and
// the latest summary) for grounded chat. Contexts are passed explicitly to
// callers; nothing here is process-global.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Context is the stored state of one session.
type Context struct {
	ID        string    `json:"id" yaml:"id"`
	Source    string    `json:"source,omitempty" yaml:"source,omitempty"` // file the text came from
	Text      string    `json:"text" yaml:"text"`
	Summary   string    `json:"summary" yaml:"summary"`
	Backend   string    `json:"backend,omitempty" yaml:"backend,omitempty"` // backend that produced Summary
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Store is the interface for session storage backends.
// Implementations: SQLiteStore, MemoryStore
type Store interface {
	Get(ctx context.Context, id string) (*Context, error)
	// Put inserts or replaces c, setting its timestamps.
	Put(ctx context.Context, c *Context) error
	// SetText records a new document, creating the session when needed.
	// The previous summary is cleared because it describes the old text.
	SetText(ctx context.Context, id, text, source string) error
	// SetSummary records the latest summary, creating the session when needed.
	SetSummary(ctx context.Context, id, summary, backend string) error
	Delete(ctx context.Context, id string) error
	// List returns every session, most recently updated first.
	List(ctx context.Context) ([]Context, error)
	Close() error
}

// StoreConfig configures the storage backend
type StoreConfig struct {
	Type string // "sqlite" or "memory"
	Path string // database file path

	BusyTimeout int // SQLite busy timeout in ms (default: 5000)
}

// NewStore creates a storage backend based on config
func NewStore(cfg StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		return NewSQLiteStore(cfg)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Type)
	}
}

// NewID returns a fresh session id
func NewID() string {
	return uuid.NewString()
}
