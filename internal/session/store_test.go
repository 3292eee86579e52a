package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewStore(StoreConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "sessions", "docsum.db")})
	if err != nil {
		t.Fatalf("NewStore(sqlite): %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	mem, err := NewStore(StoreConfig{Type: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Store{"sqlite": sqlite, "memory": mem}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			id := NewID()
			if _, err := store.Get(ctx, id); !errors.Is(err, ErrSessionNotFound) {
				t.Fatalf("Get(missing) err = %v", err)
			}

			if err := store.SetText(ctx, id, "The Term is 12 months.", "lease.txt"); err != nil {
				t.Fatal(err)
			}
			if err := store.SetSummary(ctx, id, "- 12 month term", "bart"); err != nil {
				t.Fatal(err)
			}
			c, err := store.Get(ctx, id)
			if err != nil {
				t.Fatal(err)
			}
			if c.Text != "The Term is 12 months." || c.Source != "lease.txt" || c.Summary != "- 12 month term" || c.Backend != "bart" {
				t.Errorf("context = %+v", c)
			}
			if c.CreatedAt.IsZero() || c.UpdatedAt.Before(c.CreatedAt) {
				t.Errorf("timestamps = %v / %v", c.CreatedAt, c.UpdatedAt)
			}

			// a new document invalidates the old summary
			if err := store.SetText(ctx, id, "Payment is due in 30 days.", "invoice.txt"); err != nil {
				t.Fatal(err)
			}
			c, _ = store.Get(ctx, id)
			if c.Summary != "" || c.Backend != "" || c.Text != "Payment is due in 30 days." {
				t.Errorf("after SetText: %+v", c)
			}

			if err := store.Delete(ctx, id); err != nil {
				t.Fatal(err)
			}
			if err := store.Delete(ctx, id); !errors.Is(err, ErrSessionNotFound) {
				t.Errorf("second Delete err = %v", err)
			}
		})
	}
}

func TestStoreSummaryCreatesSession(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.SetSummary(ctx, "s1", "summary only", "t5"); err != nil {
				t.Fatal(err)
			}
			c, err := store.Get(ctx, "s1")
			if err != nil {
				t.Fatal(err)
			}
			if c.Text != "" || c.Summary != "summary only" {
				t.Errorf("context = %+v", c)
			}
		})
	}
}

func TestStorePutAndList(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"b", "a", "c"} {
				if err := store.Put(ctx, &Context{ID: id, Text: "text " + id}); err != nil {
					t.Fatal(err)
				}
			}
			list, err := store.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 3 {
				t.Fatalf("List = %d sessions", len(list))
			}
			seen := map[string]bool{}
			for i, c := range list {
				seen[c.ID] = true
				if i > 0 && c.UpdatedAt.After(list[i-1].UpdatedAt) {
					t.Errorf("List not ordered by updated_at: %v", list)
				}
			}
			if !seen["a"] || !seen["b"] || !seen["c"] {
				t.Errorf("List ids = %v", seen)
			}

			if err := store.Put(ctx, &Context{ID: "a", Text: "replaced", Summary: "s"}); err != nil {
				t.Fatal(err)
			}
			c, _ := store.Get(ctx, "a")
			if c.Text != "replaced" || c.Summary != "s" {
				t.Errorf("Put did not replace: %+v", c)
			}
		})
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docsum.db")

	s1, err := NewSQLiteStore(StoreConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.SetText(ctx, "keep", "persisted text", ""); err != nil {
		t.Fatal(err)
	}
	s1.Close()

	s2, err := NewSQLiteStore(StoreConfig{Path: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	var version int
	if err := s2.db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != currentSchemaVersion {
		t.Errorf("schema version = %d", version)
	}
	c, err := s2.Get(ctx, "keep")
	if err != nil || c.Text != "persisted text" {
		t.Errorf("Get after reopen = %+v, %v", c, err)
	}
}

func TestNewStoreUnknownType(t *testing.T) {
	if _, err := NewStore(StoreConfig{Type: "redis"}); err == nil {
		t.Error("expected an error for an unknown store type")
	}
}
