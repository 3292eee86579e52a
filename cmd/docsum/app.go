package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/roelfdiedericks/docsum/internal/config"
	"github.com/roelfdiedericks/docsum/internal/extract"
	. "github.com/roelfdiedericks/docsum/internal/logging"
	"github.com/roelfdiedericks/docsum/internal/pipeline"
	"github.com/roelfdiedericks/docsum/internal/render"
	"github.com/roelfdiedericks/docsum/internal/session"
)

// App carries what commands share. The config, stack and session store are
// created on first use so that version and config init work without them.
type App struct {
	ctx     context.Context
	globals *Globals
	format  render.Format
	out     io.Writer

	cfg   *config.Config
	stack *pipeline.Stack
	store session.Store
}

func newApp(ctx context.Context, g *Globals, format render.Format, out io.Writer) *App {
	return &App{ctx: ctx, globals: g, format: format, out: out}
}

// Config loads the configuration and re-initializes logging from it.
func (a *App) Config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(a.globals.ConfigFile)
	if err != nil {
		return nil, err
	}
	Init(&Config{
		Level:      levelFor(a.globals.LogLevel, cfg.Log.Level),
		TimeFormat: cfg.Log.TimeFormat,
		JSON:       cfg.Log.JSON,
	})
	a.cfg = cfg
	return cfg, nil
}

// Stack builds the backends, analyzer and pipeline.
func (a *App) Stack() (*pipeline.Stack, error) {
	if a.stack != nil {
		return a.stack, nil
	}
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	stack, err := pipeline.Build(cfg)
	if err != nil {
		return nil, err
	}
	a.stack = stack
	return stack, nil
}

// Store opens the session store.
func (a *App) Store() (session.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	cfg, err := a.Config()
	if err != nil {
		return nil, err
	}
	store, err := session.NewStore(session.StoreConfig{Type: cfg.Session.Store, Path: cfg.Session.Path})
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	a.store = store
	return store, nil
}

// Print renders v in the selected format, or runs --query over it.
func (a *App) Print(v any) error {
	if a.globals.Query != "" {
		return render.Query(a.out, v, a.globals.Query, a.globals.Raw)
	}
	return render.Write(a.out, a.format, v)
}

// Close releases the session store.
func (a *App) Close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		L_warn("session: close failed", "error", err)
	}
	a.store = nil
}

// readDocument extracts path, or stdin when path is empty or "-".
func readDocument(path string) (extract.Document, error) {
	if path == "" || path == "-" {
		return extract.FromReader("stdin", os.Stdin)
	}
	return extract.FromFile(path)
}

// sessionID resolves "new" to a fresh id and reports it on stderr.
func sessionID(id string) string {
	if id != "new" {
		return id
	}
	id = session.NewID()
	fmt.Fprintf(os.Stderr, "session: %s\n", id)
	return id
}
