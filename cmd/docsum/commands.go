package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/roelfdiedericks/docsum/internal/chat"
	"github.com/roelfdiedericks/docsum/internal/chunker"
	"github.com/roelfdiedericks/docsum/internal/config"
	"github.com/roelfdiedericks/docsum/internal/extract"
	. "github.com/roelfdiedericks/docsum/internal/logging"
	"github.com/roelfdiedericks/docsum/internal/pipeline"
)

type SummarizeCmd struct {
	File    string `arg:"" optional:"" help:"Document to summarize (- or empty for stdin)."`
	Backend string `short:"b" default:"bart" help:"Backend id, e.g. bart, t5 or gemini."`
	Session string `short:"s" help:"Record the text and summary in this session (\"new\" creates one)."`
}

func (c *SummarizeCmd) Run(app *App) error {
	doc, err := readDocument(c.File)
	if err != nil {
		return err
	}
	stack, err := app.Stack()
	if err != nil {
		return err
	}
	res, err := stack.Pipeline.Summarize(app.ctx, pipeline.Request{Text: doc.Text, Backend: c.Backend})
	if err != nil {
		return err
	}

	if c.Session != "" {
		store, err := app.Store()
		if err != nil {
			return err
		}
		id := sessionID(c.Session)
		if err := store.SetText(app.ctx, id, doc.Text, doc.Name); err != nil {
			return err
		}
		if !res.Failed {
			if err := store.SetSummary(app.ctx, id, res.Summary, res.Backend); err != nil {
				return err
			}
		}
	}
	return app.Print(res)
}

type CompareCmd struct {
	File    string `arg:"" optional:"" help:"Document to compare on (- or empty for stdin)."`
	Session string `short:"s" help:"Use the text stored in this session when no file is given."`
}

func (c *CompareCmd) Run(app *App) error {
	var text string
	if c.File == "" && c.Session != "" {
		store, err := app.Store()
		if err != nil {
			return err
		}
		sc, err := store.Get(app.ctx, c.Session)
		if err != nil {
			return err
		}
		text = sc.Text
	} else {
		doc, err := readDocument(c.File)
		if err != nil {
			return err
		}
		text = doc.Text
	}

	stack, err := app.Stack()
	if err != nil {
		return err
	}
	set, err := stack.Pipeline.Compare(app.ctx, text)
	if err != nil {
		return err
	}
	return app.Print(set)
}

type AnalyzeCmd struct {
	Original string `arg:"" type:"existingfile" help:"Original document."`
	Summary  string `arg:"" type:"existingfile" help:"Summary to score."`
}

func (c *AnalyzeCmd) Run(app *App) error {
	original, err := extract.FromFile(c.Original)
	if err != nil {
		return err
	}
	summary, err := extract.FromFile(c.Summary)
	if err != nil {
		return err
	}
	stack, err := app.Stack()
	if err != nil {
		return err
	}
	return app.Print(stack.Pipeline.Analyze(app.ctx, original.Text, summary.Text))
}

type ChunkCmd struct {
	File          string `arg:"" optional:"" help:"Document to chunk (- or empty for stdin)."`
	MaxChunkChars int    `help:"Override chunker.max_chunk_chars."`
	MaxChunks     int    `help:"Override chunker.max_chunks."`
}

func (c *ChunkCmd) Run(app *App) error {
	doc, err := readDocument(c.File)
	if err != nil {
		return err
	}
	cfg, err := app.Config()
	if err != nil {
		return err
	}
	opts := chunker.Options{
		MaxInputChars: cfg.Chunker.MaxInputChars,
		MaxChunkChars: cfg.Chunker.MaxChunkChars,
		MaxChunks:     cfg.Chunker.MaxChunks,
	}
	if c.MaxChunkChars > 0 {
		opts.MaxChunkChars = c.MaxChunkChars
	}
	if c.MaxChunks > 0 {
		opts.MaxChunks = c.MaxChunks
	}
	return app.Print(chunker.Split(doc.Text, opts))
}

type ExtractCmd struct {
	File    string `arg:"" optional:"" help:"Document to extract (- or empty for stdin)."`
	Session string `short:"s" help:"Store the extracted text in this session (\"new\" creates one)."`
}

func (c *ExtractCmd) Run(app *App) error {
	doc, err := readDocument(c.File)
	if err != nil {
		return err
	}
	if c.Session != "" {
		store, err := app.Store()
		if err != nil {
			return err
		}
		if err := store.SetText(app.ctx, sessionID(c.Session), doc.Text, doc.Name); err != nil {
			return err
		}
	}
	return app.Print(doc)
}

type ChatCmd struct {
	Session  string   `short:"s" required:"" help:"Session holding the document."`
	Question []string `arg:"" help:"Question to ask."`
}

func (c *ChatCmd) Run(app *App) error {
	store, err := app.Store()
	if err != nil {
		return err
	}
	sc, err := store.Get(app.ctx, c.Session)
	if err != nil {
		return fmt.Errorf("session %s: %w", c.Session, err)
	}
	stack, err := app.Stack()
	if err != nil {
		return err
	}
	res, err := chat.NewService(stack.Hosted).Ask(app.ctx, *sc, strings.Join(c.Question, " "))
	if err != nil {
		return err
	}
	return app.Print(res)
}

type SessionCmd struct {
	List   SessionListCmd   `cmd:"" default:"1" help:"List sessions, most recent first."`
	Show   SessionShowCmd   `cmd:"" help:"Show one session."`
	Delete SessionDeleteCmd `cmd:"" help:"Delete a session."`
}

type SessionListCmd struct{}

func (c *SessionListCmd) Run(app *App) error {
	store, err := app.Store()
	if err != nil {
		return err
	}
	list, err := store.List(app.ctx)
	if err != nil {
		return err
	}
	return app.Print(list)
}

type SessionShowCmd struct {
	ID string `arg:"" help:"Session id."`
}

func (c *SessionShowCmd) Run(app *App) error {
	store, err := app.Store()
	if err != nil {
		return err
	}
	sc, err := store.Get(app.ctx, c.ID)
	if err != nil {
		return fmt.Errorf("session %s: %w", c.ID, err)
	}
	return app.Print(*sc)
}

type SessionDeleteCmd struct {
	ID string `arg:"" help:"Session id."`
}

func (c *SessionDeleteCmd) Run(app *App) error {
	store, err := app.Store()
	if err != nil {
		return err
	}
	if err := store.Delete(app.ctx, c.ID); err != nil {
		return fmt.Errorf("session %s: %w", c.ID, err)
	}
	L_info("session: deleted", "id", c.ID)
	return nil
}

type BackendsCmd struct{}

func (c *BackendsCmd) Run(app *App) error {
	stack, err := app.Stack()
	if err != nil {
		return err
	}
	return app.Print(stack.Pipeline.Backends())
}

type ConfigCmd struct {
	Init ConfigInitCmd `cmd:"" help:"Write the default configuration."`
	Show ConfigShowCmd `cmd:"" help:"Print the effective configuration as TOML."`
}

type ConfigInitCmd struct {
	Path  string `arg:"" optional:"" default:"docsum.toml" help:"Where to write the file."`
	Force bool   `help:"Overwrite an existing file (it is kept as a backup)."`
}

func (c *ConfigInitCmd) Run(app *App) error {
	if _, err := os.Stat(c.Path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", c.Path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return config.Write(c.Path, config.Default(), config.DefaultBackupCount)
}

type ConfigShowCmd struct {
	Secrets bool `help:"Include the api_key."`
}

func (c *ConfigShowCmd) Run(app *App) error {
	cfg, err := app.Config()
	if err != nil {
		return err
	}
	data, err := config.Encode(*cfg, c.Secrets)
	if err != nil {
		return err
	}
	_, err = app.out.Write(data)
	return err
}

type VersionCmd struct{}

func (c *VersionCmd) Run(app *App) error {
	_, err := fmt.Fprintf(app.out, "docsum %s\n", version)
	return err
}
