// docsum summarizes legal documents with local and hosted models, compares
// the backends and answers questions grounded in a stored document.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	. "github.com/roelfdiedericks/docsum/internal/logging"
	"github.com/roelfdiedericks/docsum/internal/metrics"
	"github.com/roelfdiedericks/docsum/internal/render"
)

const version = "0.1.0"

// Globals are the flags shared by every command.
type Globals struct {
	ConfigFile  string `name:"config" short:"c" help:"Config file (default docsum.toml)." type:"path"`
	LogLevel    string `name:"log-level" help:"Log level: trace, debug, info, warn or error."`
	Format      string `short:"f" help:"Output format: text, json, yaml or html (text on a terminal, json otherwise)."`
	Query       string `short:"q" help:"jq expression applied to the JSON result."`
	Raw         bool   `short:"r" help:"With --query, print strings without quotes."`
	ShowMetrics bool   `name:"show-metrics" help:"Print operational metrics to stderr on exit."`
}

// CLI is the docsum command tree.
type CLI struct {
	Globals

	Summarize SummarizeCmd `cmd:"" help:"Summarize a document with one backend."`
	Compare   CompareCmd   `cmd:"" help:"Summarize a document with every backend and compare the results."`
	Analyze   AnalyzeCmd   `cmd:"" help:"Score an existing summary against its original."`
	Chunk     ChunkCmd     `cmd:"" help:"Show how a document is chunked for the local models."`
	Extract   ExtractCmd   `cmd:"" help:"Extract the text of a document."`
	Chat      ChatCmd      `cmd:"" help:"Ask a question about the document stored in a session."`
	Session   SessionCmd   `cmd:"" help:"Manage stored sessions."`
	Backends  BackendsCmd  `cmd:"" help:"List the registered backends."`
	Config    ConfigCmd    `cmd:"" help:"Write or show the configuration."`
	Version   VersionCmd   `cmd:"" help:"Print the version."`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("docsum"),
		kong.Description("Summarize and compare legal documents with local and hosted models."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	Init(&Config{
		Level:      levelFor(cli.LogLevel, "info"),
		TimeFormat: "15:04:05",
	})

	format, err := render.ParseFormat(cli.Format)
	kctx.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app := newApp(ctx, &cli.Globals, format, os.Stdout)

	err = kctx.Run(app)
	app.Close()
	stop()

	if cli.ShowMetrics {
		if werr := render.Write(os.Stderr, render.FormatText, metrics.Snapshot()); werr != nil {
			L_warn("metrics: print failed", "error", werr)
		}
	}
	kctx.FatalIfErrorf(err)
}

// levelFor parses flag when set, otherwise fallback.
func levelFor(flag, fallback string) int {
	if flag != "" {
		return ParseLevel(flag)
	}
	return ParseLevel(fallback)
}
