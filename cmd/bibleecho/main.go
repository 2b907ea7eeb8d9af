// Command bibleecho serves Bible reference resolution over HTTP and resolves
// references from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/BibleEcho/core/cache"
	"github.com/FocuswithJustin/BibleEcho/core/canon"
	"github.com/FocuswithJustin/BibleEcho/core/errors"
	"github.com/FocuswithJustin/BibleEcho/core/reference"
	"github.com/FocuswithJustin/BibleEcho/core/resolve"
	"github.com/FocuswithJustin/BibleEcho/core/sqlite"
	"github.com/FocuswithJustin/BibleEcho/internal/api"
	"github.com/FocuswithJustin/BibleEcho/internal/config"
	"github.com/FocuswithJustin/BibleEcho/internal/logging"
	"github.com/FocuswithJustin/BibleEcho/internal/metrics"
	"github.com/FocuswithJustin/BibleEcho/internal/store"
	"github.com/FocuswithJustin/BibleEcho/internal/transcribe"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	Config    string `name:"config" short:"c" help:"YAML configuration file" type:"path" env:"BIBLE_ECHO_CONFIG"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" help:"Log format (json, text)"`
}

// CLI defines the command-line interface for bibleecho.
type CLI struct {
	Globals

	Serve   ServeCmd   `cmd:"" help:"Start the HTTP API server"`
	Resolve ResolveCmd `cmd:"" help:"Resolve text to verses and print JSON"`
	Parse   ParseCmd   `cmd:"" help:"Print the references found in text"`
	Books   BooksCmd   `cmd:"" help:"List canonical books with OSIS IDs"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// load reads the configuration and applies the global flag overrides.
func (g *Globals) load() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Server.LogLevel = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Server.LogFormat = g.LogFormat
	}

	level, err := logging.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Server.LogFormat)
	if err != nil {
		return nil, err
	}
	logging.InitLogger(level, format)
	return cfg, nil
}

// ServeCmd starts the HTTP API server.
type ServeCmd struct {
	Port        int  `help:"HTTP server port; overrides the configuration"`
	NoDetection bool `name:"no-detection" help:"Disable live verse detection"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.NoDetection {
		cfg.Detection.Enabled = false
	}

	handle, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer handle.Close()

	m := metrics.New()
	if _, ok := handle.CacheStats(); ok {
		m.RegisterCache(func() cache.Stats {
			stats, _ := handle.CacheStats()
			return stats
		})
	}

	resolver := resolve.New(handle,
		resolve.WithConfig(cfg.Resolver),
		resolve.WithRecorder(m))

	tr, err := transcribe.New(cfg.Transcription)
	switch {
	case errors.Is(err, transcribe.ErrDisabled):
		logging.Warn("transcription disabled",
			"provider", cfg.Transcription.Provider,
			"hint", "set OPENAI_API_KEY to enable /api/transcribe")
		tr = nil
	case err != nil:
		return err
	}

	logging.Info("verse store opened",
		"backend", handle.Backend,
		"driver", sqlite.DriverType(),
		"translation", cfg.Store.Translation)

	srv, err := api.New(cfg.Server, api.Deps{
		Resolver:     resolver,
		Store:        handle,
		StoreBackend: handle.Backend,
		Transcriber:  tr,
		Detection:    cfg.Detection,
		Metrics:      m,
		Version:      version,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Start(ctx)
}

// ResolveCmd resolves text once.
type ResolveCmd struct {
	Text []string `arg:"" help:"Text to resolve, e.g. \"John 3:16\" or \"love\""`
}

func (c *ResolveCmd) Run(g *Globals, out io.Writer) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}

	handle, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer handle.Close()

	resolver := resolve.New(handle, resolve.WithConfig(cfg.Resolver))
	res := resolver.Resolve(context.Background(), strings.Join(c.Text, " "))
	return printJSON(out, res)
}

// ParseCmd prints reference candidates without touching a store.
type ParseCmd struct {
	Text []string `arg:"" help:"Text to scan for references"`
}

func (c *ParseCmd) Run(g *Globals, out io.Writer) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}

	parser := reference.New(reference.WithConfidence(cfg.Resolver.ExactConfidence))
	refs := parser.Parse(strings.Join(c.Text, " "))
	if refs == nil {
		refs = []reference.Candidate{}
	}
	return printJSON(out, refs)
}

// BooksCmd lists the canon.
type BooksCmd struct{}

func (c *BooksCmd) Run(out io.Writer) error {
	for _, b := range canon.Books() {
		fmt.Fprintf(out, "%-4s %-8s %s\n", b.Testament(), b.OSIS(), b.String())
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(out io.Writer) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(out, "bibleecho version %s (sqlite driver: %s)\n", version, info.DriverType)
	return nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newParser builds the kong parser writing command output to out.
func newParser(cli *CLI, out io.Writer, opts ...kong.Option) (*kong.Kong, error) {
	opts = append([]kong.Option{
		kong.Name("bibleecho"),
		kong.Description("Bible Echo - scripture reference detection and lookup"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Bind(&cli.Globals),
		kong.BindTo(out, (*io.Writer)(nil)),
		kong.Writers(out, os.Stderr),
	}, opts...)
	return kong.New(cli, opts...)
}

func main() {
	var cli CLI
	parser, err := newParser(&cli, os.Stdout)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}
