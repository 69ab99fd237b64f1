package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/deckbuilder/internal/cite"
	"git.home.luguber.info/inful/deckbuilder/internal/compile"
	"git.home.luguber.info/inful/deckbuilder/internal/deck"
	"git.home.luguber.info/inful/deckbuilder/internal/icons"
	"git.home.luguber.info/inful/deckbuilder/internal/registry"
	"git.home.luguber.info/inful/deckbuilder/internal/render"
	"git.home.luguber.info/inful/deckbuilder/internal/watch"
	"github.com/alecthomas/kong"
)

var CLI struct {
	Verbose bool `short:"v" help:"Enable verbose logging"`

	Compile struct {
		Input        string `arg:"" help:"Deck source file (YAML)"`
		Output       string `short:"o" help:"Output file for the compiled document (stdout if empty)"`
		Templates    string `short:"t" help:"Directory with custom template definitions"`
		Bibliography string `short:"b" help:"Bibliography file for citations (YAML)"`
		NoTheme      bool   `help:"Omit the theme entry from the document header"`
	} `cmd:"" help:"Compile a deck source file into a presentation document"`

	Templates struct {
		Dir      string `short:"t" help:"Directory with custom template definitions"`
		Category string `help:"Only list templates in this category"`
	} `cmd:"" help:"List registered slide templates"`

	Watch struct {
		Input        string `arg:"" help:"Deck source file (YAML)"`
		Output       string `short:"o" help:"Output file for the compiled document" default:"deck.md"`
		Templates    string `short:"t" help:"Directory with custom template definitions"`
		Bibliography string `short:"b" help:"Bibliography file for citations (YAML)"`
		NoTheme      bool   `help:"Omit the theme entry from the document header"`
	} `cmd:"" help:"Recompile the deck whenever its sources change"`
}

func main() {
	ctx := kong.Parse(&CLI)

	// Set up logging
	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Execute command
	switch ctx.Command() {
	case "compile <input>":
		c := CLI.Compile
		if err := runCompile(c.Input, c.Output, c.Templates, c.Bibliography, c.NoTheme); err != nil {
			slog.Error("Compile failed", "error", err)
			os.Exit(1)
		}
	case "templates":
		if err := runTemplates(CLI.Templates.Dir, CLI.Templates.Category); err != nil {
			slog.Error("Template listing failed", "error", err)
			os.Exit(1)
		}
	case "watch <input>":
		w := CLI.Watch
		if err := runWatch(w.Input, w.Output, w.Templates, w.Bibliography, w.NoTheme); err != nil {
			slog.Error("Watch failed", "error", err)
			os.Exit(1)
		}
	}
}

// loadRegistry loads the built-in templates and, when a directory is given,
// the custom definitions on top of them. Per-file load failures are logged
// but do not abort; successfully loaded templates stay registered.
func loadRegistry(templatesDir string) (*registry.Registry, error) {
	reg := registry.New()
	if err := reg.LoadBuiltins(); err != nil {
		return nil, fmt.Errorf("load built-in templates: %w", err)
	}
	if templatesDir != "" {
		if err := reg.LoadDirectory(templatesDir); err != nil {
			slog.Warn("Some custom templates failed to load", "dir", templatesDir, "error", err)
		}
	}
	return reg, nil
}

func loadFormatter(style, bibliographyPath string) (*cite.Formatter, error) {
	f := cite.New(style)
	if bibliographyPath != "" {
		data, err := os.ReadFile(bibliographyPath)
		if err != nil {
			return nil, fmt.Errorf("read bibliography: %w", err)
		}
		if err := f.LoadBibliography(data); err != nil {
			return nil, fmt.Errorf("load bibliography: %w", err)
		}
	}
	return f, nil
}

func runCompile(input, output, templatesDir, bibliography string, noTheme bool) error {
	source, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read deck source: %w", err)
	}

	// The citation style lives in the deck metadata, so peek at the
	// presentation before assembling the pipeline.
	pres, err := deck.Parse(source)
	if err != nil {
		return err
	}

	reg, err := loadRegistry(templatesDir)
	if err != nil {
		return err
	}
	refs, err := loadFormatter(pres.Meta.References.Style, bibliography)
	if err != nil {
		return err
	}

	compiler := &compile.Compiler{Registry: reg, Icons: icons.Inline{}, Refs: refs}
	opts := compile.DefaultOptions()
	opts.IncludeTheme = !noTheme
	opts.Extra = []render.HeaderField{{Key: "marp", Value: true}}

	doc, err := compiler.Compile(context.Background(), source, opts)
	if err != nil {
		return err
	}

	if output == "" {
		_, err = os.Stdout.WriteString(doc)
		return err
	}
	if err := os.WriteFile(output, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	slog.Info("Deck compiled", "input", input, "output", output, "slides", len(pres.Slides))
	return nil
}

func runTemplates(templatesDir, category string) error {
	reg, err := loadRegistry(templatesDir)
	if err != nil {
		return err
	}

	defs := reg.List()
	if category != "" {
		defs = reg.ListByCategory(category)
	}

	slog.Info("Registered templates", "count", len(defs))
	for _, def := range defs {
		slog.Info("  Template",
			"name", def.Name,
			"category", def.Category,
			"description", def.Description)
	}
	return nil
}

func runWatch(input, output, templatesDir, bibliography string, noTheme bool) error {
	build := func(context.Context) error {
		return runCompile(input, output, templatesDir, bibliography, noTheme)
	}

	// Initial build so the output exists before the first change.
	if err := build(context.Background()); err != nil {
		slog.Error("Initial build failed", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	paths := []string{input}
	if templatesDir != "" {
		paths = append(paths, templatesDir)
	}
	if bibliography != "" {
		paths = append(paths, bibliography)
	}

	w, err := watch.New(build, paths...)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}

	slog.Info("Watching for changes, press Ctrl-C to stop", "input", input, "output", output)
	<-ctx.Done()

	return w.Stop()
}
