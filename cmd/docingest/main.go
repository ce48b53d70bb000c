// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/docingest"
	"github.com/poiesic/docingest/ai/openai"
	"github.com/poiesic/docingest/config"
	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/ingestion"
	"github.com/poiesic/docingest/parsers"
	"github.com/poiesic/docingest/search"
	"github.com/poiesic/docingest/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docingest",
		Usage: "Parse source material concurrently and index it as documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML configuration file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "doctypes",
				Usage:  "Register every doctype declared in the configuration file",
				Action: doctypesCommand,
			},
			{
				Name:      "ingest",
				Usage:     "Ingest items as documents of one doctype",
				ArgsUsage: "ITEMS...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "doctype",
						Aliases:  []string{"t"},
						Usage:    "Doctype of the ingested documents",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "parser",
						Aliases: []string{"p"},
						Usage:   "Parser to run over each item (text, file, url, llm, example)",
						Value:   "text",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Worker pool size (overrides the configuration file, 0 keeps it)",
					},
					&cli.BoolFlag{
						Name:  "stdin",
						Usage: "Read additional items from standard input, one per line",
					},
					&cli.StringFlag{
						Name:  "base-dir",
						Usage: "Restrict the file parser to paths inside this directory",
					},
					&cli.StringFlag{
						Name:  "encoding",
						Usage: "Character encoding of files read by the file parser",
						Value: "utf-8",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "How the llm parser reads each item (text, file, url)",
						Value: "text",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search stored documents of one doctype (badger backend)",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "doctype",
						Aliases:  []string{"t"},
						Usage:    "Doctype to search",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   10,
					},
				},
			},
			{
				Name:   "demo",
				Usage:  "Recreate an index and ingest a few items with the example parser",
				Action: demoCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "index",
						Usage: "Index to recreate",
						Value: "testindex",
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// openSession opens the configured store, starts a session and registers the
// configured doctypes. The returned function tears both down.
func openSession(ctx context.Context, cfg *config.Config, opts ...docingest.Option) (*docingest.Session, func(), error) {
	dial, closer, err := cfg.OpenStore()
	if err != nil {
		return nil, nil, err
	}

	all := append(cfg.SessionOptions(slog.Default()), opts...)
	session, err := docingest.NewSession(ctx, dial, cfg.Index, all...)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := session.Close(); err != nil {
			slog.Error("error closing session", "err", err)
		}
		if err := closer.Close(); err != nil {
			slog.Error("error closing store", "err", err)
		}
	}

	doctypes, err := cfg.DoctypeDefinitions()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	for _, dt := range doctypes {
		if err := session.CreateDoctype(ctx, dt.Name, dt.Fields); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return session, cleanup, nil
}

func doctypesCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	session, cleanup, err := openSession(c.Context, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	out := c.App.Writer
	for _, dt := range session.Doctypes() {
		fmt.Fprintf(out, "%s (%d fields)\n", dt.Name, len(dt.Fields))
	}
	return nil
}

func ingestCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	doctype := c.String("doctype")

	items, err := collectItems(c.Args().Slice(), c.Bool("stdin"), c.App.Reader)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.New("no items to ingest: pass them as arguments or use --stdin")
	}

	parse, err := buildParser(c, cfg, doctype)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, cleanup, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := cfg.DispatchOptions()
	if w := c.Int("workers"); w > 0 {
		opts = append(opts, ingestion.WithWorkers(w))
	}

	handle, err := session.Ingest(doctype, items, parse, opts...)
	if err != nil {
		return err
	}
	if err := handle.Wait(ctx); err != nil {
		slog.Warn("interrupted, terminating ingest", "dispatch", handle.ID())
		return err
	}

	printReport(c.App.ErrWriter, handle)
	return nil
}

func collectItems(args []string, fromStdin bool, stdin io.Reader) ([]core.SourceItem, error) {
	items := make([]core.SourceItem, 0, len(args))
	for _, arg := range args {
		items = append(items, arg)
	}
	if !fromStdin {
		return items, nil
	}

	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			items = append(items, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read items from stdin: %w", err)
	}
	return items, nil
}

func buildParser(c *cli.Context, cfg *config.Config, doctype string) (core.ParserFunc, error) {
	name := c.String("parser")
	switch name {
	case "text":
		return parsers.Text(), nil
	case "example":
		return parsers.Example(), nil
	case "file":
		return fileParser(c)
	case "url":
		return parsers.URL()
	case "llm":
		dt, ok, err := cfg.Doctype(doctype)
		if err != nil {
			return nil, err
		}
		if !ok || len(dt.Fields) == 0 {
			return nil, fmt.Errorf("llm parser needs the fields of doctype %q declared in the configuration file", doctype)
		}
		extractor, err := openai.NewFeatureExtractor(cfg.AIConfig(), dt.Fields)
		if err != nil {
			return nil, fmt.Errorf("failed to create feature extractor: %w", err)
		}

		var source core.ParserFunc
		switch c.String("source") {
		case "text":
			source = parsers.Text()
		case "file":
			source, err = fileParser(c)
		case "url":
			source, err = parsers.URL()
		default:
			return nil, fmt.Errorf("unknown llm source %q: must be one of text, file, url", c.String("source"))
		}
		if err != nil {
			return nil, err
		}
		return parsers.LLM(extractor, parsers.WithSource(source))
	default:
		return nil, fmt.Errorf("unknown parser %q: must be one of text, file, url, llm, example", name)
	}
}

func fileParser(c *cli.Context) (core.ParserFunc, error) {
	opts := []parsers.FileOption{parsers.WithEncoding(c.String("encoding"))}
	if dir := c.String("base-dir"); dir != "" {
		opts = append(opts, parsers.WithBaseDir(dir))
	}
	return parsers.File(opts...)
}

func printReport(w io.Writer, h *ingestion.Handle) {
	r := h.Report()
	fmt.Fprintf(w, "Dispatch %s %s\n", h.ID(), h.State())
	fmt.Fprintf(w, "  items:          %d\n", r.Items)
	fmt.Fprintf(w, "  parsed:         %d\n", r.Parsed)
	fmt.Fprintf(w, "  parse failures: %d\n", r.ParseFailures)
	fmt.Fprintf(w, "  indexed:        %d\n", r.Indexed)
	fmt.Fprintf(w, "  index failures: %d\n", r.IndexFailures)
	fmt.Fprintf(w, "  elapsed:        %s\n", r.Elapsed.Round(time.Millisecond))
}

func searchCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	query := strings.Join(c.Args().Slice(), " ")
	if query == "" {
		return errors.New("query is required")
	}

	dial, closer, err := cfg.OpenStore()
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := dial(c.Context)
	if err != nil {
		return err
	}
	defer store.Close()

	reader, ok := store.(storage.DocumentReader)
	if !ok {
		return fmt.Errorf("store backend %q cannot read documents back", cfg.Store.Backend)
	}

	searcher, err := search.NewSearcher(reader, cfg.Index)
	if err != nil {
		return err
	}
	defer searcher.Close()

	results, err := searcher.Search(c.Context, c.String("doctype"), query, c.Int("limit"))
	if err != nil {
		return err
	}

	out := c.App.Writer
	if len(results) == 0 {
		fmt.Fprintln(out, "No results")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(out, "%d. %s (score %.3f)\n", i+1, r.Document.ID, r.Score)
		for _, line := range formatBody(r.Document.Body) {
			fmt.Fprintf(out, "     %s\n", line)
		}
	}
	return nil
}

func formatBody(body core.Document) []string {
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fmt.Sprint(body[k])
		lines = append(lines, fmt.Sprintf("%s: %s", k, truncate(strings.ReplaceAll(v, "\n", " "), 80)))
	}
	return lines
}

// truncate shortens s to at most limit runes, marking the cut with "...".
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

func demoCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.Index = c.String("index")
	cfg.DeleteIndexOnInit = true

	session, cleanup, err := openSession(c.Context, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	doctype := parsers.ExampleDoctype()
	if err := session.CreateDoctype(c.Context, doctype.Name, doctype.Fields); err != nil {
		return err
	}

	items := []core.SourceItem{"Document_1", "Document_2", "Document_3", "Hello world"}
	handle, err := session.Ingest(doctype.Name, items, parsers.Example(), cfg.DispatchOptions()...)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.ErrWriter, "ingest returned while documents are still being parsed")

	if err := session.Wait(c.Context); err != nil {
		return err
	}
	printReport(c.App.ErrWriter, handle)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
