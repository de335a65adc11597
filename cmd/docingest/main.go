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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/docingest"
	"github.com/poiesic/docingest/config"
	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/storage"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docingest",
		Usage: "Crawl websites and ingest documents into a vector store",
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
				Usage:   "Path to YAML configuration file",
				Value:   "docingest.yaml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to .env file",
				Value: ".env",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP ingestion API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides server.addr)",
					},
				},
			},
			{
				Name:   "crawl",
				Usage:  "Crawl a website into a new artifact, then optionally ingest it",
				Action: crawlCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Aliases:  []string{"u"},
						Usage:    "Base URL of the site to crawl",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "ingest",
						Usage: "Ingest the documents directory after crawling",
						Value: true,
					},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Ingest every matching file in a directory",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Directory to ingest (defaults to ingestion.documents_dir)",
					},
				},
			},
			{
				Name:  "documents",
				Usage: "Inspect stored documents",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List documents, newest first",
						Action: listDocumentsCommand,
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: storage.DefaultListLimit},
							&cli.IntFlag{Name: "offset"},
							&cli.StringSliceFlag{
								Name:  "filter",
								Usage: "Metadata filter as key=value (repeatable)",
							},
						},
					},
					{
						Name:   "show",
						Usage:  "Show one document and its chunks",
						Action: showDocumentCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "id", Usage: "Document ID (hex)", Required: true},
						},
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return nil, err
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signalContext()
	defer stop()

	engine, err := docingest.NewEngine(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer engine.Close()

	fmt.Fprintf(os.Stderr, "Storage: %s\n", cfg.Storage.Backend)
	fmt.Fprintf(os.Stderr, "Documents: %s\n", cfg.Ingestion.DocumentsDir)
	fmt.Fprintf(os.Stderr, "Chat model: %s\n", cfg.AI.ChatModel)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	return engine.NewServer().Run(ctx, cfg.Server.Addr)
}

func crawlCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	var (
		barMu sync.Mutex
		bar   *progressbar.ProgressBar
	)
	progress := func(string, error) {
		barMu.Lock()
		defer barMu.Unlock()
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	engine, err := docingest.NewEngine(ctx, cfg, docingest.WithCrawlProgress(progress))
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer engine.Close()

	base := c.String("url")
	urls, err := engine.Crawler().DiscoverURLs(ctx, base)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Found %d URLs to crawl\n", len(urls))

	barMu.Lock()
	bar = progressbar.NewOptions(len(urls),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Crawling[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
	barMu.Unlock()

	res, err := engine.Crawler().Crawl(ctx, urls)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d pages to %s (%d failed)\n", res.Succeeded, res.ArtifactPath, res.Failed)

	if !c.Bool("ingest") {
		return nil
	}
	return runIngest(ctx, engine, cfg.Ingestion.DocumentsDir)
}

func ingestCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	engine, err := docingest.NewEngine(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer engine.Close()

	dir := c.String("dir")
	if dir == "" {
		dir = cfg.Ingestion.DocumentsDir
	}
	return runIngest(ctx, engine, dir)
}

func runIngest(ctx context.Context, engine *docingest.Engine, dir string) error {
	report, err := engine.Pipeline().IngestDirectory(ctx, dir)
	fmt.Fprintf(os.Stderr, "Ingested %d documents, %d unchanged, %d failed in %s\n",
		report.Ingested, report.Skipped, report.Failed, report.Duration.Round(time.Millisecond))
	if err != nil {
		return fmt.Errorf("ingestion finished with errors: %w", err)
	}
	return nil
}

func parseFilters(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	filters := make(map[string]string, len(raw))
	for _, f := range raw {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", f)
		}
		filters[k] = v
	}
	return filters, nil
}

func openStore(c *cli.Context) (*docingest.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return docingest.NewEngine(c.Context, cfg)
}

func listDocumentsCommand(c *cli.Context) error {
	filters, err := parseFilters(c.StringSlice("filter"))
	if err != nil {
		return err
	}

	engine, err := openStore(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	docs, err := engine.Repository().ListDocuments(c.Context, storage.ListOptions{
		Limit:    c.Int("limit"),
		Offset:   c.Int("offset"),
		Metadata: filters,
	})
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	for _, d := range docs {
		fmt.Printf("%s  %-40s  %-30s  %4d chunks  %s\n",
			d.ID, d.Name, d.Topic, d.ChunkCount, d.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func showDocumentCommand(c *cli.Context) error {
	id, err := core.ParseID(c.String("id"))
	if err != nil {
		return err
	}

	engine, err := openStore(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	doc, err := engine.Repository().GetDocument(c.Context, id)
	if err != nil {
		return fmt.Errorf("failed to read document %s: %w", id, err)
	}

	fmt.Printf("Name:   %s\nTopic:  %s\nSource: %s\nChunks: %d\n\n", doc.Name, doc.Topic, doc.Source, len(doc.Chunks))
	for _, ch := range doc.Chunks {
		fmt.Printf("[%d] %s\n    %s\n", ch.ChunkNumber, ch.Title, ch.Summary)
	}
	return nil
}

// setupLogger installs the default logger. The --log-level flag wins;
// otherwise logging.level from the config file or DOCINGEST_LOG_LEVEL is
// used. A config that fails to load is reported later by the command.
func setupLogger(c *cli.Context) error {
	raw := c.String("log-level")
	if !c.IsSet("log-level") {
		if cfg, err := loadConfig(c); err == nil && cfg.Logging.Level != "" {
			raw = cfg.Logging.Level
		}
	}
	levelStr := strings.ToLower(raw)

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
