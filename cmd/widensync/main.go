// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/widensync/pipeline"
	"github.com/poiesic/widensync/searchai"
	"github.com/poiesic/widensync/server"
	"github.com/poiesic/widensync/split/pdf"
	"github.com/poiesic/widensync/storage"
	"github.com/poiesic/widensync/storage/badger"
	"github.com/poiesic/widensync/widen"
)

func main() {
	app := &cli.App{
		Name:  "widensync",
		Usage: "Synchronize Widen DAM assets into a SearchAI content source",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the connector HTTP server",
				Action: serveCommand,
				Flags: append(connectorFlags(),
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "HTTP listen port",
						Value:   8080,
						EnvVars: []string{"PORT"},
					},
					&cli.BoolFlag{
						Name:    "open",
						Usage:   "Disable auth on the HTTP API",
						EnvVars: []string{"WIDENSYNC_OPEN"},
					},
				),
			},
			{
				Name:   "sync",
				Usage:  "Run one batch synchronization and print the result",
				Action: syncCommand,
				Flags: append(connectorFlags(),
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Starting offset in the upstream result set",
					},
					&cli.BoolFlag{
						Name:    "skip-ingest",
						Usage:   "Upload files without triggering ingestion",
						EnvVars: []string{"SKIP_INGEST"},
					},
				),
			},
			{
				Name:   "pull",
				Usage:  "Pull the next asset and advance the cursor",
				Action: pullCommand,
				Flags:  connectorFlags(),
			},
			{
				Name:      "search",
				Usage:     "Run an advanced search against the content source",
				Action:    searchCommand,
				ArgsUsage: "<query>",
				Flags:     connectorFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func connectorFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to the BadgerDB state directory",
			Value:   "./widensync-state",
			EnvVars: []string{"WIDENSYNC_DB"},
		},
		&cli.StringFlag{
			Name:    "widen-search-url",
			Usage:   "Widen assets search endpoint",
			EnvVars: []string{"WIDEN_SEARCH_URL"},
		},
		&cli.StringFlag{
			Name:    "widen-query",
			Usage:   "Widen search query selecting the assets to sync",
			EnvVars: []string{"WIDEN_QUERY"},
		},
		&cli.StringFlag{
			Name:    "widen-bearer",
			Usage:   "Widen API bearer token",
			EnvVars: []string{"WIDEN_BEARER"},
		},
		&cli.StringFlag{
			Name:    "kore-host",
			Usage:   "SearchAI base URL",
			EnvVars: []string{"KORE_HOST"},
		},
		&cli.StringFlag{
			Name:    "kore-bot-id",
			Usage:   "SearchAI application id",
			EnvVars: []string{"KORE_BOT_ID"},
		},
		&cli.StringFlag{
			Name:    "kore-client-id",
			Usage:   "SearchAI client id",
			EnvVars: []string{"KORE_CLIENT_ID"},
		},
		&cli.StringFlag{
			Name:    "kore-client-secret",
			Usage:   "SearchAI client secret",
			EnvVars: []string{"KORE_CLIENT_SECRET"},
		},
		&cli.StringFlag{
			Name:    "source-name",
			Usage:   "SearchAI content source name",
			EnvVars: []string{"SEARCHAI_SOURCE_NAME"},
		},
		&cli.Int64Flag{
			Name:    "max-file-size-mb",
			Usage:   "Upload size budget in megabytes",
			Value:   45,
			EnvVars: []string{"MAX_FILE_SIZE_MB"},
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Usage:   "Parallel asset processing bound",
			Value:   pipeline.DefaultConcurrency,
			EnvVars: []string{"CONCURRENCY"},
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Assets fetched per batch sync",
			Value: 15,
		},
	}
}

// connector bundles everything a command needs, with the storage handles
// that must be released when the command finishes.
type connector struct {
	widen   *widen.Client
	search  *searchai.Client
	orch    *pipeline.Orchestrator
	puller  *pipeline.Puller
	audit   storage.AuditSink
	cursors storage.CursorStore
	backend *badger.Backend
}

func (cn *connector) Close() {
	cn.cursors.Close()
	cn.audit.Close()
	cn.backend.Close()
}

func buildConnector(c *cli.Context) (*connector, error) {
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	cursors := badger.NewCursorStore(backend, badger.DefaultCursorName)
	audit, err := badger.NewAuditSink(backend)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to open audit sink: %w", err)
	}

	var widenOpts []widen.ConfigOption
	if v := c.String("widen-search-url"); v != "" {
		widenOpts = append(widenOpts, widen.WithSearchURL(v))
	}
	if v := c.String("widen-query"); v != "" {
		widenOpts = append(widenOpts, widen.WithQuery(v))
	}
	widenOpts = append(widenOpts,
		widen.WithBearerToken(c.String("widen-bearer")),
		widen.WithLimit(c.Int("limit")))

	widenClient, err := widen.NewClient(widen.NewConfig(widenOpts...), audit)
	if err != nil {
		backend.Close()
		return nil, err
	}

	searchOpts := []searchai.ConfigOption{
		searchai.WithHost(c.String("kore-host")),
		searchai.WithBotID(c.String("kore-bot-id")),
		searchai.WithClientCredentials(
			c.String("kore-client-id"), c.String("kore-client-secret")),
	}
	if v := c.String("source-name"); v != "" {
		searchOpts = append(searchOpts, searchai.WithSourceName(v))
	}

	searchClient, err := searchai.NewClient(searchai.NewConfig(searchOpts...))
	if err != nil {
		backend.Close()
		return nil, err
	}

	processor := pipeline.NewProcessor(widenClient, searchClient, &pdf.Splitter{}, audit,
		pipeline.WithMaxFileSize(c.Int64("max-file-size-mb")<<20))

	orch := pipeline.NewOrchestrator(widenClient, processor, searchClient,
		pipeline.WithConcurrency(c.Int("concurrency")))

	puller := pipeline.NewPuller(widenClient, cursors, orch)

	return &connector{
		widen:   widenClient,
		search:  searchClient,
		orch:    orch,
		puller:  puller,
		audit:   audit,
		cursors: cursors,
		backend: backend,
	}, nil
}

func serveCommand(c *cli.Context) error {
	cn, err := buildConnector(c)
	if err != nil {
		return err
	}
	defer cn.Close()

	var tokens server.TokenValidator
	if !c.Bool("open") {
		tokens = cn.search.Tokens()
	}

	srv := server.NewServer(server.Config{
		Port:         c.Int("port"),
		DefaultLimit: c.Int("limit"),
	}, cn.orch, cn.puller, cn.search, tokens, cn.audit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

func syncCommand(c *cli.Context) error {
	cn, err := buildConnector(c)
	if err != nil {
		return err
	}
	defer cn.Close()

	result, err := cn.orch.Run(context.Background(),
		c.Int("limit"), c.Int("offset"), c.Bool("skip-ingest"))
	if err != nil {
		return err
	}

	return printJSON(result)
}

func pullCommand(c *cli.Context) error {
	cn, err := buildConnector(c)
	if err != nil {
		return err
	}
	defer cn.Close()

	resp, err := cn.puller.Pull(context.Background())
	if err != nil {
		return err
	}

	return printJSON(resp)
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query argument is required")
	}

	cn, err := buildConnector(c)
	if err != nil {
		return err
	}
	defer cn.Close()

	resp, err := cn.search.Query(context.Background(), query)
	if err != nil {
		return err
	}

	return printJSON(resp)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
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

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
