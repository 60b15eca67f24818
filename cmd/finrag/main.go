package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"finrag/features/transaction"
	"finrag/internal/app"
	"finrag/internal/config"
	"finrag/internal/logger"
	"finrag/internal/middleware"
	"finrag/internal/text"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "finrag",
		Usage: "Operator tools for the transaction report and vector index pipeline",
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
				Name:   "reindex",
				Usage:  "Run the pipeline for one user against the configured services",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User id to reindex",
						Required: true,
					},
				},
			},
			{
				Name:   "enqueue",
				Usage:  "Publish a reindex request for the background worker",
				Action: enqueueCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "User id to reindex",
						Required: true,
					},
				},
			},
			{
				Name:   "chunk",
				Usage:  "Print chunk boundaries for a text file",
				Action: chunkCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the corpus file",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "size",
						Usage: "Chunk size in bytes",
						Value: 1500,
					},
					&cli.IntFlag{
						Name:  "overlap",
						Usage: "Overlap between adjacent chunks in bytes",
						Value: 200,
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	level := c.String("log-level")
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", level)
	}
	slog.SetDefault(logger.New(os.Stderr, level))
	return nil
}

func reindexCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = middleware.WithCorrelationID(ctx, uuid.New().String())

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	application, err := app.New(cfg, deps.DB, deps.VectorStore, deps.NSQProducer, slog.Default(), nil)
	if err != nil {
		return err
	}
	defer application.Close()

	res, err := application.Pipeline.Run(ctx, c.String("user"))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func enqueueCommand(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	deps, err := app.Bootstrap(c.Context, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	req := transaction.ReindexRequest{UserID: c.String("user"), CorrelationID: uuid.New().String()}
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if err := deps.NSQProducer.Publish(config.TopicReindex, body); err != nil {
		return fmt.Errorf("publish reindex request: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "queued reindex for %s (correlation id %s)\n", req.UserID, req.CorrelationID)
	return nil
}

func chunkCommand(c *cli.Context) error {
	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read corpus: %w", err)
	}

	spans, err := text.Spans(len(data), c.Int("size"), c.Int("overlap"))
	if err != nil {
		return err
	}

	for i, s := range spans {
		fmt.Fprintf(c.App.Writer, "%d\t%d\t%d\n", i, s.Start, s.End)
	}
	fmt.Fprintf(c.App.Writer, "%d chunk(s), %d byte(s)\n", len(spans), len(data))
	return nil
}

