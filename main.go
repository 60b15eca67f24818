package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"finrag/internal/app"
	"finrag/internal/config"
	"finrag/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	application, err := app.New(cfg, deps.DB, deps.VectorStore, deps.NSQProducer, log, nil)
	if err != nil {
		return err
	}
	defer application.Close()

	if cfg.EnableWorker {
		consumer, err := startConsumer(cfg, application)
		if err != nil {
			slog.Error("failed to start reindex consumer", "error", err)
		} else {
			defer consumer.Stop()
		}
	}

	return application.Run(ctx)
}

func startConsumer(cfg *config.Config, application *app.App) (*nsq.Consumer, error) {
	nsqCfg := nsq.NewConfig()
	nsqCfg.MaxInFlight = cfg.IngestionConcurrency
	// failures are recorded as failed jobs, so NSQ never requeues
	nsqCfg.MaxAttempts = 1

	consumer, err := nsq.NewConsumer(config.TopicReindex, config.ChannelReindex, nsqCfg)
	if err != nil {
		return nil, err
	}
	consumer.AddConcurrentHandlers(application.ReindexConsumer, cfg.IngestionConcurrency)

	if cfg.NSQLookupd != "" {
		err = consumer.ConnectToNSQLookupd(cfg.NSQLookupd)
	} else {
		err = consumer.ConnectToNSQD(cfg.NSQDHost)
	}
	if err != nil {
		consumer.Stop()
		return nil, err
	}
	slog.Info("NSQ reindex consumer connected", "concurrency", cfg.IngestionConcurrency)
	return consumer, nil
}
