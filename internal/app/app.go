package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"finrag/features/budget"
	"finrag/features/job"
	"finrag/features/mcp"
	"finrag/features/reindex"
	"finrag/features/stats"
	"finrag/features/transaction"
	"finrag/internal/adapter/discord"
	"finrag/internal/adapter/reranker"
	wstore "finrag/internal/adapter/weaviate"
	"finrag/internal/config"
	"finrag/internal/embed"
	"finrag/internal/middleware"
	"finrag/internal/pipeline"
	"finrag/internal/report"
	"finrag/internal/retrieval"
	"finrag/internal/worker"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// Options overrides collaborators that are otherwise built from config.
type Options struct {
	Provider embed.Provider
	Notifier worker.FailureNotifier
}

type App struct {
	Handler            http.Handler
	Pipeline           *pipeline.Pipeline
	TransactionService *transaction.Service
	ReindexConsumer    *worker.ReindexConsumer

	port     int
	embedder *embed.BatchEmbedder
	closers  []func() error
}

func New(
	cfg *config.Config,
	db *sql.DB,
	vecStore *wstore.Store,
	pub EventPublisher,
	logger *slog.Logger,
	opts *Options,
) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}
	a := &App{port: cfg.ServerPort}

	// Embedding
	provider := opts.Provider
	if provider == nil {
		p, closers, err := newProvider(cfg)
		if err != nil {
			return nil, err
		}
		provider = p
		a.closers = append(a.closers, closers...)
	}
	batch, err := embed.NewBatchEmbedder(provider, embed.Options{
		Concurrency: cfg.EmbedConcurrency,
		MaxAttempts: cfg.EmbedMaxAttempts,
		BaseDelay:   time.Duration(cfg.EmbedRetryBaseDelayMs) * time.Millisecond,
		CallTimeout: time.Duration(cfg.EmbedCallTimeoutSecond) * time.Second,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.embedder = batch

	// Feature: Transaction
	txRepo := transaction.NewPostgresRepo(db)
	txService := transaction.NewService(txRepo, pub)
	txHandler := transaction.NewHandler(txService)
	a.TransactionService = txService

	// Feature: Budget
	budgetHandler := budget.NewHandler(budget.NewService(budget.NewPostgresRepo(db), txRepo))

	// Pipeline
	p, err := pipeline.New(pipeline.Config{
		OutputDir:    cfg.OutputDir,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		StageTimeout: time.Duration(cfg.StageTimeoutSeconds) * time.Second,
	}, txRepo, report.NewRenderer(cfg.CurrencySymbol), batch, vecStore)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	a.Pipeline = p

	// Feature: Job
	jobRepo := job.NewPostgresRepo(db)
	jobService := job.NewService(jobRepo, pub, logger)
	jobHandler := job.NewHandler(jobService)

	// Feature: Stats
	statsHandler := stats.NewHandler(txRepo, jobRepo, vecStore)

	// Feature: Retrieval
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(provider, vecStore, queryLogger,
		retrieval.WithReranker(reranker.NewClient(cfg.RerankProvider, cfg.RerankAPIKey)))
	reindexHandler := reindex.NewHandler(p, retrievalService, cfg.OutputDir)

	// Worker
	notifier := opts.Notifier
	if notifier == nil && cfg.DiscordWebhookURL != "" {
		n, err := discord.NewNotifier(cfg.DiscordWebhookURL)
		if err != nil {
			slog.Warn("discord notifications disabled", "error", err)
		} else {
			notifier = n
		}
	}
	a.ReindexConsumer = worker.NewReindexConsumer(p, jobRepo, notifier)

	// Routes
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.CorrelationID(middleware.CORS(h)))
	}

	route("POST /users/{userID}/transactions", txHandler.Create)
	route("GET /users/{userID}/transactions", txHandler.List)
	route("GET /users/{userID}/transactions/{id}", txHandler.Get)
	route("PUT /users/{userID}/transactions/{id}", txHandler.Update)
	route("DELETE /users/{userID}/transactions/{id}", txHandler.Delete)

	route("POST /users/{userID}/budgets", budgetHandler.Create)
	route("GET /users/{userID}/budgets", budgetHandler.List)
	route("GET /users/{userID}/budgets/{id}", budgetHandler.Get)
	route("PUT /users/{userID}/budgets/{id}", budgetHandler.Update)
	route("DELETE /users/{userID}/budgets/{id}", budgetHandler.Delete)

	route("POST /users/{userID}/reindex", reindexHandler.Reindex)
	route("GET /users/{userID}/report", reindexHandler.Report)
	route("GET /users/{userID}/search", reindexHandler.Search)

	route("GET /jobs/failed", jobHandler.List)
	route("POST /jobs/{id}/retry", jobHandler.Retry)

	route("GET /stats", statsHandler.GetStats)

	mcpHandler := mcp.NewHandler(retrievalService, txService)
	mux.Handle("POST /mcp", middleware.CorrelationID(mcpHandler))
	route("GET /mcp/sse", mcpHandler.HandleSSE)
	route("POST /mcp/messages", mcpHandler.HandleMessage)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	a.Handler = mux
	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.port),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the embedding pool and releases provider resources.
func (a *App) Close() {
	if a.embedder != nil {
		a.embedder.Release()
	}
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("failed to close resource", "error", err)
		}
	}
}
