package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finrag/features/transaction"
	"finrag/internal/embed"
	"finrag/internal/middleware"
	"finrag/internal/report"
	"finrag/internal/text"
)

type Stage string

const (
	StageIdle      Stage = "idle"
	StageReading   Stage = "reading"
	StageRendering Stage = "rendering"
	StageBuilding  Stage = "building"
	StageChunking  Stage = "chunking"
	StageEmbedding Stage = "embedding"
	StageStoring   Stage = "storing"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
)

var ErrMissingUserID = errors.New("user id is required")

// StageError records which stage of a run failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type TransactionReader interface {
	ListByUser(ctx context.Context, userID string) ([]transaction.Transaction, error)
}

type Renderer interface {
	Render(ctx context.Context, records []transaction.Transaction, path string) (string, error)
}

type Embedder interface {
	EmbedAll(ctx context.Context, chunks []string) ([]embed.Embedded, error)
}

type VectorStore interface {
	DeleteByUser(ctx context.Context, userID string) error
	Upsert(ctx context.Context, userID string, items []embed.Embedded) error
}

type Config struct {
	OutputDir    string
	ChunkSize    int
	ChunkOverlap int
	StageTimeout time.Duration
}

type Result struct {
	ChunkCount int    `json:"chunkCount"`
	PDFPath    string `json:"pdfPath"`
}

// Pipeline turns a user's ledger into a PDF report and a set of embedded
// chunks in the vector store. Runs for different users share no state.
type Pipeline struct {
	cfg      Config
	reader   TransactionReader
	renderer Renderer
	embedder Embedder
	store    VectorStore
}

func New(cfg Config, reader TransactionReader, renderer Renderer, embedder Embedder, store VectorStore) (*Pipeline, error) {
	if err := text.ValidateChunkConfig(cfg.ChunkSize, cfg.ChunkOverlap); err != nil {
		return nil, err
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("output dir is required")
	}
	if reader == nil || renderer == nil || embedder == nil || store == nil {
		return nil, errors.New("pipeline collaborators must not be nil")
	}
	return &Pipeline{
		cfg:      cfg,
		reader:   reader,
		renderer: renderer,
		embedder: embedder,
		store:    store,
	}, nil
}

// Run executes every stage for userID in order. The first failing stage
// aborts the run; a report written before the failure is left on disk.
func (p *Pipeline) Run(ctx context.Context, userID string) (*Result, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	ctx = middleware.WithUserID(ctx, userID)
	start := time.Now()
	slog.InfoContext(ctx, "pipeline started", "stage", StageIdle)

	var (
		records []transaction.Transaction
		corpus  string
		chunks  []string
		items   []embed.Embedded
		res     = &Result{}
	)

	steps := []struct {
		stage Stage
		fn    func(ctx context.Context) error
	}{
		{StageReading, func(ctx context.Context) (err error) {
			records, err = p.reader.ListByUser(ctx, userID)
			return err
		}},
		{StageRendering, func(ctx context.Context) (err error) {
			res.PDFPath, err = p.renderer.Render(ctx, records, report.Path(p.cfg.OutputDir, userID))
			return err
		}},
		{StageBuilding, func(ctx context.Context) error {
			corpus = text.BuildCorpus(records)
			return nil
		}},
		{StageChunking, func(ctx context.Context) (err error) {
			chunks, err = text.Chunk(corpus, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
			return err
		}},
		{StageEmbedding, func(ctx context.Context) (err error) {
			items, err = p.embedder.EmbedAll(ctx, chunks)
			if err == nil && len(items) != len(chunks) {
				err = fmt.Errorf("embedder returned %d results for %d chunks", len(items), len(chunks))
			}
			return err
		}},
		{StageStoring, func(ctx context.Context) error {
			if err := p.store.DeleteByUser(ctx, userID); err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			return p.store.Upsert(ctx, userID, items)
		}},
	}

	for _, step := range steps {
		if err := p.runStage(ctx, step.stage, step.fn); err != nil {
			slog.ErrorContext(ctx, "pipeline failed", "stage", StageFailed, "failed_stage", step.stage, "error", err, "duration", time.Since(start))
			return nil, &StageError{Stage: step.stage, Err: err}
		}
	}

	res.ChunkCount = len(chunks)
	slog.InfoContext(ctx, "pipeline finished", "stage", StageDone, "records", len(records), "chunks", res.ChunkCount, "pdf", res.PDFPath, "duration", time.Since(start))
	return res, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stageCtx := ctx
	if p.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, p.cfg.StageTimeout)
		defer cancel()
	}

	slog.DebugContext(ctx, "stage started", "stage", stage)
	begin := time.Now()
	if err := fn(stageCtx); err != nil {
		return err
	}
	slog.DebugContext(ctx, "stage finished", "stage", stage, "duration", time.Since(begin))
	return nil
}
