package pipeline_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finrag/features/transaction"
	"finrag/internal/embed"
	"finrag/internal/pipeline"
	"finrag/internal/report"
	"finrag/internal/text"
)

type fakeReader struct {
	records []transaction.Transaction
	err     error
	block   bool
}

func (f *fakeReader) ListByUser(ctx context.Context, userID string) ([]transaction.Transaction, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.records, f.err
}

type fakeStore struct {
	mu       sync.Mutex
	calls    []string
	upserted []embed.Embedded
	err      error
}

func (f *fakeStore) DeleteByUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+userID)
	return nil
}

func (f *fakeStore) Upsert(ctx context.Context, userID string, items []embed.Embedded) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "upsert:"+userID)
	f.upserted = items
	return f.err
}

type providerFunc func(ctx context.Context, text string) ([]float32, error)

func (f providerFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

func twoRecords() []transaction.Transaction {
	return []transaction.Transaction{
		{UserID: "u1", Title: "Groceries", Amount: decimal.RequireFromString("45.5"), Type: transaction.TypeExpense, Category: "food", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{UserID: "u1", Title: "Salary", Amount: decimal.RequireFromString("1000"), Type: transaction.TypeIncome, Category: "income", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func newEmbedder(t *testing.T, p embed.Provider) *embed.BatchEmbedder {
	t.Helper()
	b, err := embed.NewBatchEmbedder(p, embed.Options{Concurrency: 2, MaxAttempts: 1})
	require.NoError(t, err)
	t.Cleanup(b.Release)
	return b
}

func okProvider() embed.Provider {
	return providerFunc(func(_ context.Context, s string) ([]float32, error) {
		return []float32{float32(len(s)), 1}, nil
	})
}

func newPipeline(t *testing.T, reader pipeline.TransactionReader, p embed.Provider, store pipeline.VectorStore) (*pipeline.Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	pl, err := pipeline.New(pipeline.Config{
		OutputDir:    dir,
		ChunkSize:    1500,
		ChunkOverlap: 200,
		StageTimeout: time.Second,
	}, reader, report.NewRenderer(""), newEmbedder(t, p), store)
	require.NoError(t, err)
	return pl, dir
}

func TestRun_TwoTransactions(t *testing.T) {
	store := &fakeStore{}
	pl, dir := newPipeline(t, &fakeReader{records: twoRecords()}, okProvider(), store)

	res, err := pl.Run(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunkCount)
	assert.Equal(t, report.Path(dir, "u1"), res.PDFPath)
	assert.FileExists(t, res.PDFPath)

	assert.Equal(t, []string{"delete:u1", "upsert:u1"}, store.calls)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, text.BuildCorpus(twoRecords()), store.upserted[0].Text)
}

func TestRun_ManyRecordsProduceOrderedChunks(t *testing.T) {
	var records []transaction.Transaction
	for i := 0; i < 60; i++ {
		records = append(records, twoRecords()...)
	}
	store := &fakeStore{}
	pl, _ := newPipeline(t, &fakeReader{records: records}, okProvider(), store)

	res, err := pl.Run(context.Background(), "u1")
	require.NoError(t, err)

	corpus := text.BuildCorpus(records)
	want, err := text.Chunk(corpus, 1500, 200)
	require.NoError(t, err)
	assert.Equal(t, len(want), res.ChunkCount)
	require.Len(t, store.upserted, len(want))
	for i, it := range store.upserted {
		assert.Equal(t, want[i], it.Text)
	}
}

func TestRun_EmptyLedgerClearsVectors(t *testing.T) {
	store := &fakeStore{}
	pl, _ := newPipeline(t, &fakeReader{}, okProvider(), store)

	res, err := pl.Run(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ChunkCount)
	assert.Equal(t, []string{"delete:u1", "upsert:u1"}, store.calls)
	assert.Empty(t, store.upserted)
}

func TestRun_EmbeddingFailureWritesNothing(t *testing.T) {
	store := &fakeStore{}
	failing := providerFunc(func(context.Context, string) ([]float32, error) {
		return nil, errors.New("rate limited")
	})
	pl, dir := newPipeline(t, &fakeReader{records: twoRecords()}, failing, store)

	res, err := pl.Run(context.Background(), "u1")
	require.Error(t, err)
	assert.Nil(t, res)

	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.StageEmbedding, se.Stage)
	var pe *embed.PartialError
	assert.ErrorAs(t, err, &pe)

	assert.Empty(t, store.calls, "no vector store writes")
	assert.FileExists(t, report.Path(dir, "u1"), "report written before the failure stays")
}

func TestRun_ReadFailure(t *testing.T) {
	want := errors.New("db down")
	store := &fakeStore{}
	pl, dir := newPipeline(t, &fakeReader{err: want}, okProvider(), store)

	_, err := pl.Run(context.Background(), "u1")
	assert.ErrorIs(t, err, want)

	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.StageReading, se.Stage)
	assert.Empty(t, store.calls)

	_, statErr := os.Stat(report.Path(dir, "u1"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_StoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("weaviate unavailable")}
	pl, _ := newPipeline(t, &fakeReader{records: twoRecords()}, okProvider(), store)

	_, err := pl.Run(context.Background(), "u1")
	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.StageStoring, se.Stage)
	assert.True(t, strings.Contains(err.Error(), "weaviate unavailable"))
}

func TestRun_StageTimeout(t *testing.T) {
	pl, err := pipeline.New(pipeline.Config{
		OutputDir:    t.TempDir(),
		ChunkSize:    100,
		ChunkOverlap: 10,
		StageTimeout: 20 * time.Millisecond,
	}, &fakeReader{block: true}, report.NewRenderer(""), newEmbedder(t, okProvider()), &fakeStore{})
	require.NoError(t, err)

	_, err = pl.Run(context.Background(), "u1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_MissingUser(t *testing.T) {
	pl, _ := newPipeline(t, &fakeReader{}, okProvider(), &fakeStore{})
	_, err := pl.Run(context.Background(), "")
	assert.ErrorIs(t, err, pipeline.ErrMissingUserID)
}

func TestNew_InvalidChunkConfig(t *testing.T) {
	_, err := pipeline.New(pipeline.Config{
		OutputDir:    t.TempDir(),
		ChunkSize:    100,
		ChunkOverlap: 100,
	}, &fakeReader{}, report.NewRenderer(""), newEmbedder(t, okProvider()), &fakeStore{})
	assert.ErrorIs(t, err, text.ErrInvalidChunkConfig)
}

func TestStageError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &pipeline.StageError{Stage: pipeline.StageRendering, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "pipeline rendering: boom", err.Error())
}
