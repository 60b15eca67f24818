package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

// Provider turns one piece of text into a vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Embedded struct {
	Text   string
	Vector []float32
}

// PartialError reports chunks that could not be embedded after all retries.
// Results holds every item, with a nil Vector at each failed index.
type PartialError struct {
	Failed  []int
	Errs    map[int]error
	Results []Embedded
}

func (e *PartialError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, i := range e.Failed {
		parts = append(parts, fmt.Sprintf("%d: %v", i, e.Errs[i]))
	}
	return fmt.Sprintf("embedding failed for %d chunk(s): %s", len(e.Failed), strings.Join(parts, "; "))
}

// Unwrap exposes the per-item causes to errors.Is/As.
func (e *PartialError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, i := range e.Failed {
		errs = append(errs, e.Errs[i])
	}
	return errs
}

type Options struct {
	Concurrency int
	MaxAttempts int
	BaseDelay   time.Duration
	CallTimeout time.Duration
}

func (o *Options) defaults() {
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 1
	}
}

type BatchEmbedder struct {
	provider Provider
	pool     *ants.Pool
	opts     Options
}

func NewBatchEmbedder(provider Provider, opts Options) (*BatchEmbedder, error) {
	if provider == nil {
		return nil, errors.New("embedding provider is required")
	}
	opts.defaults()

	pool, err := ants.NewPool(opts.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	return &BatchEmbedder{provider: provider, pool: pool, opts: opts}, nil
}

// Release stops the worker pool.
func (b *BatchEmbedder) Release() {
	b.pool.Release()
}

// EmbedAll embeds every chunk. The result has the same length and order as
// chunks. If any chunk fails permanently a *PartialError is returned.
func (b *BatchEmbedder) EmbedAll(ctx context.Context, chunks []string) ([]Embedded, error) {
	results := make([]Embedded, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		results[i].Text = chunk
		wg.Add(1)
		submitErr := b.pool.Submit(func() {
			defer wg.Done()
			results[i].Vector, errs[i] = b.embedOne(ctx, chunk)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submit chunk %d: %w", i, submitErr)
		}
	}
	wg.Wait()

	var failed []int
	byIndex := make(map[int]error)
	for i, err := range errs {
		if err != nil {
			failed = append(failed, i)
			byIndex[i] = err
		}
	}
	if len(failed) == 0 {
		return results, nil
	}

	sort.Ints(failed)
	slog.WarnContext(ctx, "embedding incomplete", "failed", len(failed), "total", len(chunks))
	return results, &PartialError{Failed: failed, Errs: byIndex, Results: results}
}

func (b *BatchEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := RetryWithBackoff(ctx, func() error {
		callCtx := ctx
		if b.opts.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, b.opts.CallTimeout)
			defer cancel()
		}
		v, err := b.provider.Embed(callCtx, text)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return errors.New("provider returned an empty vector")
		}
		vec = v
		return nil
	}, b.opts.MaxAttempts, b.opts.BaseDelay)
	return vec, err
}
