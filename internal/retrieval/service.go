package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

const (
	DefaultLimit = 5
	MaxLimit     = 50
)

var ErrEmptyQuery = errors.New("query is required")

type SearchResult struct {
	Content    string  `json:"content"`
	UserID     string  `json:"userId"`
	ChunkKey   string  `json:"chunkKey"`
	ChunkIndex int     `json:"chunkIndex"`
	Distance   float32 `json:"distance"`
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Reranker interface {
	Enabled() bool
	Rerank(ctx context.Context, query string, docs []string) ([]int, error)
}

type VectorStore interface {
	Search(ctx context.Context, userID string, vector []float32, limit int) ([]SearchResult, error)
}

// Service answers natural-language queries against one user's indexed chunks.
type Service struct {
	embedder Embedder
	store    VectorStore
	logger   *QueryLogger
	reranker Reranker
}

type Option func(*Service)

// WithReranker over-fetches candidates from the store and lets r pick the
// final order.
func WithReranker(r Reranker) Option {
	return func(s *Service) { s.reranker = r }
}

func NewService(e Embedder, s VectorStore, l *QueryLogger, opts ...Option) *Service {
	svc := &Service{embedder: e, store: s, logger: l}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) Search(ctx context.Context, userID, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	start := time.Now()
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	rerank := s.reranker != nil && s.reranker.Enabled()
	fetch := limit
	if rerank {
		fetch = min(limit*3, MaxLimit)
	}

	docs, err := s.store.Search(ctx, userID, vec, fetch)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []SearchResult{}
	}
	if rerank && len(docs) > 1 {
		docs = s.rerank(ctx, query, docs)
	}
	if len(docs) > limit {
		docs = docs[:limit]
	}

	if s.logger != nil {
		keys := make([]string, len(docs))
		for i, d := range docs {
			keys[i] = d.ChunkKey
		}
		s.logger.Log(ctx, QueryLogEntry{
			UserID:     userID,
			Query:      query,
			NumResults: len(docs),
			ChunkKeys:  keys,
			Reranked:   rerank,
			Duration:   time.Since(start),
		})
	}
	return docs, nil
}

// rerank keeps the vector order when the reranker fails.
func (s *Service) rerank(ctx context.Context, query string, docs []SearchResult) []SearchResult {
	contents := make([]string, len(docs))
	for i, d := range docs {
		contents[i] = d.Content
	}
	order, err := s.reranker.Rerank(ctx, query, contents)
	if err != nil {
		slog.WarnContext(ctx, "rerank failed, using vector order", "error", err)
		return docs
	}
	out := make([]SearchResult, 0, len(order))
	for _, i := range order {
		if i >= 0 && i < len(docs) {
			out = append(out, docs[i])
		}
	}
	return out
}
