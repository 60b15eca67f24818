package app

import (
	"fmt"

	"google.golang.org/api/option"

	"finrag/internal/adapter/gemini"
	"finrag/internal/adapter/openai"
	"finrag/internal/config"
	"finrag/internal/embed"
)

type modelProvider interface {
	embed.Provider
	Model() string
}

// newProvider builds the configured embedding provider, wrapped in the
// badger cache when EMBEDDING_CACHE_DIR is set. The returned closers
// must run on shutdown.
func newProvider(cfg *config.Config) (embed.Provider, []func() error, error) {
	var (
		p       modelProvider
		closers []func() error
	)
	switch cfg.EmbeddingProvider {
	case "openai":
		o, err := openai.NewEmbedder(cfg.EmbeddingEndpoint, cfg.EmbeddingAPIKey, cfg.EmbeddingModel)
		if err != nil {
			return nil, nil, fmt.Errorf("openai embedder: %w", err)
		}
		p = o
	case "gemini", "":
		var opts []option.ClientOption
		if cfg.EmbeddingEndpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.EmbeddingEndpoint))
		}
		g := gemini.NewEmbedder(cfg.EmbeddingAPIKey, cfg.EmbeddingModel, opts...)
		closers = append(closers, g.Close)
		p = g
	default:
		return nil, nil, fmt.Errorf("%w: EMBEDDING_PROVIDER=%q", config.ErrInvalidValue, cfg.EmbeddingProvider)
	}

	if cfg.EmbeddingCacheDir == "" {
		return p, closers, nil
	}
	cache, err := embed.OpenCache(cfg.EmbeddingCacheDir)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, nil, err
	}
	closers = append(closers, cache.Close)
	return embed.NewCachedProvider(p, cache, cfg.EmbeddingProvider+":"+p.Model()), closers, nil
}
