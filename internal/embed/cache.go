package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const cacheTTL = 30 * 24 * time.Hour

// Cache persists vectors keyed by model and text.
type Cache struct {
	db *badger.DB
}

type badgerLogger struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, items ...any) {
	l.logger.Error(fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Warningf(msg string, items ...any) {
	l.logger.Warn(fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Infof(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

func (l *badgerLogger) Debugf(msg string, items ...any) {
	l.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenCache opens a badger store at dir. An empty dir keeps it in memory.
func OpenCache(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(model, text string) []byte {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return append([]byte("emb:"), h.Sum(nil)...)
}

func (c *Cache) Get(model, text string) ([]float32, bool, error) {
	var vec []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(model, text))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			vec = decodeVector(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

func (c *Cache) Put(model, text string, vec []float32) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(cacheKey(model, text), encodeVector(vec)).WithTTL(cacheTTL)
		return txn.SetEntry(e)
	})
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

// CachedProvider serves vectors from the cache and fills it on a miss.
// Cache failures are logged and fall through to the provider.
type CachedProvider struct {
	next  Provider
	cache *Cache
	model string
}

func NewCachedProvider(next Provider, cache *Cache, model string) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, model: model}
}

func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok, err := p.cache.Get(p.model, text); err != nil {
		slog.WarnContext(ctx, "embedding cache read failed", "error", err)
	} else if ok {
		return vec, nil
	}

	vec, err := p.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Put(p.model, text, vec); err != nil {
		slog.WarnContext(ctx, "embedding cache write failed", "error", err)
	}
	return vec, nil
}
