// Package embedcache memoizes embedding calls so repeated texts (above
// all repeated queries) do not spend another round trip on the provider.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Embedder is the slice of the AI manager this cache fronts.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedModelName() string
}

func Wrap(next Embedder, size int, ttl time.Duration) Embedder {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &lruEmbedder{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  Embedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return l.embed(ctx, text, "doc", l.next.EmbedDocument)
}

func (l *lruEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return l.embed(ctx, text, "query", l.next.EmbedQuery)
}

func (l *lruEmbedder) EmbedModelName() string {
	return l.next.EmbedModelName()
}

func (l *lruEmbedder) embed(ctx context.Context, text, task string, fn func(context.Context, string) ([]float32, error)) ([]float32, error) {
	key := buildCacheKey(l.next.EmbedModelName(), task, text)
	if cached, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit", zap.String("task", task))
		return cloneEmbedding(cached), nil
	}
	res, err := fn(ctx, text)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, cloneEmbedding(res))
	return res, nil
}

func buildCacheKey(model, task, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + task + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
