// Package trajectory implements the embedding trajectory store:
// a process-wide, concurrency-safe cache of text embeddings and an
// append-only, per-session sequence of trajectory points.
package trajectory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrEmptyText is returned by Embed for blank input.
var ErrEmptyText = errors.New("trajectory: text must not be empty")

// Embedder is the external collaborator that turns text into a vector. The
// language model or embedding service behind it is out of scope; only this
// shape is fixed.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbedderFunc adapts a plain function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float64, error)

func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}

// CachedEmbedder wraps an Embedder with a process-wide LRU cache keyed by
// the SHA-256 of the (trimmed) text, grounded on the cklxx-elephant.ai LLM
// client cache (internal/infra/llm/factory.go's lru.Cache[string,
// cacheEntry]). The cache outlives any single session.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float64]
}

// NewCachedEmbedder builds a cache holding up to size distinct texts.
func NewCachedEmbedder(inner Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text if present, otherwise delegates
// to the inner embedder and caches the result. Concurrent callers sharing a
// cache miss on the same text may both call the inner embedder; the cache
// is a best-effort optimization, not a single-flight barrier, matching the
// llm cache it's grounded on.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyText
	}
	key := cacheKey(trimmed)
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, v)
	return v, nil
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// StubEmbedder is a deterministic, dependency-free Embedder used when no
// real embedding service is configured (tests, local development). It maps
// each text to a fixed-dimension vector derived from the hash of its
// content, so identical text always embeds identically and distinct text
// almost always embeds distinctly — sufficient for exercising novelty and
// trajectory logic without a real model.
type StubEmbedder struct {
	Dim int
}

// NewStubEmbedder returns a StubEmbedder with the given dimensionality,
// defaulting to 16.
func NewStubEmbedder(dim int) *StubEmbedder {
	if dim <= 0 {
		dim = 16
	}
	return &StubEmbedder{Dim: dim}
}

func (s *StubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyText
	}
	sum := sha256.Sum256([]byte(trimmed))
	vec := make([]float64, s.Dim)
	for i := range vec {
		b := sum[i%len(sum)]
		vec[i] = (float64(b) / 255.0) * 2.0 - 1.0
	}
	return vec, nil
}
