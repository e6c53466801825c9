package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"landprice/internal/cache"
)

// CachedEmbedder memoizes embeddings in a cache keyed by model, dimensions and text.
// Cache failures are logged and fall through to the wrapped embedder.
type CachedEmbedder struct {
	inner  Embedder
	cache  cache.Client
	model  string
	dims   int
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedEmbedder wraps an embedder with a cache
func NewCachedEmbedder(inner Embedder, c cache.Client, model string, dims int, ttl time.Duration, logger zerolog.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		cache:  c,
		model:  model,
		dims:   dims,
		ttl:    ttl,
		logger: logger.With().Str("component", "embedding_cache").Logger(),
	}
}

// CreateEmbeddings returns cached vectors where present and embeds the rest in one call
func (e *CachedEmbedder) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		raw, err := e.cache.Get(ctx, e.key(text))
		if err == nil {
			if v, decErr := cache.DecodeVector(raw); decErr == nil && len(v) > 0 {
				out[i] = v
				continue
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			e.logger.Warn().Err(err).Msg("embedding cache read failed")
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := e.inner.CreateEmbeddings(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, ErrNoEmbedding
	}

	for j, v := range vectors {
		out[missingIdx[j]] = v
		if err := e.cache.Set(ctx, e.key(missing[j]), cache.EncodeVector(v), e.ttl); err != nil {
			e.logger.Warn().Err(err).Msg("embedding cache write failed")
		}
	}
	return out, nil
}

func (e *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(e.model + "\x00" + strconv.Itoa(e.dims) + "\x00" + text))
	return "emb:" + hex.EncodeToString(sum[:])
}
