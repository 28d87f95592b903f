package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/hippos-ai/hippos/pkg/types"
)

// EmbeddingProvider turns text into a fixed-dimension embedding. The
// dimension is fixed per provider instance; callers that change dimension
// must re-embed existing content (the engine surfaces this as a
// configuration-time decision, not a runtime one).
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// HashingEmbedder is the default EmbeddingProvider: a deterministic,
// dependency-free bag-of-words embedding built with the feature-hashing
// trick (hash each token into one of `dimension` buckets, accumulate a
// signed count per bucket, then L2-normalize). Two texts sharing tokens
// land closer together under cosine similarity; two that share nothing
// land near-orthogonal. It has no real semantic notion of similarity
// beyond token overlap, but it is free, offline, and perfectly
// reproducible, which keeps ingestion and recall deterministic in tests
// and in any deployment that has not wired a real model provider.
type HashingEmbedder struct {
	dimension int
}

// NewHashingEmbedder returns a HashingEmbedder producing vectors of the
// given dimension (defaulting to 256 if dimension <= 0).
func NewHashingEmbedder(dimension int) *HashingEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashingEmbedder{dimension: dimension}
}

func (h *HashingEmbedder) Dimension() int { return h.dimension }

func (h *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	out := make([]float32, h.dimension)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(token))
		bucket := binary.LittleEndian.Uint32(sum[0:4]) % uint32(h.dimension)
		sign := float32(1)
		if sum[4]&1 == 1 {
			sign = -1
		}
		out[bucket] += sign
	}

	var norm float64
	for _, v := range out {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range out {
		out[i] = float32(float64(v) / norm)
	}
	return out, nil
}

// CircuitBreakingEmbedder wraps any EmbeddingProvider with a CircuitBreaker
// so a flaky remote model provider cannot stall every ingestion/recall call
// behind it; once open, calls fail fast with types.ErrBackend instead of
// queuing against a provider that is already failing.
type CircuitBreakingEmbedder struct {
	inner   EmbeddingProvider
	breaker *CircuitBreaker
}

// NewCircuitBreakingEmbedder wraps inner with a default-configured breaker.
func NewCircuitBreakingEmbedder(inner EmbeddingProvider) *CircuitBreakingEmbedder {
	return &CircuitBreakingEmbedder{inner: inner, breaker: NewCircuitBreaker()}
}

func (c *CircuitBreakingEmbedder) Dimension() int { return c.inner.Dimension() }

func (c *CircuitBreakingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.inner.Embed(ctx, text)
	})
	if err != nil {
		if err == ErrCircuitOpen {
			return nil, fmt.Errorf("llm: %w: embedding provider circuit open", types.ErrBackend)
		}
		return nil, err
	}
	return result.([]float32), nil
}
