// Package index provides the two retrieval channels the recall pipeline
// fuses with RRF: a vector similarity index and a lexical keyword index.
// Both default implementations are in-process and brute-force; a backend
// may supply a native alternative (e.g. postgres.PgvectorIndex) that
// satisfies the same interface.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ScoredID is one ranked result from either channel, along with its raw
// similarity/relevance score (not yet RRF-fused).
type ScoredID struct {
	ID    string
	Score float64
}

// VectorIndex finds the nearest neighbors of a query embedding, scoped to a
// tenant. Implementations must tolerate an empty index (return no results,
// not an error).
type VectorIndex interface {
	Upsert(ctx context.Context, tenantID, id string, embedding []float32) error
	Delete(ctx context.Context, tenantID, id string) error
	Query(ctx context.Context, tenantID string, embedding []float32, topK int) ([]ScoredID, error)
}

// BruteForceIndex computes cosine similarity against every vector held for
// a tenant. It is the default VectorIndex: adequate up to a few tens of
// thousands of vectors per tenant, the scale the spec targets for the
// reference deployment.
type BruteForceIndex struct {
	mu      sync.RWMutex
	vectors map[string]map[string][]float32 // tenantID -> id -> embedding
}

// NewBruteForceIndex returns an empty index.
func NewBruteForceIndex() *BruteForceIndex {
	return &BruteForceIndex{vectors: make(map[string]map[string][]float32)}
}

func (b *BruteForceIndex) Upsert(ctx context.Context, tenantID, id string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("index: empty embedding for %s", id)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	tenant, ok := b.vectors[tenantID]
	if !ok {
		tenant = make(map[string][]float32)
		b.vectors[tenantID] = tenant
	}
	tenant[id] = append([]float32(nil), embedding...)
	return nil
}

func (b *BruteForceIndex) Delete(ctx context.Context, tenantID, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tenant, ok := b.vectors[tenantID]; ok {
		delete(tenant, id)
	}
	return nil
}

func (b *BruteForceIndex) Query(ctx context.Context, tenantID string, embedding []float32, topK int) ([]ScoredID, error) {
	if topK <= 0 {
		topK = 10
	}
	b.mu.RLock()
	tenant := b.vectors[tenantID]
	scored := make([]ScoredID, 0, len(tenant))
	for id, vec := range tenant {
		scored = append(scored, ScoredID{ID: id, Score: cosineSimilarity(embedding, vec)})
	}
	b.mu.RUnlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// EmbeddingCache bounds the number of distinct (content -> embedding) pairs
// held in memory, evicting least-recently-used entries once full. It sits in
// front of the configured EmbeddingProvider so repeated ingestion or recall
// of the same text does not re-invoke the provider.
type EmbeddingCache struct {
	cache *lru.Cache[string, []float32]
}

// NewEmbeddingCache returns a cache holding at most size entries.
func NewEmbeddingCache(size int) (*EmbeddingCache, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("index: building embedding cache: %w", err)
	}
	return &EmbeddingCache{cache: c}, nil
}

func (e *EmbeddingCache) Get(key string) ([]float32, bool) {
	return e.cache.Get(key)
}

func (e *EmbeddingCache) Put(key string, embedding []float32) {
	e.cache.Add(key, embedding)
}

func (e *EmbeddingCache) Len() int {
	return e.cache.Len()
}
