package index

import (
	"context"
	"testing"
)

func TestBruteForceIndexRanksByCosineSimilarity(t *testing.T) {
	idx := NewBruteForceIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "tenant-a", "close", []float32{1, 0, 0}); err != nil {
		t.Fatalf("Upsert(close) failed: %v", err)
	}
	if err := idx.Upsert(ctx, "tenant-a", "far", []float32{0, 1, 0}); err != nil {
		t.Fatalf("Upsert(far) failed: %v", err)
	}

	results, err := idx.Query(ctx, "tenant-a", []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}
	if results[0].ID != "close" {
		t.Errorf("top result: got %q, want %q", results[0].ID, "close")
	}
}

func TestBruteForceIndexIsTenantScoped(t *testing.T) {
	idx := NewBruteForceIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "tenant-a", "mem-1", []float32{1, 0}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	results, err := idx.Query(ctx, "tenant-b", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("cross-tenant Query(): got %d results, want 0", len(results))
	}
}

func TestBruteForceIndexDeleteRemovesFromFutureQueries(t *testing.T) {
	idx := NewBruteForceIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "tenant-a", "mem-1", []float32{1, 0}); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := idx.Delete(ctx, "tenant-a", "mem-1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	results, err := idx.Query(ctx, "tenant-a", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Query() after Delete(): got %d results, want 0", len(results))
	}
}

func TestBruteForceIndexRejectsEmptyEmbedding(t *testing.T) {
	idx := NewBruteForceIndex()
	if err := idx.Upsert(context.Background(), "tenant-a", "mem-1", nil); err == nil {
		t.Error("Upsert() with empty embedding: got nil error, want an error")
	}
}

func TestEmbeddingCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache, err := NewEmbeddingCache(2)
	if err != nil {
		t.Fatalf("NewEmbeddingCache() failed: %v", err)
	}

	cache.Put("a", []float32{1})
	cache.Put("b", []float32{2})
	cache.Put("c", []float32{3}) // evicts "a" as the least recently used

	if _, ok := cache.Get("a"); ok {
		t.Error("Get(a) after eviction: got ok=true, want ok=false")
	}
	if _, ok := cache.Get("b"); !ok {
		t.Error("Get(b): got ok=false, want ok=true")
	}
	if cache.Len() != 2 {
		t.Errorf("Len(): got %d, want 2", cache.Len())
	}
}
