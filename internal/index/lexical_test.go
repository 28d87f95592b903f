package index

import (
	"context"
	"testing"
)

func TestInvertedIndexRanksByTermCoverageAndFrequency(t *testing.T) {
	idx := NewInvertedIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "tenant-a", "mem-1", "the database connection pool timed out"); err != nil {
		t.Fatalf("Upsert(mem-1) failed: %v", err)
	}
	if err := idx.Upsert(ctx, "tenant-a", "mem-2", "the weather is nice today"); err != nil {
		t.Fatalf("Upsert(mem-2) failed: %v", err)
	}

	results, err := idx.Query(ctx, "tenant-a", "database connection pool", 10)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results: got %d, want 1", len(results))
	}
	if results[0].ID != "mem-1" {
		t.Errorf("top result: got %q, want %q", results[0].ID, "mem-1")
	}
}

func TestInvertedIndexIsTenantScoped(t *testing.T) {
	idx := NewInvertedIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "tenant-a", "mem-1", "database connection pool"); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	results, err := idx.Query(ctx, "tenant-b", "database connection pool", 10)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("cross-tenant Query(): got %d results, want 0", len(results))
	}
}

func TestInvertedIndexIgnoresStopwords(t *testing.T) {
	idx := NewInvertedIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "tenant-a", "mem-1", "the connection pool"); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	results, err := idx.Query(ctx, "tenant-a", "the and a", 10)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Query() of pure stopwords: got %d results, want 0", len(results))
	}
}

func TestInvertedIndexDeleteRemovesFromFutureQueries(t *testing.T) {
	idx := NewInvertedIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "tenant-a", "mem-1", "connection pool timeout"); err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}
	if err := idx.Delete(ctx, "tenant-a", "mem-1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	results, err := idx.Query(ctx, "tenant-a", "connection pool timeout", 10)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Query() after Delete(): got %d results, want 0", len(results))
	}
}

func TestInvertedIndexUpsertReplacesPriorContent(t *testing.T) {
	idx := NewInvertedIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, "tenant-a", "mem-1", "original wording about databases"); err != nil {
		t.Fatalf("first Upsert() failed: %v", err)
	}
	if err := idx.Upsert(ctx, "tenant-a", "mem-1", "completely different text about weather"); err != nil {
		t.Fatalf("second Upsert() failed: %v", err)
	}

	results, err := idx.Query(ctx, "tenant-a", "databases", 10)
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Query() for stale term after re-Upsert(): got %d results, want 0", len(results))
	}
}
