package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/hippos-ai/hippos/pkg/types"
)

func TestHashingEmbedderIsDeterministic(t *testing.T) {
	h := NewHashingEmbedder(32)
	ctx := context.Background()

	a, err := h.Embed(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("Embed() failed: %v", err)
	}
	b, err := h.Embed(ctx, "the quick brown fox")
	if err != nil {
		t.Fatalf("Embed() failed: %v", err)
	}
	if len(a) != 32 {
		t.Fatalf("len(a): got %d, want 32", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings of identical text diverge at index %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestHashingEmbedderNormalizesWhitespaceAndCase(t *testing.T) {
	h := NewHashingEmbedder(16)
	ctx := context.Background()

	a, err := h.Embed(ctx, "Hello   World")
	if err != nil {
		t.Fatalf("Embed() failed: %v", err)
	}
	b, err := h.Embed(ctx, "hello world")
	if err != nil {
		t.Fatalf("Embed() failed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings diverge at index %d despite only case/whitespace differing", i)
		}
	}
}

func TestHashingEmbedderDiffersForDifferentText(t *testing.T) {
	h := NewHashingEmbedder(16)
	ctx := context.Background()

	a, err := h.Embed(ctx, "database connection pool")
	if err != nil {
		t.Fatalf("Embed() failed: %v", err)
	}
	b, err := h.Embed(ctx, "weather is nice today")
	if err != nil {
		t.Fatalf("Embed() failed: %v", err)
	}

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("embeddings for unrelated text are identical")
	}
}

func TestHashingEmbedderDefaultsDimension(t *testing.T) {
	h := NewHashingEmbedder(0)
	if h.Dimension() != 256 {
		t.Errorf("Dimension(): got %d, want 256", h.Dimension())
	}
}

type flakyProvider struct {
	dimension int
	failUntil int
	calls     int
}

func (f *flakyProvider) Dimension() int { return f.dimension }

func (f *flakyProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failUntil {
		return nil, errors.New("provider unavailable")
	}
	return make([]float32, f.dimension), nil
}

func TestCircuitBreakingEmbedderFailsFastOnceOpen(t *testing.T) {
	inner := &flakyProvider{dimension: 8, failUntil: 1000}
	embedder := NewCircuitBreakingEmbedder(inner)
	ctx := context.Background()

	var lastErr error
	for i := 0; i < 3; i++ {
		_, lastErr = embedder.Embed(ctx, "trigger")
	}
	if lastErr == nil {
		t.Fatal("expected failures from the underlying provider before the trip")
	}

	_, err := embedder.Embed(ctx, "one more")
	if !errors.Is(err, types.ErrBackend) {
		t.Errorf("Embed() once the breaker is open: got err %v, want wrapping ErrBackend", err)
	}
}

func TestCircuitBreakingEmbedderPassesThroughOnSuccess(t *testing.T) {
	inner := &flakyProvider{dimension: 4, failUntil: 0}
	embedder := NewCircuitBreakingEmbedder(inner)

	out, err := embedder.Embed(context.Background(), "fine")
	if err != nil {
		t.Fatalf("Embed() failed: %v", err)
	}
	if len(out) != 4 {
		t.Errorf("len(out): got %d, want 4", len(out))
	}
	if embedder.Dimension() != 4 {
		t.Errorf("Dimension(): got %d, want 4", embedder.Dimension())
	}
}
