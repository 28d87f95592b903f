package engine_test

import (
	"context"
	"math"
	"testing"

	"github.com/hippos-ai/hippos/internal/engine"
	"github.com/hippos-ai/hippos/internal/storage/memstore"
	"github.com/hippos-ai/hippos/pkg/types"
)

func newTestPatternManager(t *testing.T) (*engine.PatternManager, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	pm, err := engine.NewPatternManager(memstore.PatternAdapter{S: store}, store)
	if err != nil {
		t.Fatalf("NewPatternManager() failed: %v", err)
	}
	return pm, store
}

func TestRecordOutcomeRunningMeanMatchesPlainAverage(t *testing.T) {
	pm, store := newTestPatternManager(t)
	ctx := context.Background()

	pat := &types.Pattern{TenantID: "tenant-a", Name: "retry on timeout", Trigger: "timeout retry"}
	if err := pm.Create(ctx, pat); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	outcomes := []float64{1.0, 0.0, 0.8, 0.6, 1.0}
	for _, o := range outcomes {
		if err := pm.RecordOutcome(ctx, "tenant-a", pat.ID, o, "observed"); err != nil {
			t.Fatalf("RecordOutcome(%v) failed: %v", o, err)
		}
	}

	var want float64
	for _, o := range outcomes {
		want += o
	}
	want /= float64(len(outcomes))

	got, err := store.GetPattern(ctx, "tenant-a", pat.ID)
	if err != nil {
		t.Fatalf("GetPattern() failed: %v", err)
	}
	if math.Abs(got.AverageOutcome-want) > 1e-9 {
		t.Errorf("AverageOutcome after %d outcomes: got %v, want %v", len(outcomes), got.AverageOutcome, want)
	}
	if got.UsageCount != len(outcomes) {
		t.Errorf("UsageCount: got %d, want %d", got.UsageCount, len(outcomes))
	}
	if got.SuccessCount+got.FailureCount != len(outcomes) {
		t.Errorf("SuccessCount+FailureCount: got %d, want %d", got.SuccessCount+got.FailureCount, len(outcomes))
	}
}

func TestRecordOutcomeSplitsSuccessAndFailureAtHalf(t *testing.T) {
	pm, store := newTestPatternManager(t)
	ctx := context.Background()

	pat := &types.Pattern{TenantID: "tenant-a", Name: "p", Trigger: "t"}
	if err := pm.Create(ctx, pat); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := pm.RecordOutcome(ctx, "tenant-a", pat.ID, 0.49, ""); err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}
	if err := pm.RecordOutcome(ctx, "tenant-a", pat.ID, 0.5, ""); err != nil {
		t.Fatalf("RecordOutcome() failed: %v", err)
	}

	got, err := store.GetPattern(ctx, "tenant-a", pat.ID)
	if err != nil {
		t.Fatalf("GetPattern() failed: %v", err)
	}
	if got.SuccessCount != 1 || got.FailureCount != 1 {
		t.Errorf("got success=%d failure=%d, want success=1 failure=1 (0.5 boundary counts as success)", got.SuccessCount, got.FailureCount)
	}
}

func TestMatchRanksByTriggerCoverageAndTrackRecord(t *testing.T) {
	pm, _ := newTestPatternManager(t)
	ctx := context.Background()

	strong := &types.Pattern{TenantID: "tenant-a", Name: "strong", Trigger: "timeout retry backoff"}
	weak := &types.Pattern{TenantID: "tenant-a", Name: "weak", Trigger: "timeout unrelated other words"}
	if err := pm.Create(ctx, strong); err != nil {
		t.Fatalf("Create(strong) failed: %v", err)
	}
	if err := pm.Create(ctx, weak); err != nil {
		t.Fatalf("Create(weak) failed: %v", err)
	}

	matches, err := pm.Match(ctx, "tenant-a", "saw a timeout, will retry with backoff", 10)
	if err != nil {
		t.Fatalf("Match() failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches: got %d, want 2", len(matches))
	}
	if matches[0].Pattern.Name != "strong" {
		t.Errorf("top match: got %q, want %q (higher trigger-keyword coverage)", matches[0].Pattern.Name, "strong")
	}
	if matches[0].Score <= matches[1].Score {
		t.Errorf("scores not strictly decreasing: %v then %v", matches[0].Score, matches[1].Score)
	}
}

func TestMatchSupportsRegexTrigger(t *testing.T) {
	pm, _ := newTestPatternManager(t)
	ctx := context.Background()

	pat := &types.Pattern{TenantID: "tenant-a", Name: "error code", Trigger: "re:error code [0-9]+"}
	if err := pm.Create(ctx, pat); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	matches, err := pm.Match(ctx, "tenant-a", "saw error code 42 in the logs", 10)
	if err != nil {
		t.Fatalf("Match() failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches: got %d, want 1", len(matches))
	}
}
