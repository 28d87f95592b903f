package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hippos-ai/hippos/internal/engine"
	"github.com/hippos-ai/hippos/internal/storage/memstore"
	"github.com/hippos-ai/hippos/pkg/types"
)

func newTestProfileManager() *engine.ProfileManager {
	return engine.NewProfileManager(memstore.ProfileAdapter{S: memstore.New()}, 0.7)
}

func TestGetOrCreateCreatesOnFirstUse(t *testing.T) {
	mgr := newTestProfileManager()
	ctx := context.Background()

	p, err := mgr.GetOrCreate(ctx, "tenant-a", "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}
	if p.UserID != "user-1" {
		t.Errorf("UserID: got %q, want %q", p.UserID, "user-1")
	}
}

func TestGetOrCreateReturnsSameProfileOnSecondCall(t *testing.T) {
	mgr := newTestProfileManager()
	ctx := context.Background()

	first, err := mgr.GetOrCreate(ctx, "tenant-a", "user-1")
	if err != nil {
		t.Fatalf("first GetOrCreate() failed: %v", err)
	}
	second, err := mgr.GetOrCreate(ctx, "tenant-a", "user-1")
	if err != nil {
		t.Fatalf("second GetOrCreate() failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("ID mismatch across calls: got %q then %q, want the same profile", first.ID, second.ID)
	}
}

func TestAddFactStartsUnverifiedAtDefaultConfidence(t *testing.T) {
	mgr := newTestProfileManager()
	ctx := context.Background()

	if _, err := mgr.GetOrCreate(ctx, "tenant-a", "user-1"); err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}

	fact, err := mgr.AddFact(ctx, "tenant-a", "user-1", "prefers dark mode", "personal", "mem-1", 0)
	if err != nil {
		t.Fatalf("AddFact() failed: %v", err)
	}
	if fact.Verified {
		t.Error("AddFact(): got Verified=true, want false until explicitly verified")
	}
	if fact.Confidence != 0.7 {
		t.Errorf("AddFact() Confidence: got %v, want 0.7", fact.Confidence)
	}
}

func TestAddFactNormalizesUnknownCategoryToOther(t *testing.T) {
	mgr := newTestProfileManager()
	ctx := context.Background()
	if _, err := mgr.GetOrCreate(ctx, "tenant-a", "user-1"); err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}

	fact, err := mgr.AddFact(ctx, "tenant-a", "user-1", "likes tea", "beverage-preferences", "mem-1", 0.7)
	if err != nil {
		t.Fatalf("AddFact() failed: %v", err)
	}
	if fact.Category != "other" {
		t.Errorf("Category: got %q, want %q", fact.Category, "other")
	}
}

func TestVerifyFactRaisesConfidenceAndSetsVerified(t *testing.T) {
	mgr := newTestProfileManager()
	ctx := context.Background()
	if _, err := mgr.GetOrCreate(ctx, "tenant-a", "user-1"); err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}
	fact, err := mgr.AddFact(ctx, "tenant-a", "user-1", "prefers dark mode", "personal", "mem-1", 0.7)
	if err != nil {
		t.Fatalf("AddFact() failed: %v", err)
	}

	if err := mgr.VerifyFact(ctx, "tenant-a", "user-1", fact.ID); err != nil {
		t.Fatalf("VerifyFact() failed: %v", err)
	}

	p, err := mgr.GetOrCreate(ctx, "tenant-a", "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate() after verify failed: %v", err)
	}
	if !p.Facts[0].Verified || p.Facts[0].Confidence != 0.95 {
		t.Errorf("fact after VerifyFact(): got %+v, want Verified=true Confidence=0.95", p.Facts[0])
	}
	if p.LastVerified == nil {
		t.Error("LastVerified: got nil, want set after VerifyFact()")
	}
}

func TestVerifyFactBelowThresholdLeavesFactUnverified(t *testing.T) {
	mgr := newTestProfileManager()
	ctx := context.Background()
	if _, err := mgr.GetOrCreate(ctx, "tenant-a", "user-1"); err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}
	fact, err := mgr.AddFact(ctx, "tenant-a", "user-1", "uses vim", "tool", "mem-1", 0.6)
	if err != nil {
		t.Fatalf("AddFact() failed: %v", err)
	}

	if err := mgr.VerifyFact(ctx, "tenant-a", "user-1", fact.ID); err == nil {
		t.Fatal("VerifyFact() below threshold: got nil error, want one")
	}

	p, err := mgr.GetOrCreate(ctx, "tenant-a", "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}
	if p.Facts[0].Verified || p.Facts[0].Confidence != 0.6 {
		t.Errorf("fact after failed verification: got %+v, want Verified=false Confidence=0.6", p.Facts[0])
	}
}

func TestVerifyFactUnknownIDReturnsNotFound(t *testing.T) {
	mgr := newTestProfileManager()
	ctx := context.Background()
	if _, err := mgr.GetOrCreate(ctx, "tenant-a", "user-1"); err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}

	err := mgr.VerifyFact(ctx, "tenant-a", "user-1", "fact-does-not-exist")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("VerifyFact() with unknown id: got err %v, want ErrNotFound", err)
	}
}

func TestAddToolIsIdempotent(t *testing.T) {
	mgr := newTestProfileManager()
	ctx := context.Background()
	if _, err := mgr.GetOrCreate(ctx, "tenant-a", "user-1"); err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}

	if err := mgr.AddTool(ctx, "tenant-a", "user-1", "vim"); err != nil {
		t.Fatalf("first AddTool() failed: %v", err)
	}
	if err := mgr.AddTool(ctx, "tenant-a", "user-1", "vim"); err != nil {
		t.Fatalf("second AddTool() failed: %v", err)
	}

	p, err := mgr.GetOrCreate(ctx, "tenant-a", "user-1")
	if err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}
	if len(p.ToolsUsed) != 1 {
		t.Errorf("ToolsUsed: got %v, want exactly one entry", p.ToolsUsed)
	}
}

func TestUpdateAppliesOnlyNonNilFields(t *testing.T) {
	mgr := newTestProfileManager()
	ctx := context.Background()
	if _, err := mgr.GetOrCreate(ctx, "tenant-a", "user-1"); err != nil {
		t.Fatalf("GetOrCreate() failed: %v", err)
	}

	role := "engineer"
	p, err := mgr.Update(ctx, "tenant-a", "user-1", engine.ProfileUpdates{Role: &role})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if p.Role != "engineer" {
		t.Errorf("Role: got %q, want %q", p.Role, "engineer")
	}
	if p.Name != "" {
		t.Errorf("Name: got %q, want untouched empty string", p.Name)
	}
}
