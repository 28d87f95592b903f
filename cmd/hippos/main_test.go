package main

import (
	"context"
	"testing"

	"github.com/hippos-ai/hippos/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Storage.Engine = "memstore"
	return cfg
}

func TestBuildWiresAMemstoreBackedApp(t *testing.T) {
	a, err := build(testConfig())
	if err != nil {
		t.Fatalf("build() failed: %v", err)
	}
	if a.builder == nil || a.integr == nil || a.patterns == nil || a.profiles == nil {
		t.Errorf("build(): got %+v, want builder, integrator, patterns, and profiles all wired", a)
	}
}

func TestAppIngestRecallRoundTrip(t *testing.T) {
	a, err := build(testConfig())
	if err != nil {
		t.Fatalf("build() failed: %v", err)
	}

	ctx := context.Background()
	if err := a.runIngest(ctx, []string{"-tenant=tenant-a", "-user=user-1", "-content=shipped the release early"}); err != nil {
		t.Fatalf("runIngest() failed: %v", err)
	}
	if err := a.runRecall(ctx, []string{"-tenant=tenant-a", "-user=user-1", "-query=release"}); err != nil {
		t.Fatalf("runRecall() failed: %v", err)
	}
}

func TestAppPatternCreateAndMatch(t *testing.T) {
	a, err := build(testConfig())
	if err != nil {
		t.Fatalf("build() failed: %v", err)
	}

	ctx := context.Background()
	if err := a.runPattern(ctx, []string{"create", "-tenant=tenant-a", "-name=retry", "-trigger=timeout retry", "-solution=back off and retry"}); err != nil {
		t.Fatalf("runPattern(create) failed: %v", err)
	}
	if err := a.runPattern(ctx, []string{"match", "-tenant=tenant-a", "-context=saw a timeout, will retry"}); err != nil {
		t.Fatalf("runPattern(match) failed: %v", err)
	}
}

func TestAppProfileAddFactBelowThresholdFailsVerification(t *testing.T) {
	a, err := build(testConfig())
	if err != nil {
		t.Fatalf("build() failed: %v", err)
	}

	ctx := context.Background()
	if err := a.runProfile(ctx, []string{"add-preference", "-tenant=tenant-a", "-user=user-1", "-key=editor", "-value=vim"}); err != nil {
		t.Fatalf("runProfile(add-preference) failed: %v", err)
	}

	fact, err := a.profiles.AddFact(ctx, "tenant-a", "user-1", "uses vim", "tool", "", 0.6)
	if err != nil {
		t.Fatalf("AddFact() failed: %v", err)
	}
	if err := a.runProfile(ctx, []string{"verify-fact", "-tenant=tenant-a", "-user=user-1", "-fact-id=" + fact.ID}); err == nil {
		t.Fatal("runProfile(verify-fact) below threshold: got nil error, want one")
	}
}

func TestAppIntegrateOnAnEmptyTenantIsANoop(t *testing.T) {
	a, err := build(testConfig())
	if err != nil {
		t.Fatalf("build() failed: %v", err)
	}
	if err := a.runIntegrate(context.Background(), []string{"-tenant=tenant-a"}); err != nil {
		t.Fatalf("runIntegrate() on an empty tenant failed: %v", err)
	}
}
