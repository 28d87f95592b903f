package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/hippos-ai/hippos/internal/engine"
	"github.com/hippos-ai/hippos/internal/storage/memstore"
	"github.com/hippos-ai/hippos/pkg/types"
)

func TestIntegratorDecaysImportanceAfterWindowElapses(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	old := &types.Memory{
		ID: "mem-1", TenantID: "tenant-a", UserID: "user-1",
		Importance: 0.5, Status: types.StatusActive,
		CreatedAt: time.Now().Add(-48 * time.Hour), UpdatedAt: time.Now().Add(-48 * time.Hour),
	}
	if err := store.Create(ctx, old); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	integrator := engine.NewMemoryIntegrator(store, memstore.RelationshipAdapter{S: store}, memstore.EntityAdapter{S: store}, engine.IntegrationConfig{
		DecayWindow:      1 * time.Hour,
		DecayFactor:      0.9,
		ArchiveThreshold: 0.01,
		BatchSize:        100,
	})

	stats, err := integrator.Run(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if stats.Decayed != 1 {
		t.Errorf("Decayed: got %d, want 1", stats.Decayed)
	}

	got, err := store.Get(ctx, "tenant-a", "mem-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Importance >= old.Importance {
		t.Errorf("Importance after decay: got %v, want less than original %v", got.Importance, 0.5)
	}
}

func TestIntegratorArchivesBelowThreshold(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	mem := &types.Memory{
		ID: "mem-1", TenantID: "tenant-a", UserID: "user-1",
		Importance: 0.02, Status: types.StatusActive,
		CreatedAt: time.Now().Add(-100 * time.Hour), UpdatedAt: time.Now().Add(-100 * time.Hour),
	}
	if err := store.Create(ctx, mem); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	integrator := engine.NewMemoryIntegrator(store, memstore.RelationshipAdapter{S: store}, memstore.EntityAdapter{S: store}, engine.IntegrationConfig{
		DecayWindow:      1 * time.Hour,
		DecayFactor:      0.99,
		ArchiveThreshold: 0.5,
		BatchSize:        100,
	})

	stats, err := integrator.Run(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if stats.Archived != 1 {
		t.Errorf("Archived: got %d, want 1", stats.Archived)
	}

	got, err := store.Get(ctx, "tenant-a", "mem-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Status != types.StatusArchived {
		t.Errorf("Status: got %q, want %q", got.Status, types.StatusArchived)
	}
}

func TestIntegratorRunIsIdempotentWithinTheSameWindow(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	mem := &types.Memory{
		ID: "mem-1", TenantID: "tenant-a", UserID: "user-1",
		Importance: 0.5, Status: types.StatusActive,
		CreatedAt: time.Now().Add(-48 * time.Hour), UpdatedAt: time.Now().Add(-48 * time.Hour),
	}
	if err := store.Create(ctx, mem); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	integrator := engine.NewMemoryIntegrator(store, memstore.RelationshipAdapter{S: store}, memstore.EntityAdapter{S: store}, engine.IntegrationConfig{
		DecayWindow:      1 * time.Hour,
		DecayFactor:      0.9,
		ArchiveThreshold: 0.01,
		BatchSize:        100,
	})

	if _, err := integrator.Run(ctx, "tenant-a"); err != nil {
		t.Fatalf("first Run() failed: %v", err)
	}
	second, err := integrator.Run(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("second Run() failed: %v", err)
	}
	if second.Decayed != 0 || second.Archived != 0 || second.Merged != 0 || second.Purged != 0 {
		t.Errorf("second Run() within the same window: got %+v, want all zeros", second)
	}
}

func TestIntegratorPrunesRelationshipsBetweenStaleEntities(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	stale := time.Now().Add(-60 * 24 * time.Hour)
	for _, e := range []*types.Entity{
		{ID: "ent-1", TenantID: "tenant-a", Name: "Alice", CreatedAt: stale, UpdatedAt: stale},
		{ID: "ent-2", TenantID: "tenant-a", Name: "Bob", CreatedAt: stale, UpdatedAt: stale},
	} {
		if err := store.CreateEntity(ctx, e); err != nil {
			t.Fatalf("CreateEntity() failed: %v", err)
		}
	}
	rel := &types.Relationship{
		ID: "rel-1", TenantID: "tenant-a", SourceEntityID: "ent-1", TargetEntityID: "ent-2",
		Type: "knows", Strength: 0.2, CreatedAt: stale, UpdatedAt: stale,
	}
	if err := store.CreateRelationship(ctx, rel); err != nil {
		t.Fatalf("CreateRelationship() failed: %v", err)
	}

	integrator := engine.NewMemoryIntegrator(store, memstore.RelationshipAdapter{S: store}, memstore.EntityAdapter{S: store}, engine.IntegrationConfig{
		DecayWindow:               time.Hour,
		DecayFactor:               1,
		ArchiveThreshold:          0,
		RelationshipRefreshWindow: 30 * 24 * time.Hour,
		RelationshipDecayFactor:   0.9,
		StrengthPruneThreshold:    0.05,
		BatchSize:                 100,
	})

	stats, err := integrator.Run(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if stats.Pruned != 0 {
		t.Errorf("Pruned after first decay step: got %d, want 0 (0.2*0.9=0.18 is still above 0.05)", stats.Pruned)
	}

	got, err := store.GetRelationship(ctx, "tenant-a", "rel-1")
	if err != nil {
		t.Fatalf("GetRelationship() failed: %v", err)
	}
	if got.Strength >= 0.2 {
		t.Errorf("Strength after refresh sweep: got %v, want decayed below 0.2", got.Strength)
	}
}

func TestIntegratorLeavesRelationshipsBetweenActiveEntitiesAlone(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	now := time.Now().UTC()
	for _, e := range []*types.Entity{
		{ID: "ent-1", TenantID: "tenant-a", Name: "Alice", CreatedAt: now, UpdatedAt: now},
		{ID: "ent-2", TenantID: "tenant-a", Name: "Bob", CreatedAt: now, UpdatedAt: now},
	} {
		if err := store.CreateEntity(ctx, e); err != nil {
			t.Fatalf("CreateEntity() failed: %v", err)
		}
	}
	rel := &types.Relationship{
		ID: "rel-1", TenantID: "tenant-a", SourceEntityID: "ent-1", TargetEntityID: "ent-2",
		Type: "knows", Strength: 0.2, CreatedAt: now, UpdatedAt: now,
	}
	if err := store.CreateRelationship(ctx, rel); err != nil {
		t.Fatalf("CreateRelationship() failed: %v", err)
	}

	integrator := engine.NewMemoryIntegrator(store, memstore.RelationshipAdapter{S: store}, memstore.EntityAdapter{S: store}, engine.IntegrationConfig{
		DecayWindow:               time.Hour,
		DecayFactor:               1,
		ArchiveThreshold:          0,
		RelationshipRefreshWindow: 30 * 24 * time.Hour,
		RelationshipDecayFactor:   0.9,
		StrengthPruneThreshold:    0.05,
		BatchSize:                 100,
	})

	if _, err := integrator.Run(ctx, "tenant-a"); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	got, err := store.GetRelationship(ctx, "tenant-a", "rel-1")
	if err != nil {
		t.Fatalf("GetRelationship() failed: %v", err)
	}
	if got.Strength != 0.2 {
		t.Errorf("Strength for an edge between recently-active entities: got %v, want unchanged 0.2", got.Strength)
	}
}
