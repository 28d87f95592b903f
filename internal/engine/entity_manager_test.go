package engine_test

import (
	"context"
	"testing"

	"github.com/hippos-ai/hippos/internal/engine"
	"github.com/hippos-ai/hippos/internal/storage/memstore"
	"github.com/hippos-ai/hippos/pkg/types"
)

func newTestEntityManager() (*engine.EntityManager, *memstore.Store) {
	store := memstore.New()
	return engine.NewEntityManager(memstore.EntityAdapter{S: store}, memstore.RelationshipAdapter{S: store}), store
}

func TestDiscoverFromContentExtractsProperNounEntities(t *testing.T) {
	mgr, _ := newTestEntityManager()
	ctx := context.Background()

	result, err := mgr.DiscoverFromContent(ctx, "tenant-a", "mem-1", "Ada Lovelace uses Postgres for the project")
	if err != nil {
		t.Fatalf("DiscoverFromContent() failed: %v", err)
	}
	if len(result.Entities) == 0 {
		t.Fatal("Entities: got none, want at least Ada Lovelace and Postgres")
	}

	var names []string
	for _, e := range result.Entities {
		names = append(names, e.Name)
	}
	if !containsName(names, "Ada Lovelace") {
		t.Errorf("Entities: got %v, want %q among them", names, "Ada Lovelace")
	}
}

func TestDiscoverFromContentExtractsUsesRelationship(t *testing.T) {
	mgr, _ := newTestEntityManager()
	ctx := context.Background()

	result, err := mgr.DiscoverFromContent(ctx, "tenant-a", "mem-1", "Ada Lovelace uses Postgres")
	if err != nil {
		t.Fatalf("DiscoverFromContent() failed: %v", err)
	}
	if len(result.Relationships) == 0 {
		t.Fatal("Relationships: got none, want a uses edge between Ada Lovelace and Postgres")
	}
	if result.Relationships[0].Type != types.RelUses {
		t.Errorf("Relationship type: got %q, want %q", result.Relationships[0].Type, types.RelUses)
	}
}

func TestDiscoverFromContentRedetectionStrengthensInsteadOfDuplicating(t *testing.T) {
	mgr, store := newTestEntityManager()
	ctx := context.Background()

	if _, err := mgr.DiscoverFromContent(ctx, "tenant-a", "mem-1", "Ada Lovelace works on Analytical Engine"); err != nil {
		t.Fatalf("first DiscoverFromContent() failed: %v", err)
	}
	first, err := memstore.EntityAdapter{S: store}.FindByName(ctx, "tenant-a", "ada lovelace")
	if err != nil {
		t.Fatalf("FindByName() after first call failed: %v", err)
	}
	firstConfidence := first.Confidence

	if _, err := mgr.DiscoverFromContent(ctx, "tenant-a", "mem-2", "Ada Lovelace works on Analytical Engine again"); err != nil {
		t.Fatalf("second DiscoverFromContent() failed: %v", err)
	}
	second, err := memstore.EntityAdapter{S: store}.FindByName(ctx, "tenant-a", "ada lovelace")
	if err != nil {
		t.Fatalf("FindByName() after second call failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("redetection created a new entity %q, want the same id %q", second.ID, first.ID)
	}
	if second.Confidence <= firstConfidence {
		t.Errorf("Confidence after redetection: got %v, want greater than %v", second.Confidence, firstConfidence)
	}
}

func TestMergeEntitiesRepointsRelationshipsAndDeletesLoser(t *testing.T) {
	mgr, store := newTestEntityManager()
	ctx := context.Background()
	entities := memstore.EntityAdapter{S: store}
	relationships := memstore.RelationshipAdapter{S: store}

	winner := &types.Entity{ID: "ent-winner", TenantID: "tenant-a", Name: "Postgres"}
	loser := &types.Entity{ID: "ent-loser", TenantID: "tenant-a", Name: "PostgreSQL"}
	other := &types.Entity{ID: "ent-other", TenantID: "tenant-a", Name: "Ada"}
	for _, e := range []*types.Entity{winner, loser, other} {
		if err := entities.Create(ctx, e); err != nil {
			t.Fatalf("Create(%s) failed: %v", e.ID, err)
		}
	}

	rel := &types.Relationship{ID: "rel-1", TenantID: "tenant-a", SourceEntityID: "ent-other", TargetEntityID: "ent-loser", Type: types.RelUses}
	if err := relationships.Create(ctx, rel); err != nil {
		t.Fatalf("Create(rel) failed: %v", err)
	}

	if err := mgr.MergeEntities(ctx, "tenant-a", "ent-winner", "ent-loser"); err != nil {
		t.Fatalf("MergeEntities() failed: %v", err)
	}

	if _, err := entities.Get(ctx, "tenant-a", "ent-loser"); err == nil {
		t.Error("loser entity still exists after merge")
	}

	gotRel, err := relationships.Get(ctx, "tenant-a", "rel-1")
	if err != nil {
		t.Fatalf("Get(rel) failed: %v", err)
	}
	if gotRel.TargetEntityID != "ent-winner" {
		t.Errorf("relationship target after merge: got %q, want %q", gotRel.TargetEntityID, "ent-winner")
	}

	gotWinner, err := entities.Get(ctx, "tenant-a", "ent-winner")
	if err != nil {
		t.Fatalf("Get(winner) failed: %v", err)
	}
	if !containsName(gotWinner.Aliases, "PostgreSQL") {
		t.Errorf("winner aliases: got %v, want %q absorbed from loser", gotWinner.Aliases, "PostgreSQL")
	}
}

func TestPruneWeakRelationshipsRemovesBelowThreshold(t *testing.T) {
	mgr, store := newTestEntityManager()
	ctx := context.Background()
	relationships := memstore.RelationshipAdapter{S: store}

	weak := &types.Relationship{ID: "rel-weak", TenantID: "tenant-a", SourceEntityID: "ent-1", TargetEntityID: "ent-2", Type: types.RelKnows, Strength: 0.1}
	strong := &types.Relationship{ID: "rel-strong", TenantID: "tenant-a", SourceEntityID: "ent-1", TargetEntityID: "ent-3", Type: types.RelKnows, Strength: 0.9}
	for _, r := range []*types.Relationship{weak, strong} {
		if err := relationships.Create(ctx, r); err != nil {
			t.Fatalf("Create(%s) failed: %v", r.ID, err)
		}
	}

	pruned, err := mgr.PruneWeakRelationships(ctx, "tenant-a", "ent-1", 0.5)
	if err != nil {
		t.Fatalf("PruneWeakRelationships() failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned: got %d, want 1", pruned)
	}
	if _, err := relationships.Get(ctx, "tenant-a", "rel-strong"); err != nil {
		t.Errorf("strong relationship was pruned, want it kept: %v", err)
	}
}

func containsName(haystack []string, needle string) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}
	return false
}
