package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

func newTestEntity(tenantID, id, name string) *types.Entity {
	now := time.Now().UTC().Truncate(time.Second)
	return &types.Entity{
		ID:         id,
		TenantID:   tenantID,
		Name:       name,
		EntityType: types.EntityPerson,
		Confidence: 0.7,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestEntityAdapterCreateAndGetRoundTrips(t *testing.T) {
	store := newTestStore(t)
	adapter := EntityAdapter{S: store}
	ctx := context.Background()

	e := newTestEntity("tenant-a", "ent-1", "Ada Lovelace")
	e.Embedding = []float32{0.1, 0.2, 0.3}
	if err := adapter.Create(ctx, e); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := adapter.Get(ctx, "tenant-a", "ent-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Name != "Ada Lovelace" || len(got.Embedding) != 3 {
		t.Errorf("Get(): got %+v, want Name=%q and 3-dim embedding", got, "Ada Lovelace")
	}
}

func TestEntityAdapterFindByNameIsCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	adapter := EntityAdapter{S: store}
	ctx := context.Background()

	if err := adapter.Create(ctx, newTestEntity("tenant-a", "ent-1", "Ada Lovelace")); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := adapter.FindByName(ctx, "tenant-a", "ada lovelace")
	if err != nil {
		t.Fatalf("FindByName() failed: %v", err)
	}
	if got.ID != "ent-1" {
		t.Errorf("FindByName(): got ID %q, want %q", got.ID, "ent-1")
	}
}

func TestEntityAdapterFindByNameMatchesAlias(t *testing.T) {
	store := newTestStore(t)
	adapter := EntityAdapter{S: store}
	ctx := context.Background()

	e := newTestEntity("tenant-a", "ent-1", "Ada Lovelace")
	e.Aliases = []string{"Ada", "Countess of Lovelace"}
	if err := adapter.Create(ctx, e); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := adapter.FindByName(ctx, "tenant-a", "ada")
	if err != nil {
		t.Fatalf("FindByName() via alias failed: %v", err)
	}
	if got.ID != "ent-1" {
		t.Errorf("FindByName() via alias: got ID %q, want %q", got.ID, "ent-1")
	}
}

func TestEntityAdapterListFiltersByTenantAndType(t *testing.T) {
	store := newTestStore(t)
	adapter := EntityAdapter{S: store}
	ctx := context.Background()

	person := newTestEntity("tenant-a", "ent-1", "Ada")
	person.EntityType = types.EntityPerson
	tool := newTestEntity("tenant-a", "ent-2", "Postgres")
	tool.EntityType = types.EntityTool
	other := newTestEntity("tenant-b", "ent-3", "Grace")

	for _, e := range []*types.Entity{person, tool, other} {
		if err := adapter.Create(ctx, e); err != nil {
			t.Fatalf("Create(%s) failed: %v", e.ID, err)
		}
	}

	result, err := adapter.List(ctx, storage.EntityQuery{TenantID: "tenant-a", EntityType: types.EntityPerson})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != "ent-1" {
		t.Errorf("List(person in tenant-a): got %+v, want only ent-1", result.Items)
	}
}

func TestEntityAdapterUpdateWithStaleVersionConflicts(t *testing.T) {
	store := newTestStore(t)
	adapter := EntityAdapter{S: store}
	ctx := context.Background()

	e := newTestEntity("tenant-a", "ent-1", "Ada")
	if err := adapter.Create(ctx, e); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	stale := *e
	if err := adapter.Update(ctx, e); err != nil {
		t.Fatalf("first Update() failed: %v", err)
	}

	err := adapter.Update(ctx, &stale)
	if !errors.Is(err, types.ErrConflict) {
		t.Errorf("Update() with stale version: got err %v, want ErrConflict", err)
	}
}

func TestEntityAdapterDeleteIsNotFoundOnSecondCall(t *testing.T) {
	store := newTestStore(t)
	adapter := EntityAdapter{S: store}
	ctx := context.Background()

	e := newTestEntity("tenant-a", "ent-1", "Ada")
	if err := adapter.Create(ctx, e); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := adapter.Delete(ctx, "tenant-a", "ent-1"); err != nil {
		t.Fatalf("first Delete() failed: %v", err)
	}
	err := adapter.Delete(ctx, "tenant-a", "ent-1")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("second Delete(): got err %v, want ErrNotFound", err)
	}
}
