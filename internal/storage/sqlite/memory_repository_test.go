package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestMemory(tenantID, id string) *types.Memory {
	now := time.Now().UTC().Truncate(time.Second)
	return &types.Memory{
		ID:         id,
		TenantID:   tenantID,
		UserID:     "user-1",
		Kind:       types.KindEpisodic,
		Source:     types.SourceConversation,
		Content:    "paid the invoice a day early",
		Gist:       "paid invoice early",
		Importance: 0.4,
		Confidence: 0.9,
		CreatedAt:  now,
		UpdatedAt:  now,
		AccessedAt: now,
		Status:     types.StatusActive,
	}
}

func TestCreateAndGetRoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mem := newTestMemory("tenant-a", "mem-1")
	mem.Keywords = []string{"invoice", "payment"}
	mem.Embedding = []float32{0.1, 0.2, 0.3}

	if err := store.Create(ctx, mem); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := store.Get(ctx, "tenant-a", "mem-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Content != mem.Content {
		t.Errorf("Content: got %q, want %q", got.Content, mem.Content)
	}
	if len(got.Keywords) != 2 || got.Keywords[0] != "invoice" {
		t.Errorf("Keywords: got %v, want [invoice payment]", got.Keywords)
	}
	if len(got.Embedding) != 3 {
		t.Errorf("Embedding: got length %d, want 3", len(got.Embedding))
	}
	if got.Version != 0 {
		t.Errorf("Version: got %d, want 0", got.Version)
	}
}

func TestGetIsTenantScoped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mem := newTestMemory("tenant-a", "mem-1")
	if err := store.Create(ctx, mem); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	_, err := store.Get(ctx, "tenant-b", "mem-1")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Get() across tenants: got err %v, want ErrNotFound", err)
	}
}

func TestUpdateAdvancesVersion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mem := newTestMemory("tenant-a", "mem-1")
	if err := store.Create(ctx, mem); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	mem.Content = "paid the invoice, a week early actually"
	if err := store.Update(ctx, mem); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if mem.Version != 1 {
		t.Errorf("Version after update: got %d, want 1", mem.Version)
	}

	got, err := store.Get(ctx, "tenant-a", "mem-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("persisted Version: got %d, want 1", got.Version)
	}
}

func TestUpdateWithStaleVersionConflicts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mem := newTestMemory("tenant-a", "mem-1")
	if err := store.Create(ctx, mem); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	stale := mem.Clone()
	mem.Content = "first writer wins"
	if err := store.Update(ctx, mem); err != nil {
		t.Fatalf("first Update() failed: %v", err)
	}

	stale.Content = "second writer loses"
	err := store.Update(ctx, stale)
	if !errors.Is(err, types.ErrConflict) {
		t.Errorf("second Update() with stale version: got err %v, want ErrConflict", err)
	}
}

func TestUpdateMissingRowReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mem := newTestMemory("tenant-a", "does-not-exist")
	err := store.Update(ctx, mem)
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Update() on missing row: got err %v, want ErrNotFound", err)
	}
}

func TestListFiltersByTenantAndKind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a1 := newTestMemory("tenant-a", "mem-1")
	a2 := newTestMemory("tenant-a", "mem-2")
	a2.Kind = types.KindSemantic
	b1 := newTestMemory("tenant-b", "mem-3")
	for _, m := range []*types.Memory{a1, a2, b1} {
		if err := store.Create(ctx, m); err != nil {
			t.Fatalf("Create(%s) failed: %v", m.ID, err)
		}
	}

	result, err := store.List(ctx, storage.MemoryQuery{
		TenantID: "tenant-a",
		Kinds:    []string{string(types.KindEpisodic)},
	})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != "mem-1" {
		t.Errorf("List() with kind filter: got %v, want exactly [mem-1]", result.Items)
	}
}

func TestFindBySourceIDSupportsIdempotentIngestion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mem := newTestMemory("tenant-a", "mem-1")
	mem.SourceID = "external-event-42"
	if err := store.Create(ctx, mem); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := store.FindBySourceID(ctx, "tenant-a", "user-1", "external-event-42")
	if err != nil {
		t.Fatalf("FindBySourceID() failed: %v", err)
	}
	if got.ID != "mem-1" {
		t.Errorf("FindBySourceID(): got id %q, want mem-1", got.ID)
	}
}

func TestGetEvolutionChainOrdersOldestToNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v1 := newTestMemory("tenant-a", "mem-v1")
	if err := store.Create(ctx, v1); err != nil {
		t.Fatalf("Create(v1) failed: %v", err)
	}
	v2 := newTestMemory("tenant-a", "mem-v2")
	v2.SupersedesID = "mem-v1"
	if err := store.Create(ctx, v2); err != nil {
		t.Fatalf("Create(v2) failed: %v", err)
	}
	v3 := newTestMemory("tenant-a", "mem-v3")
	v3.SupersedesID = "mem-v2"
	if err := store.Create(ctx, v3); err != nil {
		t.Fatalf("Create(v3) failed: %v", err)
	}

	chain, err := store.GetEvolutionChain(ctx, "tenant-a", "mem-v3")
	if err != nil {
		t.Fatalf("GetEvolutionChain() failed: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("chain length: got %d, want 3", len(chain))
	}
	wantOrder := []string{"mem-v1", "mem-v2", "mem-v3"}
	for i, id := range wantOrder {
		if chain[i].ID != id {
			t.Errorf("chain[%d]: got %q, want %q", i, chain[i].ID, id)
		}
	}
}

func TestDeleteIsNotFoundOnSecondCall(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mem := newTestMemory("tenant-a", "mem-1")
	if err := store.Create(ctx, mem); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := store.Delete(ctx, "tenant-a", "mem-1"); err != nil {
		t.Fatalf("first Delete() failed: %v", err)
	}
	if err := store.Delete(ctx, "tenant-a", "mem-1"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("second Delete(): got err %v, want ErrNotFound", err)
	}
}
