package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

func newTestPattern(tenantID, id string) *types.Pattern {
	now := time.Now().UTC().Truncate(time.Second)
	return &types.Pattern{
		ID:         id,
		TenantID:   tenantID,
		Kind:       types.PatternCommonError,
		Name:       "retry on transient network error",
		Trigger:    "timeout connection reset",
		Tags:       []string{"network", "retry"},
		Confidence: 0.7,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestPatternAdapterCRUD(t *testing.T) {
	store := newTestStore(t)
	adapter := PatternAdapter{S: store}
	ctx := context.Background()

	pat := newTestPattern("tenant-a", "pat-1")
	if err := adapter.Create(ctx, pat); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := adapter.Get(ctx, "tenant-a", "pat-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Name != pat.Name || got.Kind != types.PatternCommonError {
		t.Errorf("Get(): got %+v, want name %q kind %q", got, pat.Name, types.PatternCommonError)
	}

	got.Description = "updated"
	if err := adapter.Update(ctx, got); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("Version after update: got %d, want 1", got.Version)
	}

	if err := adapter.Delete(ctx, "tenant-a", "pat-1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := adapter.Get(ctx, "tenant-a", "pat-1"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Get() after delete: got err %v, want ErrNotFound", err)
	}
}

func TestPatternAdapterListFiltersByTag(t *testing.T) {
	store := newTestStore(t)
	adapter := PatternAdapter{S: store}
	ctx := context.Background()

	p1 := newTestPattern("tenant-a", "pat-1")
	p2 := newTestPattern("tenant-a", "pat-2")
	p2.Tags = []string{"database"}
	for _, p := range []*types.Pattern{p1, p2} {
		if err := adapter.Create(ctx, p); err != nil {
			t.Fatalf("Create(%s) failed: %v", p.ID, err)
		}
	}

	result, err := adapter.List(ctx, storage.PatternQuery{TenantID: "tenant-a", Tags: []string{"network"}})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != "pat-1" {
		t.Errorf("List() tag filter: got %v, want exactly [pat-1]", result.Items)
	}
}

func TestPatternAdapterRecordUsage(t *testing.T) {
	store := newTestStore(t)
	adapter := PatternAdapter{S: store}
	ctx := context.Background()

	pat := newTestPattern("tenant-a", "pat-1")
	if err := adapter.Create(ctx, pat); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	usage := &types.PatternUsage{
		ID:        "patuse-1",
		PatternID: "pat-1",
		Outcome:   0.9,
		UsedAt:    time.Now().UTC(),
	}
	if err := adapter.RecordUsage(ctx, "tenant-a", usage); err != nil {
		t.Errorf("RecordUsage() failed: %v", err)
	}
}
