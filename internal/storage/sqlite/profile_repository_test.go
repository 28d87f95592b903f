package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hippos-ai/hippos/pkg/types"
)

func newTestProfile(tenantID, id, userID string) *types.Profile {
	now := time.Now().UTC().Truncate(time.Second)
	return &types.Profile{
		ID:                id,
		TenantID:          tenantID,
		UserID:            userID,
		Name:              "Ada",
		OverallConfidence: 0.5,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestProfileAdapterCreateAndGetRoundTrips(t *testing.T) {
	store := newTestStore(t)
	adapter := ProfileAdapter{S: store}
	ctx := context.Background()

	p := newTestProfile("tenant-a", "prof-1", "user-1")
	p.Interests = []string{"go", "databases"}
	if err := adapter.Create(ctx, p); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := adapter.Get(ctx, "tenant-a", "prof-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.UserID != "user-1" || len(got.Interests) != 2 {
		t.Errorf("Get(): got %+v, want UserID=user-1 and 2 interests", got)
	}
}

func TestProfileAdapterGetByUserFindsTheProfile(t *testing.T) {
	store := newTestStore(t)
	adapter := ProfileAdapter{S: store}
	ctx := context.Background()

	p := newTestProfile("tenant-a", "prof-1", "user-1")
	if err := adapter.Create(ctx, p); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	got, err := adapter.GetByUser(ctx, "tenant-a", "user-1")
	if err != nil {
		t.Fatalf("GetByUser() failed: %v", err)
	}
	if got.ID != "prof-1" {
		t.Errorf("GetByUser(): got ID %q, want %q", got.ID, "prof-1")
	}
}

func TestProfileAdapterCreateRejectsDuplicateUser(t *testing.T) {
	store := newTestStore(t)
	adapter := ProfileAdapter{S: store}
	ctx := context.Background()

	if err := adapter.Create(ctx, newTestProfile("tenant-a", "prof-1", "user-1")); err != nil {
		t.Fatalf("first Create() failed: %v", err)
	}
	err := adapter.Create(ctx, newTestProfile("tenant-a", "prof-2", "user-1"))
	if !errors.Is(err, types.ErrConflict) {
		t.Errorf("second Create() for the same user: got err %v, want ErrConflict", err)
	}
}

func TestProfileAdapterUpdateAdvancesVersion(t *testing.T) {
	store := newTestStore(t)
	adapter := ProfileAdapter{S: store}
	ctx := context.Background()

	p := newTestProfile("tenant-a", "prof-1", "user-1")
	if err := adapter.Create(ctx, p); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	p.Role = "engineer"
	if err := adapter.Update(ctx, p); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if p.Version != 1 {
		t.Errorf("Version after update: got %d, want 1", p.Version)
	}

	got, err := adapter.Get(ctx, "tenant-a", "prof-1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Role != "engineer" {
		t.Errorf("Role after update: got %q, want %q", got.Role, "engineer")
	}
}

func TestProfileAdapterDeleteIsNotFoundOnSecondCall(t *testing.T) {
	store := newTestStore(t)
	adapter := ProfileAdapter{S: store}
	ctx := context.Background()

	p := newTestProfile("tenant-a", "prof-1", "user-1")
	if err := adapter.Create(ctx, p); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if err := adapter.Delete(ctx, "tenant-a", "prof-1"); err != nil {
		t.Fatalf("first Delete() failed: %v", err)
	}
	err := adapter.Delete(ctx, "tenant-a", "prof-1")
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("second Delete(): got err %v, want ErrNotFound", err)
	}
}
