package storage

import (
	"context"

	"github.com/hippos-ai/hippos/pkg/types"
)

// MemoryRepository is the persistence contract for Memory. Every method
// accepts a tenantID (either directly or embedded in the query) and a
// repository implementation must refuse any access whose stored record's
// tenant does not match — surfaced as types.ErrNotFound, never as a
// permission error, so a caller cannot probe for another tenant's data.
type MemoryRepository interface {
	Create(ctx context.Context, m *types.Memory) error
	Get(ctx context.Context, tenantID, id string) (*types.Memory, error)
	// Update uses optimistic concurrency: it fails with types.ErrConflict if
	// the stored version does not equal m.Version at the time of the call,
	// and on success sets m.Version to the new value.
	Update(ctx context.Context, m *types.Memory) error
	Delete(ctx context.Context, tenantID, id string) error
	List(ctx context.Context, q MemoryQuery) (PaginatedResult[types.Memory], error)
	Count(ctx context.Context, q MemoryQuery) (int, error)

	// FindBySourceID supports MemoryBuilder's idempotence check.
	FindBySourceID(ctx context.Context, tenantID, userID, sourceID string) (*types.Memory, error)

	// GetEvolutionChain walks SupersedesID links oldest -> newest, capped at
	// 50 entries to prevent an unbounded walk on malformed data.
	GetEvolutionChain(ctx context.Context, tenantID, memoryID string) ([]*types.Memory, error)
}

// ProfileRepository is the persistence contract for Profile.
// (TenantID, UserID) is unique; GetByUser returns types.ErrNotFound when no
// profile exists yet for that user.
type ProfileRepository interface {
	Create(ctx context.Context, p *types.Profile) error
	Get(ctx context.Context, tenantID, id string) (*types.Profile, error)
	GetByUser(ctx context.Context, tenantID, userID string) (*types.Profile, error)
	Update(ctx context.Context, p *types.Profile) error
	Delete(ctx context.Context, tenantID, id string) error
}

// PatternQuery describes a List call against PatternRepository.
type PatternQuery struct {
	TenantID string
	Kinds    []string
	Tags     []string
	Limit    int
	Offset   int
}

// PatternRepository is the persistence contract for Pattern.
type PatternRepository interface {
	Create(ctx context.Context, p *types.Pattern) error
	Get(ctx context.Context, tenantID, id string) (*types.Pattern, error)
	Update(ctx context.Context, p *types.Pattern) error
	Delete(ctx context.Context, tenantID, id string) error
	List(ctx context.Context, q PatternQuery) (PaginatedResult[types.Pattern], error)

	// RecordUsage appends a PatternUsage audit row; it does not touch the
	// Pattern's rolled-up counters (PatternManager.RecordOutcome owns that).
	RecordUsage(ctx context.Context, tenantID string, usage *types.PatternUsage) error
}

// EntityQuery describes a List/FindByName call against EntityRepository.
type EntityQuery struct {
	TenantID   string
	NameFold   string // case-folded exact or alias match; empty = no filter
	EntityType string
	Limit      int
	Offset     int
}

// EntityRepository is the persistence contract for Entity.
type EntityRepository interface {
	Create(ctx context.Context, e *types.Entity) error
	Get(ctx context.Context, tenantID, id string) (*types.Entity, error)
	Update(ctx context.Context, e *types.Entity) error
	Delete(ctx context.Context, tenantID, id string) error
	List(ctx context.Context, q EntityQuery) (PaginatedResult[types.Entity], error)

	// FindByName performs a case-insensitive name-or-alias lookup, used both
	// by EntityManager's dedup-on-redetect path and by external callers'
	// find-by-name interface.
	FindByName(ctx context.Context, tenantID, nameFold string) (*types.Entity, error)
}

// RelationshipRepository is the persistence contract for Relationship.
type RelationshipRepository interface {
	Create(ctx context.Context, r *types.Relationship) error
	Get(ctx context.Context, tenantID, id string) (*types.Relationship, error)
	Update(ctx context.Context, r *types.Relationship) error
	Delete(ctx context.Context, tenantID, id string) error

	// Find returns the relationship for (tenantID, sourceEntityID,
	// targetEntityID, relType) if one already exists, for the
	// strengthen-on-redetect path. Returns types.ErrNotFound otherwise.
	Find(ctx context.Context, tenantID, sourceEntityID, targetEntityID, relType string) (*types.Relationship, error)

	// ListByEntity returns relationships touching entityID, for bounded
	// graph traversal up to a depth limit supplied by the caller.
	ListByEntity(ctx context.Context, tenantID, entityID string) ([]*types.Relationship, error)

	// List returns a tenant-wide page of relationships, for maintenance
	// passes (MemoryIntegrator's relationship-refresh sweep) that need to
	// walk every edge rather than ones touching a single entity.
	List(ctx context.Context, q RelationshipQuery) (PaginatedResult[types.Relationship], error)
}

// RelationshipQuery describes a List call against RelationshipRepository.
type RelationshipQuery struct {
	TenantID string
	Limit    int
	Offset   int
}
