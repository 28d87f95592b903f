package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

// RelationshipAdapter exposes Store's relationship methods as
// storage.RelationshipRepository.
type RelationshipAdapter struct{ S *Store }

var _ storage.RelationshipRepository = RelationshipAdapter{}

func (a RelationshipAdapter) Create(ctx context.Context, r *types.Relationship) error {
	return a.S.CreateRelationship(ctx, r)
}
func (a RelationshipAdapter) Get(ctx context.Context, tenantID, id string) (*types.Relationship, error) {
	return a.S.GetRelationship(ctx, tenantID, id)
}
func (a RelationshipAdapter) Update(ctx context.Context, r *types.Relationship) error {
	return a.S.UpdateRelationship(ctx, r)
}
func (a RelationshipAdapter) Delete(ctx context.Context, tenantID, id string) error {
	return a.S.DeleteRelationship(ctx, tenantID, id)
}
func (a RelationshipAdapter) Find(ctx context.Context, tenantID, sourceID, targetID, relType string) (*types.Relationship, error) {
	return a.S.FindRelationship(ctx, tenantID, sourceID, targetID, relType)
}
func (a RelationshipAdapter) ListByEntity(ctx context.Context, tenantID, entityID string) ([]*types.Relationship, error) {
	return a.S.ListRelationshipsByEntity(ctx, tenantID, entityID)
}
func (a RelationshipAdapter) List(ctx context.Context, q storage.RelationshipQuery) (storage.PaginatedResult[types.Relationship], error) {
	return a.S.ListRelationships(ctx, q)
}

const relationshipSelectColumns = `SELECT
	id, tenant_id, source_entity_id, target_entity_id, type, strength, context,
	source_memory_id, bidirectional, inverse, created_at, updated_at, version`

func (s *Store) CreateRelationship(ctx context.Context, r *types.Relationship) error {
	if r.TenantID == "" || r.ID == "" || r.SourceEntityID == "" || r.TargetEntityID == "" {
		return fmt.Errorf("postgres: %w: tenant_id, id, source, and target are required", types.ErrValidation)
	}
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = db.ExecContext(ctx, `
		INSERT INTO relationships (
			id, tenant_id, source_entity_id, target_entity_id, type, strength, context,
			source_memory_id, bidirectional, inverse, created_at, updated_at, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		r.ID, r.TenantID, r.SourceEntityID, r.TargetEntityID, r.Type, r.Strength, r.Context,
		r.SourceMemoryID, r.Metadata.Bidirectional, r.Metadata.Inverse,
		r.CreatedAt, r.UpdatedAt, r.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: %w: relationship already exists", types.ErrConflict)
		}
		return fmt.Errorf("postgres: creating relationship: %w: %v", types.ErrBackend, err)
	}
	return nil
}

func (s *Store) GetRelationship(ctx context.Context, tenantID, id string) (*types.Relationship, error) {
	db, release, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	row := db.QueryRowContext(ctx, relationshipSelectColumns+` FROM relationships WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	r, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: %w: relationship %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting relationship: %w: %v", types.ErrBackend, err)
	}
	return r, nil
}

func (s *Store) UpdateRelationship(ctx context.Context, r *types.Relationship) error {
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	newVersion := r.Version + 1
	res, err := db.ExecContext(ctx, `
		UPDATE relationships SET
			source_entity_id=$1, target_entity_id=$2, type=$3, strength=$4, context=$5,
			source_memory_id=$6, bidirectional=$7, inverse=$8, updated_at=$9, version=$10
		WHERE tenant_id=$11 AND id=$12 AND version=$13`,
		r.SourceEntityID, r.TargetEntityID, r.Type, r.Strength, r.Context, r.SourceMemoryID,
		r.Metadata.Bidirectional, r.Metadata.Inverse, r.UpdatedAt, newVersion,
		r.TenantID, r.ID, r.Version,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating relationship: %w: %v", types.ErrBackend, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		if _, getErr := s.GetRelationship(ctx, r.TenantID, r.ID); errors.Is(getErr, types.ErrNotFound) {
			return fmt.Errorf("postgres: %w: relationship %s", types.ErrNotFound, r.ID)
		}
		return fmt.Errorf("postgres: %w: relationship %s version %d is stale", types.ErrConflict, r.ID, r.Version)
	}
	r.Version = newVersion
	return nil
}

func (s *Store) DeleteRelationship(ctx context.Context, tenantID, id string) error {
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()
	res, err := db.ExecContext(ctx, `DELETE FROM relationships WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting relationship: %w: %v", types.ErrBackend, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("postgres: %w: relationship %s", types.ErrNotFound, id)
	}
	return nil
}

func (s *Store) FindRelationship(ctx context.Context, tenantID, sourceID, targetID, relType string) (*types.Relationship, error) {
	db, release, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	row := db.QueryRowContext(ctx,
		relationshipSelectColumns+` FROM relationships WHERE tenant_id=$1 AND source_entity_id=$2 AND target_entity_id=$3 AND type=$4`,
		tenantID, sourceID, targetID, relType)
	r, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: %w: relationship %s->%s (%s)", types.ErrNotFound, sourceID, targetID, relType)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: finding relationship: %w: %v", types.ErrBackend, err)
	}
	return r, nil
}

func (s *Store) ListRelationshipsByEntity(ctx context.Context, tenantID, entityID string) ([]*types.Relationship, error) {
	db, release, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	rows, err := db.QueryContext(ctx,
		relationshipSelectColumns+` FROM relationships WHERE tenant_id=$1 AND (source_entity_id=$2 OR target_entity_id=$3)`,
		tenantID, entityID, entityID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing relationships: %w: %v", types.ErrBackend, err)
	}
	defer rows.Close()

	var out []*types.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning relationship: %w: %v", types.ErrBackend, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) ListRelationships(ctx context.Context, q storage.RelationshipQuery) (storage.PaginatedResult[types.Relationship], error) {
	if q.TenantID == "" {
		return storage.PaginatedResult[types.Relationship]{}, fmt.Errorf("postgres: %w: tenant_id is required", types.ErrValidation)
	}
	if q.Limit <= 0 || q.Limit > storage.PaginationMax {
		q.Limit = storage.PaginationMax
	}

	db, release, err := s.conn(ctx)
	if err != nil {
		return storage.PaginatedResult[types.Relationship]{}, err
	}
	defer release()

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM relationships WHERE tenant_id=$1`, q.TenantID).Scan(&total); err != nil {
		return storage.PaginatedResult[types.Relationship]{}, fmt.Errorf("postgres: counting relationships: %w: %v", types.ErrBackend, err)
	}

	rows, err := db.QueryContext(ctx,
		relationshipSelectColumns+` FROM relationships WHERE tenant_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`,
		q.TenantID, q.Limit, q.Offset)
	if err != nil {
		return storage.PaginatedResult[types.Relationship]{}, fmt.Errorf("postgres: listing relationships: %w: %v", types.ErrBackend, err)
	}
	defer rows.Close()

	var items []types.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return storage.PaginatedResult[types.Relationship]{}, fmt.Errorf("postgres: scanning relationship: %w: %v", types.ErrBackend, err)
		}
		items = append(items, *r)
	}
	return storage.PaginatedResult[types.Relationship]{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

func scanRelationship(row rowScanner) (*types.Relationship, error) {
	var r types.Relationship
	err := row.Scan(
		&r.ID, &r.TenantID, &r.SourceEntityID, &r.TargetEntityID, &r.Type, &r.Strength,
		&r.Context, &r.SourceMemoryID, &r.Metadata.Bidirectional, &r.Metadata.Inverse,
		&r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
