package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

// EntityAdapter exposes Store's entity methods as storage.EntityRepository.
type EntityAdapter struct{ S *Store }

var _ storage.EntityRepository = EntityAdapter{}

func (a EntityAdapter) Create(ctx context.Context, e *types.Entity) error { return a.S.CreateEntity(ctx, e) }
func (a EntityAdapter) Get(ctx context.Context, tenantID, id string) (*types.Entity, error) {
	return a.S.GetEntity(ctx, tenantID, id)
}
func (a EntityAdapter) Update(ctx context.Context, e *types.Entity) error { return a.S.UpdateEntity(ctx, e) }
func (a EntityAdapter) Delete(ctx context.Context, tenantID, id string) error {
	return a.S.DeleteEntity(ctx, tenantID, id)
}
func (a EntityAdapter) List(ctx context.Context, q storage.EntityQuery) (storage.PaginatedResult[types.Entity], error) {
	return a.S.ListEntities(ctx, q)
}
func (a EntityAdapter) FindByName(ctx context.Context, tenantID, nameFold string) (*types.Entity, error) {
	return a.S.FindEntityByName(ctx, tenantID, nameFold)
}

const entitySelectColumns = `SELECT
	id, tenant_id, name, entity_type, description, properties, aliases, embedding,
	confidence, source_memory_ids, created_at, updated_at, version`

func (s *Store) CreateEntity(ctx context.Context, e *types.Entity) error {
	if e.TenantID == "" || e.ID == "" || e.Name == "" {
		return fmt.Errorf("postgres: %w: tenant_id, id, and name are required", types.ErrValidation)
	}
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	embedding, err := marshalEmbedding(e.Embedding)
	if err != nil {
		return fmt.Errorf("postgres: %w: %v", types.ErrValidation, err)
	}
	props, err := json.Marshal(nonNilAnyMap(e.Properties))
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO entities (
			id, tenant_id, name, name_fold, entity_type, description, properties,
			aliases, embedding, confidence, source_memory_ids, created_at, updated_at, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		e.ID, e.TenantID, e.Name, strings.ToLower(e.Name), e.EntityType, e.Description,
		string(props), marshalStrings(e.Aliases), embedding, e.Confidence,
		marshalStrings(e.SourceMemoryIDs), e.CreatedAt, e.UpdatedAt, e.Version,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating entity: %w: %v", types.ErrBackend, err)
	}
	return nil
}

func (s *Store) GetEntity(ctx context.Context, tenantID, id string) (*types.Entity, error) {
	db, release, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	row := db.QueryRowContext(ctx, entitySelectColumns+` FROM entities WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: %w: entity %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting entity: %w: %v", types.ErrBackend, err)
	}
	return e, nil
}

func (s *Store) UpdateEntity(ctx context.Context, e *types.Entity) error {
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	embedding, err := marshalEmbedding(e.Embedding)
	if err != nil {
		return fmt.Errorf("postgres: %w: %v", types.ErrValidation, err)
	}
	props, err := json.Marshal(nonNilAnyMap(e.Properties))
	if err != nil {
		return err
	}

	newVersion := e.Version + 1
	res, err := db.ExecContext(ctx, `
		UPDATE entities SET
			name=$1, name_fold=$2, entity_type=$3, description=$4, properties=$5, aliases=$6,
			embedding=$7, confidence=$8, source_memory_ids=$9, updated_at=$10, version=$11
		WHERE tenant_id=$12 AND id=$13 AND version=$14`,
		e.Name, strings.ToLower(e.Name), e.EntityType, e.Description, string(props),
		marshalStrings(e.Aliases), embedding, e.Confidence, marshalStrings(e.SourceMemoryIDs),
		e.UpdatedAt, newVersion,
		e.TenantID, e.ID, e.Version,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating entity: %w: %v", types.ErrBackend, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		if _, getErr := s.GetEntity(ctx, e.TenantID, e.ID); errors.Is(getErr, types.ErrNotFound) {
			return fmt.Errorf("postgres: %w: entity %s", types.ErrNotFound, e.ID)
		}
		return fmt.Errorf("postgres: %w: entity %s version %d is stale", types.ErrConflict, e.ID, e.Version)
	}
	e.Version = newVersion
	return nil
}

func (s *Store) DeleteEntity(ctx context.Context, tenantID, id string) error {
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()
	res, err := db.ExecContext(ctx, `DELETE FROM entities WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting entity: %w: %v", types.ErrBackend, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("postgres: %w: entity %s", types.ErrNotFound, id)
	}
	return nil
}

func (s *Store) ListEntities(ctx context.Context, q storage.EntityQuery) (storage.PaginatedResult[types.Entity], error) {
	if q.TenantID == "" {
		return storage.PaginatedResult[types.Entity]{}, fmt.Errorf("postgres: %w: tenant_id is required", types.ErrValidation)
	}
	if q.Limit <= 0 || q.Limit > storage.PaginationMax {
		q.Limit = storage.PaginationMax
	}

	db, release, err := s.conn(ctx)
	if err != nil {
		return storage.PaginatedResult[types.Entity]{}, err
	}
	defer release()

	clauses := []string{"tenant_id = $1"}
	args := []any{q.TenantID}
	if q.NameFold != "" {
		args = append(args, q.NameFold, "%\""+q.NameFold+"\"%")
		clauses = append(clauses, fmt.Sprintf("(name_fold = $%d OR aliases::text ILIKE $%d)", len(args)-1, len(args)))
	}
	if q.EntityType != "" {
		args = append(args, q.EntityType)
		clauses = append(clauses, fmt.Sprintf("entity_type = $%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entities WHERE "+where, args...).Scan(&total); err != nil {
		return storage.PaginatedResult[types.Entity]{}, fmt.Errorf("postgres: counting entities: %w: %v", types.ErrBackend, err)
	}

	query := fmt.Sprintf("%s FROM entities WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		entitySelectColumns, where, len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.PaginatedResult[types.Entity]{}, fmt.Errorf("postgres: listing entities: %w: %v", types.ErrBackend, err)
	}
	defer rows.Close()

	var items []types.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return storage.PaginatedResult[types.Entity]{}, fmt.Errorf("postgres: scanning entity: %w: %v", types.ErrBackend, err)
		}
		items = append(items, *e)
	}
	return storage.PaginatedResult[types.Entity]{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

func (s *Store) FindEntityByName(ctx context.Context, tenantID, nameFold string) (*types.Entity, error) {
	db, release, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	fold := strings.ToLower(nameFold)
	row := db.QueryRowContext(ctx,
		entitySelectColumns+` FROM entities WHERE tenant_id=$1 AND (name_fold=$2 OR aliases::text ILIKE $3) LIMIT 1`,
		tenantID, fold, "%\""+fold+"\"%")
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: %w: entity named %s", types.ErrNotFound, nameFold)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: finding entity by name: %w: %v", types.ErrBackend, err)
	}
	return e, nil
}

func scanEntity(row rowScanner) (*types.Entity, error) {
	var e types.Entity
	var properties, aliases, sourceMemoryIDs string
	var embedding sql.NullString

	err := row.Scan(
		&e.ID, &e.TenantID, &e.Name, &e.EntityType, &e.Description, &properties, &aliases,
		&embedding, &e.Confidence, &sourceMemoryIDs, &e.CreatedAt, &e.UpdatedAt, &e.Version,
	)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(properties), &e.Properties)
	e.Aliases = unmarshalStrings(aliases)
	e.SourceMemoryIDs = unmarshalStrings(sourceMemoryIDs)
	if embedding.Valid && embedding.String != "" {
		vec, err := unmarshalEmbedding(embedding.String)
		if err != nil {
			return nil, err
		}
		e.Embedding = vec
	}
	return &e, nil
}
