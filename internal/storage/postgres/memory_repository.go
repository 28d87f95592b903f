package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

var _ storage.MemoryRepository = (*Store)(nil)

func (s *Store) Create(ctx context.Context, m *types.Memory) error {
	if m.TenantID == "" || m.ID == "" {
		return fmt.Errorf("postgres: %w: tenant_id and id are required", types.ErrValidation)
	}
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	embedding, err := marshalEmbedding(m.Embedding)
	if err != nil {
		return fmt.Errorf("postgres: %w: %v", types.ErrValidation, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO memories (
			id, tenant_id, user_id, kind, source, source_id, content, gist,
			full_summary, keywords, topics, tags, embedding, importance,
			confidence, parent_id, related_ids, supersedes_id, content_hash,
			pending_reindex, pattern_candidate, created_at, updated_at,
			accessed_at, expires_at, status, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
		m.ID, m.TenantID, m.UserID, string(m.Kind), string(m.Source), m.SourceID,
		m.Content, m.Gist, m.FullSummary, marshalStrings(m.Keywords), marshalStrings(m.Topics),
		marshalStrings(m.Tags), embedding, m.Importance, m.Confidence, m.ParentID,
		marshalStrings(m.RelatedIDs), m.SupersedesID, m.ContentHash, m.PendingReindex,
		m.PatternCandidate, m.CreatedAt, m.UpdatedAt, m.AccessedAt, formatTimePtr(m.ExpiresAt),
		string(m.Status), m.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("postgres: %w: memory %s already exists", types.ErrConflict, m.ID)
		}
		return fmt.Errorf("postgres: creating memory: %w: %v", types.ErrBackend, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, tenantID, id string) (*types.Memory, error) {
	db, release, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	row := db.QueryRowContext(ctx, memorySelectColumns+` FROM memories WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: %w: memory %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting memory: %w: %v", types.ErrBackend, err)
	}
	return m, nil
}

func (s *Store) Update(ctx context.Context, m *types.Memory) error {
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	embedding, err := marshalEmbedding(m.Embedding)
	if err != nil {
		return fmt.Errorf("postgres: %w: %v", types.ErrValidation, err)
	}

	newVersion := m.Version + 1
	res, err := db.ExecContext(ctx, `
		UPDATE memories SET
			user_id=$1, kind=$2, source=$3, source_id=$4, content=$5, gist=$6, full_summary=$7,
			keywords=$8, topics=$9, tags=$10, embedding=$11, importance=$12, confidence=$13,
			parent_id=$14, related_ids=$15, supersedes_id=$16, content_hash=$17, pending_reindex=$18,
			pattern_candidate=$19, updated_at=$20, accessed_at=$21, expires_at=$22, status=$23, version=$24
		WHERE tenant_id=$25 AND id=$26 AND version=$27`,
		m.UserID, string(m.Kind), string(m.Source), m.SourceID, m.Content, m.Gist, m.FullSummary,
		marshalStrings(m.Keywords), marshalStrings(m.Topics), marshalStrings(m.Tags), embedding,
		m.Importance, m.Confidence, m.ParentID, marshalStrings(m.RelatedIDs), m.SupersedesID,
		m.ContentHash, m.PendingReindex, m.PatternCandidate, m.UpdatedAt, m.AccessedAt,
		formatTimePtr(m.ExpiresAt), string(m.Status), newVersion,
		m.TenantID, m.ID, m.Version,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating memory: %w: %v", types.ErrBackend, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		if _, getErr := s.Get(ctx, m.TenantID, m.ID); errors.Is(getErr, types.ErrNotFound) {
			return fmt.Errorf("postgres: %w: memory %s", types.ErrNotFound, m.ID)
		}
		return fmt.Errorf("postgres: %w: memory %s version %d is stale", types.ErrConflict, m.ID, m.Version)
	}
	m.Version = newVersion
	return nil
}

func (s *Store) Delete(ctx context.Context, tenantID, id string) error {
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := db.ExecContext(ctx, `DELETE FROM memories WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting memory: %w: %v", types.ErrBackend, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("postgres: %w: memory %s", types.ErrNotFound, id)
	}
	return nil
}

func (s *Store) List(ctx context.Context, q storage.MemoryQuery) (storage.PaginatedResult[types.Memory], error) {
	q.Normalize()
	if q.TenantID == "" {
		return storage.PaginatedResult[types.Memory]{}, fmt.Errorf("postgres: %w: tenant_id is required", types.ErrValidation)
	}

	db, release, err := s.conn(ctx)
	if err != nil {
		return storage.PaginatedResult[types.Memory]{}, err
	}
	defer release()

	where, args := memoryQueryPredicate(q)

	total, err := s.countMemories(ctx, db, where, args)
	if err != nil {
		return storage.PaginatedResult[types.Memory]{}, err
	}

	sortCol := sortColumn(q.SortBy)
	order := "DESC"
	if q.SortOrder == storage.Asc {
		order = "ASC"
	}
	query := fmt.Sprintf("%s FROM memories WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		memorySelectColumns, where, sortCol, order, len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.PaginatedResult[types.Memory]{}, fmt.Errorf("postgres: listing memories: %w: %v", types.ErrBackend, err)
	}
	defer rows.Close()

	var items []types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return storage.PaginatedResult[types.Memory]{}, fmt.Errorf("postgres: scanning memory: %w: %v", types.ErrBackend, err)
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return storage.PaginatedResult[types.Memory]{}, fmt.Errorf("postgres: listing memories: %w: %v", types.ErrBackend, err)
	}

	return storage.PaginatedResult[types.Memory]{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

func (s *Store) Count(ctx context.Context, q storage.MemoryQuery) (int, error) {
	if q.TenantID == "" {
		return 0, fmt.Errorf("postgres: %w: tenant_id is required", types.ErrValidation)
	}
	db, release, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	where, args := memoryQueryPredicate(q)
	return s.countMemories(ctx, db, where, args)
}

func (s *Store) countMemories(ctx context.Context, db *sql.DB, where string, args []any) (int, error) {
	var total int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories WHERE "+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("postgres: counting memories: %w: %v", types.ErrBackend, err)
	}
	return total, nil
}

func (s *Store) FindBySourceID(ctx context.Context, tenantID, userID, sourceID string) (*types.Memory, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("postgres: %w: memory with empty source_id", types.ErrNotFound)
	}
	db, release, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	row := db.QueryRowContext(ctx,
		memorySelectColumns+` FROM memories WHERE tenant_id=$1 AND user_id=$2 AND source_id=$3`,
		tenantID, userID, sourceID)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: %w: memory with source_id %s", types.ErrNotFound, sourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: finding memory by source_id: %w: %v", types.ErrBackend, err)
	}
	return m, nil
}

func (s *Store) GetEvolutionChain(ctx context.Context, tenantID, memoryID string) ([]*types.Memory, error) {
	chain := make([]*types.Memory, 0, 8)
	current := memoryID
	for i := 0; i < 50; i++ {
		m, err := s.Get(ctx, tenantID, current)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) && len(chain) > 0 {
				break
			}
			return nil, err
		}
		chain = append(chain, m)
		if m.SupersedesID == "" {
			break
		}
		current = m.SupersedesID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

const memorySelectColumns = `SELECT
	id, tenant_id, user_id, kind, source, source_id, content, gist, full_summary,
	keywords, topics, tags, embedding, importance, confidence, parent_id,
	related_ids, supersedes_id, content_hash, pending_reindex, pattern_candidate,
	created_at, updated_at, accessed_at, expires_at, status, version`

func scanMemory(row rowScanner) (*types.Memory, error) {
	var m types.Memory
	var kind, source, status string
	var keywords, topics, tags, relatedIDs string
	var embedding sql.NullString
	var expiresAt sql.NullTime

	err := row.Scan(
		&m.ID, &m.TenantID, &m.UserID, &kind, &source, &m.SourceID, &m.Content, &m.Gist,
		&m.FullSummary, &keywords, &topics, &tags, &embedding, &m.Importance, &m.Confidence,
		&m.ParentID, &relatedIDs, &m.SupersedesID, &m.ContentHash, &m.PendingReindex,
		&m.PatternCandidate, &m.CreatedAt, &m.UpdatedAt, &m.AccessedAt, &expiresAt, &status, &m.Version,
	)
	if err != nil {
		return nil, err
	}

	m.Kind = types.MemoryKind(kind)
	m.Source = types.MemorySource(source)
	m.Status = types.MemoryStatus(status)
	m.Keywords = unmarshalStrings(keywords)
	m.Topics = unmarshalStrings(topics)
	m.Tags = unmarshalStrings(tags)
	m.RelatedIDs = unmarshalStrings(relatedIDs)
	if expiresAt.Valid {
		m.ExpiresAt = &expiresAt.Time
	}
	if embedding.Valid && embedding.String != "" {
		vec, err := unmarshalEmbedding(embedding.String)
		if err != nil {
			return nil, err
		}
		m.Embedding = vec
	}
	return &m, nil
}

func memoryQueryPredicate(q storage.MemoryQuery) (string, []any) {
	clauses := []string{"tenant_id = $1"}
	args := []any{q.TenantID}

	if q.UserID != "" {
		args = append(args, q.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(q.IDs) > 0 {
		clauses = append(clauses, "id IN ("+placeholders(len(args)+1, len(q.IDs))+")")
		for _, id := range q.IDs {
			args = append(args, id)
		}
	}
	if len(q.Kinds) > 0 {
		clauses = append(clauses, "kind IN ("+placeholders(len(args)+1, len(q.Kinds))+")")
		for _, k := range q.Kinds {
			args = append(args, k)
		}
	}
	if len(q.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(args)+1, len(q.Statuses))+")")
		for _, st := range q.Statuses {
			args = append(args, st)
		}
	}
	if q.Contains != "" {
		needle := "%" + q.Contains + "%"
		args = append(args, needle, needle, needle)
		clauses = append(clauses, fmt.Sprintf("(content LIKE $%d OR gist LIKE $%d OR tags::text LIKE $%d)", len(args)-2, len(args)-1, len(args)))
	}
	if !q.Created.After.IsZero() {
		args = append(args, q.Created.After)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !q.Created.Before.IsZero() {
		args = append(args, q.Created.Before)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}

func sortColumn(f storage.SortField) string {
	switch f {
	case storage.SortUpdatedAt:
		return "updated_at"
	case storage.SortAccessedAt:
		return "accessed_at"
	case storage.SortImportance:
		return "importance"
	default:
		return "created_at"
	}
}
