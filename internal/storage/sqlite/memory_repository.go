package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hippos-ai/hippos/internal/storage"
	"github.com/hippos-ai/hippos/pkg/types"
)

var _ storage.MemoryRepository = (*Store)(nil)

// Create inserts a new memory row.
func (s *Store) Create(ctx context.Context, m *types.Memory) error {
	if m.TenantID == "" || m.ID == "" {
		return fmt.Errorf("sqlite: %w: tenant_id and id are required", types.ErrValidation)
	}
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	embedding, err := marshalEmbedding(m.Embedding)
	if err != nil {
		return fmt.Errorf("sqlite: %w: %v", types.ErrValidation, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO memories (
			id, tenant_id, user_id, kind, source, source_id, content, gist,
			full_summary, keywords, topics, tags, embedding, importance,
			confidence, parent_id, related_ids, supersedes_id, content_hash,
			pending_reindex, pattern_candidate, created_at, updated_at,
			accessed_at, expires_at, status, version
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.TenantID, m.UserID, string(m.Kind), string(m.Source), m.SourceID,
		m.Content, m.Gist, m.FullSummary, marshalStrings(m.Keywords), marshalStrings(m.Topics),
		marshalStrings(m.Tags), embedding, m.Importance, m.Confidence, m.ParentID,
		marshalStrings(m.RelatedIDs), m.SupersedesID, m.ContentHash, boolToInt(m.PendingReindex),
		boolToInt(m.PatternCandidate), formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
		formatTime(m.AccessedAt), formatTimePtr(m.ExpiresAt), string(m.Status), m.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sqlite: %w: memory %s already exists", types.ErrConflict, m.ID)
		}
		return fmt.Errorf("sqlite: creating memory: %w: %v", types.ErrBackend, err)
	}
	return nil
}

// Get returns a tenant-scoped memory by id.
func (s *Store) Get(ctx context.Context, tenantID, id string) (*types.Memory, error) {
	db, release, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	row := db.QueryRowContext(ctx, memorySelectColumns+` FROM memories WHERE tenant_id = ? AND id = ?`, tenantID, id)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: %w: memory %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting memory: %w: %v", types.ErrBackend, err)
	}
	return m, nil
}

// Update applies optimistic concurrency: the WHERE clause binds the
// caller's m.Version, and zero rows affected means either the row does not
// exist or another writer already advanced its version.
func (s *Store) Update(ctx context.Context, m *types.Memory) error {
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	embedding, err := marshalEmbedding(m.Embedding)
	if err != nil {
		return fmt.Errorf("sqlite: %w: %v", types.ErrValidation, err)
	}

	newVersion := m.Version + 1
	res, err := db.ExecContext(ctx, `
		UPDATE memories SET
			user_id=?, kind=?, source=?, source_id=?, content=?, gist=?, full_summary=?,
			keywords=?, topics=?, tags=?, embedding=?, importance=?, confidence=?,
			parent_id=?, related_ids=?, supersedes_id=?, content_hash=?, pending_reindex=?,
			pattern_candidate=?, updated_at=?, accessed_at=?, expires_at=?, status=?, version=?
		WHERE tenant_id=? AND id=? AND version=?`,
		m.UserID, string(m.Kind), string(m.Source), m.SourceID, m.Content, m.Gist, m.FullSummary,
		marshalStrings(m.Keywords), marshalStrings(m.Topics), marshalStrings(m.Tags), embedding,
		m.Importance, m.Confidence, m.ParentID, marshalStrings(m.RelatedIDs), m.SupersedesID,
		m.ContentHash, boolToInt(m.PendingReindex), boolToInt(m.PatternCandidate),
		formatTime(m.UpdatedAt), formatTime(m.AccessedAt), formatTimePtr(m.ExpiresAt),
		string(m.Status), newVersion,
		m.TenantID, m.ID, m.Version,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating memory: %w: %v", types.ErrBackend, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// The pool's only handle is held here, so existence is checked on it
		// directly; calling Get would wait for a second checkout.
		var one int
		if err := db.QueryRowContext(ctx, `SELECT 1 FROM memories WHERE tenant_id=? AND id=?`, m.TenantID, m.ID).Scan(&one); errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sqlite: %w: memory %s", types.ErrNotFound, m.ID)
		}
		return fmt.Errorf("sqlite: %w: memory %s version %d is stale", types.ErrConflict, m.ID, m.Version)
	}
	m.Version = newVersion
	return nil
}

// Delete permanently removes a tenant-scoped memory row.
func (s *Store) Delete(ctx context.Context, tenantID, id string) error {
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := db.ExecContext(ctx, `DELETE FROM memories WHERE tenant_id=? AND id=?`, tenantID, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting memory: %w: %v", types.ErrBackend, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite: %w: memory %s", types.ErrNotFound, id)
	}
	return nil
}

// List runs a tenant-scoped, filtered, paginated query.
func (s *Store) List(ctx context.Context, q storage.MemoryQuery) (storage.PaginatedResult[types.Memory], error) {
	q.Normalize()
	if q.TenantID == "" {
		return storage.PaginatedResult[types.Memory]{}, fmt.Errorf("sqlite: %w: tenant_id is required", types.ErrValidation)
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
	query := fmt.Sprintf("%s FROM memories WHERE %s ORDER BY %s %s LIMIT ? OFFSET ?",
		memorySelectColumns, where, sortCol, order)
	args = append(args, q.Limit, q.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.PaginatedResult[types.Memory]{}, fmt.Errorf("sqlite: listing memories: %w: %v", types.ErrBackend, err)
	}
	defer rows.Close()

	var items []types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return storage.PaginatedResult[types.Memory]{}, fmt.Errorf("sqlite: scanning memory: %w: %v", types.ErrBackend, err)
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return storage.PaginatedResult[types.Memory]{}, fmt.Errorf("sqlite: listing memories: %w: %v", types.ErrBackend, err)
	}

	return storage.PaginatedResult[types.Memory]{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

// Count returns the total matching q, ignoring its pagination fields.
func (s *Store) Count(ctx context.Context, q storage.MemoryQuery) (int, error) {
	if q.TenantID == "" {
		return 0, fmt.Errorf("sqlite: %w: tenant_id is required", types.ErrValidation)
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
		return 0, fmt.Errorf("sqlite: counting memories: %w: %v", types.ErrBackend, err)
	}
	return total, nil
}

// FindBySourceID supports MemoryBuilder's idempotence check.
func (s *Store) FindBySourceID(ctx context.Context, tenantID, userID, sourceID string) (*types.Memory, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("sqlite: %w: memory with empty source_id", types.ErrNotFound)
	}
	db, release, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	row := db.QueryRowContext(ctx,
		memorySelectColumns+` FROM memories WHERE tenant_id=? AND user_id=? AND source_id=?`,
		tenantID, userID, sourceID)
	m, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: %w: memory with source_id %s", types.ErrNotFound, sourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: finding memory by source_id: %w: %v", types.ErrBackend, err)
	}
	return m, nil
}

// GetEvolutionChain walks SupersedesID links oldest -> newest, capped at 50.
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*types.Memory, error) {
	var m types.Memory
	var kind, source, status string
	var keywords, topics, tags, relatedIDs string
	var embedding sql.NullString
	var createdAt, updatedAt, accessedAt string
	var expiresAt sql.NullString
	var pendingReindex, patternCandidate int

	err := row.Scan(
		&m.ID, &m.TenantID, &m.UserID, &kind, &source, &m.SourceID, &m.Content, &m.Gist,
		&m.FullSummary, &keywords, &topics, &tags, &embedding, &m.Importance, &m.Confidence,
		&m.ParentID, &relatedIDs, &m.SupersedesID, &m.ContentHash, &pendingReindex,
		&patternCandidate, &createdAt, &updatedAt, &accessedAt, &expiresAt, &status, &m.Version,
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
	m.PendingReindex = pendingReindex != 0
	m.PatternCandidate = patternCandidate != 0
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	m.AccessedAt = parseTime(accessedAt)
	if expiresAt.Valid && expiresAt.String != "" {
		t := parseTime(expiresAt.String)
		m.ExpiresAt = &t
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
	clauses := []string{"tenant_id = ?"}
	args := []any{q.TenantID}

	if q.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, q.UserID)
	}
	if len(q.IDs) > 0 {
		clauses = append(clauses, "id IN ("+placeholders(len(q.IDs))+")")
		for _, id := range q.IDs {
			args = append(args, id)
		}
	}
	if len(q.Kinds) > 0 {
		clauses = append(clauses, "kind IN ("+placeholders(len(q.Kinds))+")")
		for _, k := range q.Kinds {
			args = append(args, k)
		}
	}
	if len(q.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(q.Statuses))+")")
		for _, st := range q.Statuses {
			args = append(args, st)
		}
	}
	if q.Contains != "" {
		clauses = append(clauses, "(content LIKE ? OR gist LIKE ? OR tags LIKE ?)")
		needle := "%" + q.Contains + "%"
		args = append(args, needle, needle, needle)
	}
	if !q.Created.After.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, formatTime(q.Created.After))
	}
	if !q.Created.Before.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, formatTime(q.Created.Before))
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

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func marshalStrings(s []string) string {
	if s == nil {
		s = []string{}
	}
	b, _ := json.Marshal(s)
	return string(b)
}

func unmarshalStrings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func marshalEmbedding(v []float32) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalEmbedding(s string) ([]float32, error) {
	var out []float32
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
