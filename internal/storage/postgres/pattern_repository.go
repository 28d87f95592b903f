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

// PatternAdapter exposes Store's pattern methods as storage.PatternRepository.
type PatternAdapter struct{ S *Store }

var _ storage.PatternRepository = PatternAdapter{}

func (a PatternAdapter) Create(ctx context.Context, p *types.Pattern) error { return a.S.CreatePattern(ctx, p) }
func (a PatternAdapter) Get(ctx context.Context, tenantID, id string) (*types.Pattern, error) {
	return a.S.GetPattern(ctx, tenantID, id)
}
func (a PatternAdapter) Update(ctx context.Context, p *types.Pattern) error { return a.S.UpdatePattern(ctx, p) }
func (a PatternAdapter) Delete(ctx context.Context, tenantID, id string) error {
	return a.S.DeletePattern(ctx, tenantID, id)
}
func (a PatternAdapter) List(ctx context.Context, q storage.PatternQuery) (storage.PaginatedResult[types.Pattern], error) {
	return a.S.ListPatterns(ctx, q)
}
func (a PatternAdapter) RecordUsage(ctx context.Context, tenantID string, usage *types.PatternUsage) error {
	return a.S.RecordPatternUsage(ctx, tenantID, usage)
}

const patternSelectColumns = `SELECT
	id, tenant_id, kind, name, description, trigger, context, problem, solution,
	examples, tags, success_count, failure_count, average_outcome, usage_count,
	created_by, source_memory_id, confidence, created_at, updated_at, version`

func (s *Store) CreatePattern(ctx context.Context, p *types.Pattern) error {
	if p.TenantID == "" || p.ID == "" {
		return fmt.Errorf("postgres: %w: tenant_id and id are required", types.ErrValidation)
	}
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = db.ExecContext(ctx, `
		INSERT INTO patterns (
			id, tenant_id, kind, name, description, trigger, context, problem, solution,
			examples, tags, success_count, failure_count, average_outcome, usage_count,
			created_by, source_memory_id, confidence, created_at, updated_at, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		p.ID, p.TenantID, string(p.Kind), p.Name, p.Description, p.Trigger, p.Context,
		p.Problem, p.Solution, marshalStrings(p.Examples), marshalStrings(p.Tags),
		p.SuccessCount, p.FailureCount, p.AverageOutcome, p.UsageCount, p.CreatedBy,
		p.SourceMemoryID, p.Confidence, p.CreatedAt, p.UpdatedAt, p.Version,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating pattern: %w: %v", types.ErrBackend, err)
	}
	return nil
}

func (s *Store) GetPattern(ctx context.Context, tenantID, id string) (*types.Pattern, error) {
	db, release, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	row := db.QueryRowContext(ctx, patternSelectColumns+` FROM patterns WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	p, err := scanPattern(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("postgres: %w: pattern %s", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting pattern: %w: %v", types.ErrBackend, err)
	}
	return p, nil
}

func (s *Store) UpdatePattern(ctx context.Context, p *types.Pattern) error {
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	newVersion := p.Version + 1
	res, err := db.ExecContext(ctx, `
		UPDATE patterns SET
			kind=$1, name=$2, description=$3, trigger=$4, context=$5, problem=$6, solution=$7,
			examples=$8, tags=$9, success_count=$10, failure_count=$11, average_outcome=$12,
			usage_count=$13, created_by=$14, source_memory_id=$15, confidence=$16, updated_at=$17, version=$18
		WHERE tenant_id=$19 AND id=$20 AND version=$21`,
		string(p.Kind), p.Name, p.Description, p.Trigger, p.Context, p.Problem, p.Solution,
		marshalStrings(p.Examples), marshalStrings(p.Tags), p.SuccessCount, p.FailureCount,
		p.AverageOutcome, p.UsageCount, p.CreatedBy, p.SourceMemoryID, p.Confidence,
		p.UpdatedAt, newVersion,
		p.TenantID, p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating pattern: %w: %v", types.ErrBackend, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		if _, getErr := s.GetPattern(ctx, p.TenantID, p.ID); errors.Is(getErr, types.ErrNotFound) {
			return fmt.Errorf("postgres: %w: pattern %s", types.ErrNotFound, p.ID)
		}
		return fmt.Errorf("postgres: %w: pattern %s version %d is stale", types.ErrConflict, p.ID, p.Version)
	}
	p.Version = newVersion
	return nil
}

func (s *Store) DeletePattern(ctx context.Context, tenantID, id string) error {
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()
	res, err := db.ExecContext(ctx, `DELETE FROM patterns WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("postgres: deleting pattern: %w: %v", types.ErrBackend, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("postgres: %w: pattern %s", types.ErrNotFound, id)
	}
	return nil
}

func (s *Store) ListPatterns(ctx context.Context, q storage.PatternQuery) (storage.PaginatedResult[types.Pattern], error) {
	if q.TenantID == "" {
		return storage.PaginatedResult[types.Pattern]{}, fmt.Errorf("postgres: %w: tenant_id is required", types.ErrValidation)
	}
	if q.Limit <= 0 || q.Limit > storage.PaginationMax {
		q.Limit = storage.PaginationMax
	}

	db, release, err := s.conn(ctx)
	if err != nil {
		return storage.PaginatedResult[types.Pattern]{}, err
	}
	defer release()

	clauses := []string{"tenant_id = $1"}
	args := []any{q.TenantID}
	if len(q.Kinds) > 0 {
		clauses = append(clauses, "kind IN ("+placeholders(len(args)+1, len(q.Kinds))+")")
		for _, k := range q.Kinds {
			args = append(args, k)
		}
	}
	if len(q.Tags) > 0 {
		tagClauses := make([]string, 0, len(q.Tags))
		for _, t := range q.Tags {
			args = append(args, "%\""+t+"\"%")
			tagClauses = append(tagClauses, fmt.Sprintf("tags::text LIKE $%d", len(args)))
		}
		clauses = append(clauses, "("+strings.Join(tagClauses, " OR ")+")")
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM patterns WHERE "+where, args...).Scan(&total); err != nil {
		return storage.PaginatedResult[types.Pattern]{}, fmt.Errorf("postgres: counting patterns: %w: %v", types.ErrBackend, err)
	}

	query := fmt.Sprintf("%s FROM patterns WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		patternSelectColumns, where, len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.PaginatedResult[types.Pattern]{}, fmt.Errorf("postgres: listing patterns: %w: %v", types.ErrBackend, err)
	}
	defer rows.Close()

	var items []types.Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return storage.PaginatedResult[types.Pattern]{}, fmt.Errorf("postgres: scanning pattern: %w: %v", types.ErrBackend, err)
		}
		items = append(items, *p)
	}
	return storage.PaginatedResult[types.Pattern]{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

func (s *Store) RecordPatternUsage(ctx context.Context, tenantID string, usage *types.PatternUsage) error {
	db, release, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer release()
	_, err = db.ExecContext(ctx,
		`INSERT INTO pattern_usage (id, pattern_id, outcome, context, used_at) VALUES ($1,$2,$3,$4,$5)`,
		usage.ID, usage.PatternID, usage.Outcome, usage.Context, usage.UsedAt)
	if err != nil {
		return fmt.Errorf("postgres: recording pattern usage: %w: %v", types.ErrBackend, err)
	}
	return nil
}

func scanPattern(row rowScanner) (*types.Pattern, error) {
	var p types.Pattern
	var kind, examples, tags string
	err := row.Scan(
		&p.ID, &p.TenantID, &kind, &p.Name, &p.Description, &p.Trigger, &p.Context,
		&p.Problem, &p.Solution, &examples, &tags, &p.SuccessCount, &p.FailureCount,
		&p.AverageOutcome, &p.UsageCount, &p.CreatedBy, &p.SourceMemoryID, &p.Confidence,
		&p.CreatedAt, &p.UpdatedAt, &p.Version,
	)
	if err != nil {
		return nil, err
	}
	p.Kind = types.PatternKind(kind)
	p.Examples = unmarshalStrings(examples)
	p.Tags = unmarshalStrings(tags)
	return &p, nil
}
