package postgres

import (
	"context"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/hippos-ai/hippos/internal/index"
)

// PgvectorIndex is an index.VectorIndex backed by the pgvector extension's
// native ivfflat index, selected in place of index.BruteForceIndex when the
// configured backend is Postgres and the extension is installed. Hippos
// keeps the memory/entity rows as the vector's home rather than a separate
// table, mirroring the single embeddings column the teacher's search
// provider queries against.
type PgvectorIndex struct {
	store *Store
	table string // "memories" or "entities"
}

var _ index.VectorIndex = (*PgvectorIndex)(nil)

// NewPgvectorIndex returns an index over table's embedding_vec column.
// table must be "memories" or "entities".
func NewPgvectorIndex(store *Store, table string) *PgvectorIndex {
	return &PgvectorIndex{store: store, table: table}
}

func (p *PgvectorIndex) Upsert(ctx context.Context, tenantID, id string, embedding []float32) error {
	if !p.store.pgvectorAvailable {
		return nil
	}
	if len(embedding) == 0 {
		return fmt.Errorf("postgres: empty embedding for %s", id)
	}
	db, release, err := p.store.conn(ctx)
	if err != nil {
		return err
	}
	defer release()

	vec := pgvector.NewVector(embedding)
	_, err = db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET embedding_vec = $1 WHERE tenant_id = $2 AND id = $3`, p.table),
		vec, tenantID, id)
	if err != nil {
		return fmt.Errorf("postgres: upserting embedding_vec on %s: %w", p.table, err)
	}
	return nil
}

func (p *PgvectorIndex) Delete(ctx context.Context, tenantID, id string) error {
	if !p.store.pgvectorAvailable {
		return nil
	}
	db, release, err := p.store.conn(ctx)
	if err != nil {
		return err
	}
	defer release()
	_, err = db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE %s SET embedding_vec = NULL WHERE tenant_id = $1 AND id = $2`, p.table),
		tenantID, id)
	if err != nil {
		return fmt.Errorf("postgres: clearing embedding_vec on %s: %w", p.table, err)
	}
	return nil
}

// Query ranks rows by cosine distance via the <=> operator. When the
// extension isn't available it degrades to an empty result rather than an
// error, matching the teacher's search provider fallback: recall still
// works off the lexical and temporal channels alone.
func (p *PgvectorIndex) Query(ctx context.Context, tenantID string, embedding []float32, topK int) ([]index.ScoredID, error) {
	if topK <= 0 {
		topK = 10
	}
	if !p.store.pgvectorAvailable || len(embedding) == 0 {
		return nil, nil
	}
	db, release, err := p.store.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	vec := pgvector.NewVector(embedding)
	query := fmt.Sprintf(`
		SELECT id, 1 - (embedding_vec <=> $1) AS score
		FROM %s
		WHERE tenant_id = $2 AND embedding_vec IS NOT NULL
		ORDER BY embedding_vec <=> $1
		LIMIT $3`, p.table)

	rows, err := db.QueryContext(ctx, query, vec, tenantID, topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: querying %s by embedding_vec: %w", p.table, err)
	}
	defer rows.Close()

	var out []index.ScoredID
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("postgres: scanning vector match: %w", err)
		}
		out = append(out, index.ScoredID{ID: id, Score: score})
	}
	return out, nil
}
