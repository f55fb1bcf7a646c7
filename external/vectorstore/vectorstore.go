// Package vectorstore implements the VectorStore seam of spec.md §6 over a
// Postgres table with a pgvector column, following the lib/pq raw-SQL
// style of store/postgres and using pgvector-go to encode query vectors.
package vectorstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// Match is one hit returned by a similarity query, ordered by ascending
// cosine distance (i.e. Score is a similarity, not a distance).
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// Filter narrows a query to a metadata namespace, e.g. a policy document
// collection, so unrelated chunks never compete for the same top-K slots.
type Filter struct {
	Namespace string
}

// Store is the VectorStore seam of spec.md §6.
type Store interface {
	Query(ctx context.Context, vec []float32, k int, filter Filter) ([]Match, error)
}

type pgStore struct {
	db    *sql.DB
	table string
}

// New wraps db, querying the given table. The table is expected to carry
// columns (chunk_id text, namespace text, embedding vector(384), content text).
func New(db *sql.DB, table string) Store {
	if table == "" {
		table = "policy_chunks"
	}
	return &pgStore{db: db, table: table}
}

func (s *pgStore) Query(ctx context.Context, vec []float32, k int, filter Filter) ([]Match, error) {
	if k <= 0 {
		k = 10
	}
	v := pgvector.NewVector(vec)

	query := fmt.Sprintf(`SELECT chunk_id, content, 1 - (embedding <=> $1) AS score
		FROM %s WHERE namespace = $2
		ORDER BY embedding <=> $1
		LIMIT $3`, s.table)

	rows, err := s.db.QueryContext(ctx, query, v, filter.Namespace, k)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		var content string
		if err := rows.Scan(&m.ID, &content, &m.Score); err != nil {
			return nil, fmt.Errorf("vectorstore: scan: %w", err)
		}
		m.Metadata = map[string]string{"content": content, "namespace": filter.Namespace}
		out = append(out, m)
	}
	return out, rows.Err()
}
