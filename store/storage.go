package store

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"vta/types"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// CollectionStorer is the persistent vector collection: one entry per
// indexed segment, k-nearest-neighbour search by cosine similarity.
type CollectionStorer interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, seg types.Segment, embedding []float32) error
	Search(ctx context.Context, query []float32, topK int) ([]types.ScoredSegment, error)
	Close() error
}

type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

var identRe = regexp.MustCompile(`[^a-z0-9_]+`)

// collectionTable maps a logical collection name onto a safe SQL identifier.
func collectionTable(collection string) string {
	name := identRe.ReplaceAllString(strings.ToLower(collection), "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "c_" + name
	}
	return name
}

func NewPostgresStore(ctx context.Context, connStr, collection string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool:  pool,
		table: collectionTable(collection),
	}, nil
}

// Init creates the collection table if it does not exist yet. Re-running
// ingestion reuses the existing collection, there is no wipe-on-start.
func (p *PostgresStore) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
    CREATE EXTENSION IF NOT EXISTS vector;

    CREATE TABLE IF NOT EXISTS %[1]s (
        id UUID PRIMARY KEY,
        position INT NOT NULL DEFAULT 0,
        content TEXT NOT NULL,
        metadata JSONB NOT NULL DEFAULT '{}',
        embedding vector(1536) -- text-embedding-ada-002
    );

    CREATE INDEX IF NOT EXISTS idx_%[1]s_embedding ON %[1]s USING ivfflat (embedding vector_cosine_ops)
    WITH (lists = 100);
    `, p.table)
	_, err := p.pool.Exec(ctx, query)
	return err
}

// Upsert writes one segment. Segment IDs are content-derived, so a repeated
// ingestion run overwrites the matching entry instead of duplicating it.
func (p *PostgresStore) Upsert(ctx context.Context, seg types.Segment, embedding []float32) error {
	query := fmt.Sprintf(`
    INSERT INTO %s (id, position, content, metadata, embedding)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (id) DO UPDATE SET
        position = EXCLUDED.position,
        content = EXCLUDED.content,
        metadata = EXCLUDED.metadata,
        embedding = EXCLUDED.embedding
    `, p.table)
	_, err := p.pool.Exec(ctx, query,
		seg.ID, seg.Index, seg.Text, seg.Metadata, pgvector.NewVector(embedding),
	)
	return err
}

// Search returns up to topK segments ordered by descending cosine similarity.
// An empty collection yields an empty result, not an error.
func (p *PostgresStore) Search(ctx context.Context, queryVec []float32, topK int) ([]types.ScoredSegment, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	vector := pgvector.NewVector(queryVec)

	query := fmt.Sprintf(`
    SELECT id, position, content, metadata,
           1 - (embedding <=> $1) AS similarity
    FROM %s
    WHERE embedding IS NOT NULL
    ORDER BY embedding <=> $1
    LIMIT $2
    `, p.table)
	rows, err := p.pool.Query(ctx, query, vector, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []types.ScoredSegment
	for rows.Next() {
		var r types.ScoredSegment
		if err := rows.Scan(
			&r.ID,
			&r.Index,
			&r.Text,
			&r.Metadata,
			&r.Similarity); err != nil {
			return nil, err
		}
		log.Printf("[SEARCH] segment %s (similarity: %.4f)", r.ID, r.Similarity)
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close releases the connection pool.
func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
