package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/answerdesk/answerdesk/pkg/contracts"
	"github.com/answerdesk/answerdesk/pkg/models"
)

// PgvectorStore implements VectorStoreDriver using PostgreSQL with the
// pgvector extension. Users must provide their own PostgreSQL instance with
// pgvector installed.
type PgvectorStore struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewPgvectorStore creates a pgvector-backed vector store.
// It creates the required table and indexes if they don't exist.
func NewPgvectorStore(ctx context.Context, connURL string, dimensions int) (*PgvectorStore, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("pgvector connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector ping: %w", err)
	}

	s := &PgvectorStore{pool: pool, dimensions: dimensions}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgvector migrate: %w", err)
	}

	log.Info().Int("dims", dimensions).Msg("pgvector store initialized")
	return s, nil
}

func (s *PgvectorStore) migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS ad_chunks (
			id         TEXT PRIMARY KEY,
			source_id  TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL DEFAULT '',
			metadata   JSONB NOT NULL DEFAULT '{}',
			vector     vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_ad_chunks_source ON ad_chunks (source_id);
	`, s.dimensions)

	_, err := s.pool.Exec(ctx, ddl)
	return err
}

func (s *PgvectorStore) Name() string { return "pgvector" }

func (s *PgvectorStore) Upsert(ctx context.Context, chunks []contracts.VectorChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO ad_chunks (id, source_id, content, metadata, vector) VALUES `)

	args := make([]interface{}, 0, len(chunks)*5)
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i*5 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", base, base+1, base+2, base+3, base+4))
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		metadata := c.Metadata
		if metadata == nil {
			metadata = map[string]string{}
		}
		args = append(args, id, c.SourceID, c.Content, metadata, pgvectorArray(c.Vector))
	}

	sb.WriteString(` ON CONFLICT (id) DO UPDATE SET
		source_id = EXCLUDED.source_id,
		content = EXCLUDED.content,
		metadata = EXCLUDED.metadata,
		vector = EXCLUDED.vector`)

	_, err := s.pool.Exec(ctx, sb.String(), args...)
	return err
}

func (s *PgvectorStore) Search(ctx context.Context, vector []float32, limit int, threshold float64) ([]models.Snippet, error) {
	query := `SELECT id, content, metadata, 1 - (vector <=> $1) AS score
		FROM ad_chunks
		WHERE 1 - (vector <=> $1) >= $2
		ORDER BY vector <=> $1
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, pgvectorArray(vector), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	defer rows.Close()

	var results []models.Snippet
	for rows.Next() {
		var snip models.Snippet
		if err := rows.Scan(&snip.ID, &snip.Content, &snip.Metadata, &snip.Similarity); err != nil {
			return nil, fmt.Errorf("pgvector scan: %w", err)
		}
		results = append(results, snip)
	}
	return results, rows.Err()
}

func (s *PgvectorStore) DeleteBySource(ctx context.Context, sourceID string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM ad_chunks WHERE source_id = $1", sourceID)
	return err
}

// Count reports how many chunks are stored.
func (s *PgvectorStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ad_chunks").Scan(&count)
	return count, err
}

func (s *PgvectorStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PgvectorStore) Close() {
	s.pool.Close()
}

// pgvectorArray converts a vector to pgvector's text format: [1.0,2.0,3.0]
func pgvectorArray(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(fmt.Sprintf("%g", f))
	}
	sb.WriteByte(']')
	return sb.String()
}
