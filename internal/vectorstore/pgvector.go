package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"folio/internal/models"
)

// PgVector stores embeddings in Postgres with the pgvector extension.
// The index narrows the candidate superset server-side; final scoring,
// boosting and tie-breaking run in Go through the shared rank pipeline so
// results are identical to the other backends.
type PgVector struct {
	db        *sql.DB
	dimension int
}

// OpenPgVector connects and ensures the table exists.
func OpenPgVector(dsn string, dimension int) (*PgVector, error) {
	if dimension <= 0 {
		return nil, errors.New("pgvector: dimension must be positive")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgvector open: %w", err)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	s := &PgVector{db: db, dimension: dimension}
	if err := s.ensureTable(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgVector) ensureTable() error {
	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS book_embeddings (
  book_id      text NOT NULL,
  chapter_idx  integer NOT NULL,
  chunk_id     integer NOT NULL,
  source_text  text NOT NULL,
  start_off    integer NOT NULL,
  end_off      integer NOT NULL,
  seq          bigserial,
  embedding    vector(%d),
  created_at   timestamptz NOT NULL DEFAULT now(),
  PRIMARY KEY (book_id, chapter_idx, chunk_id)
);
CREATE INDEX IF NOT EXISTS book_embeddings_book_idx ON book_embeddings (book_id);
CREATE INDEX IF NOT EXISTS book_embeddings_vec_idx ON book_embeddings USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`, s.dimension)
	_, err := s.db.Exec(ddl)
	return err
}

func (s *PgVector) Close() error { return s.db.Close() }

func (s *PgVector) Upsert(ctx context.Context, bookID string, recs []models.EmbeddingRecord) error {
	for bi, batch := range batches(recs) {
		if err := s.upsertBatch(ctx, bookID, batch); err != nil {
			return &BatchError{Batch: bi, Err: err}
		}
	}
	return nil
}

func (s *PgVector) upsertBatch(ctx context.Context, bookID string, batch []models.EmbeddingRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt := `
INSERT INTO book_embeddings (book_id, chapter_idx, chunk_id, source_text, start_off, end_off, embedding)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (book_id, chapter_idx, chunk_id) DO UPDATE SET
  source_text=EXCLUDED.source_text,
  start_off=EXCLUDED.start_off,
  end_off=EXCLUDED.end_off,
  embedding=EXCLUDED.embedding`
	for _, r := range batch {
		lit, err := toVectorLiteral(r.Vector, s.dimension)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, stmt,
			bookID, r.ChapterIndex, r.ChunkID, r.SourceText, r.StartOffset, r.EndOffset, lit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PgVector) Query(ctx context.Context, bookID string, query []float32, p QueryParams) ([]models.RetrievalResult, error) {
	lit, err := toVectorLiteral(query, s.dimension)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT chapter_idx, chunk_id, source_text, start_off, end_off, seq, embedding::text
FROM book_embeddings
WHERE book_id = $1
ORDER BY embedding <=> $2
LIMIT $3`, bookID, lit, candidateLimit(p.Limit))
	if err != nil {
		return nil, fmt.Errorf("pgvector query: %w", err)
	}
	defer rows.Close()
	var cands []candidate
	for rows.Next() {
		var r models.EmbeddingRecord
		var seq int
		var embStr string
		if err := rows.Scan(&r.ChapterIndex, &r.ChunkID, &r.SourceText, &r.StartOffset, &r.EndOffset, &seq, &embStr); err != nil {
			return nil, err
		}
		vec, err := parseVectorLiteral(embStr)
		if err != nil {
			continue
		}
		r.BookID = bookID
		r.Vector = vec
		cands = append(cands, candidate{rec: r, order: seq})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, nil
	}
	return rank(cands, query, p), nil
}

func (s *PgVector) DeleteBook(ctx context.Context, bookID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM book_embeddings WHERE book_id = $1`, bookID)
	return err
}

// toVectorLiteral renders a pgvector text literal, enforcing the store's
// fixed dimension.
func toVectorLiteral(vec []float32, dim int) (string, error) {
	if len(vec) != dim {
		return "", fmt.Errorf("pgvector: vector dim %d, store dim %d", len(vec), dim)
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}

func parseVectorLiteral(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, errors.New("pgvector: empty literal")
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}
