package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"folio/internal/models"
)

// SQLite persists embeddings in a local database file. Similarity is
// computed in Go over the book's rows, so ranking matches the other
// backends exactly.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS embeddings (
  book_id      TEXT NOT NULL,
  chapter_idx  INTEGER NOT NULL,
  chunk_id     INTEGER NOT NULL,
  vector       TEXT NOT NULL,
  source_text  TEXT NOT NULL,
  start_off    INTEGER NOT NULL,
  end_off      INTEGER NOT NULL,
  seq          INTEGER,
  created_at   TEXT NOT NULL,
  PRIMARY KEY (book_id, chapter_idx, chunk_id)
);
CREATE INDEX IF NOT EXISTS embeddings_book_idx ON embeddings(book_id);
`

// OpenSQLite opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for tests.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// a single writer keeps per-book upserts serialized
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Upsert(ctx context.Context, bookID string, recs []models.EmbeddingRecord) error {
	now := time.Now().Format(time.RFC3339)
	for bi, batch := range batches(recs) {
		if err := s.upsertBatch(ctx, bookID, batch, now); err != nil {
			return &BatchError{Batch: bi, Err: err}
		}
	}
	return nil
}

func (s *SQLite) upsertBatch(ctx context.Context, bookID string, batch []models.EmbeddingRecord, now string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, r := range batch {
		vecJSON, err := json.Marshal(r.Vector)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO embeddings(book_id, chapter_idx, chunk_id, vector, source_text, start_off, end_off, seq, created_at)
VALUES(?,?,?,?,?,?,?,
  (SELECT COALESCE(MAX(seq),0)+1 FROM embeddings),
  ?)
ON CONFLICT(book_id, chapter_idx, chunk_id) DO UPDATE SET
  vector=excluded.vector,
  source_text=excluded.source_text,
  start_off=excluded.start_off,
  end_off=excluded.end_off`,
			bookID, r.ChapterIndex, r.ChunkID, string(vecJSON), r.SourceText, r.StartOffset, r.EndOffset, now)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) Query(ctx context.Context, bookID string, query []float32, p QueryParams) ([]models.RetrievalResult, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT chapter_idx, chunk_id, vector, source_text, start_off, end_off, seq
FROM embeddings WHERE book_id=? ORDER BY seq`, bookID)
	if err != nil {
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	defer rows.Close()
	var cands []candidate
	for rows.Next() {
		var r models.EmbeddingRecord
		var vecStr string
		var seq int
		if err := rows.Scan(&r.ChapterIndex, &r.ChunkID, &vecStr, &r.SourceText, &r.StartOffset, &r.EndOffset, &seq); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(vecStr), &r.Vector); err != nil {
			continue
		}
		r.BookID = bookID
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

func (s *SQLite) DeleteBook(ctx context.Context, bookID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM embeddings WHERE book_id=?`, bookID)
	return err
}
