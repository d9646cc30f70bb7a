package vectorstore

import (
	"context"
	"fmt"

	"folio/internal/models"
)

// UpsertBatchSize bounds one write transaction.
const UpsertBatchSize = 100

// QueryParams tune one similarity query.
type QueryParams struct {
	// Limit caps the result count.
	Limit int
	// Threshold filters on boosted similarity.
	Threshold float64
	// ChapterPriority, when set, boosts candidates from that chapter so
	// content from the chapter being read ranks first without excluding
	// the rest of the book.
	ChapterPriority *int
}

// VectorStore owns the EmbeddingRecord lifecycle and answers
// nearest-neighbor queries per book. An unknown book yields an empty
// result, never an error.
type VectorStore interface {
	Upsert(ctx context.Context, bookID string, recs []models.EmbeddingRecord) error
	Query(ctx context.Context, bookID string, query []float32, p QueryParams) ([]models.RetrievalResult, error)
	DeleteBook(ctx context.Context, bookID string) error
}

// BatchError reports which upsert batch failed so the caller can decide
// whether to retry the whole ingestion or resume.
type BatchError struct {
	Batch int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("vectorstore: upsert batch %d failed: %v", e.Batch, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// batches cuts recs into UpsertBatchSize groups, preserving order.
func batches(recs []models.EmbeddingRecord) [][]models.EmbeddingRecord {
	var out [][]models.EmbeddingRecord
	for start := 0; start < len(recs); start += UpsertBatchSize {
		end := start + UpsertBatchSize
		if end > len(recs) {
			end = len(recs)
		}
		out = append(out, recs[start:end])
	}
	return out
}
