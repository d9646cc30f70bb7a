package vectorstore

import (
	"context"
	"sync"

	"folio/internal/models"
)

// Memory is an in-process store used by tests, the quality evaluator and
// single-user dev setups. Reads take a shared lock; writes serialize.
type Memory struct {
	mu    sync.RWMutex
	books map[string][]candidate
	seq   int
}

func NewMemory() *Memory {
	return &Memory{books: make(map[string][]candidate)}
}

func (m *Memory) Upsert(ctx context.Context, bookID string, recs []models.EmbeddingRecord) error {
	for bi, batch := range batches(recs) {
		if err := ctx.Err(); err != nil {
			return &BatchError{Batch: bi, Err: err}
		}
		m.mu.Lock()
		for _, r := range batch {
			m.upsertOne(bookID, r)
		}
		m.mu.Unlock()
	}
	return nil
}

// upsertOne replaces the record with the same (chapter, chunk) key or
// appends a new one. Caller holds the write lock.
func (m *Memory) upsertOne(bookID string, r models.EmbeddingRecord) {
	r.BookID = bookID
	list := m.books[bookID]
	for i := range list {
		if list[i].rec.ChapterIndex == r.ChapterIndex && list[i].rec.ChunkID == r.ChunkID {
			list[i].rec = r
			return
		}
	}
	m.seq++
	m.books[bookID] = append(list, candidate{rec: r, order: m.seq})
}

func (m *Memory) Query(ctx context.Context, bookID string, query []float32, p QueryParams) ([]models.RetrievalResult, error) {
	m.mu.RLock()
	list := m.books[bookID]
	cands := make([]candidate, len(list))
	copy(cands, list)
	m.mu.RUnlock()
	if len(cands) == 0 {
		return nil, nil
	}
	return rank(cands, query, p), nil
}

func (m *Memory) DeleteBook(ctx context.Context, bookID string) error {
	m.mu.Lock()
	delete(m.books, bookID)
	m.mu.Unlock()
	return nil
}

// Count reports stored records for a book (tests, stats).
func (m *Memory) Count(bookID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books[bookID])
}
