package ingest

import (
	"context"
	"fmt"

	"folio/internal/chunker"
	"folio/internal/embedding"
	"folio/internal/log"
	"folio/internal/models"
	"folio/internal/vectorstore"
)

// ChapterSource supplies chapter text. It stands in for the book storage
// collaborator; text is assumed UTF-8 with markup already stripped.
type ChapterSource interface {
	ChapterText(ctx context.Context, bookID string, chapterIndex int) (string, error)
}

// Stats summarizes one ingestion run.
type Stats struct {
	Chapters  int `json:"chapters"`
	Chunks    int `json:"chunks"`
	Fallbacks int `json:"fallbacks"`
}

// Pipeline drives chapter text through chunking, embedding and storage.
// Re-running it over a book upserts records, so a chunking config change
// supersedes the previous index.
type Pipeline struct {
	source  ChapterSource
	adapter *embedding.Adapter
	vs      vectorstore.VectorStore
	cfg     chunker.Config
	logger  *log.Logger
}

func New(source ChapterSource, adapter *embedding.Adapter, vs vectorstore.VectorStore, cfg chunker.Config, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New()
	}
	return &Pipeline{source: source, adapter: adapter, vs: vs, cfg: cfg, logger: logger}
}

// IngestChapter chunks, embeds and stores one chapter. Returns the chunk
// count and how many vectors were fallback-generated.
func (p *Pipeline) IngestChapter(ctx context.Context, bookID string, chapterIndex int) (int, int, error) {
	text, err := p.source.ChapterText(ctx, bookID, chapterIndex)
	if err != nil {
		return 0, 0, fmt.Errorf("ingest: chapter %d: %w", chapterIndex, err)
	}
	chunks, err := chunker.Chunk(text, bookID, chapterIndex, p.cfg)
	if err != nil {
		return 0, 0, fmt.Errorf("ingest: chunk chapter %d: %w", chapterIndex, err)
	}
	if len(chunks) == 0 {
		return 0, 0, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, fallbacks, err := p.adapter.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, 0, fmt.Errorf("ingest: embed chapter %d: %w", chapterIndex, err)
	}
	recs := make([]models.EmbeddingRecord, len(chunks))
	for i := range chunks {
		recs[i] = models.RecordFromChunk(chunks[i], vecs[i])
	}
	if err := p.vs.Upsert(ctx, bookID, recs); err != nil {
		return 0, 0, fmt.Errorf("ingest: store chapter %d: %w", chapterIndex, err)
	}
	return len(chunks), fallbacks, nil
}

// IngestBook ingests chapters [0, chapters). Chapters are processed in
// order; the first failure aborts with context on how far it got.
func (p *Pipeline) IngestBook(ctx context.Context, bookID string, chapters int) (Stats, error) {
	var st Stats
	for idx := 0; idx < chapters; idx++ {
		n, fb, err := p.IngestChapter(ctx, bookID, idx)
		if err != nil {
			return st, fmt.Errorf("ingest book %s after %d chapters: %w", bookID, st.Chapters, err)
		}
		st.Chapters++
		st.Chunks += n
		st.Fallbacks += fb
	}
	p.logger.Info("book ingested", "book", bookID,
		"chapters", st.Chapters, "chunks", st.Chunks, "fallbacks", st.Fallbacks)
	return st, nil
}
