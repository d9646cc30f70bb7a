package retriever

import (
	"context"
	"fmt"

	"folio/internal/models"
	"folio/internal/vectorstore"
)

// Default similarity thresholds. General queries run strict; read-through
// lookups relax the cut so in-chapter context is not starved. Callers tune
// precision/recall by passing their own value.
const (
	DefaultThreshold = 0.70
	ReadingThreshold = 0.65
)

// DefaultLimit caps results when the caller does not say.
const DefaultLimit = 5

// Embedder is the single capability the retriever needs from the embedding
// layer.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// Params tune one retrieval.
type Params struct {
	Limit           int
	Threshold       float64
	ChapterPriority *int
}

// Retriever turns query text into ranked supporting context. It is
// orchestration only: embed, then delegate ranking to the vector store, so
// alternate ranking policies can swap in without touching storage.
type Retriever struct {
	emb Embedder
	vs  vectorstore.VectorStore
}

func New(emb Embedder, vs vectorstore.VectorStore) *Retriever {
	return &Retriever{emb: emb, vs: vs}
}

// Retrieve embeds queryText and returns the ranked context set for bookID.
func (r *Retriever) Retrieve(ctx context.Context, bookID, queryText string, p Params) ([]models.RetrievalResult, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Threshold == 0 {
		p.Threshold = DefaultThreshold
	}
	qv, err := r.emb.EmbedOne(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("retrieve: embed query: %w", err)
	}
	res, err := r.vs.Query(ctx, bookID, qv, vectorstore.QueryParams{
		Limit:           p.Limit,
		Threshold:       p.Threshold,
		ChapterPriority: p.ChapterPriority,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve: query store: %w", err)
	}
	return res, nil
}
