package models

import "time"

// Chunk is a contiguous slice of chapter text used as the retrieval unit.
// Offsets are character positions into the chapter source; a chunk is
// immutable once produced and ChunkID is unique within (BookID, ChapterIndex).
type Chunk struct {
	BookID       string `json:"bookID"`
	ChapterIndex int    `json:"chapterIndex"`
	ChunkID      int    `json:"chunkID"`
	Text         string `json:"text"`
	StartOffset  int    `json:"startOffset"`
	EndOffset    int    `json:"endOffset"`
}

// EmbeddingRecord pairs a chunk with its vector. One record per chunk;
// records are upserted, never mutated, keyed by (BookID, ChapterIndex, ChunkID).
type EmbeddingRecord struct {
	BookID       string    `json:"bookID"`
	ChapterIndex int       `json:"chapterIndex"`
	ChunkID      int       `json:"chunkID"`
	Vector       []float32 `json:"vector"`
	SourceText   string    `json:"sourceText"`
	StartOffset  int       `json:"startOffset"`
	EndOffset    int       `json:"endOffset"`
}

// RecordFromChunk pairs a chunk with its vector.
func RecordFromChunk(c Chunk, vec []float32) EmbeddingRecord {
	return EmbeddingRecord{
		BookID:       c.BookID,
		ChapterIndex: c.ChapterIndex,
		ChunkID:      c.ChunkID,
		Vector:       vec,
		SourceText:   c.Text,
		StartOffset:  c.StartOffset,
		EndOffset:    c.EndOffset,
	}
}

// RetrievalResult is a per-query, ephemeral ranked match.
// Similarity is the boosted score in [0,1]; RawSimilarity the pre-boost cosine.
type RetrievalResult struct {
	Content       string  `json:"content"`
	ChapterIndex  int     `json:"chapterIndex"`
	StartOffset   int     `json:"startOffset"`
	EndOffset     int     `json:"endOffset"`
	Similarity    float64 `json:"similarity"`
	RawSimilarity float64 `json:"-"`
}

// EnhancementCategory selects which facet of an enhancement carries the
// primary content.
type EnhancementCategory string

const (
	CategoryConcept    EnhancementCategory = "concept"
	CategoryHistorical EnhancementCategory = "historical"
	CategoryCultural   EnhancementCategory = "cultural"
	CategoryGeneral    EnhancementCategory = "general"
)

// Valid reports whether c is one of the known categories.
func (c EnhancementCategory) Valid() bool {
	switch c {
	case CategoryConcept, CategoryHistorical, CategoryCultural, CategoryGeneral:
		return true
	}
	return false
}

// EnhancementData is the structured body of an enhancement.
type EnhancementData struct {
	Concepts    []string `json:"concepts,omitempty"`
	Historical  []string `json:"historical,omitempty"`
	Cultural    []string `json:"cultural,omitempty"`
	Connections []string `json:"connections,omitempty"`
}

// TokenUsage is the provider-reported token accounting for one model call.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// EnhancementResult is the sole payload handed downstream for persistence.
type EnhancementResult struct {
	Category     EnhancementCategory `json:"category"`
	Data         EnhancementData     `json:"data"`
	Summary      string              `json:"summary"`
	Confidence   float64             `json:"confidence"`
	Usage        TokenUsage          `json:"usage"`
	CostEstimate float64             `json:"costEstimate"`
}

// BenchmarkSample is one logged measurement of a retrieval or enhancement
// operation, kept in a bounded ring for offline quality tracking.
type BenchmarkSample struct {
	QueryType      string            `json:"queryType"`
	Parameters     map[string]string `json:"parameters,omitempty"`
	ResponseTimeMs float64           `json:"responseTimeMs"`
	ResultCount    int               `json:"resultCount"`
	PathsUsed      []string          `json:"pathsUsed,omitempty"`
	At             time.Time         `json:"at"`
}
