package chunker

import (
	"errors"
	"fmt"
	"strings"

	"folio/internal/models"
)

// ErrInvalidConfig marks a malformed chunking configuration.
var ErrInvalidConfig = errors.New("invalid chunk config")

// MinChunkLen is the minimum viable chunk length in characters; shorter
// fragments are too small to be useful retrieval units and are dropped.
const MinChunkLen = 100

// Boundary acceptance cutoffs as a fraction of the window. A paragraph
// break counts only past 60% of the window, a sentence break only past 70%;
// earlier breaks would shrink the window for no semantic gain.
const (
	paraCutoff     = 0.60
	sentenceCutoff = 0.70
)

// Config controls the chunk window.
type Config struct {
	TargetSize int `yaml:"target_size" json:"targetSize"`
	Overlap    int `yaml:"overlap" json:"overlap"`
}

// DefaultConfig is the tuned production window.
func DefaultConfig() Config { return Config{TargetSize: 600, Overlap: 150} }

func (c Config) validate() error {
	if c.TargetSize <= 0 {
		return fmt.Errorf("%w: target size %d must be positive", ErrInvalidConfig, c.TargetSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.TargetSize {
		return fmt.Errorf("%w: overlap %d must be in [0,%d)", ErrInvalidConfig, c.Overlap, c.TargetSize)
	}
	return nil
}

// Chunk splits chapter text into overlapping, boundary-aware chunks.
// It is a pure function: identical input always yields the identical
// sequence, which the quality evaluator relies on.
func Chunk(text string, bookID string, chapterIndex int, cfg Config) ([]models.Chunk, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}
	var chunks []models.Chunk
	start := 0
	seq := 0
	for start < len(text) {
		end := start + cfg.TargetSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = adjustBoundary(text, start, end)
		}
		piece := text[start:end]
		if len(piece) >= MinChunkLen && strings.TrimSpace(piece) != "" {
			chunks = append(chunks, models.Chunk{
				BookID:       bookID,
				ChapterIndex: chapterIndex,
				ChunkID:      seq,
				Text:         piece,
				StartOffset:  start,
				EndOffset:    end,
			})
			seq++
		}
		if end >= len(text) {
			break
		}
		next := end - cfg.Overlap
		if next <= start {
			// degenerate overlap: keep forward progress
			next = end
		}
		start = next
	}
	return chunks, nil
}

// adjustBoundary looks backward within [start,end) for a deliberate text
// boundary, preferring a paragraph break over a sentence terminator.
func adjustBoundary(text string, start, end int) int {
	window := text[start:end]
	if i := strings.LastIndex(window, "\n\n"); i >= 0 {
		if float64(i) >= float64(len(window))*paraCutoff {
			return start + i + 2
		}
	}
	if i := lastSentenceEnd(window); i >= 0 {
		if float64(i) >= float64(len(window))*sentenceCutoff {
			return start + i + 2
		}
	}
	return end
}

// lastSentenceEnd returns the index of the last '.', '!' or '?' that is
// followed by a space, or -1.
func lastSentenceEnd(s string) int {
	for i := len(s) - 2; i >= 0; i-- {
		switch s[i] {
		case '.', '!', '?':
			if s[i+1] == ' ' {
				return i
			}
		}
	}
	return -1
}
