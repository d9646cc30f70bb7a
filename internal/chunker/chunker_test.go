package chunker

import (
	"errors"
	"strings"
	"testing"
)

func TestChunkEmptyText(t *testing.T) {
	got, err := Chunk("", "b1", 0, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no chunks, got %d", len(got))
	}
}

func TestChunkConfigValidation(t *testing.T) {
	cases := []Config{
		{TargetSize: 0, Overlap: 0},
		{TargetSize: -5, Overlap: 0},
		{TargetSize: 100, Overlap: 100},
		{TargetSize: 100, Overlap: -1},
	}
	for _, cfg := range cases {
		if _, err := Chunk("some text", "b1", 0, cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("cfg %+v: expected ErrInvalidConfig, got %v", cfg, err)
		}
	}
}

func TestChunkOverlapAndMinLength(t *testing.T) {
	// 1450 chars of running prose, no natural boundaries near cut points
	text := strings.Repeat("lorem ipsum dolor sit amet ", 54)[:1450]
	chunks, err := Chunk(text, "b1", 3, Config{TargetSize: 600, Overlap: 150})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Text) < MinChunkLen {
			t.Fatalf("chunk %d shorter than minimum: %d", i, len(c.Text))
		}
		if c.StartOffset < 0 || c.EndOffset > len(text) || c.StartOffset >= c.EndOffset {
			t.Fatalf("chunk %d has bad offsets [%d,%d)", i, c.StartOffset, c.EndOffset)
		}
		if c.ChapterIndex != 3 || c.BookID != "b1" {
			t.Fatalf("chunk %d lost identity: %+v", i, c)
		}
		if c.ChunkID != i {
			t.Fatalf("chunk %d has sequence %d", i, c.ChunkID)
		}
	}
	if chunks[1].StartOffset >= chunks[0].EndOffset {
		t.Fatalf("expected overlap: chunk1 starts at %d, chunk0 ends at %d",
			chunks[1].StartOffset, chunks[0].EndOffset)
	}
}

func TestChunkPrefersParagraphBreak(t *testing.T) {
	// paragraph break placed past 60% of the 200-char window
	para1 := strings.Repeat("a", 150)
	para2 := strings.Repeat("b", 200)
	text := para1 + "\n\n" + para2
	chunks, err := Chunk(text, "b1", 0, Config{TargetSize: 200, Overlap: 20})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if chunks[0].EndOffset != len(para1)+2 {
		t.Fatalf("expected cut after paragraph break at %d, got %d", len(para1)+2, chunks[0].EndOffset)
	}
}

func TestChunkRejectsEarlyBoundary(t *testing.T) {
	// sentence end at 50% of window is a false semantic cut; expect hard cut
	text := strings.Repeat("x", 100) + ". " + strings.Repeat("y", 200)
	chunks, err := Chunk(text, "b1", 0, Config{TargetSize: 200, Overlap: 0})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if chunks[0].EndOffset != 200 {
		t.Fatalf("expected hard cut at 200, got %d", chunks[0].EndOffset)
	}
}

func TestChunkAcceptsLateSentenceBreak(t *testing.T) {
	// sentence end at 80% of the window qualifies
	text := strings.Repeat("x", 159) + ". " + strings.Repeat("y", 200)
	chunks, err := Chunk(text, "b1", 0, Config{TargetSize: 200, Overlap: 0})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	if chunks[0].EndOffset != 161 {
		t.Fatalf("expected cut after sentence break at 161, got %d", chunks[0].EndOffset)
	}
}

func TestChunkDeterminism(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40)
	cfg := Config{TargetSize: 500, Overlap: 100}
	a, err := Chunk(text, "b1", 1, cfg)
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	b, _ := Chunk(text, "b1", 1, cfg)
	if len(a) != len(b) {
		t.Fatalf("nondeterministic chunk count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkCoverage(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta epsilon zeta eta theta. ", 30)
	chunks, err := Chunk(text, "b1", 0, Config{TargetSize: 400, Overlap: 80})
	if err != nil {
		t.Fatalf("chunk: %v", err)
	}
	covered := make([]bool, len(text))
	for _, c := range chunks {
		for i := c.StartOffset; i < c.EndOffset; i++ {
			covered[i] = true
		}
	}
	// everything before the final chunk's end must be covered; a sub-minimum
	// tail may legitimately be dropped
	last := 0
	for _, c := range chunks {
		if c.EndOffset > last {
			last = c.EndOffset
		}
	}
	for i := 0; i < last; i++ {
		if !covered[i] {
			t.Fatalf("character %d not covered by any chunk", i)
		}
	}
	if len(text)-last >= MinChunkLen {
		t.Fatalf("dropped tail of %d chars exceeds minimum chunk length", len(text)-last)
	}
}
