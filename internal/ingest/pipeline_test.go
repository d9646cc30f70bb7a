package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"folio/internal/chunker"
	"folio/internal/embedding"
	"folio/internal/vectorstore"
)

type fakeSource struct {
	chapters map[int]string
}

func (f *fakeSource) ChapterText(ctx context.Context, bookID string, idx int) (string, error) {
	text, ok := f.chapters[idx]
	if !ok {
		return "", errors.New("chapter not found")
	}
	return text, nil
}

type okEmb struct{}

func (okEmb) Embeddings(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

func newPipeline(t *testing.T, src ChapterSource, vs vectorstore.VectorStore) *Pipeline {
	t.Helper()
	a, err := embedding.New(okEmb{}, "m", 4, embedding.WithBatchGap(0))
	if err != nil {
		t.Fatal(err)
	}
	return New(src, a, vs, chunker.Config{TargetSize: 300, Overlap: 50}, nil)
}

func TestIngestBook(t *testing.T) {
	chapterText := strings.Repeat("a quiet chapter about florentine painters. ", 20)
	src := &fakeSource{chapters: map[int]string{0: chapterText, 1: chapterText}}
	vs := vectorstore.NewMemory()
	p := newPipeline(t, src, vs)
	st, err := p.IngestBook(context.Background(), "b1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if st.Chapters != 2 {
		t.Fatalf("expected 2 chapters, got %d", st.Chapters)
	}
	if st.Chunks == 0 {
		t.Fatal("expected chunks to be stored")
	}
	if got := vs.Count("b1"); got != st.Chunks {
		t.Fatalf("store holds %d records, stats claim %d", got, st.Chunks)
	}
}

func TestIngestEmptyChapter(t *testing.T) {
	src := &fakeSource{chapters: map[int]string{0: ""}}
	p := newPipeline(t, src, vectorstore.NewMemory())
	n, fb, err := p.IngestChapter(context.Background(), "b1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || fb != 0 {
		t.Fatalf("empty chapter produced %d chunks", n)
	}
}

func TestIngestMissingChapterAborts(t *testing.T) {
	src := &fakeSource{chapters: map[int]string{0: strings.Repeat("words and more words. ", 20)}}
	p := newPipeline(t, src, vectorstore.NewMemory())
	st, err := p.IngestBook(context.Background(), "b1", 3)
	if err == nil {
		t.Fatal("expected error for missing chapter")
	}
	if st.Chapters != 1 {
		t.Fatalf("expected 1 completed chapter before abort, got %d", st.Chapters)
	}
}

func TestReingestSupersedes(t *testing.T) {
	text := strings.Repeat("the life of leonardo, painter and engineer. ", 20)
	src := &fakeSource{chapters: map[int]string{0: text}}
	vs := vectorstore.NewMemory()
	p := newPipeline(t, src, vs)
	if _, _, err := p.IngestChapter(context.Background(), "b1", 0); err != nil {
		t.Fatal(err)
	}
	first := vs.Count("b1")
	if _, _, err := p.IngestChapter(context.Background(), "b1", 0); err != nil {
		t.Fatal(err)
	}
	if vs.Count("b1") != first {
		t.Fatalf("re-ingest duplicated records: %d then %d", first, vs.Count("b1"))
	}
}
