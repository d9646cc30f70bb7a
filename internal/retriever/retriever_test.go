package retriever

import (
	"context"
	"errors"
	"testing"

	"folio/internal/models"
	"folio/internal/vectorstore"
)

type fakeEmb struct {
	vec  []float32
	err  error
	last string
}

func (f *fakeEmb) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	f.last = text
	return f.vec, f.err
}

type fakeVS struct {
	gotQuery  []float32
	gotParams vectorstore.QueryParams
	results   []models.RetrievalResult
}

func (f *fakeVS) Upsert(ctx context.Context, bookID string, recs []models.EmbeddingRecord) error {
	return nil
}
func (f *fakeVS) Query(ctx context.Context, bookID string, q []float32, p vectorstore.QueryParams) ([]models.RetrievalResult, error) {
	f.gotQuery = q
	f.gotParams = p
	return f.results, nil
}
func (f *fakeVS) DeleteBook(ctx context.Context, bookID string) error { return nil }

func TestRetrievePassesThrough(t *testing.T) {
	emb := &fakeEmb{vec: []float32{0.1, 0.2}}
	vs := &fakeVS{results: []models.RetrievalResult{{Content: "ctx", Similarity: 0.9}}}
	r := New(emb, vs)
	pri := 4
	got, err := r.Retrieve(context.Background(), "b1", "what is sfumato?", Params{
		Limit: 3, Threshold: ReadingThreshold, ChapterPriority: &pri,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "ctx" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if emb.last != "what is sfumato?" {
		t.Fatalf("query text not embedded: %q", emb.last)
	}
	if len(vs.gotQuery) != 2 {
		t.Fatal("query vector not forwarded")
	}
	if vs.gotParams.Limit != 3 || vs.gotParams.Threshold != ReadingThreshold {
		t.Fatalf("params not forwarded: %+v", vs.gotParams)
	}
	if vs.gotParams.ChapterPriority == nil || *vs.gotParams.ChapterPriority != 4 {
		t.Fatal("chapter priority not forwarded")
	}
}

func TestRetrieveDefaults(t *testing.T) {
	emb := &fakeEmb{vec: []float32{1}}
	vs := &fakeVS{}
	r := New(emb, vs)
	if _, err := r.Retrieve(context.Background(), "b1", "q", Params{}); err != nil {
		t.Fatal(err)
	}
	if vs.gotParams.Limit != DefaultLimit {
		t.Fatalf("default limit not applied: %d", vs.gotParams.Limit)
	}
	if vs.gotParams.Threshold != DefaultThreshold {
		t.Fatalf("default threshold not applied: %f", vs.gotParams.Threshold)
	}
}

func TestRetrieveEmbedError(t *testing.T) {
	emb := &fakeEmb{err: errors.New("boom")}
	r := New(emb, &fakeVS{})
	if _, err := r.Retrieve(context.Background(), "b1", "q", Params{}); err == nil {
		t.Fatal("expected error")
	}
}
