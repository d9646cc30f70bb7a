package embedding

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeEmb struct {
	calls [][]string
	fail  bool
	delay time.Duration
}

func (f *fakeEmb) Embeddings(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	cp := make([]string, len(inputs))
	copy(cp, inputs)
	f.calls = append(f.calls, cp)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail {
		return nil, errors.New("upstream down")
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func TestNewValidation(t *testing.T) {
	if _, err := New(&fakeEmb{}, "", 3); err == nil {
		t.Fatal("expected error for empty model")
	}
	if _, err := New(&fakeEmb{}, "m", 0); err == nil {
		t.Fatal("expected error for zero dimension")
	}
}

func TestEmbedBatchGrouping(t *testing.T) {
	fe := &fakeEmb{}
	a, err := New(fe, "m", 3, WithBatchSize(2), WithBatchGap(0))
	if err != nil {
		t.Fatal(err)
	}
	texts := []string{"a", "b", "c", "d", "e"}
	vecs, fb, err := a.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if fb != 0 {
		t.Fatalf("unexpected fallbacks: %d", fb)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	if len(fe.calls) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(fe.calls))
	}
	if len(fe.calls[0]) != 2 || len(fe.calls[2]) != 1 {
		t.Fatalf("unexpected batch sizes: %v", fe.calls)
	}
}

func TestEmbedBatchFallbackOnFailure(t *testing.T) {
	fe := &fakeEmb{fail: true}
	a, _ := New(fe, "m", 8, WithBatchSize(2), WithBatchGap(0))
	vecs, fb, err := a.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("provider outage must not surface: %v", err)
	}
	if fb != 3 {
		t.Fatalf("expected 3 fallback vectors, got %d", fb)
	}
	for i, v := range vecs {
		if len(v) != 8 {
			t.Fatalf("vector %d has dim %d, want 8", i, len(v))
		}
	}
	// deterministic per position
	again, _, _ := a.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	for i := range vecs {
		for j := range vecs[i] {
			if vecs[i][j] != again[i][j] {
				t.Fatalf("fallback vector %d not deterministic", i)
			}
		}
	}
}

func TestEmbedBatchDeadlineDegrades(t *testing.T) {
	fe := &fakeEmb{delay: 200 * time.Millisecond}
	a, _ := New(fe, "m", 4, WithBatchSize(1), WithBatchGap(0), WithDeadline(50*time.Millisecond))
	vecs, fb, err := a.EmbedBatch(context.Background(), []string{"a", "b", "c", "d"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 4 {
		t.Fatalf("expected 4 vectors, got %d", len(vecs))
	}
	if fb == 0 {
		t.Fatal("expected deadline to force fallback vectors")
	}
	// at most one upstream call should have been in flight when the
	// deadline expired; the rest must not call upstream at all
	if len(fe.calls) > 2 {
		t.Fatalf("expected remaining batches to skip upstream, got %d calls", len(fe.calls))
	}
}

func TestFallbackVectorUnitNorm(t *testing.T) {
	v := FallbackVector(7, 32)
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm < 0.99 || norm > 1.01 {
		t.Fatalf("fallback vector not unit length: %f", norm)
	}
}

func TestEmbedOne(t *testing.T) {
	a, _ := New(&fakeEmb{}, "m", 3, WithBatchGap(0))
	v, err := a.EmbedOne(context.Background(), "query")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 3 {
		t.Fatalf("unexpected vector: %v", v)
	}
}
