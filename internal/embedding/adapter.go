package embedding

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"folio/internal/llm"
	"folio/internal/log"
)

const (
	DefaultDim       = 1536
	DefaultBatchSize = 20
	DefaultBatchGap  = 100 * time.Millisecond
)

// Adapter batches embedding requests against an upstream provider and falls
// back to deterministic pseudo-random vectors when the provider is
// unavailable, so ingestion and retrieval never hard-fail on embeddings.
type Adapter struct {
	emb      llm.Embedder
	model    string
	dim      int
	batch    int
	batchGap time.Duration
	deadline time.Duration
	logger   *log.Logger
}

// Option tunes an Adapter.
type Option func(*Adapter)

func WithBatchSize(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.batch = n
		}
	}
}

func WithBatchGap(d time.Duration) Option {
	return func(a *Adapter) { a.batchGap = d }
}

// WithDeadline bounds one EmbedBatch call overall; batches past the deadline
// use fallback vectors instead of hanging.
func WithDeadline(d time.Duration) Option {
	return func(a *Adapter) { a.deadline = d }
}

func WithLogger(l *log.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// New builds an Adapter. model and dim are programmer-error checked: the
// adapter masks provider outages but never a misconfigured deployment.
func New(emb llm.Embedder, model string, dim int, opts ...Option) (*Adapter, error) {
	if model == "" {
		return nil, errors.New("embedding: model is required")
	}
	if dim <= 0 {
		return nil, errors.New("embedding: dimension must be positive")
	}
	a := &Adapter{
		emb:      emb,
		model:    model,
		dim:      dim,
		batch:    DefaultBatchSize,
		batchGap: DefaultBatchGap,
		logger:   log.New(),
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Dim returns the vector dimension every produced vector has.
func (a *Adapter) Dim() int { return a.dim }

// EmbedBatch embeds texts in fixed-size groups, in order. Upstream failure
// for a group degrades that group (and, once the deadline passed, every
// remaining group) to fallback vectors; the returned slice always has one
// vector per input. The second return value counts fallback vectors.
func (a *Adapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, int, error) {
	if len(texts) == 0 {
		return nil, 0, nil
	}
	if a.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.deadline)
		defer cancel()
	}
	out := make([][]float32, 0, len(texts))
	fallbacks := 0
	for start := 0; start < len(texts); start += a.batch {
		end := start + a.batch
		if end > len(texts) {
			end = len(texts)
		}
		group := texts[start:end]
		if ctx.Err() != nil {
			// deadline hit: degrade the remainder without another call
			for i := range group {
				out = append(out, FallbackVector(start+i, a.dim))
			}
			fallbacks += len(group)
			continue
		}
		vecs, err := a.emb.Embeddings(ctx, a.model, group)
		if err != nil || len(vecs) != len(group) {
			a.logger.Warn("embedding batch degraded to fallback", "batch", start/a.batch, "size", len(group))
			for i := range group {
				out = append(out, FallbackVector(start+i, a.dim))
			}
			fallbacks += len(group)
		} else {
			out = append(out, vecs...)
		}
		if end < len(texts) && a.batchGap > 0 {
			select {
			case <-time.After(a.batchGap):
			case <-ctx.Done():
			}
		}
	}
	return out, fallbacks, nil
}

// EmbedOne embeds a single text.
func (a *Adapter) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, _, err := a.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// FallbackVector produces a deterministic pseudo-random unit vector for the
// text at the given position. Approximate vectors still allow some
// retrieval, which beats failing ingestion outright.
func FallbackVector(position, dim int) []float32 {
	rng := rand.New(rand.NewSource(int64(position) + 1))
	v := make([]float32, dim)
	var norm float64
	for i := range v {
		v[i] = float32(rng.Float64()*2 - 1)
		norm += float64(v[i]) * float64(v[i])
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= inv
		}
	}
	return v
}
