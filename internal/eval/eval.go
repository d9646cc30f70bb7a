package eval

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"folio/internal/chunker"
	"folio/internal/embedding"
	"folio/internal/models"
	"folio/internal/retriever"
	"folio/internal/vectorstore"
)

// assumedRelevant is the fixed "how many relevant chunks we'd want" used by
// the recall denominator. It is a reproducibility convention, not measured
// ground truth; changing it breaks comparability with historical runs.
const assumedRelevant = 3

// Overall-score weights. Fixed and documented so runs stay comparable.
const (
	weightPrecision = 0.30
	weightRelevance = 0.25
	weightF1        = 0.25
	weightLatency   = 0.10
	weightCost      = 0.10
)

// Normalization references: an average query under refLatencyMs and an
// index under refChunkCount score 1.0 on their respective terms.
const (
	refLatencyMs  = 50.0
	refChunkCount = 60.0
)

// bowDim sizes the deterministic bag-of-words evaluation embedder.
const bowDim = 256

// Config is one pipeline configuration under evaluation.
type Config struct {
	Name      string         `yaml:"name" json:"name"`
	Chunking  chunker.Config `yaml:"chunking" json:"chunking"`
	Threshold float64        `yaml:"threshold" json:"threshold"`
	Limit     int            `yaml:"limit" json:"limit"`
}

// DefaultBaseline is the configuration current production defaults map to.
func DefaultBaseline() Config {
	return Config{
		Name:      "baseline",
		Chunking:  chunker.DefaultConfig(),
		Threshold: 0.10,
		Limit:     5,
	}
}

// Report aggregates metrics for one configuration over the fixed corpus.
type Report struct {
	Config       Config  `json:"config"`
	Version      string  `json:"corpusVersion"`
	Precision    float64 `json:"precision"`
	Recall       float64 `json:"recall"`
	F1           float64 `json:"f1"`
	Relevance    float64 `json:"relevance"`
	AvgLatencyMs float64 `json:"avgLatencyMs"`
	ChunkCount   int     `json:"chunkCount"`
	OverallScore float64 `json:"overallScore"`
}

// Comparison pairs a baseline report with a candidate.
type Comparison struct {
	Baseline  Report `json:"baseline"`
	Candidate Report `json:"candidate"`
}

// Delta is candidate minus baseline overall score.
func (c Comparison) Delta() float64 {
	return c.Candidate.OverallScore - c.Baseline.OverallScore
}

// Harness runs configurations against the fixed corpus. It is an offline
// tuning tool and must never run on the request-serving path.
type Harness struct {
	bench *BenchLog
}

// NewHarness builds a harness recording into bench (may be nil).
func NewHarness(bench *BenchLog) *Harness {
	return &Harness{bench: bench}
}

// Run indexes the fixed corpus under cfg and scores the fixed query set.
// The deterministic bag-of-words embedder keeps runs reproducible across
// environments with no provider dependency.
func (h *Harness) Run(ctx context.Context, cfg Config) (Report, error) {
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	adapter, err := embedding.New(bowEmbedder{dim: bowDim}, "bow-eval", bowDim, embedding.WithBatchGap(0))
	if err != nil {
		return Report{}, fmt.Errorf("eval: %w", err)
	}
	store := vectorstore.NewMemory()
	chunkCount := 0
	for idx, text := range corpusChapters {
		chunks, err := chunker.Chunk(text, corpusBookID, idx, cfg.Chunking)
		if err != nil {
			return Report{}, fmt.Errorf("eval: chunk corpus chapter %d: %w", idx, err)
		}
		if len(chunks) == 0 {
			continue
		}
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		vecs, _, err := adapter.EmbedBatch(ctx, texts)
		if err != nil {
			return Report{}, err
		}
		recs := make([]models.EmbeddingRecord, len(chunks))
		for i := range chunks {
			recs[i] = models.RecordFromChunk(chunks[i], vecs[i])
		}
		if err := store.Upsert(ctx, corpusBookID, recs); err != nil {
			return Report{}, fmt.Errorf("eval: index corpus: %w", err)
		}
		chunkCount += len(chunks)
	}

	retr := retriever.New(adapter, store)
	var sumP, sumR, sumF1, sumRel float64
	var totalLatency time.Duration
	for _, qc := range corpusQueries {
		startAt := time.Now()
		results, err := retr.Retrieve(ctx, corpusBookID, qc.Query, retriever.Params{
			Limit:     cfg.Limit,
			Threshold: cfg.Threshold,
		})
		elapsed := time.Since(startAt)
		if err != nil {
			return Report{}, fmt.Errorf("eval: query %q: %w", qc.Query, err)
		}
		totalLatency += elapsed
		p, r, f1, rel := scoreQuery(qc, results)
		sumP += p
		sumR += r
		sumF1 += f1
		sumRel += rel
		if h.bench != nil {
			h.bench.Record(models.BenchmarkSample{
				QueryType: "eval",
				Parameters: map[string]string{
					"config":    cfg.Name,
					"threshold": strconv.FormatFloat(cfg.Threshold, 'f', 2, 64),
				},
				ResponseTimeMs: float64(elapsed.Microseconds()) / 1000,
				ResultCount:    len(results),
				PathsUsed:      []string{"memory"},
			})
		}
	}

	n := float64(len(corpusQueries))
	rep := Report{
		Config:       cfg,
		Version:      CorpusVersion,
		Precision:    sumP / n,
		Recall:       sumR / n,
		F1:           sumF1 / n,
		Relevance:    sumRel / n,
		AvgLatencyMs: float64(totalLatency.Microseconds()) / 1000 / n,
		ChunkCount:   chunkCount,
	}
	rep.OverallScore = overall(rep)
	return rep, nil
}

// Compare runs baseline and candidate over the same corpus and query set.
func (h *Harness) Compare(ctx context.Context, baseline, candidate Config) (Comparison, error) {
	b, err := h.Run(ctx, baseline)
	if err != nil {
		return Comparison{}, err
	}
	c, err := h.Run(ctx, candidate)
	if err != nil {
		return Comparison{}, err
	}
	return Comparison{Baseline: b, Candidate: c}, nil
}

// scoreQuery computes per-query precision, recall, F1 and relevance.
// A retrieved chunk is a true positive when it contains at least one
// expected keyword.
func scoreQuery(qc QueryCase, results []models.RetrievalResult) (p, r, f1, rel float64) {
	if len(results) == 0 {
		return 0, 0, 0, 0
	}
	tp := 0
	var coverageSum, simSum float64
	for _, res := range results {
		lower := strings.ToLower(res.Content)
		hits := 0
		for _, kw := range qc.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				hits++
			}
		}
		if hits > 0 {
			tp++
		}
		coverageSum += float64(hits) / float64(len(qc.Keywords))
		simSum += res.RawSimilarity
	}
	n := float64(len(results))
	p = float64(tp) / n
	r = float64(tp) / assumedRelevant
	if r > 1 {
		r = 1
	}
	if p+r > 0 {
		f1 = 2 * p * r / (p + r)
	}
	// relevance blends keyword coverage with raw similarity
	rel = 0.6*(coverageSum/n) + 0.4*(simSum/n)
	return p, r, f1, rel
}

func overall(r Report) float64 {
	latencyNorm := 1.0
	if r.AvgLatencyMs > refLatencyMs {
		latencyNorm = refLatencyMs / r.AvgLatencyMs
	}
	costNorm := 1.0
	if float64(r.ChunkCount) > refChunkCount {
		costNorm = refChunkCount / float64(r.ChunkCount)
	}
	return weightPrecision*r.Precision +
		weightRelevance*r.Relevance +
		weightF1*r.F1 +
		weightLatency*latencyNorm +
		weightCost*costNorm
}
