package vectorstore

import (
	"math"
	"sort"

	"folio/internal/models"
)

// ChapterBoost is the multiplicative bonus applied to candidates from the
// prioritized chapter, clamped so similarity never leaves [0,1].
const ChapterBoost = 1.15

// maxCandidates caps the over-fetched candidate superset.
const maxCandidates = 30

// candidate is a stored record plus its insertion order, the final
// tie-breaker for stable ranking.
type candidate struct {
	rec   models.EmbeddingRecord
	order int
}

// candidateLimit returns the superset size for a query limit: over-fetching
// lets the ranking stage re-rank after boosting without a second round trip.
func candidateLimit(limit int) int {
	n := limit * 3
	if n > maxCandidates {
		n = maxCandidates
	}
	if n < 1 {
		n = 1
	}
	return n
}

type scored struct {
	cand    candidate
	raw     float64
	boosted float64
}

// rank applies the shared query pipeline: raw cosine scoring, candidate
// superset selection, chapter boost, threshold filter, stable ordering,
// truncation. Every backend funnels its candidates through here so ranking
// semantics are identical regardless of where vectors live.
func rank(cands []candidate, query []float32, p QueryParams) []models.RetrievalResult {
	items := make([]scored, 0, len(cands))
	for _, c := range cands {
		items = append(items, scored{cand: c, raw: Cosine(query, c.rec.Vector)})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].raw != items[j].raw {
			return items[i].raw > items[j].raw
		}
		return items[i].cand.order < items[j].cand.order
	})
	if n := candidateLimit(p.Limit); len(items) > n {
		items = items[:n]
	}
	kept := items[:0]
	for _, it := range items {
		it.boosted = it.raw
		if p.ChapterPriority != nil && it.cand.rec.ChapterIndex == *p.ChapterPriority {
			it.boosted = it.raw * ChapterBoost
			if it.boosted > 1 {
				it.boosted = 1
			}
		}
		if it.boosted < 0 {
			it.boosted = 0
		}
		if it.boosted < p.Threshold {
			continue
		}
		kept = append(kept, it)
	}
	items = kept
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].boosted != items[j].boosted {
			return items[i].boosted > items[j].boosted
		}
		if items[i].raw != items[j].raw {
			return items[i].raw > items[j].raw
		}
		return items[i].cand.order < items[j].cand.order
	})
	if p.Limit > 0 && len(items) > p.Limit {
		items = items[:p.Limit]
	}
	out := make([]models.RetrievalResult, 0, len(items))
	for _, it := range items {
		out = append(out, models.RetrievalResult{
			Content:       it.cand.rec.SourceText,
			ChapterIndex:  it.cand.rec.ChapterIndex,
			StartOffset:   it.cand.rec.StartOffset,
			EndOffset:     it.cand.rec.EndOffset,
			Similarity:    it.boosted,
			RawSimilarity: it.raw,
		})
	}
	return out
}

// Cosine computes cosine similarity; zero-magnitude vectors score 0 to
// guard the division.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
