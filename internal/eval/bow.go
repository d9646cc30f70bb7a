package eval

import (
	"context"
	"strings"
)

// bowEmbedder is a deterministic bag-of-words embedder: tokens hash into a
// fixed-size histogram. It has no notion of meaning beyond token overlap,
// which is exactly enough to compare chunking and threshold configurations
// reproducibly.
type bowEmbedder struct{ dim int }

func (b bowEmbedder) Embeddings(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		v := make([]float32, b.dim)
		for _, tok := range strings.Fields(strings.ToLower(s)) {
			tok = strings.Trim(tok, ".,;:!?\"'()")
			if tok == "" {
				continue
			}
			v[fnv32(tok)%uint32(b.dim)]++
		}
		out[i] = v
	}
	return out, nil
}

func fnv32(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
