package cluster

import (
	"context"
	"fmt"
	"math"

	"github.com/ivlasov/claimfold/internal/cache"
)

// Embedder encodes texts into fixed-dimension vectors, preserving
// input order. In production this is the LLM provider routed through
// the budget invoker.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// SimilarityPair records two claim indices whose cosine similarity met
// the threshold. Always A < B; self-pairs are never materialized.
type SimilarityPair struct {
	A     int
	B     int
	Score float64
}

// Index wraps an embedding provider with a per-run vector cache and
// pairwise similarity computation. It holds no clustering state.
type Index struct {
	embedder Embedder
	vectors  *cache.VectorCache
}

// NewIndex creates a similarity index. vectors may be nil to disable caching.
func NewIndex(embedder Embedder, vectors *cache.VectorCache) *Index {
	return &Index{embedder: embedder, vectors: vectors}
}

// Encode returns one vector per input text in input order, consulting
// the cache before calling the provider for the misses.
func (ix *Index) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if ix.vectors != nil {
			if vec, ok := ix.vectors.Get(text); ok {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		vecs, err := ix.embedder.Embed(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("embed %d texts: %w", len(missing), err)
		}
		if len(vecs) != len(missing) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missing))
		}
		for j, vec := range vecs {
			out[missingIdx[j]] = vec
			if ix.vectors != nil {
				ix.vectors.Set(missing[j], vec)
			}
		}
	}

	return out, nil
}

// FindSimilarPairs unit-normalizes every vector and emits each
// unordered index pair (i, j), i < j, whose dot product is at or above
// threshold. O(n²) over the full upper triangle; claim counts per run
// are small enough that no nearest-neighbor structure is warranted.
// Fewer than two vectors yields nil, an ordinary result.
func FindSimilarPairs(vectors [][]float32, threshold float64) []SimilarityPair {
	if len(vectors) < 2 {
		return nil
	}

	normalized := make([][]float64, len(vectors))
	for i, vec := range vectors {
		normalized[i] = unitNormalize(vec)
	}

	var pairs []SimilarityPair
	for i := 0; i < len(normalized); i++ {
		for j := i + 1; j < len(normalized); j++ {
			score := dot(normalized[i], normalized[j])
			if score >= threshold {
				pairs = append(pairs, SimilarityPair{A: i, B: j, Score: score})
			}
		}
	}
	return pairs
}

// unitNormalize scales a vector to unit length. Zero vectors are
// returned as-is so they never match anything.
func unitNormalize(vec []float32) []float64 {
	out := make([]float64, len(vec))
	var sumSq float64
	for i, v := range vec {
		out[i] = float64(v)
		sumSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return out
	}
	for i := range out {
		out[i] /= norm
	}
	return out
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
