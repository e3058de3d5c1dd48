// Package index provides in-process similarity search over summary
// embeddings. Two implementations share one contract: an exact brute-force
// scan and an approximate navigable-small-world graph. Both partition
// vectors by owner, order hits by cosine similarity descending and break
// ties by insertion order (earlier wins).
package index

import (
	"fmt"
	"math"

	appErr "github.com/docask/docask/internal/pkg/errors"
)

// Hit is a single similarity match.
type Hit struct {
	DocID string
	Score float32
}

// Index stores one vector per document id, partitioned by owner.
//
// Put replaces the vector if the id is already present. Delete is a no-op
// for unknown ids. Search over an absent owner returns an empty result.
// Any vector whose length disagrees with the fixed dimension yields
// ErrDimensionMismatch.
type Index interface {
	Put(owner, docID string, vector []float32) error
	Search(owner string, query []float32, topK int, threshold float32) ([]Hit, error)
	Delete(owner, docID string)
	Dimensions() int
}

// New selects an implementation by name: "flat" or "hnsw".
func New(kind string, dims int) (Index, error) {
	switch kind {
	case "flat":
		return NewFlat(dims), nil
	case "hnsw":
		return NewHNSW(dims), nil
	default:
		return nil, fmt.Errorf("unknown index kind: %s", kind)
	}
}

func (h Hit) String() string {
	return fmt.Sprintf("%s(%.4f)", h.DocID, h.Score)
}

func checkDims(dims int, vector []float32) error {
	if len(vector) != dims {
		return fmt.Errorf("%w: got %d, index is %d", appErr.ErrDimensionMismatch, len(vector), dims)
	}
	return nil
}

// cosineSimilarity returns a score in [-1, 1], higher meaning more
// similar. Zero vectors score 0 against everything.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// passes applies the similarity floor. A zero threshold disables
// filtering entirely: summary-vs-query similarity is often low under
// multi-representation indexing, so ranking relies on the topK cutoff.
func passes(score, threshold float32) bool {
	if threshold <= 0 {
		return true
	}
	return score >= threshold
}
