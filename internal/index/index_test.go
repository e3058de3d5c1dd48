package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/docask/docask/internal/pkg/errors"
)

func implementations(dims int) map[string]Index {
	return map[string]Index{
		"flat": NewFlat(dims),
		"hnsw": NewHNSW(dims),
	}
}

func hitIDs(hits []Hit) []string {
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.DocID)
	}
	return ids
}

func TestIndexSearchRanksByCosine(t *testing.T) {
	for name, idx := range implementations(3) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, idx.Put("u1", "exact", []float32{1, 0, 0}))
			require.NoError(t, idx.Put("u1", "close", []float32{0.9, 0.1, 0}))
			require.NoError(t, idx.Put("u1", "far", []float32{0, 0, 1}))

			hits, err := idx.Search("u1", []float32{1, 0, 0}, 3, 0)
			require.NoError(t, err)
			require.Equal(t, []string{"exact", "close", "far"}, hitIDs(hits))
			require.InDelta(t, 1.0, hits[0].Score, 1e-5)
			for i := 1; i < len(hits); i++ {
				require.LessOrEqual(t, hits[i].Score, hits[i-1].Score)
			}
		})
	}
}

func TestIndexTopKLimitsResults(t *testing.T) {
	for name, idx := range implementations(2) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 10; i++ {
				vec := []float32{1, float32(i) * 0.1}
				require.NoError(t, idx.Put("u1", fmt.Sprintf("doc-%d", i), vec))
			}
			hits, err := idx.Search("u1", []float32{1, 0}, 3, 0)
			require.NoError(t, err)
			require.Len(t, hits, 3)
		})
	}
}

func TestIndexOwnerIsolation(t *testing.T) {
	for name, idx := range implementations(2) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, idx.Put("alice", "a-doc", []float32{1, 0}))
			require.NoError(t, idx.Put("bob", "b-doc", []float32{1, 0}))

			hits, err := idx.Search("alice", []float32{1, 0}, 10, 0)
			require.NoError(t, err)
			require.Equal(t, []string{"a-doc"}, hitIDs(hits))

			hits, err = idx.Search("carol", []float32{1, 0}, 10, 0)
			require.NoError(t, err)
			require.Empty(t, hits)
		})
	}
}

func TestIndexTieBreakPrefersEarlierInsertion(t *testing.T) {
	for name, idx := range implementations(2) {
		t.Run(name, func(t *testing.T) {
			// identical vectors, identical scores
			require.NoError(t, idx.Put("u1", "first", []float32{1, 1}))
			require.NoError(t, idx.Put("u1", "second", []float32{1, 1}))
			require.NoError(t, idx.Put("u1", "third", []float32{1, 1}))

			hits, err := idx.Search("u1", []float32{1, 1}, 3, 0)
			require.NoError(t, err)
			require.Equal(t, []string{"first", "second", "third"}, hitIDs(hits))
		})
	}
}

func TestIndexPutReplacesExistingVector(t *testing.T) {
	for name, idx := range implementations(2) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, idx.Put("u1", "doc", []float32{1, 0}))
			require.NoError(t, idx.Put("u1", "other", []float32{0.9, 0.1}))
			require.NoError(t, idx.Put("u1", "doc", []float32{0, 1}))

			hits, err := idx.Search("u1", []float32{0, 1}, 1, 0)
			require.NoError(t, err)
			require.Equal(t, []string{"doc"}, hitIDs(hits))

			hits, err = idx.Search("u1", []float32{1, 0}, 2, 0)
			require.NoError(t, err)
			require.Equal(t, "other", hits[0].DocID)
		})
	}
}

func TestIndexDeleteRemovesFromResults(t *testing.T) {
	for name, idx := range implementations(2) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, idx.Put("u1", "keep", []float32{1, 0}))
			require.NoError(t, idx.Put("u1", "drop", []float32{1, 0.01}))

			idx.Delete("u1", "drop")
			// unknown id is a no-op
			idx.Delete("u1", "never-existed")
			idx.Delete("ghost-owner", "keep")

			hits, err := idx.Search("u1", []float32{1, 0}, 10, 0)
			require.NoError(t, err)
			require.Equal(t, []string{"keep"}, hitIDs(hits))
		})
	}
}

func TestIndexDimensionMismatch(t *testing.T) {
	for name, idx := range implementations(3) {
		t.Run(name, func(t *testing.T) {
			err := idx.Put("u1", "doc", []float32{1, 0})
			require.ErrorIs(t, err, appErr.ErrDimensionMismatch)

			require.NoError(t, idx.Put("u1", "doc", []float32{1, 0, 0}))
			_, err = idx.Search("u1", []float32{1, 0}, 5, 0)
			require.ErrorIs(t, err, appErr.ErrDimensionMismatch)
		})
	}
}

func TestIndexThresholdFiltering(t *testing.T) {
	for name, idx := range implementations(2) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, idx.Put("u1", "aligned", []float32{1, 0}))
			require.NoError(t, idx.Put("u1", "orthogonal", []float32{0, 1}))

			hits, err := idx.Search("u1", []float32{1, 0}, 10, 0.5)
			require.NoError(t, err)
			require.Equal(t, []string{"aligned"}, hitIDs(hits))

			// zero threshold keeps everything, even orthogonal matches
			hits, err = idx.Search("u1", []float32{1, 0}, 10, 0)
			require.NoError(t, err)
			require.Len(t, hits, 2)
		})
	}
}

func TestIndexEmptyAndZeroTopK(t *testing.T) {
	for name, idx := range implementations(2) {
		t.Run(name, func(t *testing.T) {
			hits, err := idx.Search("u1", []float32{1, 0}, 5, 0)
			require.NoError(t, err)
			require.Empty(t, hits)

			require.NoError(t, idx.Put("u1", "doc", []float32{1, 0}))
			hits, err = idx.Search("u1", []float32{1, 0}, 0, 0)
			require.NoError(t, err)
			require.Empty(t, hits)
		})
	}
}

func TestHNSWMatchesFlatOnLargerSet(t *testing.T) {
	const dims = 8
	flat := NewFlat(dims)
	hnsw := NewHNSW(dims)

	vec := func(seed int) []float32 {
		v := make([]float32, dims)
		for i := range v {
			v[i] = float32((seed*31+i*17)%97) / 97.0
		}
		return v
	}
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("doc-%03d", i)
		require.NoError(t, flat.Put("u1", id, vec(i)))
		require.NoError(t, hnsw.Put("u1", id, vec(i)))
	}

	query := vec(42)
	exact, err := flat.Search("u1", query, 10, 0)
	require.NoError(t, err)
	approx, err := hnsw.Search("u1", query, 10, 0)
	require.NoError(t, err)
	require.Len(t, approx, 10)

	// approximate recall against the exact top 10 should be high on a
	// set this small
	exactSet := make(map[string]struct{}, len(exact))
	for _, h := range exact {
		exactSet[h.DocID] = struct{}{}
	}
	overlap := 0
	for _, h := range approx {
		if _, ok := exactSet[h.DocID]; ok {
			overlap++
		}
	}
	require.GreaterOrEqual(t, overlap, 8)
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-5)
	require.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-5)
	require.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-5)
	require.InDelta(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}), 1e-5)
}

func TestNewSelectsImplementation(t *testing.T) {
	idx, err := New("flat", 4)
	require.NoError(t, err)
	require.Equal(t, 4, idx.Dimensions())

	idx, err = New("hnsw", 4)
	require.NoError(t, err)
	require.Equal(t, 4, idx.Dimensions())

	_, err = New("annoy", 4)
	require.Error(t, err)
}
