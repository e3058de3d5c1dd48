package index

import (
	"sort"
	"sync"
)

// Flat is the exact variant: a linear scan over an insertion-ordered
// slice per owner. Mutations for one owner exclude each other; different
// owners never contend.
type Flat struct {
	dims int

	mu     sync.RWMutex
	owners map[string]*flatPartition
}

type flatPartition struct {
	mu      sync.RWMutex
	entries []flatEntry
	byDoc   map[string]int
}

type flatEntry struct {
	docID  string
	vector []float32
}

func NewFlat(dims int) *Flat {
	return &Flat{
		dims:   dims,
		owners: make(map[string]*flatPartition),
	}
}

func (f *Flat) Dimensions() int {
	return f.dims
}

func (f *Flat) partition(owner string, create bool) *flatPartition {
	f.mu.RLock()
	p := f.owners[owner]
	f.mu.RUnlock()
	if p != nil || !create {
		return p
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if p = f.owners[owner]; p == nil {
		p = &flatPartition{byDoc: make(map[string]int)}
		f.owners[owner] = p
	}
	return p
}

func (f *Flat) Put(owner, docID string, vector []float32) error {
	if err := checkDims(f.dims, vector); err != nil {
		return err
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)

	p := f.partition(owner, true)
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos, ok := p.byDoc[docID]; ok {
		p.entries[pos].vector = vec
		return nil
	}
	p.byDoc[docID] = len(p.entries)
	p.entries = append(p.entries, flatEntry{docID: docID, vector: vec})
	return nil
}

func (f *Flat) Delete(owner, docID string) {
	p := f.partition(owner, false)
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.byDoc[docID]
	if !ok {
		return
	}
	p.entries = append(p.entries[:pos], p.entries[pos+1:]...)
	delete(p.byDoc, docID)
	for i := pos; i < len(p.entries); i++ {
		p.byDoc[p.entries[i].docID] = i
	}
}

func (f *Flat) Search(owner string, query []float32, topK int, threshold float32) ([]Hit, error) {
	if err := checkDims(f.dims, query); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []Hit{}, nil
	}
	p := f.partition(owner, false)
	if p == nil {
		return []Hit{}, nil
	}
	p.mu.RLock()
	hits := make([]Hit, 0, len(p.entries))
	for _, entry := range p.entries {
		score := cosineSimilarity(query, entry.vector)
		if passes(score, threshold) {
			hits = append(hits, Hit{DocID: entry.docID, Score: score})
		}
	}
	p.mu.RUnlock()

	// stable sort over the insertion-ordered scan keeps earlier documents
	// first among equal scores
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}
