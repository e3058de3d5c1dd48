package index

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// Tuning follows the usual HNSW defaults; efSearch is raised per query
// when topK demands it.
const (
	hnswM              = 16
	hnswMmax0          = 32
	hnswEfConstruction = 200
	hnswEfSearch       = 64
)

// HNSW is the approximate variant: a hierarchical navigable-small-world
// graph per owner. Same contract as Flat, different scaling behaviour.
// Deletes are tombstones; tombstoned nodes still route but never surface
// in results.
type HNSW struct {
	dims int

	mu     sync.RWMutex
	owners map[string]*hnswGraph
}

type hnswGraph struct {
	mu       sync.RWMutex
	rng      *rand.Rand
	nodes    []*hnswNode
	byDoc    map[string]int
	entry    int
	maxLevel int
	live     int
}

type hnswNode struct {
	docID   string
	vector  []float32
	level   int
	deleted bool
	links   [][]int
}

func NewHNSW(dims int) *HNSW {
	return &HNSW{
		dims:   dims,
		owners: make(map[string]*hnswGraph),
	}
}

func (h *HNSW) Dimensions() int {
	return h.dims
}

func (h *HNSW) graph(owner string, create bool) *hnswGraph {
	h.mu.RLock()
	g := h.owners[owner]
	h.mu.RUnlock()
	if g != nil || !create {
		return g
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if g = h.owners[owner]; g == nil {
		// fixed seed keeps level assignment, and therefore the graph
		// shape, reproducible across runs
		g = &hnswGraph{
			rng:   rand.New(rand.NewSource(1)),
			byDoc: make(map[string]int),
			entry: -1,
		}
		h.owners[owner] = g
	}
	return g
}

func (h *HNSW) Put(owner, docID string, vector []float32) error {
	if err := checkDims(h.dims, vector); err != nil {
		return err
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)

	g := h.graph(owner, true)
	g.mu.Lock()
	defer g.mu.Unlock()
	if pos, ok := g.byDoc[docID]; ok {
		g.nodes[pos].deleted = true
		delete(g.byDoc, docID)
		g.live--
	}
	g.insert(docID, vec)
	return nil
}

func (h *HNSW) Delete(owner, docID string) {
	g := h.graph(owner, false)
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	pos, ok := g.byDoc[docID]
	if !ok {
		return
	}
	g.nodes[pos].deleted = true
	delete(g.byDoc, docID)
	g.live--
}

func (h *HNSW) Search(owner string, query []float32, topK int, threshold float32) ([]Hit, error) {
	if err := checkDims(h.dims, query); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []Hit{}, nil
	}
	g := h.graph(owner, false)
	if g == nil {
		return []Hit{}, nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.entry < 0 || g.live == 0 {
		return []Hit{}, nil
	}

	ep := g.entry
	for level := g.maxLevel; level >= 1; level-- {
		ep = g.greedyClosest(query, ep, level)
	}
	ef := hnswEfSearch
	if ef < topK*4 {
		ef = topK * 4
	}
	found := g.searchLayer(query, ep, ef, 0)

	hits := make([]Hit, 0, len(found))
	seen := make(map[int]struct{}, len(found))
	ordered := make([]simItem, 0, len(found))
	for _, item := range found {
		if _, dup := seen[item.node]; dup {
			continue
		}
		seen[item.node] = struct{}{}
		ordered = append(ordered, item)
	}
	// node index is assignment order, so ties fall to the earlier insert
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].sim != ordered[j].sim {
			return ordered[i].sim > ordered[j].sim
		}
		return ordered[i].node < ordered[j].node
	})
	for _, item := range ordered {
		node := g.nodes[item.node]
		if node.deleted || !passes(item.sim, threshold) {
			continue
		}
		hits = append(hits, Hit{DocID: node.docID, Score: item.sim})
		if len(hits) == topK {
			break
		}
	}
	return hits, nil
}

// insert must run under the graph write lock.
func (g *hnswGraph) insert(docID string, vec []float32) {
	mL := 1 / math.Log(float64(hnswM))
	level := int(math.Floor(-math.Log(g.rng.Float64()+1e-12) * mL))

	node := &hnswNode{
		docID:  docID,
		vector: vec,
		level:  level,
		links:  make([][]int, level+1),
	}
	id := len(g.nodes)
	g.nodes = append(g.nodes, node)
	g.byDoc[docID] = id
	g.live++

	if g.entry < 0 {
		g.entry = id
		g.maxLevel = level
		return
	}

	ep := g.entry
	for l := g.maxLevel; l > level; l-- {
		ep = g.greedyClosest(vec, ep, l)
	}
	top := level
	if top > g.maxLevel {
		top = g.maxLevel
	}
	for l := top; l >= 0; l-- {
		found := g.searchLayer(vec, ep, hnswEfConstruction, l)
		sort.Slice(found, func(i, j int) bool {
			if found[i].sim != found[j].sim {
				return found[i].sim > found[j].sim
			}
			return found[i].node < found[j].node
		})
		limit := hnswM
		if len(found) < limit {
			limit = len(found)
		}
		for _, neighbor := range found[:limit] {
			node.links[l] = append(node.links[l], neighbor.node)
			g.nodes[neighbor.node].links[l] = append(g.nodes[neighbor.node].links[l], id)
			g.pruneLinks(neighbor.node, l)
		}
		if len(found) > 0 {
			ep = found[0].node
		}
	}
	if level > g.maxLevel {
		g.entry = id
		g.maxLevel = level
	}
}

// pruneLinks caps a node's neighbour list, keeping the most similar.
func (g *hnswGraph) pruneLinks(node, level int) {
	max := hnswM
	if level == 0 {
		max = hnswMmax0
	}
	links := g.nodes[node].links[level]
	if len(links) <= max {
		return
	}
	base := g.nodes[node].vector
	sort.Slice(links, func(i, j int) bool {
		si := cosineSimilarity(base, g.nodes[links[i]].vector)
		sj := cosineSimilarity(base, g.nodes[links[j]].vector)
		if si != sj {
			return si > sj
		}
		return links[i] < links[j]
	})
	g.nodes[node].links[level] = links[:max]
}

func (g *hnswGraph) greedyClosest(query []float32, start, level int) int {
	best := start
	bestSim := cosineSimilarity(query, g.nodes[best].vector)
	for {
		improved := false
		for _, nb := range g.nodes[best].links[level] {
			sim := cosineSimilarity(query, g.nodes[nb].vector)
			if sim > bestSim {
				best, bestSim = nb, sim
				improved = true
			}
		}
		if !improved {
			return best
		}
	}
}

// searchLayer is the beam search at one level: expand the best candidate
// until it cannot improve the worst of the ef results kept so far.
func (g *hnswGraph) searchLayer(query []float32, entry, ef, level int) []simItem {
	entrySim := cosineSimilarity(query, g.nodes[entry].vector)
	visited := map[int]struct{}{entry: {}}
	candidates := &simHeap{min: false}
	results := &simHeap{min: true}
	heap.Push(candidates, simItem{node: entry, sim: entrySim})
	heap.Push(results, simItem{node: entry, sim: entrySim})

	for candidates.Len() > 0 {
		current := heap.Pop(candidates).(simItem)
		if results.Len() >= ef && current.sim < results.items[0].sim {
			break
		}
		var links []int
		if level < len(g.nodes[current.node].links) {
			links = g.nodes[current.node].links[level]
		}
		for _, nb := range links {
			if _, ok := visited[nb]; ok {
				continue
			}
			visited[nb] = struct{}{}
			sim := cosineSimilarity(query, g.nodes[nb].vector)
			if results.Len() < ef || sim > results.items[0].sim {
				heap.Push(candidates, simItem{node: nb, sim: sim})
				heap.Push(results, simItem{node: nb, sim: sim})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}
	return results.items
}

type simItem struct {
	node int
	sim  float32
}

type simHeap struct {
	items []simItem
	min   bool
}

func (h *simHeap) Len() int { return len(h.items) }

func (h *simHeap) Less(i, j int) bool {
	if h.min {
		return h.items[i].sim < h.items[j].sim
	}
	return h.items[i].sim > h.items[j].sim
}

func (h *simHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *simHeap) Push(x interface{}) {
	h.items = append(h.items, x.(simItem))
}

func (h *simHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
