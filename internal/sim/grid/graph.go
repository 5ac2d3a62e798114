package grid

import "sort"

// Graph is the undirected attachment relation. Edges are only created and removed
// through its methods, so every edge is stored in both directions.
type Graph struct {
	edges map[ObjectID]map[ObjectID]struct{}
}

func NewGraph() *Graph {
	return &Graph{edges: map[ObjectID]map[ObjectID]struct{}{}}
}

func (g *Graph) link(a, b ObjectID) {
	set := g.edges[a]
	if set == nil {
		set = map[ObjectID]struct{}{}
		g.edges[a] = set
	}
	set[b] = struct{}{}
}

func (g *Graph) unlink(a, b ObjectID) {
	set := g.edges[a]
	delete(set, b)
	if len(set) == 0 {
		delete(g.edges, a)
	}
}

func (g *Graph) Attach(a, b ObjectID) {
	if a == b {
		return
	}
	g.link(a, b)
	g.link(b, a)
}

// Detach removes the edge a-b and reports whether it existed.
func (g *Graph) Detach(a, b ObjectID) bool {
	if !g.Has(a, b) {
		return false
	}
	g.unlink(a, b)
	g.unlink(b, a)
	return true
}

// DetachAll removes every edge of a and returns the former neighbours.
func (g *Graph) DetachAll(a ObjectID) []ObjectID {
	n := g.Neighbours(a)
	for _, b := range n {
		g.unlink(a, b)
		g.unlink(b, a)
	}
	return n
}

func (g *Graph) Has(a, b ObjectID) bool {
	_, ok := g.edges[a][b]
	return ok
}

// Neighbours returns the directly attached ids in ascending order.
func (g *Graph) Neighbours(a ObjectID) []ObjectID {
	set := g.edges[a]
	if len(set) == 0 {
		return nil
	}
	out := make([]ObjectID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (g *Graph) Degree(a ObjectID) int { return len(g.edges[a]) }

// Closure is the composite body of seed, seed first, in breadth-first order.
func (g *Graph) Closure(seed ObjectID) []ObjectID {
	out := []ObjectID{seed}
	seen := map[ObjectID]struct{}{seed: {}}
	for i := 0; i < len(out); i++ {
		for _, n := range g.Neighbours(out[i]) {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}
