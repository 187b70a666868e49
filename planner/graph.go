package planner

import (
	"container/heap"
	"time"

	"github.com/kolbrek/fish/core"
)

// path is a partial route accumulated by the Dijkstra search below: the
// node it currently sits at, the edges taken to get there (in order), and
// the running cost.
type path struct {
	node  int
	cost  float64
	edges []*core.Conversion
}

// better implements the tie-break rule from spec.md §4.4: lowest cost wins;
// ties go to fewer edges; remaining ties go to whichever path's first edge
// was registered earliest.
func better(a, b path) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if len(a.edges) != len(b.edges) {
		return len(a.edges) < len(b.edges)
	}
	if len(a.edges) == 0 {
		return false
	}
	return firstEdgeOrder(a) < firstEdgeOrder(b)
}

func firstEdgeOrder(p path) int {
	return p.edges[0].ID()
}

type pathHeap []path

func (h pathHeap) Len() int            { return len(h) }
func (h pathHeap) Less(i, j int) bool  { return better(h[i], h[j]) }
func (h pathHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pathHeap) Push(x interface{}) { *h = append(*h, x.(path)) }
func (h *pathHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// dijkstraTypes finds the cheapest chain of TypeToType edges from src to
// dst, deterministically tie-broken per better(). Returns ErrNoPath if dst
// is unreachable, or if deadline (non-zero) passes before the search
// settles it.
func dijkstraTypes(ctx *core.Context, src, dst *core.Type, deadline time.Time) ([]*core.Conversion, error) {
	if src == dst {
		return nil, nil
	}
	n := ctx.NumTypes()
	return dijkstra(n, src.ID(), dst.ID(), deadline, func(nodeID int) []*core.Conversion {
		t, ok := ctx.TypeByID(nodeID)
		if !ok {
			return nil
		}
		return ctx.TypeEdgesFrom(t)
	}, func(conv *core.Conversion) int {
		return conv.Dst.(*core.Type).ID()
	})
}

// dijkstraModels finds the cheapest chain of ModelToModel edges from src to
// dst, deterministically tie-broken per better(). Returns ErrNoPath if dst
// is unreachable, or if deadline (non-zero) passes before the search
// settles it.
func dijkstraModels(ctx *core.Context, src, dst *core.Model, deadline time.Time) ([]*core.Conversion, error) {
	if src == dst {
		return nil, nil
	}
	n := ctx.NumModels()
	return dijkstra(n, src.ID(), dst.ID(), deadline, func(nodeID int) []*core.Conversion {
		m, ok := ctx.ModelByID(nodeID)
		if !ok {
			return nil
		}
		return ctx.ModelEdgesFrom(m)
	}, func(conv *core.Conversion) int {
		return conv.Dst.(*core.Model).ID()
	})
}

// dijkstra is generic over the node-id space; edgesFrom lists the outgoing
// edges of a node, edgeDst extracts the destination node id of an edge. A
// non-zero deadline bounds how long the search runs: it is checked once per
// loop iteration, and once passed the search gives up with ErrNoPath, per
// config.Config.PlanTimeout.
func dijkstra(numNodes, srcID, dstID int, deadline time.Time, edgesFrom func(nodeID int) []*core.Conversion, edgeDst func(*core.Conversion) int) ([]*core.Conversion, error) {
	best := make(map[int]path, numNodes)
	start := path{node: srcID, cost: 0, edges: nil}
	best[srcID] = start

	h := &pathHeap{start}
	heap.Init(h)
	settled := make(map[int]bool, numNodes)

	for h.Len() > 0 {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, errNoPath
		}

		cur := heap.Pop(h).(path)
		if settled[cur.node] {
			continue // a better path to this node was already settled
		}
		settled[cur.node] = true
		if cur.node == dstID {
			return cur.edges, nil
		}
		for _, edge := range edgesFrom(cur.node) {
			if settled[edgeDst(edge)] {
				continue
			}
			next := path{
				node:  edgeDst(edge),
				cost:  cur.cost + edge.Cost,
				edges: append(append([]*core.Conversion(nil), cur.edges...), edge),
			}
			if existing, ok := best[next.node]; !ok || better(next, existing) {
				best[next.node] = next
				heap.Push(h, next)
			}
		}
	}
	return nil, errNoPath
}
