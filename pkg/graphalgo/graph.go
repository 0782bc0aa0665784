// Package graphalgo implements GraphAlgorithms (spec §4.I): PageRank,
// degree/betweenness/closeness centrality, bounded path enumeration,
// Louvain + label propagation community detection, and DOT/node-link
// export.
//
// Every algorithm runs on a read snapshot copied out of the store once at
// entry (spec §5: "long-running algorithms do NOT need to observe writes
// issued after they started"), so a running algorithm never blocks or is
// disrupted by concurrent ingestion.
//
// Grounded on apoc/algo/algo.go (PageRank/centrality shapes, rewired onto
// real adjacency data instead of its placeholder getIncomingLinks) and
// pkg/linkpredict/topology.go (adjacency-set/BFS conventions).
package graphalgo

import "github.com/codesage/codesage/pkg/graph"

// Snapshot is an immutable copy of the Calls-edge subgraph, built once per
// algorithm call via FromStore.
type Snapshot struct {
	nodes       []graph.Ref
	index       map[graph.Ref]int
	outAdj      map[graph.Ref][]weightedEdge
	inAdj       map[graph.Ref][]weightedEdge
}

type weightedEdge struct {
	to     graph.Ref
	weight float64
}

// FromStore copies out every node ref and every Calls edge from store.
func FromStore(store *graph.Store) *Snapshot {
	nodeSet := make(map[graph.Ref]struct{})
	for _, ref := range store.AllNodeRefs() {
		nodeSet[ref] = struct{}{}
	}

	outAdj := make(map[graph.Ref][]weightedEdge)
	inAdj := make(map[graph.Ref][]weightedEdge)
	for _, e := range store.AllEdges() {
		if e.Kind != graph.Calls {
			continue
		}
		nodeSet[e.From] = struct{}{}
		nodeSet[e.To] = struct{}{}
		w := e.Meta.Weight
		if w == 0 {
			w = 1.0
		}
		outAdj[e.From] = append(outAdj[e.From], weightedEdge{to: e.To, weight: w})
		inAdj[e.To] = append(inAdj[e.To], weightedEdge{to: e.From, weight: w})
	}

	nodes := make([]graph.Ref, 0, len(nodeSet))
	for ref := range nodeSet {
		nodes = append(nodes, ref)
	}
	index := make(map[graph.Ref]int, len(nodes))
	for i, ref := range nodes {
		index[ref] = i
	}

	return &Snapshot{nodes: nodes, index: index, outAdj: outAdj, inAdj: inAdj}
}

// Nodes returns every node ref in the snapshot.
func (s *Snapshot) Nodes() []graph.Ref { return s.nodes }

// N is the node count.
func (s *Snapshot) N() int { return len(s.nodes) }

// OutNeighbors returns the weighted out-edges from ref.
func (s *Snapshot) OutNeighbors(ref graph.Ref) []weightedEdge { return s.outAdj[ref] }

// InNeighbors returns the weighted in-edges to ref.
func (s *Snapshot) InNeighbors(ref graph.Ref) []weightedEdge { return s.inAdj[ref] }

// OutDegree is the number of outgoing Calls edges from ref.
func (s *Snapshot) OutDegree(ref graph.Ref) int { return len(s.outAdj[ref]) }

// InDegree is the number of incoming Calls edges to ref.
func (s *Snapshot) InDegree(ref graph.Ref) int { return len(s.inAdj[ref]) }

// Undirected returns, per node, the set of distinct neighbors reachable
// via either direction with the summed edge weight — the weighted
// undirected projection used by community detection (spec §4.I).
func (s *Snapshot) Undirected() map[graph.Ref]map[graph.Ref]float64 {
	adj := make(map[graph.Ref]map[graph.Ref]float64, len(s.nodes))
	ensure := func(ref graph.Ref) {
		if adj[ref] == nil {
			adj[ref] = make(map[graph.Ref]float64)
		}
	}
	for _, ref := range s.nodes {
		ensure(ref)
	}
	add := func(a, b graph.Ref, w float64) {
		ensure(a)
		ensure(b)
		adj[a][b] += w
		adj[b][a] += w
	}
	for from, edges := range s.outAdj {
		for _, e := range edges {
			add(from, e.to, e.weight)
		}
	}
	return adj
}
