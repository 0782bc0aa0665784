package graphalgo

import (
	"context"
	"sort"

	"github.com/codesage/codesage/pkg/graph"
)

// Degree is one node's in/out/total degree (spec §4.I).
type Degree struct {
	In    int
	Out   int
	Total int
}

// DegreeCentrality returns in/out/total degree for every node the
// snapshot knows about (node registry union edge endpoints).
func DegreeCentrality(ctx context.Context, s *Snapshot) (map[graph.Ref]Degree, error) {
	out := make(map[graph.Ref]Degree, s.N())
	for _, ref := range s.Nodes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in, o := s.InDegree(ref), s.OutDegree(ref)
		out[ref] = Degree{In: in, Out: o, Total: in + o}
	}
	return out, nil
}

// BetweennessOptions configures Brandes' algorithm.
type BetweennessOptions struct {
	MaxNodes  int  // default 1000
	Normalize bool // true divides every score by (n-1)(n-2); the zero value (false) returns raw scores
}

func (o BetweennessOptions) withDefaults() BetweennessOptions {
	if o.MaxNodes == 0 {
		o.MaxNodes = 1000
	}
	return o
}

// sourceSubset picks the source set for Brandes: every node when the
// graph is small, otherwise the top MaxNodes by total degree (spec §4.I:
// "yields an approximation, not the exact score").
func sourceSubset(ctx context.Context, s *Snapshot, maxNodes int) ([]graph.Ref, error) {
	nodes := s.Nodes()
	if len(nodes) <= maxNodes {
		return nodes, nil
	}
	deg, err := DegreeCentrality(ctx, s)
	if err != nil {
		return nil, err
	}
	sorted := append([]graph.Ref(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool {
		return deg[sorted[i]].Total > deg[sorted[j]].Total
	})
	return sorted[:maxNodes], nil
}

// Betweenness runs Brandes' algorithm (spec §4.I): BFS from each source
// in the subset, accumulate σ and predecessor lists during the BFS
// itself, then sum dependencies in decreasing-distance order.
func Betweenness(ctx context.Context, s *Snapshot, opts BetweennessOptions) (map[graph.Ref]float64, error) {
	opts = opts.withDefaults()
	scores := make(map[graph.Ref]float64, s.N())
	for _, ref := range s.Nodes() {
		scores[ref] = 0
	}

	sources, err := sourceSubset(ctx, s, opts.MaxNodes)
	if err != nil {
		return nil, err
	}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		brandesSingleSource(s, src, scores)
	}

	if opts.Normalize {
		n := s.N()
		denom := float64((n - 1) * (n - 2))
		if denom > 0 {
			for ref := range scores {
				scores[ref] /= denom
			}
		}
	}
	return scores, nil
}

// brandesSingleSource runs one BFS+accumulation pass from src, adding
// dependencies into scores.
func brandesSingleSource(s *Snapshot, src graph.Ref, scores map[graph.Ref]float64) {
	sigma := map[graph.Ref]float64{src: 1}
	dist := map[graph.Ref]int{src: 0}
	pred := map[graph.Ref][]graph.Ref{}
	var order []graph.Ref

	queue := []graph.Ref{src}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)

		for _, e := range s.OutNeighbors(v) {
			w := e.to
			if _, seen := dist[w]; !seen {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
			if dist[w] == dist[v]+1 {
				sigma[w] += sigma[v]
				pred[w] = append(pred[w], v)
			}
		}
	}

	delta := make(map[graph.Ref]float64, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		w := order[i]
		for _, v := range pred[w] {
			if sigma[w] > 0 {
				delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
			}
		}
		if w != src {
			scores[w] += delta[w]
		}
	}
}

// Closeness runs BFS from every node and computes 1/avg(dist) to
// reachable nodes, optionally scaled by reachable-fraction (spec §4.I).
func Closeness(ctx context.Context, s *Snapshot, normalize bool) (map[graph.Ref]float64, error) {
	scores := make(map[graph.Ref]float64, s.N())
	n := s.N()

	for _, src := range s.Nodes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dist := bfsDistances(s, src)
		delete(dist, src)
		if len(dist) == 0 {
			scores[src] = 0
			continue
		}
		sum := 0
		for _, d := range dist {
			sum += d
		}
		raw := float64(len(dist)) / float64(sum)
		if normalize && n > 1 {
			raw *= float64(len(dist)) / float64(n-1)
		}
		scores[src] = raw
	}
	return scores, nil
}

func bfsDistances(s *Snapshot, src graph.Ref) map[graph.Ref]int {
	dist := map[graph.Ref]int{src: 0}
	queue := []graph.Ref{src}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, e := range s.OutNeighbors(v) {
			if _, seen := dist[e.to]; !seen {
				dist[e.to] = dist[v] + 1
				queue = append(queue, e.to)
			}
		}
	}
	return dist
}
