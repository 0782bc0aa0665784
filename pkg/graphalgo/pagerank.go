package graphalgo

import (
	"context"

	"github.com/codesage/codesage/pkg/graph"
)

// PageRankOptions configures PageRank. Zero values fall back to spec
// defaults: damping 0.85, 100 iterations, tolerance 1e-4.
type PageRankOptions struct {
	Damping       float64
	MaxIterations int
	Tolerance     float64
}

func (o PageRankOptions) withDefaults() PageRankOptions {
	if o.Damping == 0 {
		o.Damping = 0.85
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = 100
	}
	if o.Tolerance == 0 {
		o.Tolerance = 1e-4
	}
	return o
}

// PageRank runs the damped-iteration algorithm of spec §4.I:
//
//	s'(v) = (1-d)/N + d * Σ_{u∈in(v)} s(u)/out_deg(u)
//
// Dangling nodes (out-degree 0) contribute no outgoing mass; the lost
// mass is not redistributed, only absorbed by the teleport term — an
// accepted approximation, not a bug (spec explicitly sanctions this).
func PageRank(ctx context.Context, s *Snapshot, opts PageRankOptions) (map[graph.Ref]float64, error) {
	opts = opts.withDefaults()
	n := s.N()
	scores := make(map[graph.Ref]float64, n)
	if n == 0 {
		return scores, nil
	}
	for _, ref := range s.Nodes() {
		scores[ref] = 1.0 / float64(n)
	}

	teleport := (1 - opts.Damping) / float64(n)

	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := make(map[graph.Ref]float64, n)
		maxDelta := 0.0

		for _, v := range s.Nodes() {
			sum := 0.0
			for _, e := range s.InNeighbors(v) {
				outDeg := s.OutDegree(e.to)
				if outDeg > 0 {
					sum += scores[e.to] / float64(outDeg)
				}
			}
			val := teleport + opts.Damping*sum
			next[v] = val
			if delta := val - scores[v]; delta > maxDelta || -delta > maxDelta {
				if delta < 0 {
					delta = -delta
				}
				maxDelta = delta
			}
		}

		scores = next
		if maxDelta < opts.Tolerance {
			break
		}
	}

	return scores, nil
}
