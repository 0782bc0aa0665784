package graphalgo

import (
	"context"
	"math/rand"
	"time"

	"github.com/codesage/codesage/pkg/graph"
)

// LouvainOptions configures one-level Louvain community detection.
type LouvainOptions struct {
	MaxIterations  int     // default 10
	MinImprovement float64 // default 1e-4
}

func (o LouvainOptions) withDefaults() LouvainOptions {
	if o.MaxIterations == 0 {
		o.MaxIterations = 10
	}
	if o.MinImprovement == 0 {
		o.MinImprovement = 1e-4
	}
	return o
}

// Louvain runs single-level greedy modularity optimization over the
// undirected Calls projection (spec §4.I). Each node starts in its own
// community; nodes repeatedly move to the neighboring community that
// yields the largest modularity gain (canonical Blondel et al. ΔQ),
// until a full pass improves total modularity by less than
// MinImprovement or MaxIterations passes elapse.
func Louvain(ctx context.Context, s *Snapshot, opts LouvainOptions) (map[graph.Ref]int, error) {
	opts = opts.withDefaults()
	adj := s.Undirected()
	nodes := s.Nodes()

	community := make(map[graph.Ref]int, len(nodes))
	degree := make(map[graph.Ref]float64, len(nodes))
	m2 := 0.0 // 2m: sum of all edge weights counted once per endpoint
	for i, n := range nodes {
		community[n] = i
		d := 0.0
		for _, w := range adj[n] {
			d += w
		}
		degree[n] = d
		m2 += d
	}
	if m2 == 0 {
		return community, nil
	}

	// sigmaTot tracked per community: the total degree of its members, on
	// the 2m scale.
	sigmaTot := make(map[int]float64, len(nodes))
	for n, c := range community {
		sigmaTot[c] += degree[n]
	}

	prevQ := modularity(adj, community, m2)
	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		moved := false
		for _, n := range nodes {
			cur := community[n]
			neighborWeight := make(map[int]float64)
			for nb, w := range adj[n] {
				neighborWeight[community[nb]] += w
			}

			sigmaTot[cur] -= degree[n]
			bestC := cur
			bestGain := 0.0
			for c, kiIn := range neighborWeight {
				gain := louvainGain(kiIn, sigmaTot[c], degree[n], m2)
				if gain > bestGain {
					bestGain = gain
					bestC = c
				}
			}
			sigmaTot[bestC] += degree[n]

			if bestC != cur {
				community[n] = bestC
				moved = true
			}
		}

		q := modularity(adj, community, m2)
		if !moved || q-prevQ < opts.MinImprovement {
			prevQ = q
			break
		}
		prevQ = q
	}

	return normalizeCommunityIDs(nodes, community), nil
}

// louvainGain computes the canonical Blondel ΔQ of placing a node (degree
// ki) with kiIn edge-weight into a community of total degree sigmaTot,
// halved: kiIn/2m - sigmaTot*ki/(2m)^2 with m2 = 2m. The constant factor
// does not change which move has the largest gain.
func louvainGain(kiIn, sigmaTot, ki, m2 float64) float64 {
	return kiIn/m2 - (sigmaTot*ki)/(m2*m2)
}

// modularity computes Q = Σ_c [in_c/2m - (tot_c/2m)^2], where in_c is the
// weight of edges inside community c counted from both endpoints and tot_c
// is the total degree of its members.
func modularity(adj map[graph.Ref]map[graph.Ref]float64, community map[graph.Ref]int, m2 float64) float64 {
	if m2 == 0 {
		return 0
	}
	in := make(map[int]float64)
	tot := make(map[int]float64)
	for n, nbrs := range adj {
		for nb, w := range nbrs {
			tot[community[n]] += w
			if community[n] == community[nb] {
				in[community[n]] += w
			}
		}
	}

	q := 0.0
	for c, t := range tot {
		q += in[c]/m2 - (t/m2)*(t/m2)
	}
	return q
}

// normalizeCommunityIDs renumbers community labels to a dense 0..k-1
// range in first-seen order over nodes, so results are stable and
// comparable for a given snapshot.
func normalizeCommunityIDs(nodes []graph.Ref, community map[graph.Ref]int) map[graph.Ref]int {
	seen := make(map[int]int)
	out := make(map[graph.Ref]int, len(community))
	next := 0
	for _, n := range nodes {
		c := community[n]
		id, ok := seen[c]
		if !ok {
			id = next
			seen[c] = id
			next++
		}
		out[n] = id
	}
	return out
}

// LabelPropagationOptions configures asynchronous label propagation.
type LabelPropagationOptions struct {
	MaxIterations int // default 20

	// Seed makes the shuffle deterministic when set. nil means a fresh,
	// non-deterministic shuffle each call; a pointer (rather than a bare
	// int64) is needed so an explicitly-provided seed of 0 isn't confused
	// with "no seed given".
	Seed *int64
}

func (o LabelPropagationOptions) withDefaults() LabelPropagationOptions {
	if o.MaxIterations == 0 {
		o.MaxIterations = 20
	}
	return o
}

// LabelPropagation assigns each node the majority label among its
// undirected neighbors, iterating in shuffled order each round until
// no label changes or MaxIterations is reached (spec §4.I). Ties break
// toward the node's current label, else the lowest label value.
func LabelPropagation(ctx context.Context, s *Snapshot, opts LabelPropagationOptions) (map[graph.Ref]int, error) {
	opts = opts.withDefaults()
	adj := s.Undirected()
	nodes := s.Nodes()

	label := make(map[graph.Ref]int, len(nodes))
	for i, n := range nodes {
		label[n] = i
	}

	var rng *rand.Rand
	if opts.Seed != nil {
		rng = rand.New(rand.NewSource(*opts.Seed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	order := append([]graph.Ref(nil), nodes...)
	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		changed := false

		for _, n := range order {
			counts := make(map[int]float64)
			for nb, w := range adj[n] {
				counts[label[nb]] += w
			}
			if len(counts) == 0 {
				continue
			}
			best, bestWeight := label[n], -1.0
			if w, ok := counts[label[n]]; ok {
				bestWeight = w
			}
			for l, w := range counts {
				if w > bestWeight || (w == bestWeight && l < best && best != label[n]) {
					bestWeight = w
					best = l
				}
			}
			if best != label[n] {
				label[n] = best
				changed = true
			}
		}

		if !changed {
			break
		}
	}

	return normalizeCommunityIDs(nodes, label), nil
}
