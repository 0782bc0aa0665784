package graphalgo

import (
	"context"
	"time"

	"github.com/codesage/codesage/pkg/graph"
	"github.com/codesage/codesage/pkg/notify"
)

// Path is one enumerated call chain from a FindPaths source to target.
type Path struct {
	Nodes  []graph.Ref
	Weight float64
}

// PathOptions configures bounded DFS enumeration (spec §4.I).
type PathOptions struct {
	MaxDepth int // edges, default 10
	MaxPaths int // default 100
	Notify   notify.Sink

	// WarnDense toggles the pre-flight dense-graph notice on src. nil
	// means the spec default of true; set to a false pointer to disable
	// it. A plain bool can't express "default true" against Go's false
	// zero value, so this is a tri-state pointer instead.
	WarnDense *bool
}

func (o PathOptions) withDefaults() PathOptions {
	if o.MaxDepth == 0 {
		o.MaxDepth = 10
	}
	if o.MaxPaths == 0 {
		o.MaxPaths = 100
	}
	if o.Notify == nil {
		o.Notify = notify.Nop{}
	}
	if o.WarnDense == nil {
		t := true
		o.WarnDense = &t
	}
	return o
}

// denseOutDegreeWarn/Info thresholds for the dense-graph notification
// emitted by FindPaths' single pre-flight check of src's out-degree
// (spec §4.I).
const (
	denseOutDegreeWarn = 20
	denseOutDegreeInfo = 10
)

// FindPaths enumerates simple paths from src to dst via depth-first
// search, visited-set pruning per branch, capped at MaxDepth edges and
// MaxPaths results. If WarnDense is on, a single pre-flight check against
// src's out-degree emits a notification before enumeration begins (spec
// §4.I: "pre-flight out-degree check that warns before potentially
// exponential path enumeration").
func FindPaths(ctx context.Context, s *Snapshot, src, dst graph.Ref, opts PathOptions) ([]Path, error) {
	opts = opts.withDefaults()
	var results []Path

	if *opts.WarnDense {
		if outDeg := s.OutDegree(src); outDeg >= denseOutDegreeWarn {
			emitDenseNotice(opts.Notify, notify.EventPathWarning, src, outDeg)
		} else if outDeg >= denseOutDegreeInfo {
			emitDenseNotice(opts.Notify, notify.EventPathInfo, src, outDeg)
		}
	}

	visited := map[graph.Ref]bool{src: true}
	var walk func(current graph.Ref, path []graph.Ref, weight float64) error
	walk = func(current graph.Ref, path []graph.Ref, weight float64) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(results) >= opts.MaxPaths {
			return nil
		}
		if current == dst {
			cp := append([]graph.Ref(nil), path...)
			results = append(results, Path{Nodes: cp, Weight: weight})
			return nil
		}
		if len(path)-1 >= opts.MaxDepth {
			return nil
		}

		for _, e := range s.OutNeighbors(current) {
			if len(results) >= opts.MaxPaths {
				return nil
			}
			if visited[e.to] {
				continue
			}
			visited[e.to] = true
			err := walk(e.to, append(path, e.to), weight+e.weight)
			visited[e.to] = false
			if err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(src, []graph.Ref{src}, 0); err != nil {
		return nil, err
	}
	return results, nil
}

func emitDenseNotice(sink notify.Sink, event string, ref graph.Ref, outDegree int) {
	sink.Notify(notify.Message{
		Event: event,
		Params: map[string]any{
			"node":       ref.String(),
			"out_degree": outDegree,
		},
		Timestamp: time.Now(),
	})
}
