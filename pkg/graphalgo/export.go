package graphalgo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/codesage/codesage/pkg/graph"
)

// ExportOptions configures both export formats (spec §4.I).
type ExportOptions struct {
	MaxNodes   int // node-link JSON truncation, default 500
	Metric     map[graph.Ref]float64
	Community  map[graph.Ref]int
}

func (o ExportOptions) withDefaults() ExportOptions {
	if o.MaxNodes == 0 {
		o.MaxNodes = 500
	}
	return o
}

// sanitizeDotID turns a Ref into a DOT-safe quoted identifier.
func sanitizeDotID(ref graph.Ref) string {
	return strconv.Quote(ref.String())
}

// ExportDOT renders the snapshot as Graphviz DOT (spec §4.I): nodes
// colored on an HSV scale from white (0) to red (max) by Metric (when
// provided), grouped into "cluster_N" subgraphs by Community (when
// provided), with edge pen-width scaled by weight.
func ExportDOT(ctx context.Context, s *Snapshot, opts ExportOptions) (string, error) {
	opts = opts.withDefaults()

	var b strings.Builder
	b.WriteString("digraph codesage {\n")

	maxMetric := 0.0
	for _, v := range opts.Metric {
		if v > maxMetric {
			maxMetric = v
		}
	}

	byCommunity := make(map[int][]graph.Ref)
	var unclustered []graph.Ref
	for _, ref := range s.Nodes() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if opts.Community == nil {
			unclustered = append(unclustered, ref)
			continue
		}
		c, ok := opts.Community[ref]
		if !ok {
			unclustered = append(unclustered, ref)
			continue
		}
		byCommunity[c] = append(byCommunity[c], ref)
	}

	writeNode := func(b *strings.Builder, ref graph.Ref) {
		color := ""
		if maxMetric > 0 {
			frac := opts.Metric[ref] / maxMetric
			// Fixed hue 0 (red); saturation swept 0 (white) to 1 (red).
			color = fmt.Sprintf(` style=filled fillcolor="%s"`, hsvToHex(0, frac, 1.0))
		}
		fmt.Fprintf(b, "  %s [label=%q%s];\n", sanitizeDotID(ref), ref.String(), color)
	}

	communityIDs := make([]int, 0, len(byCommunity))
	for c := range byCommunity {
		communityIDs = append(communityIDs, c)
	}
	sort.Ints(communityIDs)
	for _, c := range communityIDs {
		fmt.Fprintf(&b, "  subgraph cluster_%d {\n", c)
		for _, ref := range byCommunity[c] {
			b.WriteString("  ")
			writeNode(&b, ref)
		}
		b.WriteString("  }\n")
	}
	for _, ref := range unclustered {
		writeNode(&b, ref)
	}

	for _, from := range s.Nodes() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		for _, e := range s.OutNeighbors(from) {
			penwidth := 1.0 + math.Log1p(e.weight)
			fmt.Fprintf(&b, "  %s -> %s [penwidth=%.2f];\n", sanitizeDotID(from), sanitizeDotID(e.to), penwidth)
		}
	}

	b.WriteString("}\n")
	return b.String(), nil
}

// hsvToHex converts an HSV triple (h in [0,1], s/v in [0,1]) to a "#RRGGBB"
// string, used for the PageRank/centrality color scale.
func hsvToHex(h, s, v float64) string {
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, bl float64
	switch int(i) % 6 {
	case 0:
		r, g, bl = v, t, p
	case 1:
		r, g, bl = q, v, p
	case 2:
		r, g, bl = p, v, t
	case 3:
		r, g, bl = p, q, v
	case 4:
		r, g, bl = t, p, v
	default:
		r, g, bl = v, p, q
	}
	return fmt.Sprintf("#%02x%02x%02x", int(r*255), int(g*255), int(bl*255))
}

// NodeLinkGraph is the node-link JSON export shape (spec §4.I).
type NodeLinkGraph struct {
	Nodes []NodeLinkNode `json:"nodes"`
	Links []NodeLinkLink `json:"links"`
}

// NodeLinkNode is one exported node, with optional centrality/community
// annotations attached when the caller supplied them.
type NodeLinkNode struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Module    string   `json:"module"`
	Name      string   `json:"name,omitempty"`
	Metric    *float64 `json:"metric,omitempty"`
	Community *int     `json:"community,omitempty"`
}

// NodeLinkLink is one exported edge.
type NodeLinkLink struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// ExportNodeLink builds the node-link JSON export shape, truncating to
// MaxNodes (default 500) by descending Metric when one is supplied,
// otherwise in snapshot order.
func ExportNodeLink(ctx context.Context, s *Snapshot, opts ExportOptions) (NodeLinkGraph, error) {
	opts = opts.withDefaults()
	nodes := append([]graph.Ref(nil), s.Nodes()...)

	if opts.Metric != nil {
		sort.Slice(nodes, func(i, j int) bool { return opts.Metric[nodes[i]] > opts.Metric[nodes[j]] })
	}
	if len(nodes) > opts.MaxNodes {
		nodes = nodes[:opts.MaxNodes]
	}

	kept := make(map[graph.Ref]bool, len(nodes))
	out := NodeLinkGraph{Nodes: make([]NodeLinkNode, 0, len(nodes))}
	for _, ref := range nodes {
		if err := ctx.Err(); err != nil {
			return NodeLinkGraph{}, err
		}
		kept[ref] = true
		n := NodeLinkNode{ID: ref.String(), Kind: ref.Kind.String(), Module: ref.ID.Module, Name: ref.ID.Name}
		if opts.Metric != nil {
			if v, ok := opts.Metric[ref]; ok {
				n.Metric = &v
			}
		}
		if opts.Community != nil {
			if c, ok := opts.Community[ref]; ok {
				n.Community = &c
			}
		}
		out.Nodes = append(out.Nodes, n)
	}

	for _, from := range nodes {
		if err := ctx.Err(); err != nil {
			return NodeLinkGraph{}, err
		}
		for _, e := range s.OutNeighbors(from) {
			if !kept[e.to] {
				continue
			}
			out.Links = append(out.Links, NodeLinkLink{Source: from.String(), Target: e.to.String(), Weight: e.weight})
		}
	}

	return out, nil
}
