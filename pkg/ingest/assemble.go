package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/codesage/codesage/pkg/analyzer"
	"github.com/codesage/codesage/pkg/graph"
	"github.com/codesage/codesage/pkg/tracker"
)

// assemble upserts one file's AnalysisResult into the GraphStore (spec
// §4.F step 4) and generates embeddings for every node it touched (step
// 5). It returns the node refs produced, for FileTracker.Record.
func (p *Pipeline) assemble(ctx context.Context, result analyzer.Result) []tracker.NodeKey {
	var produced []graph.Ref

	moduleRef := func(name string) graph.Ref {
		return graph.Ref{Kind: graph.KindModule, ID: graph.NodeID{Module: name}}
	}
	funcRef := func(module, name string, arity int) graph.Ref {
		return graph.Ref{Kind: graph.KindFunction, ID: graph.NodeID{Module: module, Name: name, Arity: arity}}
	}

	for _, m := range result.Modules {
		ref := moduleRef(m.Name)
		p.Store.PutNode(ref.Kind, ref.ID, graph.NodeData{File: m.File, Line: m.Line, Doc: m.Doc, Metadata: m.Metadata})
		produced = append(produced, ref)
		p.embedNode(ctx, ref, moduleDescription(m))
	}

	for _, fn := range result.Functions {
		ref := funcRef(fn.Module, fn.Name, fn.Arity)
		p.Store.PutNode(ref.Kind, ref.ID, graph.NodeData{
			File:       fn.File,
			Line:       fn.Line,
			Doc:        fn.Doc,
			Visibility: graph.Visibility(fn.Visibility),
			Metadata:   fn.Metadata,
		})
		produced = append(produced, ref)
		p.Store.PutEdge(moduleRef(fn.Module), ref, graph.Defines, 1.0, nil)
		p.embedNode(ctx, ref, functionDescription(fn))
	}

	for _, call := range result.Calls {
		from := funcRef(call.FromModule, call.FromFunction, call.FromArity)
		arity := call.ToArity
		if id, _, ok := p.Store.FindFunction(call.ToModule, call.ToFunction); ok {
			arity = id.Arity
		}
		to := funcRef(call.ToModule, call.ToFunction, arity)
		p.Store.PutEdge(from, to, graph.Calls, 1.0, map[string]any{"line": call.Line})
	}

	for _, imp := range result.Imports {
		p.Store.PutEdge(moduleRef(imp.FromModule), moduleRef(imp.ToModule), graph.Imports, 1.0, map[string]any{"kind": string(imp.Kind)})
	}

	return produced
}

func moduleDescription(m analyzer.ModuleRecord) string {
	if m.Doc != "" {
		return fmt.Sprintf("module %s: %s", m.Name, m.Doc)
	}
	return fmt.Sprintf("module %s", m.Name)
}

func functionDescription(fn analyzer.FunctionRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "func %s.%s/%d", fn.Module, fn.Name, fn.Arity)
	if fn.Doc != "" {
		sb.WriteString(": ")
		sb.WriteString(fn.Doc)
	}
	return sb.String()
}

// embedNode synthesizes a description, consults the embedding cache, and
// falls back to the provider on a miss. Provider failures do not fail the
// file (spec §4.F step 5: soft ProviderUnavailable).
func (p *Pipeline) embedNode(ctx context.Context, ref graph.Ref, description string) {
	if p.Embedder == nil || description == "" {
		return
	}
	hash := tracker.HashBytes([]byte(description))

	if p.Cache != nil {
		if vec, found, err := p.Cache.Load(ref.Kind, hash); err == nil && found {
			p.Store.PutEmbedding(ref.Kind, ref.ID, vec, description)
			return
		}
	}

	vec, err := p.Embedder.Embed(ctx, description)
	if err != nil {
		return
	}
	p.Store.PutEmbedding(ref.Kind, ref.ID, vec, description)
	if p.Cache != nil {
		p.Cache.Save(ref.Kind, hash, vec)
	}
}
