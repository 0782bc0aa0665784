// Package graph implements the knowledge-graph store: typed nodes, directed
// labeled edges, and per-node embeddings over a structural model of a source
// repository (modules, functions, calls, imports).
//
// The store is deliberately language-agnostic: identifiers are dotted
// qualified names and (module, name, arity) triples rather than any
// source-language-specific handle. Edge endpoints are always stored in
// their "flattened" reference form — never as an embedded Node value — so
// an edge can point at a node that has not been ingested yet (a forward
// reference across files).
//
// Example:
//
//	db := graph.New(graph.Options{VectorDim: 384})
//
//	db.PutNode(graph.KindModule, graph.NodeID{Module: "A"}, graph.NodeData{File: "a.go", Line: 1})
//	db.PutNode(graph.KindFunction, graph.NodeID{Module: "A", Name: "f", Arity: 1}, graph.NodeData{File: "a.go", Line: 3})
//	db.PutEdge(
//		graph.Ref{Kind: graph.KindModule, ID: graph.NodeID{Module: "A"}},
//		graph.Ref{Kind: graph.KindFunction, ID: graph.NodeID{Module: "A", Name: "f", Arity: 1}},
//		graph.Defines, 1.0, nil,
//	)
package graph

import (
	"errors"
	"fmt"
)

// Errors returned by Store operations. These are the GraphStore-specific
// entries of the taxonomy in spec §7.
var (
	ErrDimensionMismatch = errors.New("graph: embedding dimension mismatch")
	ErrTimeout           = errors.New("graph: write timeout exceeded")
	ErrNotFound          = errors.New("graph: not found")
)

// Kind is the closed set of node kinds a NodeRef/Node may carry.
type Kind uint8

const (
	KindModule Kind = iota
	KindFunction
	KindType
	KindVariable
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindModule:
		return "Module"
	case KindFunction:
		return "Function"
	case KindType:
		return "Type"
	case KindVariable:
		return "Variable"
	case KindFile:
		return "File"
	default:
		return "Unknown"
	}
}

// NodeID uniquely identifies a node within its Kind.
//
// For KindModule, only Module is populated (a dotted qualified name).
// For KindFunction, the triple (Module, Name, Arity) is the key. Other
// kinds reuse Module as the qualified name and leave Name/Arity zero.
type NodeID struct {
	Module string
	Name   string
	Arity  int
}

// Ref is the flattened node reference used as an edge endpoint and as the
// key for algorithms — "Module(id)" or "Function(module, name, arity)" in
// the spec's glossary terms.
type Ref struct {
	Kind Kind
	ID   NodeID
}

func (r Ref) String() string {
	if r.Kind == KindFunction {
		return fmt.Sprintf("%s/%s#%s/%d", r.Kind, r.ID.Module, r.ID.Name, r.ID.Arity)
	}
	return fmt.Sprintf("%s/%s", r.Kind, r.ID.Module)
}

// Visibility is a node's exported/unexported tag.
type Visibility uint8

const (
	VisibilityUnknown Visibility = iota
	VisibilityPublic
	VisibilityPrivate
)

// NodeData carries everything about a node besides its identity.
type NodeData struct {
	File       string
	Line       int
	Doc        string
	Visibility Visibility
	Language   string
	Metadata   map[string]any
}

// Node is a (Kind, NodeID, NodeData) triple, returned from read operations.
type Node struct {
	Kind Kind
	ID   NodeID
	Data NodeData
}

// EdgeKind is the closed set of relationship types between two Refs.
type EdgeKind uint8

const (
	Calls EdgeKind = iota
	Imports
	Defines
	Inherits
	Implements
)

func (k EdgeKind) String() string {
	switch k {
	case Calls:
		return "Calls"
	case Imports:
		return "Imports"
	case Defines:
		return "Defines"
	case Inherits:
		return "Inherits"
	case Implements:
		return "Implements"
	default:
		return "Unknown"
	}
}

// EdgeMetadata carries the weight (default 1.0 when unset) and an open map
// of additional edge properties.
type EdgeMetadata struct {
	Weight   float64
	Metadata map[string]any
}

// Edge is a directed labeled edge between two flattened node references.
type Edge struct {
	From Ref
	To   Ref
	Kind EdgeKind
	Meta EdgeMetadata
}

// edgeKey identifies an edge slot for upsert semantics: (from, to, kind).
type edgeKey struct {
	from Ref
	to   Ref
	kind EdgeKind
}

// Embedding is a unit-normalized vector plus the source text it was derived
// from, keyed by the same Ref used for nodes.
type Embedding struct {
	Vector []float32
	Text   string
}

// Stats is the result of Store.Stats().
type Stats struct {
	Nodes      int
	Edges      int
	Embeddings int
}
