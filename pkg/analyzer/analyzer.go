// Package analyzer defines the Analyzer contract (spec §4.E) and the
// registry that routes a source path to the right implementation by file
// extension. Every Analyzer is a pure function of (source text, path): no
// store access, no side effects, so ingestion can run many analyzers
// concurrently over a worker pool (spec §4.F).
//
// Grounded on the teacher's pkg/indexing config pattern for "a registry
// keyed by a discriminator picks a strategy" and on the tree-sitter usage
// shown in the broader example pack's ingestion engines.
package analyzer

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Visibility mirrors graph.Visibility without importing pkg/graph, keeping
// analyzers decoupled from the store.
type Visibility uint8

const (
	VisibilityUnknown Visibility = iota
	VisibilityPublic
	VisibilityPrivate
)

// ModuleRecord is one analyzed module (file-level or package-level unit).
type ModuleRecord struct {
	Name     string
	File     string
	Line     int
	Doc      string
	Metadata map[string]any
}

// FunctionRecord is one analyzed function or method.
type FunctionRecord struct {
	Name       string
	Arity      int
	Module     string
	File       string
	Line       int
	Doc        string
	Visibility Visibility
	Metadata   map[string]any
}

// CallRecord is one observed call site inside a function body.
type CallRecord struct {
	FromModule   string
	FromFunction string
	FromArity    int
	ToModule     string
	ToFunction   string
	ToArity      int
	Line         int
}

// ImportKind is the closed set of cross-module reference flavors a source
// language may express.
type ImportKind string

const (
	ImportKindImport  ImportKind = "import"
	ImportKindRequire ImportKind = "require"
	ImportKindUse     ImportKind = "use"
	ImportKindAlias   ImportKind = "alias"
)

// ImportRecord is one observed cross-module reference.
type ImportRecord struct {
	FromModule string
	ToModule   string
	Kind       ImportKind
}

// Result is the single normalized output shape every Analyzer produces
// (spec §4.E), regardless of source language.
type Result struct {
	Modules   []ModuleRecord
	Functions []FunctionRecord
	Calls     []CallRecord
	Imports   []ImportRecord
}

// Error is a typed per-file analysis failure. The ingestion pipeline
// collects these into a BatchReport rather than aborting (spec §7).
type Error struct {
	File   string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("analyzer: %s: %s", e.File, e.Reason)
}

// Analyzer is a pure, stateless source-to-Result transform.
type Analyzer interface {
	// SupportedExtensions returns the file extensions (including the
	// leading dot, e.g. ".go") this analyzer claims.
	SupportedExtensions() []string

	// Analyze parses source and returns the normalized Result, or an
	// *Error describing why it could not.
	Analyze(source []byte, filePath string) (Result, error)
}

// Registry routes a path to an Analyzer by file extension.
type Registry struct {
	mu        sync.RWMutex
	byExt     map[string]Analyzer
	fallback  Analyzer
}

// NewRegistry builds an empty Registry. Call Register to add analyzers and
// SetFallback to install a catch-all (typically GenericAnalyzer).
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]Analyzer)}
}

// Register associates analyzer with every extension it reports from
// SupportedExtensions. A later Register for the same extension replaces
// the earlier one.
func (r *Registry) Register(a Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range a.SupportedExtensions() {
		r.byExt[strings.ToLower(ext)] = a
	}
}

// SetFallback installs the analyzer used when no extension-specific match
// exists.
func (r *Registry) SetFallback(a Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = a
}

// Resolve picks an analyzer for path. tag, when non-empty, overrides
// extension-based routing with an explicit extension string (the "auto
// means by extension, otherwise a caller-supplied tag is honored" rule of
// spec §4.E). Resolve returns false only when there is no extension match
// and no fallback installed.
func (r *Registry) Resolve(path, tag string) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext := strings.ToLower(tag)
	if ext == "" || ext == "auto" {
		ext = strings.ToLower(filepath.Ext(path))
	}
	if a, ok := r.byExt[ext]; ok {
		return a, true
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}
