package analyzer

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

// GenericAnalyzer is the extension-agnostic fallback: a line-oriented
// regex scan that recognizes common function/import shapes across
// C-family, Python, and Ruby-like syntaxes. It never errors — a source
// file that matches nothing yields a Result holding only the file's module
// record, letting the pipeline register the module node without
// function-level detail.
//
// Grounded on apoc/algo's "best-effort structural scan, never fail the
// batch" posture: the teacher favors degrading gracefully over rejecting
// unrecognized input.
type GenericAnalyzer struct{}

// NewGenericAnalyzer builds a GenericAnalyzer.
func NewGenericAnalyzer() *GenericAnalyzer { return &GenericAnalyzer{} }

// SupportedExtensions returns nil: GenericAnalyzer is installed as the
// registry's fallback, not routed by extension.
func (GenericAnalyzer) SupportedExtensions() []string { return nil }

var (
	genericFuncRe = regexp.MustCompile(`^\s*(?:def|function|func|fn)\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)`)
	genericImportRe = regexp.MustCompile(`^\s*(?:import|require|use|include)\s+["']?([A-Za-z0-9_./\-]+)["']?`)
)

func (GenericAnalyzer) Analyze(source []byte, filePath string) (Result, error) {
	module := filePath
	out := Result{Modules: []ModuleRecord{{Name: module, File: filePath, Line: 1}}}

	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()

		if m := genericFuncRe.FindStringSubmatch(text); m != nil {
			name := m[1]
			arity := 0
			if params := strings.TrimSpace(m[2]); params != "" {
				arity = len(strings.Split(params, ","))
			}
			out.Functions = append(out.Functions, FunctionRecord{
				Name:       name,
				Arity:      arity,
				Module:     module,
				File:       filePath,
				Line:       lineNo,
				Visibility: visibilityOf(name),
			})
			continue
		}

		if m := genericImportRe.FindStringSubmatch(text); m != nil {
			out.Imports = append(out.Imports, ImportRecord{
				FromModule: module,
				ToModule:   m[1],
				Kind:       ImportKindImport,
			})
		}
	}

	return out, nil
}
