package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct{ exts []string }

func (s stubAnalyzer) SupportedExtensions() []string { return s.exts }
func (s stubAnalyzer) Analyze(source []byte, path string) (Result, error) {
	return Result{Modules: []ModuleRecord{{Name: path}}}, nil
}

func TestResolvePicksByExtension(t *testing.T) {
	r := NewRegistry()
	r.Register(stubAnalyzer{exts: []string{".go"}})

	a, ok := r.Resolve("main.go", "")
	require.True(t, ok)
	res, err := a.Analyze(nil, "main.go")
	require.NoError(t, err)
	assert.Equal(t, "main.go", res.Modules[0].Name)
}

func TestResolveFallsBackWhenNoExtensionMatch(t *testing.T) {
	r := NewRegistry()
	r.Register(stubAnalyzer{exts: []string{".go"}})
	r.SetFallback(NewGenericAnalyzer())

	a, ok := r.Resolve("script.rb", "")
	require.True(t, ok)
	assert.IsType(t, &GenericAnalyzer{}, a)
}

func TestResolveWithoutMatchOrFallbackFails(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Resolve("unknown.xyz", "")
	assert.False(t, ok)
}

func TestResolveHonorsExplicitTag(t *testing.T) {
	r := NewRegistry()
	r.Register(stubAnalyzer{exts: []string{".py"}})
	a, ok := r.Resolve("script.unusual", ".py")
	require.True(t, ok)
	_, err := a.Analyze(nil, "script.unusual")
	require.NoError(t, err)
}

func TestGenericAnalyzerExtractsFunctionsAndImports(t *testing.T) {
	src := []byte("import os\n\ndef greet(name, loud):\n    return name\n")
	res, err := GenericAnalyzer{}.Analyze(src, "greet.py")
	require.NoError(t, err)
	require.Len(t, res.Functions, 1)
	assert.Equal(t, "greet", res.Functions[0].Name)
	assert.Equal(t, 2, res.Functions[0].Arity)
	require.Len(t, res.Imports, 1)
	assert.Equal(t, "os", res.Imports[0].ToModule)
}

func TestGenericAnalyzerNeverErrors(t *testing.T) {
	res, err := GenericAnalyzer{}.Analyze([]byte("#!/bin/sh\necho hi\n"), "script.sh")
	require.NoError(t, err)
	assert.Len(t, res.Modules, 1)
}
