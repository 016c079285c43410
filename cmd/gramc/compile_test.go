package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/nihei9/gramc/cache"
	"github.com/nihei9/gramc/grammar"
)

const exprSrc = `
#name expr;

#prec (
    #left add
    #left mul
);

expr
    : expr add expr
    | expr mul expr
    | expr add expr mul expr
    | num
    ;

add: '+';
mul: '*';
num: "[0-9]+";
`

func TestCompileSource_Cache(t *testing.T) {
	store := cache.NewStore(afero.NewMemMapFs(), "/cache")
	opts := compileOptions{
		class: grammar.ClassLALR,
	}

	first, err := compileSource([]byte(exprSrc), opts, store)
	require.NoError(t, err)
	require.False(t, first.cacheHit)
	require.Equal(t, "expr", first.grammar.Name)
	require.Nil(t, first.report)

	second, err := compileSource([]byte(exprSrc), opts, store)
	require.NoError(t, err)
	require.True(t, second.cacheHit)
	require.Equal(t, first.grammar.Syntactic, second.grammar.Syntactic)

	// Another class is another cache entry.
	slr, err := compileSource([]byte(exprSrc), compileOptions{class: grammar.ClassSLR}, store)
	require.NoError(t, err)
	require.False(t, slr.cacheHit)
	require.Equal(t, string(grammar.ClassSLR), slr.grammar.Syntactic.Class)

	// Asking for a report always compiles the grammar.
	withReport, err := compileSource([]byte(exprSrc), compileOptions{class: grammar.ClassLALR, report: true}, store)
	require.NoError(t, err)
	require.False(t, withReport.cacheHit)
	require.NotNil(t, withReport.report)
}

func TestCompileSource_WithoutCache(t *testing.T) {
	res, err := compileSource([]byte(exprSrc), compileOptions{class: grammar.ClassLALR, report: true}, nil)
	require.NoError(t, err)
	require.False(t, res.cacheHit)

	// `expr add expr mul expr` conflicts with both binary productions.
	require.NotEmpty(t, res.diagnostics)

	var b bytes.Buffer
	require.NoError(t, writeReport(&b, res.report))
	require.Contains(t, b.String(), "# Conflicts")
	require.Contains(t, b.String(), "expr → expr + expr")
	require.Contains(t, b.String(), "## State 0")
}

func TestCompileSource_Errors(t *testing.T) {
	_, err := compileSource([]byte(`#name bad; s: undefined;`), compileOptions{class: grammar.ClassLALR}, nil)
	require.Error(t, err)
}

func TestMakeOutputFilePaths(t *testing.T) {
	dir := t.TempDir()

	cgramPath, reportPath, err := makeOutputFilePaths("expr", dir, false)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "expr.grmc"), cgramPath)
	require.Equal(t, filepath.Join(dir, "expr-report.json"), reportPath)

	cgramPath, _, err = makeOutputFilePaths("expr", dir, true)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "expr.json"), cgramPath)

	file := filepath.Join(dir, "out.bin")
	cgramPath, reportPath, err = makeOutputFilePaths("expr", file, false)
	require.NoError(t, err)
	require.Equal(t, file, cgramPath)
	require.Equal(t, filepath.Join(dir, "expr-report.json"), reportPath)

	wd, err := os.Getwd()
	require.NoError(t, err)
	cgramPath, reportPath, err = makeOutputFilePaths("expr", "", false)
	require.NoError(t, err)
	require.Empty(t, cgramPath)
	require.Equal(t, filepath.Join(wd, "expr-report.json"), reportPath)
}

func TestReadCompiledGrammar(t *testing.T) {
	res, err := compileSource([]byte(exprSrc), compileOptions{class: grammar.ClassLALR}, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	for _, asJSON := range []bool{false, true} {
		var b bytes.Buffer
		require.NoError(t, writeCompiledGrammar(&b, res.grammar, asJSON))
		path := filepath.Join(dir, "expr")
		require.NoError(t, os.WriteFile(path, b.Bytes(), 0644))

		cg, err := readCompiledGrammar(path)
		require.NoError(t, err)
		require.Equal(t, res.grammar.Name, cg.Name)
		require.Equal(t, res.grammar.Syntactic.Transition, cg.Syntactic.Transition)
	}
}
