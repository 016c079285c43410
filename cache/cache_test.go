package cache

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nihei9/gramc/grammar"
	"github.com/nihei9/gramc/grammar/symbol"
	"github.com/nihei9/gramc/spec"
	gspec "github.com/nihei9/gramc/spec/grammar"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testSrc = `
#name test;

s
    : s a
    | a
    ;

a: 'a';
`

func compile(t *testing.T, src string) *gspec.CompiledGrammar {
	t.Helper()

	ast, err := spec.Parse(strings.NewReader(src))
	require.NoError(t, err)
	b := grammar.GrammarBuilder{
		AST: ast,
	}
	gram, err := b.Build()
	require.NoError(t, err)
	cg, _, err := grammar.Compile(gram)
	require.NoError(t, err)
	return cg
}

func TestFingerprint(t *testing.T) {
	fp1, err := Fingerprint([]byte(testSrc), Options{Class: "lalr"})
	require.NoError(t, err)
	fp2, err := Fingerprint([]byte(testSrc), Options{Class: "lalr"})
	require.NoError(t, err)
	require.Equal(t, fp1, fp2)
	require.Regexp(t, fingerprintPattern, fp1)

	others := []struct {
		src  string
		opts Options
	}{
		{src: testSrc + "\n", opts: Options{Class: "lalr"}},
		{src: testSrc, opts: Options{Class: "slr"}},
		{src: testSrc, opts: Options{Class: "lalr", ExportDFA: true}},
	}
	for _, o := range others {
		fp, err := Fingerprint([]byte(o.src), o.opts)
		require.NoError(t, err)
		require.NotEqual(t, fp1, fp)
	}
}

func TestStore_LoadAndSave(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStore(fs, "/var/cache/gramc")

	fp, err := Fingerprint([]byte(testSrc), Options{})
	require.NoError(t, err)

	b, ok, err := s.Load(fp)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, b)

	require.NoError(t, s.Save(fp, []byte("table")))
	b, ok, err = s.Load(fp)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("table"), b)

	// Saving again overwrites the table.
	require.NoError(t, s.Save(fp, []byte("new table")))
	b, ok, err = s.Load(fp)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("new table"), b)

	// No temporary file remains.
	files, err := afero.ReadDir(fs, s.Dir())
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, fp+fileExt, files[0].Name())

	require.NoError(t, s.Remove(fp))
	_, ok, err = s.Load(fp)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, s.Remove(fp))
}

func TestStore_RejectsInvalidFingerprints(t *testing.T) {
	s := NewStore(afero.NewMemMapFs(), "/cache")
	for _, fp := range []string{"", "../escape", filepath.Join("a", "b"), "a.b"} {
		_, _, err := s.Load(fp)
		require.Error(t, err, fp)
		require.Error(t, s.Save(fp, []byte{}), fp)
	}
}

func TestStore_Grammar(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStore(fs, "/cache")
	cg := compile(t, testSrc)

	fp, err := Fingerprint([]byte(testSrc), Options{})
	require.NoError(t, err)

	_, _, ok, err := s.LoadGrammar(fp)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SaveGrammar(fp, cg))
	loaded, symTab, ok, err := s.LoadGrammar(fp)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cg.Syntactic, loaded.Syntactic)
	eof, ok := symTab.Lookup(symbol.NameEOF)
	require.True(t, ok)
	require.Equal(t, symbol.IDEOF, eof.ID)

	// A broken entry is a miss and is removed.
	require.NoError(t, s.Save(fp, []byte("GRMC broken")))
	_, _, ok, err = s.LoadGrammar(fp)
	require.NoError(t, err)
	require.False(t, ok)
	exists, err := afero.Exists(fs, filepath.Join("/cache", fp+fileExt))
	require.NoError(t, err)
	require.False(t, exists)
}
