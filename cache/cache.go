// Package cache keeps encoded tables keyed by the fingerprints of the grammars and the options they were
// compiled with, so that an unchanged grammar isn't compiled again.
package cache

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/cnf/structhash"
	"github.com/npillmayer/schuko/tracing"
	"github.com/pingcap/errors"
	"github.com/spf13/afero"

	"github.com/nihei9/gramc/codec"
	"github.com/nihei9/gramc/grammar/symbol"
	gspec "github.com/nihei9/gramc/spec/grammar"
)

func tracer() tracing.Trace {
	return tracing.Select("gramc.cache")
}

// Options are the inputs of a compilation besides the grammar source. A change of any of them changes the
// fingerprint.
type Options struct {
	Class     string
	ExportDFA bool
}

type fingerprintSource struct {
	Source        string
	Options       Options
	FormatVersion string
}

// Fingerprint identifies a grammar source compiled with options. The encoding format is a part of the
// fingerprint, so a new format never reads a table an old one wrote.
func Fingerprint(src []byte, opts Options) (string, error) {
	fp, err := structhash.Hash(&fingerprintSource{
		Source:        string(src),
		Options:       opts,
		FormatVersion: codec.FormatVersion,
	}, 1)
	if err != nil {
		return "", errors.Annotate(err, "failed to compute a fingerprint")
	}
	return fp, nil
}

var fingerprintPattern = regexp.MustCompile(`^[0-9A-Za-z_]+$`)

const fileExt = ".grmc"

// Store keeps encoded tables in a directory.
type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fs afero.Fs, dir string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{
		fs:  fs,
		dir: dir,
	}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(fp string) (string, error) {
	if !fingerprintPattern.MatchString(fp) {
		return "", errors.Errorf("invalid fingerprint: %q", fp)
	}
	return filepath.Join(s.dir, fp+fileExt), nil
}

// Load returns the encoded table stored under a fingerprint. The boolean is false on a miss.
func (s *Store) Load(fp string) ([]byte, bool, error) {
	path, err := s.path(fp)
	if err != nil {
		return nil, false, err
	}
	b, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			tracer().Debugf("cache miss: %v", fp)
			return nil, false, nil
		}
		return nil, false, errors.Annotatef(err, "failed to read %v", path)
	}
	tracer().Debugf("cache hit: %v", fp)
	return b, true, nil
}

// Save stores an encoded table. The table is written to a temporary file first, so a reader never sees a
// partial table.
func (s *Store) Save(fp string, b []byte) error {
	path, err := s.path(fp)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return errors.Annotatef(err, "failed to create %v", s.dir)
	}
	f, err := afero.TempFile(s.fs, s.dir, fp+"-*.tmp")
	if err != nil {
		return errors.Annotatef(err, "failed to create a temporary file in %v", s.dir)
	}
	tmp := f.Name()
	_, err = f.Write(b)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.fs.Remove(tmp)
		return errors.Annotatef(err, "failed to write %v", tmp)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		s.fs.Remove(tmp)
		return errors.Annotatef(err, "failed to rename %v", tmp)
	}
	tracer().Debugf("cache saved: %v (%v bytes)", fp, len(b))
	return nil
}

// Remove deletes the table stored under a fingerprint. Removing a missing table isn't an error.
func (s *Store) Remove(fp string) error {
	path, err := s.path(fp)
	if err != nil {
		return err
	}
	err = s.fs.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Annotatef(err, "failed to remove %v", path)
	}
	return nil
}

// LoadGrammar decodes the table stored under a fingerprint. A table that fails to decode is removed and
// reported as a miss.
func (s *Store) LoadGrammar(fp string) (*gspec.CompiledGrammar, *symbol.Table, bool, error) {
	b, ok, err := s.Load(fp)
	if err != nil || !ok {
		return nil, nil, false, err
	}
	g, symTab, err := codec.Unmarshal(b)
	if err != nil {
		tracer().Infof("discarding a broken cache entry %v: %v", fp, err)
		if err := s.Remove(fp); err != nil {
			return nil, nil, false, err
		}
		return nil, nil, false, nil
	}
	return g, symTab, true, nil
}

func (s *Store) SaveGrammar(fp string, g *gspec.CompiledGrammar) error {
	b, err := codec.Marshal(g)
	if err != nil {
		return errors.Trace(err)
	}
	return s.Save(fp, b)
}
