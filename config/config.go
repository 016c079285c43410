// Package config holds the settings of the command line tool.
package config

import (
	"io"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
	"github.com/spf13/afero"

	"github.com/nihei9/gramc/grammar"
	"github.com/nihei9/gramc/internal/logutil"
)

type Config struct {
	Log     logutil.Config `toml:"log"`
	Compile Compile        `toml:"compile"`
	Cache   Cache          `toml:"cache"`
}

// Compile is the compile section of the config.
type Compile struct {
	// One of "lalr" and "slr".
	Class string `toml:"class"`
	// Attach a maleeni DFA of the lexical specification to compiled grammars.
	DFA bool `toml:"dfa"`
	// Write a report of the automaton next to the compiled grammar.
	Report bool `toml:"report"`
}

// Cache is the cache section of the config.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

func NewConfig() *Config {
	return &Config{
		Log: *logutil.NewConfig(),
		Compile: Compile{
			Class: string(grammar.ClassLALR),
		},
		Cache: Cache{
			Enabled: true,
			Dir:     defaultCacheDir(),
		},
	}
}

func defaultCacheDir() string {
	return filepath.Join(".gramc", "cache")
}

// Load overwrites the config with a TOML file. Keys the config doesn't know are errors.
func (c *Config) Load(fs afero.Fs, path string) error {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return errors.Trace(err)
	}
	meta, err := toml.Decode(string(b), c)
	if err != nil {
		return errors.Annotatef(err, "failed to parse %v", path)
	}
	if len(meta.Undecoded()) > 0 {
		return errors.Errorf("unknown keys in config file %s: %v", path, meta.Undecoded())
	}
	return errors.Trace(c.Valid())
}

func (c *Config) Valid() error {
	switch grammar.Class(c.Compile.Class) {
	case grammar.ClassLALR, grammar.ClassSLR:
	default:
		return errors.Errorf("invalid class: %q (must be one of %q and %q)", c.Compile.Class, grammar.ClassLALR, grammar.ClassSLR)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.Errorf("invalid log format: %q", c.Log.Format)
	}
	if c.Cache.Enabled && c.Cache.Dir == "" {
		return errors.New("the cache directory must be set when the cache is enabled")
	}
	return nil
}

// Encode writes the config as TOML.
func (c *Config) Encode(w io.Writer) error {
	return errors.Trace(toml.NewEncoder(w).Encode(c))
}
