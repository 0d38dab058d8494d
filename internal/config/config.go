// Package config parses jpc's CLI flags into a Config (spec.md §6.1).
// The flag.FlagSet / sentinel-Err* / Validate() error shape follows the
// teacher's own internal/config/config.go, extended with spf13/viper so
// a project can commit default flags in ~/.jpc.yaml or ./jpc.yaml
// without repeating them on every invocation.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"

	"github.com/jacoelho/jpc/internal/exit"
)

// Mode selects the traversal strategy the emitted program uses.
type Mode string

const (
	ModeOnDemand Mode = "ondemand"
	ModeDOM      Mode = "dom"
)

var (
	ErrNoArguments     = errors.New("no arguments provided")
	ErrNoQueries       = errors.New("no queries specified: pass -q name=expr or --manifest")
	ErrInvalidQuery    = errors.New("query must be in format name=expr")
	ErrEmptyQueryName  = errors.New("query name cannot be empty")
	ErrDuplicateQuery  = errors.New("duplicate query name")
	ErrInvalidMode     = errors.New("mode must be one of: ondemand, dom")
	ErrArchiveNoTarget = errors.New("--archive requires --bindings or more than one query")
)

// Query is one -q name=expr pair, in the order it was given on the
// command line (manifest entries are appended after CLI-supplied
// queries, per spec.md §6.1's "flags take precedence on name
// collision").
type Query struct {
	Name string
	Expr string
}

// Config is the fully parsed and validated set of options for one jpc
// invocation.
type Config struct {
	Queries      []Query
	ManifestPath string

	Mode          Mode
	Mmap          bool
	Logging       bool
	Bindings      bool
	EagerFilters  bool
	OutPath       string
	ArchivePath   string
}

type queryFlag struct {
	order   []string
	values  map[string]string
}

func newQueryFlag() *queryFlag {
	return &queryFlag{values: make(map[string]string)}
}

func (f *queryFlag) String() string {
	parts := make([]string, 0, len(f.order))
	for _, name := range f.order {
		parts = append(parts, fmt.Sprintf("%s=%s", name, f.values[name]))
	}
	return strings.Join(parts, ",")
}

func (f *queryFlag) Set(value string) error {
	parts := strings.SplitN(value, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("%w, got: %s", ErrInvalidQuery, value)
	}

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return ErrEmptyQueryName
	}
	if _, dup := f.values[name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateQuery, name)
	}

	f.values[name] = parts[1]
	f.order = append(f.order, name)
	return nil
}

func (f *queryFlag) Queries() []Query {
	out := make([]Query, 0, len(f.order))
	for _, name := range f.order {
		out = append(out, Query{Name: name, Expr: f.values[name]})
	}
	return out
}

// Parse parses args (as os.Args, args[0] is the program name) into a
// Config, merging in any defaults found in ~/.jpc.yaml or ./jpc.yaml via
// viper before flags are applied. Flags always take precedence over
// file-sourced defaults.
func Parse(args []string) (*Config, *exit.Result) {
	if len(args) == 0 {
		return nil, exit.Errorf("Error: %v\n\n%s", ErrNoArguments, Usage())
	}

	v := viper.New()
	v.SetConfigName("jpc")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, exit.Errorf("Error: reading config file: %v", err)
		}
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.Usage = func() {}
	fs.SetOutput(io.Discard)

	queries := newQueryFlag()
	fs.Var(queries, "q", "Named query in format name=expr (can be used multiple times)")

	manifest := fs.String("manifest", v.GetString("manifest"), "Path to a YAML manifest of {name, path} query entries")
	mode := fs.String("mode", defaultString(v, "mode", string(ModeOnDemand)), "Target flavor: ondemand or dom")
	mmap := fs.Bool("mmap", v.GetBool("mmap"), "Emit a standalone main() that loads an input file (not memory-mapped)")
	logging := fs.Bool("logging", v.GetBool("logging"), "Enable simdjson verbose logging in the emitted program")
	bindings := fs.Bool("bindings", v.GetBool("bindings"), "Emit extern \"C\" binding wrappers")
	eager := fs.Bool("eager-filters", v.GetBool("eager-filters"), "Enable eager filter evaluation (spec.md §4.C.4)")
	out := fs.String("out", v.GetString("out"), "Output file path (default stdout)")
	archivePath := fs.String("archive", v.GetString("archive"), "Bundle rendered output into a gzip-compressed tarball at this path")

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, exit.Success(Usage())
		}
		return nil, exit.Errorf("Error: failed to parse arguments: %v\n\n%s", err, Usage())
	}

	cfg := &Config{
		Queries:      queries.Queries(),
		ManifestPath: *manifest,
		Mode:         Mode(*mode),
		Mmap:         *mmap,
		Logging:      *logging,
		Bindings:     *bindings,
		EagerFilters: *eager,
		OutPath:      *out,
		ArchivePath:  *archivePath,
	}

	if err := cfg.Validate(); err != nil {
		return nil, exit.Errorf("Error: %v\n\n%s", err, Usage())
	}

	return cfg, nil
}

// defaultString reads key from v, falling back to def when unset.
func defaultString(v *viper.Viper, key, def string) string {
	if s := v.GetString(key); s != "" {
		return s
	}
	return def
}

// Validate checks that cfg describes a compilable invocation.
func (c *Config) Validate() error {
	if len(c.Queries) == 0 && c.ManifestPath == "" {
		return ErrNoQueries
	}

	switch c.Mode {
	case ModeOnDemand, ModeDOM:
	default:
		return fmt.Errorf("%w, got: %s", ErrInvalidMode, c.Mode)
	}

	if c.ArchivePath != "" && !c.Bindings && len(c.Queries) <= 1 && c.ManifestPath == "" {
		return ErrArchiveNoTarget
	}

	return nil
}

func Usage() string {
	return `jpc - JSONPath-to-native-code compiler

Usage: jpc [options] -q name=expr [-q name2=expr2 ...]
       jpc [options] --manifest queries.yaml
       jpc run <query> <input.json>   Evaluate a query against a JSON file without compiling it

Options:
  -q name=expr         Named query to compile (repeatable)
  --manifest FILE      YAML manifest of {name, path} query entries
  --mode MODE          Target flavor: ondemand (default) or dom
  --mmap               Emit a standalone main() that loads an input file (not memory-mapped)
  --logging            Enable simdjson verbose logging in the emitted program
  --bindings           Emit extern "C" binding wrappers
  --eager-filters      Enable eager filter evaluation
  --out FILE           Output file path (default stdout)
  --archive FILE       Bundle output into a gzip-compressed tarball at FILE
  -h, --help           Show this help message

Defaults for any of the above may be set in ./jpc.yaml or ~/.jpc.yaml;
flags passed on the command line always take precedence.

Examples:
  jpc -q authors='$.store.book[*].author'
  jpc --manifest queries.yaml --out queries.cpp
  jpc -q prices='$..price' --bindings --archive out.tar.gz`
}
