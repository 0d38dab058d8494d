package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/jacoelho/jpc/internal/archive"
	"github.com/jacoelho/jpc/internal/config"
	"github.com/jacoelho/jpc/internal/emit"
	"github.com/jacoelho/jpc/internal/exit"
	"github.com/jacoelho/jpc/internal/ir"
	"github.com/jacoelho/jpc/internal/lower"
	"github.com/jacoelho/jpc/internal/manifest"
	"github.com/jacoelho/jpc/internal/query"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) > 1 && os.Args[1] == "run" {
		result := runDebug(os.Args[2:])
		result.Print()
		return result.ExitCode
	}

	cfg, exitResult := config.Parse(os.Args)
	if exitResult != nil {
		exitResult.Print()
		return exitResult.ExitCode
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result := compile(ctx, cfg)
	result.Print()
	return result.ExitCode
}

// compile runs the full pipeline (spec.md §5): gather query sources,
// parse and lower each into IR, emit one C++ translation unit, and
// write it to stdout, --out, or an --archive bundle.
func compile(ctx context.Context, cfg *config.Config) *exit.Result {
	queries, err := gatherQueries(cfg)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return exit.IOErrorf("Error: %v", err)
		}
		return exit.Errorf("Error: %v", err)
	}

	prog := &ir.Program{}
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return exit.IOErrorf("Error: interrupted: %v", err)
		}

		parsed, err := query.ParseValidated(q.Expr)
		if err != nil {
			if errors.Is(err, query.ErrNotSupported) {
				return exit.Unsupportedf("Error: query %q: %v", q.Name, err)
			}
			return exit.Errorf("Error: query %q: %v", q.Name, err)
		}

		qir, err := lower.Lower(parsed, q.Name)
		if err != nil {
			return exit.Unsupportedf("Error: query %q: %v", q.Name, err)
		}

		if cfg.Mode == config.ModeDOM {
			if err := lower.RejectFiltersUnderDOM(qir); err != nil {
				return exit.Unsupportedf("Error: %v", err)
			}
		}

		prog.Queries = append(prog.Queries, qir)
	}

	e, err := emit.New()
	if err != nil {
		return exit.IOErrorf("Error: %v", err)
	}

	source, err := e.Emit(prog, emit.Options{
		Eager:      cfg.EagerFilters,
		Standalone: cfg.Mmap,
		Bindings:   cfg.Bindings,
		DOM:        cfg.Mode == config.ModeDOM,
		Logging:    cfg.Logging,
	})
	if err != nil {
		return exit.Unsupportedf("Error: %v", err)
	}

	if cfg.ArchivePath != "" {
		if err := writeArchive(cfg, source); err != nil {
			return exit.IOErrorf("Error: %v", err)
		}
		return exit.Success(fmt.Sprintf("wrote %s\n", cfg.ArchivePath))
	}

	if cfg.OutPath != "" {
		if err := os.WriteFile(cfg.OutPath, []byte(source), 0o644); err != nil {
			return exit.IOErrorf("Error: writing %q: %v", cfg.OutPath, err)
		}
		return exit.Success(fmt.Sprintf("wrote %s\n", cfg.OutPath))
	}

	return exit.Success(source)
}

// gatherQueries merges CLI -q entries with any --manifest entries,
// CLI entries winning on name collision (spec.md §6.1).
func gatherQueries(cfg *config.Config) ([]config.Query, error) {
	queries := append([]config.Query{}, cfg.Queries...)

	if cfg.ManifestPath == "" {
		return queries, nil
	}

	f, err := os.Open(cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	defer f.Close()

	m, err := manifest.Parse(f)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(queries))
	for _, q := range queries {
		seen[q.Name] = struct{}{}
	}
	for _, q := range m.Queries {
		if _, dup := seen[q.Name]; dup {
			continue
		}
		queries = append(queries, config.Query{Name: q.Name, Expr: q.Path})
		seen[q.Name] = struct{}{}
	}

	return queries, nil
}

func writeArchive(cfg *config.Config, source string) error {
	base := strings.TrimSuffix(filepath.Base(cfg.ArchivePath), ".tar.gz")
	if base == "" {
		base = "jpc_output"
	}
	return archive.WriteFile(cfg.ArchivePath, []archive.File{
		{Name: base + ".cpp", Contents: []byte(source)},
	})
}
