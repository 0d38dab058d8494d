package config

import (
	"testing"
)

func TestParseSingleQuery(t *testing.T) {
	t.Parallel()

	cfg, result := Parse([]string{"jpc", "-q", "authors=$.store.book[*].author"})
	if result != nil {
		t.Fatalf("Parse returned unexpected exit result: %+v", result)
	}

	if len(cfg.Queries) != 1 {
		t.Fatalf("len(cfg.Queries) = %d, want 1", len(cfg.Queries))
	}
	if cfg.Queries[0].Name != "authors" || cfg.Queries[0].Expr != "$.store.book[*].author" {
		t.Fatalf("cfg.Queries[0] = %+v, want {authors $.store.book[*].author}", cfg.Queries[0])
	}
	if cfg.Mode != ModeOnDemand {
		t.Fatalf("cfg.Mode = %q, want %q (default)", cfg.Mode, ModeOnDemand)
	}
}

func TestParseMultipleQueries(t *testing.T) {
	t.Parallel()

	cfg, result := Parse([]string{"jpc", "-q", "a=$.a", "-q", "b=$.b", "--eager-filters", "--bindings"})
	if result != nil {
		t.Fatalf("Parse returned unexpected exit result: %+v", result)
	}
	if len(cfg.Queries) != 2 {
		t.Fatalf("len(cfg.Queries) = %d, want 2", len(cfg.Queries))
	}
	if !cfg.EagerFilters || !cfg.Bindings {
		t.Fatalf("cfg = %+v, want EagerFilters and Bindings set", cfg)
	}
}

func TestParseNoQueriesFails(t *testing.T) {
	t.Parallel()

	cfg, result := Parse([]string{"jpc"})
	if cfg != nil {
		t.Fatalf("Parse returned cfg %+v, want nil", cfg)
	}
	if result == nil || result.ExitCode == 0 {
		t.Fatalf("Parse result = %+v, want a nonzero exit code", result)
	}
}

func TestParseDuplicateQueryNameFails(t *testing.T) {
	t.Parallel()

	_, result := Parse([]string{"jpc", "-q", "a=$.a", "-q", "a=$.b"})
	if result == nil || result.ExitCode == 0 {
		t.Fatalf("Parse result = %+v, want a nonzero exit code for duplicate name", result)
	}
}

func TestParseInvalidQueryFormatFails(t *testing.T) {
	t.Parallel()

	_, result := Parse([]string{"jpc", "-q", "noequalssign"})
	if result == nil || result.ExitCode == 0 {
		t.Fatalf("Parse result = %+v, want a nonzero exit code for malformed -q", result)
	}
}

func TestParseInvalidModeFails(t *testing.T) {
	t.Parallel()

	_, result := Parse([]string{"jpc", "-q", "a=$.a", "--mode", "bogus"})
	if result == nil || result.ExitCode == 0 {
		t.Fatalf("Parse result = %+v, want a nonzero exit code for invalid mode", result)
	}
}

func TestParseArchiveWithoutBindingsOrManifestFails(t *testing.T) {
	t.Parallel()

	_, result := Parse([]string{"jpc", "-q", "a=$.a", "--archive", "out.tar.gz"})
	if result == nil || result.ExitCode == 0 {
		t.Fatalf("Parse result = %+v, want a nonzero exit code for a single-query archive without --bindings", result)
	}
}

func TestParseArchiveWithBindingsSucceeds(t *testing.T) {
	t.Parallel()

	cfg, result := Parse([]string{"jpc", "-q", "a=$.a", "--bindings", "--archive", "out.tar.gz"})
	if result != nil {
		t.Fatalf("Parse returned unexpected exit result: %+v", result)
	}
	if cfg.ArchivePath != "out.tar.gz" {
		t.Fatalf("cfg.ArchivePath = %q, want out.tar.gz", cfg.ArchivePath)
	}
}

func TestParseManifestAloneIsValid(t *testing.T) {
	t.Parallel()

	cfg, result := Parse([]string{"jpc", "--manifest", "queries.yaml"})
	if result != nil {
		t.Fatalf("Parse returned unexpected exit result: %+v", result)
	}
	if cfg.ManifestPath != "queries.yaml" {
		t.Fatalf("cfg.ManifestPath = %q, want queries.yaml", cfg.ManifestPath)
	}
}
