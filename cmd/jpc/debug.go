package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jacoelho/jpc/internal/exit"
	"github.com/jacoelho/jpc/internal/query"
	"github.com/jacoelho/jpc/internal/simulate"
)

// runDebug implements "jpc run", an interactive debug subcommand that
// evaluates a query against a JSON file with internal/simulate instead
// of generating code, so a query can be tried out before compiling it
// (SPEC_FULL.md's "Supplemented: reference simulator" section).
func runDebug(args []string) *exit.Result {
	fs := flag.NewFlagSet("jpc run", flag.ContinueOnError)
	fs.Usage = func() {}
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		return exit.Errorf("Error: %v\n\nUsage: jpc run <query> <input.json>", err)
	}
	if fs.NArg() != 2 {
		return exit.Errorf("Error: expected exactly 2 arguments\n\nUsage: jpc run <query> <input.json>")
	}

	expr, path := fs.Arg(0), fs.Arg(1)

	q, err := query.ParseValidated(expr)
	if err != nil {
		return exit.Errorf("Error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return exit.IOErrorf("Error: reading %q: %v", path, err)
	}

	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return exit.IOErrorf("Error: decoding %q: %v", path, err)
	}

	matches, err := simulate.RunWithPaths(q, root)
	if err != nil {
		return exit.Unsupportedf("Error: %v", err)
	}

	results := make([]debugResult, len(matches))
	for i, m := range matches {
		results[i] = debugResult{Path: m.Pointer(), Value: m.Value}
	}

	out, err := json.Marshal(results)
	if err != nil {
		return exit.Errorf("Error: encoding result: %v", err)
	}

	return exit.Success(fmt.Sprintf("%s\n", out))
}

// debugResult is one jpc run match: the value plus the RFC 6901 JSON
// Pointer addressing where it was found in the input document, so a
// query can be debugged against a large document without re-deriving
// where each match came from.
type debugResult struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}
