// Package manifest loads jpc's multi-query manifest files: a YAML
// document naming one or more JSONPath queries to compile into a single
// translation unit (spec.md §6, "--manifest"). Decoding follows the
// teacher's own goccy/go-yaml usage in internal/rq/yaml, adapted from
// rq's HTTP test-step schema to jpc's query-list schema.
package manifest

import (
	"fmt"
	"io"

	"github.com/goccy/go-yaml"

	"github.com/jacoelho/jpc/internal/query"
)

// Query is one named entry in a manifest.
type Query struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Manifest is a compilation unit: every query in it is emitted into the
// same output file, sharing the runtime library's MAX_SUBQUERIES
// constant (spec.md §4.D, "Deterministic naming convention").
type Manifest struct {
	Queries []Query `yaml:"queries"`
}

// Parse decodes a manifest document and validates that every entry has
// a name, a path, and a name unique within the manifest.
func Parse(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("manifest: reading input: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: decoding YAML: %w", err)
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if len(m.Queries) == 0 {
		return fmt.Errorf("manifest: must list at least one query")
	}

	seen := make(map[string]struct{}, len(m.Queries))
	for _, q := range m.Queries {
		if q.Name == "" {
			return fmt.Errorf("manifest: query entry missing 'name'")
		}
		if q.Path == "" {
			return fmt.Errorf("manifest: query %q missing 'path'", q.Name)
		}
		if !isValidSymbolName(q.Name) {
			return fmt.Errorf("manifest: query name %q is not a valid C++ identifier fragment", q.Name)
		}
		if _, dup := seen[q.Name]; dup {
			return fmt.Errorf("manifest: duplicate query name %q", q.Name)
		}
		seen[q.Name] = struct{}{}

		if err := query.Validate(q.Path); err != nil {
			return fmt.Errorf("manifest: query %q: %w", q.Name, err)
		}
	}
	return nil
}

func isValidSymbolName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && isDigit {
			return false
		}
		if !isAlpha && !isDigit {
			return false
		}
	}
	return true
}
