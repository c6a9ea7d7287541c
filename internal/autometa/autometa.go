// Package autometa implements the auto-metadata importer registry: each
// importer inspects a newly-added file and contributes fields to it.
// Importers register themselves with an explicit call at startup rather
// than through any dynamic plugin-discovery mechanism, and run in
// deterministic alphabetical-by-name order.
package autometa

import (
	"os"
	"sort"
	"sync"
)

// Importer derives metadata field values from a file's bytes/stat info
// at import time.
type Importer interface {
	// Fields lists the property names this importer may produce, so the
	// host can pre-declare them in the field schema.
	Fields() []string
	// Extract inspects path/f and returns a (possibly partial) set of
	// field values. f is already open and positioned at offset 0.
	Extract(path string, f *os.File) (map[string]any, error)
}

var (
	mu        sync.Mutex
	importers = map[string]Importer{}
)

// Register adds an importer under name. Registering the same name twice
// panics, since it indicates two plugins claiming the same identity,
// not a runtime condition callers should need to handle.
func Register(name string, imp Importer) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := importers[name]; exists {
		panic("autometa: importer " + name + " already registered")
	}
	importers[name] = imp
}

// Names returns every registered importer's name, alphabetically.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, 0, len(importers))
	for name := range importers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExtractAll runs every registered importer, in alphabetical order, over
// path/f, merging their outputs. A later importer's field wins over an
// earlier one's on collision, matching the deterministic ordering that
// replaces the source's unordered entry-point discovery.
func ExtractAll(path string, f *os.File) (map[string]any, error) {
	mu.Lock()
	names := make([]string, 0, len(importers))
	for name := range importers {
		names = append(names, name)
	}
	sort.Strings(names)
	snapshot := make(map[string]Importer, len(importers))
	for _, name := range names {
		snapshot[name] = importers[name]
	}
	mu.Unlock()

	merged := map[string]any{}
	for _, name := range names {
		if _, err := f.Seek(0, 0); err != nil {
			return nil, err
		}
		fields, err := snapshot[name].Extract(path, f)
		if err != nil {
			return nil, err
		}
		for k, v := range fields {
			merged[k] = v
		}
	}
	return merged, nil
}
