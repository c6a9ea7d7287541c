// Package schema validates JSON-shaped documents against embedded JSON
// Schema files. Qualia has exactly one such document, the export
// archive's manifest, so Kind carries only that case.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/qualia-db/qualia/pkg/log"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Kind int

const (
	ExportManifest Kind = iota + 1
)

//go:embed schemas/*
var schemaFiles embed.FS

func Load(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Path)
}

func init() {
	jsonschema.Loaders["embedFS"] = Load
}

// Validate marshals v to JSON and checks it against the schema for k. v
// is typically a Go struct (e.g. exportimport.Manifest); the JSON round
// trip is what gives the jsonschema library the generic
// map[string]interface{} shape it expects.
func Validate(k Kind, v any) (err error) {
	var s *jsonschema.Schema

	switch k {
	case ExportManifest:
		s, err = jsonschema.Compile("embedFS://schemas/export-manifest.schema.json")
	default:
		return fmt.Errorf("schema: unknown kind %d", k)
	}
	if err != nil {
		return err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Errorf("schema.Validate() - failed to decode: %v", err)
		return err
	}

	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
