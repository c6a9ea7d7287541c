package fieldschema

import (
	"os"
	"path/filepath"

	"github.com/qualia-db/qualia/internal/qerrors"
	"github.com/qualia-db/qualia/pkg/log"
	"gopkg.in/yaml.v3"
)

// perFieldItem is the shape of one entry under the `metadata` key: the
// same shape for every declared field, core or plugin-added.
var perFieldItem = Dict(map[string]Item{
	"type":      Scalar(nil, string(ExactText), string(Text), string(ID), string(Number), string(Keyword), string(Datetime)),
	"read-only": Scalar(false),
	"shown":     Scalar(true),
	"aliases":   ListOf(Scalar(nil)),
})

// fileDocSchema is the layered-config Item tree describing the whole
// YAML document Load reads: an open-ended `metadata` dict (every entry
// shaped like perFieldItem) and an open-ended `aliases` dict (name ->
// canonical name, any string).
var fileDocSchema = Dict(map[string]Item{
	"metadata": Dict(map[string]Item{}).WithOthers(perFieldItem),
	"aliases":  Dict(map[string]Item{}).WithOthers(Scalar(nil)),
})

// FieldDescriptor is a single declared field.
type FieldDescriptor struct {
	Type     FieldType `yaml:"type"`
	Aliases  []string  `yaml:"aliases,omitempty"`
	ReadOnly bool      `yaml:"read-only,omitempty"`
	Shown    bool      `yaml:"shown"`
}

// Registry is the set of declared fields for one open database, loaded
// from the YAML config file and merged over the core's built-in fields.
// Additional fields are declared by auto-metadata importers; the core
// fields below always exist.
type Registry struct {
	Fields map[string]FieldDescriptor
}

// CoreFields are the fields every database has regardless of config:
// hash, comments, filename, plus the supplemental fields used for blob
// bookkeeping.
func CoreFields() map[string]FieldDescriptor {
	return map[string]FieldDescriptor{
		"hash": {
			Type:     ID,
			ReadOnly: true,
			Shown:    false,
		},
		"comments": {
			Type:  Text,
			Shown: true,
		},
		"filename": {
			Type:  ExactText,
			Shown: true,
		},
		"file-modified-at": {
			Type:  Datetime,
			Shown: true,
		},
		"imported-at": {
			Type:     Datetime,
			ReadOnly: true,
			Shown:    true,
		},
		"tags": {
			Type:  Keyword,
			Shown: true,
		},
	}
}

// fileDoc is the on-disk shape of qualia.yaml / <db>/state.
type fileDoc struct {
	Metadata map[string]FieldDescriptor `yaml:"metadata"`
	Aliases  map[string]string          `yaml:"aliases,omitempty"`
}

// NewRegistry returns a registry seeded with the core fields.
func NewRegistry() *Registry {
	return &Registry{Fields: CoreFields()}
}

// Load reads a YAML field-config file (if present; absence is not an
// error), verifies it against fileDocSchema, and merges declared fields
// over the core defaults. Verify catches shape errors (wrong kind for a
// key, an undeclared top-level key, a `type` outside the six declared
// kinds); the per-field loop below still checks the handful of things
// Verify's generic leaf-shape rules can't express, like an empty `type`
// or the domain rule that `hash` can't be redeclared.
func (r *Registry) Load(path string) (aliases map[string]string, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var generic map[string]any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	if err := fileDocSchema.Verify("", generic); err != nil {
		return nil, err
	}

	if diffs := fileDocSchema.Diff("", fileDocSchema.Merge(nil), fileDocSchema.Merge(generic)); len(diffs) > 0 {
		log.Debugf("fieldschema: %q customizes %v from the built-in defaults", path, diffs)
	}

	var doc fileDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	for name, desc := range doc.Metadata {
		if !desc.Type.Valid() {
			return nil, &qerrors.ConstrainedError{Path: "metadata." + name + ".type", Message: "must be one of exact-text, text, id, number, keyword, datetime"}
		}
		if existing, ok := r.Fields[name]; ok && existing.ReadOnly && name == "hash" {
			return nil, &qerrors.ConstrainedError{Path: "metadata." + name, Message: "cannot be changed"}
		}
		r.Fields[name] = desc
	}

	return doc.Aliases, nil
}

// Save writes the registry (minus core fields that were never
// customized) back to path, so a field declaration persists.
func (r *Registry) Save(path string, aliases map[string]string) error {
	core := CoreFields()
	metadata := map[string]FieldDescriptor{}
	for name, desc := range r.Fields {
		if c, ok := core[name]; ok && c.Type == desc.Type && c.ReadOnly == desc.ReadOnly && c.Shown == desc.Shown && len(desc.Aliases) == 0 {
			continue
		}
		metadata[name] = desc
	}
	doc := fileDoc{Metadata: metadata, Aliases: aliases}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o666)
}

// Get returns the descriptor for name, resolving it first against
// declared fields, then returns ok=false if undeclared.
func (r *Registry) Get(name string) (FieldDescriptor, bool) {
	d, ok := r.Fields[name]
	return d, ok
}

// DeclareIfAbsent registers name with desc unless it is already
// declared, used by auto-metadata importers to make sure the fields
// they may write exist in the schema before the first write.
func (r *Registry) DeclareIfAbsent(name string, desc FieldDescriptor) {
	if _, ok := r.Fields[name]; !ok {
		r.Fields[name] = desc
	}
}

// DefaultConfigPath is $XDG_CONFIG_HOME (falling back to ~/.config)
// joined with qualia.yaml.
func DefaultConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "qualia.yaml")
}
