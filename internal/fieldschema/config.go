// Package fieldschema implements a layered configuration hierarchy: a
// small sum type of config "Items" with merge/verify/diff operations,
// plus the field descriptor registry built on top of it. The sum type
// (Scalar | Fixed | Path | List | Dict) is dispatched by an exhaustive
// type switch rather than virtual methods.
package fieldschema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qualia-db/qualia/internal/qerrors"
)

// Item is the sum type backing the configuration hierarchy. Exactly one
// of the embedded pointer fields is non-nil.
type Item struct {
	Scalar *ScalarItem
	Fixed  *FixedItem
	Path   *PathItem
	List   *ListItem
	Dict   *DictItem
}

// ScalarItem holds a single value, optionally one of a finite
// enumeration of strings.
type ScalarItem struct {
	// Enum, if non-empty, constrains the value to one of these strings.
	// Otherwise Verify accepts any value.
	Enum    []string
	Default any
}

// FixedItem's value can never change once set; any attempt raises
// *qerrors.ConstrainedError.
type FixedItem struct {
	Value any
}

// PathItem is a scalar string with home-directory ("~/...") expansion
// applied at merge time.
type PathItem struct {
	Default string
}

// ListItem is a list whose every element is validated against Of.
type ListItem struct {
	Of      Item
	Default []any
}

// DictItem is a nested map of named Items, with an optional "others"
// fallback for undeclared keys.
type DictItem struct {
	Fields  map[string]Item
	Others  *Item
	Default map[string]any
}

func Scalar(def any, enum ...string) Item { return Item{Scalar: &ScalarItem{Default: def, Enum: enum}} }
func Fixed(value any) Item                { return Item{Fixed: &FixedItem{Value: value}} }
func PathOf(def string) Item              { return Item{Path: &PathItem{Default: def}} }
func ListOf(of Item) Item                 { return Item{List: &ListItem{Of: of}} }
func Dict(fields map[string]Item) Item    { return Item{Dict: &DictItem{Fields: fields}} }

// WithOthers attaches an "others" validator for undeclared keys and
// returns the same Item (must be a Dict).
func (it Item) WithOthers(other Item) Item {
	if it.Dict != nil {
		it.Dict.Others = &other
	}
	return it
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}

// Verify checks value against the declared shape without mutating
// anything, failing with a *qerrors.ConstrainedError carrying a dotted
// path on the first violation. Verify runs before Merge; Merge itself
// never fails.
func (it Item) Verify(path string, value any) error {
	if value == nil {
		return nil
	}

	switch {
	case it.Fixed != nil:
		if value != it.Fixed.Value {
			return &qerrors.ConstrainedError{Path: path, Message: "cannot be changed"}
		}
		return nil

	case it.Scalar != nil:
		if len(it.Scalar.Enum) > 0 {
			s, ok := value.(string)
			if !ok || !contains(it.Scalar.Enum, s) {
				return &qerrors.ConstrainedError{Path: path, Message: fmt.Sprintf("must be one of %s", strings.Join(quoteAll(it.Scalar.Enum), ", "))}
			}
			return nil
		}
		return nil

	case it.Path != nil:
		if _, ok := value.(string); !ok {
			return &qerrors.ConstrainedError{Path: path, Message: "must be a string"}
		}
		return nil

	case it.List != nil:
		items, ok := value.([]any)
		if !ok {
			return &qerrors.ConstrainedError{Path: path, Message: "must be a list"}
		}
		for i, elem := range items {
			if err := it.List.Of.Verify(fmt.Sprintf("%s[%d]", path, i), elem); err != nil {
				return err
			}
		}
		return nil

	case it.Dict != nil:
		m, ok := value.(map[string]any)
		if !ok {
			return &qerrors.ConstrainedError{Path: path, Message: "must be a map"}
		}
		for key, field := range it.Dict.Fields {
			if err := field.Verify(joinPath(path, key), m[key]); err != nil {
				return err
			}
		}
		var extra []string
		for key := range m {
			if _, declared := it.Dict.Fields[key]; !declared {
				extra = append(extra, key)
			}
		}
		if len(extra) == 0 {
			return nil
		}
		if it.Dict.Others != nil {
			for _, key := range extra {
				if err := it.Dict.Others.Verify(joinPath(path, key), m[key]); err != nil {
					return err
				}
			}
			return nil
		}
		return &qerrors.ConstrainedError{Path: path, Message: fmt.Sprintf("unexpected keys: %s", strings.Join(quoteAll(extra), ", "))}
	}

	return nil
}

// Merge combines value over the item's defaults, total (never fails).
func (it Item) Merge(value any) any {
	switch {
	case it.Fixed != nil:
		return it.Fixed.Value

	case it.Scalar != nil:
		if value == nil {
			return it.Scalar.Default
		}
		return value

	case it.Path != nil:
		s, ok := value.(string)
		if !ok || s == "" {
			s = it.Path.Default
		}
		return expandHome(s)

	case it.List != nil:
		items, ok := value.([]any)
		if !ok {
			if it.List.Default != nil {
				return it.List.Default
			}
			return []any{}
		}
		out := make([]any, len(items))
		for i, elem := range items {
			out[i] = it.List.Of.Merge(elem)
		}
		return out

	case it.Dict != nil:
		m, _ := value.(map[string]any)
		result := make(map[string]any, len(it.Dict.Fields))
		for key, field := range it.Dict.Fields {
			var v any
			if m != nil {
				v = m[key]
			}
			result[key] = field.Merge(v)
		}
		if it.Dict.Others != nil && m != nil {
			for key, v := range m {
				if _, declared := it.Dict.Fields[key]; !declared {
					result[key] = it.Dict.Others.Merge(v)
				}
			}
		}
		return result
	}

	return value
}

// Diff reports the dotted paths of leaf values that differ between two
// previously-merged config trees of the same shape. Registry.Load uses
// it to log which paths a loaded qualia.yaml customized away from the
// built-in defaults.
func (it Item) Diff(path string, a, b any) []string {
	switch {
	case it.Dict != nil:
		am, _ := a.(map[string]any)
		bm, _ := b.(map[string]any)
		var diffs []string
		seen := map[string]bool{}
		for key, field := range it.Dict.Fields {
			seen[key] = true
			diffs = append(diffs, field.Diff(joinPath(path, key), am[key], bm[key])...)
		}
		if sub := it.Dict.Others; sub != nil {
			for _, m := range []map[string]any{am, bm} {
				for key := range m {
					if seen[key] {
						continue
					}
					seen[key] = true
					diffs = append(diffs, sub.Diff(joinPath(path, key), am[key], bm[key])...)
				}
			}
		}
		return diffs

	case it.List != nil:
		al, _ := a.([]any)
		bl, _ := b.([]any)
		if fmt.Sprint(al) != fmt.Sprint(bl) {
			return []string{path}
		}
		return nil

	default:
		if fmt.Sprint(a) != fmt.Sprint(b) {
			return []string{path}
		}
		return nil
	}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		if p == "~" {
			return home
		}
		return filepath.Join(home, p[2:])
	}
	return p
}

func contains(set []string, s string) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
