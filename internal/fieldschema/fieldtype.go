package fieldschema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/qualia-db/qualia/internal/qerrors"
)

// FieldType is the set of declared field types. Parser/formatter
// selection is an exhaustive switch rather than a string-keyed lookup.
type FieldType string

const (
	ExactText FieldType = "exact-text"
	Text      FieldType = "text"
	ID        FieldType = "id"
	Number    FieldType = "number"
	Keyword   FieldType = "keyword"
	Datetime  FieldType = "datetime"
)

// Valid reports whether t is one of the six declared field types.
func (t FieldType) Valid() bool {
	switch t {
	case ExactText, Text, ID, Number, Keyword, Datetime:
		return true
	}
	return false
}

// Parse converts the textual form of a value (as typed on a CLI, or as
// read out of a query literal) into the Go value that will be stored in
// an object's property map.
func Parse(t FieldType, text string) (any, error) {
	switch t {
	case ExactText, ID:
		return text, nil
	case Text, Keyword:
		return strings.TrimSpace(text), nil
	case Number:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &qerrors.InvalidFieldValueError{Value: text, Cause: err}
		}
		return v, nil
	case Datetime:
		ts, err := parseDatetime(text)
		if err != nil {
			return nil, &qerrors.InvalidFieldValueError{Value: text, Cause: err}
		}
		return ts, nil
	default:
		return text, nil
	}
}

// Format renders a stored value back to display text.
func Format(t FieldType, value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// parseDatetime accepts RFC3339 or a bare YYYY-MM-DD date. A
// natural-language date parser would be preferable but no such library
// is available here, so this is a deliberately narrower stdlib
// substitute (see DESIGN.md).
func parseDatetime(text string) (time.Time, error) {
	text = strings.TrimSpace(text)
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", text); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("not a recognized date/time: %q", text)
}
