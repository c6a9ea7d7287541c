package journal

import "encoding/json"

// Encode/Decode implement the journal row encoding: JSON, for
// cross-language portability, with time.Time values encoded as ISO-8601
// (encoding/json's default time.Time marshaling is already RFC3339).
// journal_test.go exercises the round trip for a struct payload and for
// nil.

// Encode serializes v to the blob form stored in previous_blob/extra_blob.
// A nil v encodes to a nil blob (distinguishing "no prior value" from
// "prior value was the empty map", which undo needs for ActionSet).
func Encode(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Decode deserializes a blob written by Encode into out. A nil blob
// leaves out untouched and returns no error.
func Decode(blob []byte, out any) error {
	if blob == nil {
		return nil
	}
	return json.Unmarshal(blob, out)
}

// SetPayload is the extra_blob shape for ActionSet: which field changed.
type SetPayload struct {
	Field  string `json:"field"`
	Source string `json:"source"`
}
