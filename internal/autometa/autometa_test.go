package autometa

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubImporter struct {
	fields []string
	values map[string]any
}

func (s stubImporter) Fields() []string { return s.fields }

func (s stubImporter) Extract(path string, f *os.File) (map[string]any, error) {
	return s.values, nil
}

func TestRegisterDuplicateNamePanics(t *testing.T) {
	Register("dup-test", stubImporter{})
	assert.Panics(t, func() { Register("dup-test", stubImporter{}) })
}

func TestExtractAllMergesAndLaterWins(t *testing.T) {
	Register("zzz-first", stubImporter{fields: []string{"a"}, values: map[string]any{"a": "from-first", "b": "only-first"}})
	Register("zzz-second", stubImporter{fields: []string{"a"}, values: map[string]any{"a": "from-second"}})

	f, err := os.CreateTemp(t.TempDir(), "autometa")
	require.NoError(t, err)
	defer f.Close()

	merged, err := ExtractAll(f.Name(), f)
	require.NoError(t, err)
	assert.Equal(t, "from-second", merged["a"], "alphabetically later importer wins on collision")
	assert.Equal(t, "only-first", merged["b"])
}

func TestNamesSortedAlphabetically(t *testing.T) {
	Register("alpha-order-b", stubImporter{})
	Register("alpha-order-a", stubImporter{})

	names := Names()
	var seenB, seenA int
	for i, n := range names {
		if n == "alpha-order-b" {
			seenB = i
		}
		if n == "alpha-order-a" {
			seenA = i
		}
	}
	assert.Less(t, seenA, seenB)
}

func TestFSStatExtractsModTime(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "fsstat")
	require.NoError(t, err)
	defer f.Close()

	fields, err := FSStat{}.Extract(f.Name(), f)
	require.NoError(t, err)
	assert.Contains(t, fields, "file-modified-at")
}

func TestMIMEDetectsPlainText(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "mime")
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString("hello, this is plain text")
	require.NoError(t, err)
	_, err = f.Seek(0, 0)
	require.NoError(t, err)

	fields, err := MIME{}.Extract(f.Name(), f)
	require.NoError(t, err)
	assert.Contains(t, fields["content-type"], "text/plain")
}
