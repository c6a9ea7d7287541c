package fieldschema

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarMergeUsesDefaultWhenNil(t *testing.T) {
	item := Scalar("default-value")
	assert.Equal(t, "default-value", item.Merge(nil))
	assert.Equal(t, "override", item.Merge("override"))
}

func TestScalarEnumVerify(t *testing.T) {
	item := Scalar("a", "a", "b", "c")
	assert.NoError(t, item.Verify("mode", "b"))
	assert.Error(t, item.Verify("mode", "z"))
}

func TestFixedRejectsChange(t *testing.T) {
	item := Fixed(1)
	assert.NoError(t, item.Verify("version", 1))
	assert.Error(t, item.Verify("version", 2))
	assert.Equal(t, 1, item.Merge(999), "Merge always returns the fixed value")
}

func TestPathExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	item := PathOf("~/default")
	merged := item.Merge(nil)
	assert.Equal(t, home+"/default", merged)
}

func TestListVerifiesEachElement(t *testing.T) {
	item := ListOf(Scalar(nil, "x", "y"))
	assert.NoError(t, item.Verify("tags", []any{"x", "y"}))
	assert.Error(t, item.Verify("tags", []any{"x", "bogus"}))
}

func TestDictVerifyRejectsUnknownKeys(t *testing.T) {
	item := Dict(map[string]Item{"a": Scalar(nil)})
	assert.NoError(t, item.Verify("root", map[string]any{"a": 1}))
	assert.Error(t, item.Verify("root", map[string]any{"b": 1}))
}

func TestDictWithOthersAllowsExtraKeys(t *testing.T) {
	item := Dict(map[string]Item{"a": Scalar(nil)}).WithOthers(Scalar(nil))
	assert.NoError(t, item.Verify("root", map[string]any{"a": 1, "extra": 2}))
}

func TestDictMergeFillsDefaults(t *testing.T) {
	item := Dict(map[string]Item{"a": Scalar("default-a")})
	merged := item.Merge(map[string]any{})
	assert.Equal(t, map[string]any{"a": "default-a"}, merged)
}

func TestDiffDetectsLeafChange(t *testing.T) {
	item := Dict(map[string]Item{"a": Scalar(nil)})
	diffs := item.Diff("root", map[string]any{"a": 1}, map[string]any{"a": 2})
	assert.Equal(t, []string{"root.a"}, diffs)
}

func TestDiffNoChangeIsEmpty(t *testing.T) {
	item := Dict(map[string]Item{"a": Scalar(nil)})
	diffs := item.Diff("root", map[string]any{"a": 1}, map[string]any{"a": 1})
	assert.Empty(t, diffs)
}
