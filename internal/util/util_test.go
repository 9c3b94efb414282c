package util_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keshon/psnap/internal/util"
)

func TestJSONRoundTrip(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	path := filepath.Join(t.TempDir(), "meta.json")

	require.NoError(t, util.WriteJSON(path, payload{Name: "snap", Count: 3}))

	var got payload
	require.NoError(t, util.ReadJSON(path, &got))
	require.Equal(t, payload{Name: "snap", Count: 3}, got)
}

func TestWriteJSONLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, util.WriteJSON(filepath.Join(dir, "a.json"), map[string]int{"x": 1}))

	matches, err := filepath.Glob(filepath.Join(dir, "tmp-*"))
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestSortedKeys(t *testing.T) {
	m := map[string]int{"c": 1, "a": 2, "b": 3}
	require.Equal(t, []string{"a", "b", "c"}, util.SortedKeys(m))
}
