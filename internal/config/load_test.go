package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoadDir_MergesTables(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"default.yaml": defaultDoc,
		"orders.yaml":  "tolerances:\n  consistency: 2\n",
		"items.yaml":   "load_strategy: source_only\n",
	})

	docs, tableErrs, err := LoadDir(dir, nil)
	require.NoError(t, err)
	assert.Empty(t, tableErrs)
	require.Len(t, docs, 2)

	// Sorted by file name: items before orders.
	assert.Equal(t, "items", docs[0].Table)
	assert.Equal(t, "source_only", docs[0].LoadStrategy)
	assert.Equal(t, "orders", docs[1].Table)
	assert.Equal(t, 2, docs[1].Tolerances.Consistency)
}

func TestLoadDir_MissingDefaultIsFatal(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"orders.yaml": "table: orders\n",
	})
	_, _, err := LoadDir(dir, nil)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestLoadDir_BrokenTableDoesNotAbortSiblings(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"default.yaml": defaultDoc,
		"orders.yaml":  "unknown_key: true\n",
		"items.yaml":   "tolerances:\n  consistency: 1\n",
	})

	docs, tableErrs, err := LoadDir(dir, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "items", docs[0].Table)
	require.Contains(t, tableErrs, "orders")
}

func TestLoadDir_FiltersByTable(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"default.yaml": defaultDoc,
		"orders.yaml":  "tolerances:\n  consistency: 2\n",
		"items.yaml":   "load_strategy: source_only\n",
	})

	docs, tableErrs, err := LoadDir(dir, []string{"orders"})
	require.NoError(t, err)
	assert.Empty(t, tableErrs)
	require.Len(t, docs, 1)
	assert.Equal(t, "orders", docs[0].Table)
}

func TestLoadDir_RequestedTableMissing(t *testing.T) {
	dir := writeConfigDir(t, map[string]string{
		"default.yaml": defaultDoc,
	})

	docs, tableErrs, err := LoadDir(dir, []string{"ghost"})
	require.NoError(t, err)
	assert.Empty(t, docs)
	require.Contains(t, tableErrs, "ghost")
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	_, _, err := LoadDir(filepath.Join(t.TempDir(), "nope"), nil)
	require.Error(t, err)
}
