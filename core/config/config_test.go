package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cwa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1024, cfg.Store.ContentCacheSize)
	assert.Equal(t, 10, cfg.Implementation.MaxEntries)
	assert.Equal(t, 200, cfg.Batch.MaxEntriesPerBatch)
	assert.Equal(t, 5, cfg.TTL.DefaultCommandTTL)
	assert.False(t, cfg.Batch.PriorityFirst)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
implementation:
  max_entries: 25
batch:
  max_entries_per_batch: 50
  priority_first: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Implementation.MaxEntries)
	assert.Equal(t, 50, cfg.Batch.MaxEntriesPerBatch)
	assert.True(t, cfg.Batch.PriorityFirst)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1024, cfg.Store.ContentCacheSize)
	assert.Equal(t, 5, cfg.TTL.DefaultCommandTTL)
}

func TestLoadZeroValuesKeepDefaults(t *testing.T) {
	path := writeConfig(t, `
implementation:
  max_entries: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Implementation.MaxEntries)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "batch: [not a mapping")

	_, err := Load(path)
	require.Error(t, err)
}
