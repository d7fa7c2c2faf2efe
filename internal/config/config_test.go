package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Contains(t, cfg.Paths.Code, "**/*.go")
	assert.Contains(t, cfg.Paths.Ignore, "node_modules/**")
}

func TestLoaderDefaultsWithoutConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Search.MaxResults, cfg.Search.MaxResults)
	assert.Equal(t, Default().Duplicates.Threshold, cfg.Duplicates.Threshold)
}

func TestLoaderReadsConfigFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	configDir := filepath.Join(root, ".codescope")
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	yml := "search:\n  max_results: 7\nduplicates:\n  min_lines: 12\n"
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yml"), []byte(yml), 0o644))

	cfg, err := NewLoader(root).Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Search.MaxResults)
	assert.Equal(t, 12, cfg.Duplicates.MinLines)
	// Untouched sections keep their defaults.
	assert.Equal(t, Default().Indexing.MaxFileSizeKB, cfg.Indexing.MaxFileSizeKB)
}

func TestLoaderRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	configDir := filepath.Join(root, ".codescope")
	require.NoError(t, os.MkdirAll(configDir, 0o755))

	yml := "duplicates:\n  threshold: 3.5\n"
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yml"), []byte(yml), 0o644))

	_, err := NewLoader(root).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty code patterns", func(t *testing.T) {
		t.Parallel()
		cfg := Default()
		cfg.Paths.Code = nil
		assert.ErrorIs(t, Validate(cfg), ErrNoCodePatterns)
	})

	t.Run("rejects negative workers", func(t *testing.T) {
		t.Parallel()
		cfg := Default()
		cfg.Indexing.Workers = -1
		assert.ErrorIs(t, Validate(cfg), ErrInvalidWorkers)
	})

	t.Run("aggregates multiple failures", func(t *testing.T) {
		t.Parallel()
		cfg := Default()
		cfg.Search.MaxResults = 0
		cfg.Duplicates.MinLines = 0
		err := Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid max results")
		assert.Contains(t, err.Error(), "invalid duplicate min lines")
	})
}

func TestDatabasePath(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, filepath.Join("/repo", ".codescope", "index.db"), cfg.DatabasePath("/repo"))

	cfg.Storage.DatabasePath = "/var/lib/codescope/index.db"
	assert.Equal(t, "/var/lib/codescope/index.db", cfg.DatabasePath("/repo"))
}
