package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hippos-ai/hippos/internal/config"
)

func TestLoadDefaultsToSQLiteBackend(t *testing.T) {
	t.Setenv("HIPPOS_STORAGE_ENGINE", "")
	cfg := config.Load()
	assert.Equal(t, "sqlite", cfg.Storage.Engine)
	assert.Equal(t, 60, cfg.Recall.RRFK)
	assert.Equal(t, 0.6, cfg.Recall.WeightVector)
}

func TestLoadHonorsEnvOverride(t *testing.T) {
	t.Setenv("HIPPOS_STORAGE_ENGINE", "postgres")
	t.Setenv("HIPPOS_RRF_K", "30")

	cfg := config.Load()
	assert.Equal(t, "postgres", cfg.Storage.Engine)
	assert.Equal(t, 30, cfg.Recall.RRFK)
}

func TestApplyFileOverlaysRecallWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hippos.yaml")
	err := os.WriteFile(path, []byte("recall:\n  weight_vector: 0.5\n  weight_lexical: 0.4\n"), 0o600)
	require.NoError(t, err)

	cfg := config.Load()
	require.NoError(t, cfg.ApplyFile(path))

	assert.Equal(t, 0.5, cfg.Recall.WeightVector)
	assert.Equal(t, 0.4, cfg.Recall.WeightLexical)
	assert.Equal(t, 0.1, cfg.Recall.WeightTemporal, "field absent from the file overlay keeps its env/default value")
}

func TestApplyFileToleratesMissingFile(t *testing.T) {
	cfg := config.Load()
	err := cfg.ApplyFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.NoError(t, err)
}
