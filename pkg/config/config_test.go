package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.DefaultAttacks)
	assert.Equal(t, ".", cfg.SnapshotDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Log.FileEnabled)
	assert.Equal(t, 10, cfg.Log.FileMaxSizeMB)
	assert.Equal(t, "deepseek-chat", cfg.AI.Model)
	assert.Empty(t, cfg.OneBot.WSURL)
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("DPR_DEFAULT_ATTACKS", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE_ENABLED", "true")
	t.Setenv("ONEBOT_WS_URL", "ws://localhost:3001")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.DefaultAttacks)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.FileEnabled)
	assert.Equal(t, "ws://localhost:3001", cfg.OneBot.WSURL)
}

func TestParseErrors(t *testing.T) {
	t.Setenv("DPR_DEFAULT_ATTACKS", "two")
	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")

	t.Setenv("DPR_DEFAULT_ATTACKS", "-1")
	_, err = Parse()
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MODEL_NAME=test-model\n"), 0o644))

	// godotenv does not overwrite variables that are already set
	t.Setenv("MODEL_NAME", "")
	os.Unsetenv("MODEL_NAME")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-model", cfg.AI.Model)
	os.Unsetenv("MODEL_NAME")
}

func TestLoadMissingDotEnv(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}
