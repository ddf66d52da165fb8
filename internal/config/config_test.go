package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termcal", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gregorian", cfg.Calendar)
	assert.True(t, cfg.AskConfirmations)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.TasksFile, again.TasksFile)
	assert.Equal(t, cfg.Notion.TimeoutSeconds, again.Notion.TimeoutSeconds)
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("calendar: persian\nweek_start: friday\nics_events:\n  - path: /tmp/cal.ics\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "persian", cfg.Calendar)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	require.Len(t, cfg.ICSEvents, 1)
	assert.Equal(t, "/tmp/cal.ics", cfg.ICSEvents[0].Path)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("holidays:\n  country: xx\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("ics_tasks:\n  - name: missing path\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("NOTION_DATABASE_ID=db-from-file\n"), 0o600))

	t.Setenv("NOTION_TOKEN", "secret")
	// Registered so the value written by the .env file is undone afterwards.
	t.Setenv("NOTION_DATABASE_ID", "")
	require.NoError(t, os.Unsetenv("NOTION_DATABASE_ID"))

	cfg := DefaultConfig()
	cfg.Notion.Enabled = true
	require.NoError(t, cfg.LoadEnv(env, filepath.Join(dir, "missing.env")))

	assert.Equal(t, "secret", cfg.Notion.Token)
	assert.Equal(t, "db-from-file", cfg.Notion.DatabaseID)
	assert.True(t, cfg.Notion.Ready())
}

func TestSecretsAreNotSaved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Notion.Token = "secret"
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}
