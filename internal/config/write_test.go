package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDefault_WritesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, CreateDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# ytpush configuration")
	assert.Contains(t, string(data), `# chunk_size = "auto"`)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(configFilePermissions), info.Mode().Perm())
}

func TestCreateDefault_TemplateParsesCleanly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, CreateDefault(path))

	// The starter file must load without errors even fully commented out.
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.ChunkSize)
}

func TestCreateDefault_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dirs", "config.toml")

	require.NoError(t, CreateDefault(path))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestCreateDefault_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"debug\"\n"), 0o644))

	err := CreateDefault(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// Existing content untouched.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log_level = \"debug\"\n", string(data))
}

func TestAtomicWriteFile_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, atomicWriteFile(path, []byte("log_level = \"info\"\n")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.toml", entries[0].Name())
}
