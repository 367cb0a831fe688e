package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	tomlContent := `
client_secrets = "/etc/ytpush/client_secrets.json"
token_file = "/var/lib/ytpush/token.json"
refresh_margin = "10m"
refresh_retries = 5

chunk_size = "8MiB"
max_retries = 20
privacy = "unlisted"
category = "10"
language = "fi"
license = "creativeCommon"

history = false
history_file = "/var/lib/ytpush/history.db"

log_level = "debug"

connect_timeout = "5s"
user_agent = "ytpush-test/0.1"
`

	path := writeTestConfig(t, tomlContent)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/etc/ytpush/client_secrets.json", cfg.ClientSecrets)
	assert.Equal(t, "/var/lib/ytpush/token.json", cfg.TokenFile)
	assert.Equal(t, "10m", cfg.RefreshMargin)
	assert.Equal(t, 5, cfg.RefreshRetries)

	assert.Equal(t, "8MiB", cfg.ChunkSize)
	assert.Equal(t, 20, cfg.MaxRetries)
	assert.Equal(t, "unlisted", cfg.Privacy)
	assert.Equal(t, "10", cfg.Category)
	assert.Equal(t, "fi", cfg.Language)
	assert.Equal(t, "creativeCommon", cfg.License)

	assert.False(t, cfg.History)
	assert.Equal(t, "/var/lib/ytpush/history.db", cfg.HistoryFile)

	assert.Equal(t, "debug", cfg.LogLevel)

	assert.Equal(t, "5s", cfg.ConnectTimeout)
	assert.Equal(t, "ytpush-test/0.1", cfg.UserAgent)
}

func TestLoad_MinimalConfig_UsesDefaults(t *testing.T) {
	path := writeTestConfig(t, "")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.ChunkSize)
	assert.Equal(t, 10, cfg.MaxRetries)
	assert.Equal(t, "public", cfg.Privacy)
	assert.Equal(t, "22", cfg.Category)
	assert.Equal(t, "5m", cfg.RefreshMargin)
	assert.Equal(t, 3, cfg.RefreshRetries)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.History)
}

func TestLoad_PartialConfig_UsesDefaults(t *testing.T) {
	path := writeTestConfig(t, `log_level = "warn"`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.ChunkSize)
	assert.Equal(t, 10, cfg.MaxRetries)
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := writeTestConfig(t, `chunk_size = [not valid`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml")
	require.Error(t, err)
}

func TestLoad_ValidationError(t *testing.T) {
	path := writeTestConfig(t, `max_retries = -1`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadOrDefault_FileExists(t *testing.T) {
	path := writeTestConfig(t, `log_level = "debug"`)
	cfg, err := LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadOrDefault_FileNotFound(t *testing.T) {
	cfg, err := LoadOrDefault("/nonexistent/path/config.toml")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.ChunkSize)
}

func TestResolve_ConfigPathPrecedence(t *testing.T) {
	envPath := writeTestConfig(t, `log_level = "warn"`)
	cliPath := writeTestConfig(t, `log_level = "error"`)

	resolved, err := Resolve(
		EnvOverrides{ConfigPath: envPath},
		CLIOverrides{ConfigPath: cliPath},
	)
	require.NoError(t, err)
	assert.Equal(t, "error", resolved.LogLevel)
	assert.Equal(t, cliPath, resolved.ConfigPath)
}

func TestResolve_EnvConfigPathUsedWithoutCLI(t *testing.T) {
	envPath := writeTestConfig(t, `log_level = "warn"`)

	resolved, err := Resolve(EnvOverrides{ConfigPath: envPath}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, "warn", resolved.LogLevel)
}

func TestResolve_EnvTokenFileOverridesConfig(t *testing.T) {
	path := writeTestConfig(t, `token_file = "/from/config.json"`)

	resolved, err := Resolve(
		EnvOverrides{ConfigPath: path, TokenFile: "/from/env.json"},
		CLIOverrides{},
	)
	require.NoError(t, err)
	assert.Equal(t, "/from/env.json", resolved.TokenFile)
}

func TestResolve_CLITokenFileOverridesEnv(t *testing.T) {
	path := writeTestConfig(t, `token_file = "/from/config.json"`)
	cliToken := "/from/cli.json"

	resolved, err := Resolve(
		EnvOverrides{ConfigPath: path, TokenFile: "/from/env.json"},
		CLIOverrides{TokenFile: &cliToken},
	)
	require.NoError(t, err)
	assert.Equal(t, "/from/cli.json", resolved.TokenFile)
}

func TestResolve_CLIChunkSizeOverride(t *testing.T) {
	path := writeTestConfig(t, `chunk_size = "8MiB"`)
	cliChunk := "16MiB"

	resolved, err := Resolve(
		EnvOverrides{ConfigPath: path},
		CLIOverrides{ChunkSize: &cliChunk},
	)
	require.NoError(t, err)
	assert.Equal(t, "16MiB", resolved.ChunkSize)
}

func TestResolve_CLIChunkSizeInvalid(t *testing.T) {
	path := writeTestConfig(t, "")
	cliChunk := "100KiB"

	_, err := Resolve(
		EnvOverrides{ConfigPath: path},
		CLIOverrides{ChunkSize: &cliChunk},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_size")
}

func TestResolve_CLIMaxRetriesOverride(t *testing.T) {
	path := writeTestConfig(t, `max_retries = 10`)
	cliRetries := 0

	resolved, err := Resolve(
		EnvOverrides{ConfigPath: path},
		CLIOverrides{MaxRetries: &cliRetries},
	)
	require.NoError(t, err)
	assert.Equal(t, 0, resolved.MaxRetries)
}

func TestResolve_DefaultPathsFilled(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	path := writeTestConfig(t, "")

	resolved, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
	require.NoError(t, err)
	assert.NotEmpty(t, resolved.ClientSecrets)
	assert.NotEmpty(t, resolved.TokenFile)
	assert.NotEmpty(t, resolved.HistoryFile)
	assert.True(t, filepath.IsAbs(resolved.TokenFile))
}

func TestResolve_TildeExpansion(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeTestConfig(t, `token_file = "~/tokens/yt.json"`)

	resolved, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "tokens", "yt.json"), resolved.TokenFile)
}

func TestResolve_InvalidConfigFile(t *testing.T) {
	path := writeTestConfig(t, `chunk_size = "banana"`)

	_, err := Resolve(EnvOverrides{ConfigPath: path}, CLIOverrides{})
	require.Error(t, err)
}
