package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/ytpush/ytpush/internal/config"
	"github.com/ytpush/ytpush/internal/tokenfile"
	"github.com/ytpush/ytpush/internal/youtube"
)

// withTokenFile points resolvedCfg at a temp credential path and restores
// the previous config on cleanup.
func withTokenFile(t *testing.T) string {
	t.Helper()

	oldCfg := resolvedCfg
	t.Cleanup(func() { resolvedCfg = oldCfg })

	path := filepath.Join(t.TempDir(), "credentials.json")
	resolvedCfg = &config.Resolved{
		AuthConfig: config.AuthConfig{TokenFile: path},
	}

	return path
}

func seedRecord(t *testing.T, path string, meta map[string]string) {
	t.Helper()

	err := tokenfile.Save(path, &tokenfile.Record{
		Token: &oauth2.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(time.Hour),
		},
		Meta: meta,
	})
	require.NoError(t, err)
}

func TestCachedChannel_RoundTrip(t *testing.T) {
	path := withTokenFile(t)
	seedRecord(t, path, map[string]string{
		metaChannelID:    "UCabc123",
		metaChannelTitle: "My Channel",
	})

	channel := cachedChannel()

	require.NotNil(t, channel)
	assert.Equal(t, "UCabc123", channel.ID)
	assert.Equal(t, "My Channel", channel.Title)
}

func TestCachedChannel_MissingFile(t *testing.T) {
	withTokenFile(t)

	assert.Nil(t, cachedChannel())
}

func TestCachedChannel_NoCachedIdentity(t *testing.T) {
	path := withTokenFile(t)
	seedRecord(t, path, nil)

	assert.Nil(t, cachedChannel())
}

func TestMergeChannelMeta_CachesIdentity(t *testing.T) {
	path := withTokenFile(t)
	seedRecord(t, path, map[string]string{"other": "kept"})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mergeChannelMeta(logger, &youtube.Channel{ID: "UCdef456", Title: "Second Channel"})

	meta, err := tokenfile.ReadMeta(path)
	require.NoError(t, err)

	assert.Equal(t, "UCdef456", meta[metaChannelID])
	assert.Equal(t, "Second Channel", meta[metaChannelTitle])
	// Merging must not drop unrelated cached keys.
	assert.Equal(t, "kept", meta["other"])
}

func TestMergeChannelMeta_NoCredentialFile(t *testing.T) {
	withTokenFile(t)

	// Best effort: no credential file means no cache update and no panic.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mergeChannelMeta(logger, &youtube.Channel{ID: "UCdef456", Title: "Second Channel"})

	assert.Nil(t, cachedChannel())
}

func TestWriteStarterConfig_WritesTemplateOnce(t *testing.T) {
	oldCfg := resolvedCfg
	t.Cleanup(func() { resolvedCfg = oldCfg })

	path := filepath.Join(t.TempDir(), "config.toml")
	resolvedCfg = &config.Resolved{ConfigPath: path}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	writeStarterConfig(logger)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# ytpush configuration")
}

func TestWriteStarterConfig_NeverClobbersExisting(t *testing.T) {
	oldCfg := resolvedCfg
	t.Cleanup(func() { resolvedCfg = oldCfg })

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("privacy = \"unlisted\"\n"), 0o644))

	resolvedCfg = &config.Resolved{ConfigPath: path}
	writeStarterConfig(slog.New(slog.NewTextHandler(io.Discard, nil)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "privacy = \"unlisted\"\n", string(data))
}
