package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolved() *Resolved {
	return &Resolved{
		ConfigPath: "/home/u/.config/ytpush/config.toml",
		AuthConfig: AuthConfig{
			ClientSecrets:  "/home/u/.config/ytpush/client_secrets.json",
			TokenFile:      "/home/u/.local/share/ytpush/token.json",
			RefreshMargin:  "5m",
			RefreshRetries: 3,
		},
		UploadConfig: UploadConfig{
			ChunkSize:  "auto",
			MaxRetries: 10,
			Privacy:    "public",
			Category:   "22",
			Language:   "en",
			License:    "youtube",
		},
		HistoryConfig: HistoryConfig{
			History:     true,
			HistoryFile: "/home/u/.local/share/ytpush/history.db",
		},
		LoggingConfig: LoggingConfig{LogLevel: "info"},
		NetworkConfig: NetworkConfig{ConnectTimeout: "30s"},
	}
}

func TestRenderEffective_ContainsAllValues(t *testing.T) {
	var buf strings.Builder

	require.NoError(t, RenderEffective(testResolved(), &buf))

	out := buf.String()
	assert.Contains(t, out, `token_file      = "/home/u/.local/share/ytpush/token.json"`)
	assert.Contains(t, out, `refresh_margin  = "5m"`)
	assert.Contains(t, out, "refresh_retries = 3")
	assert.Contains(t, out, `chunk_size  = "auto"`)
	assert.Contains(t, out, "max_retries = 10")
	assert.Contains(t, out, `privacy     = "public"`)
	assert.Contains(t, out, "history      = true")
	assert.Contains(t, out, `log_level = "info"`)
	assert.Contains(t, out, `connect_timeout = "30s"`)
}

func TestRenderEffective_OmitsEmptyUserAgent(t *testing.T) {
	var buf strings.Builder

	require.NoError(t, RenderEffective(testResolved(), &buf))
	assert.NotContains(t, buf.String(), "user_agent")
}

func TestRenderEffective_ShowsUserAgentWhenSet(t *testing.T) {
	r := testResolved()
	r.UserAgent = "ytpush-ci/1.0"

	var buf strings.Builder

	require.NoError(t, RenderEffective(r, &buf))
	assert.Contains(t, buf.String(), `user_agent      = "ytpush-ci/1.0"`)
}

// failWriter fails after n successful writes.
type failWriter struct {
	n int
}

func (f *failWriter) Write(p []byte) (int, error) {
	if f.n <= 0 {
		return 0, errors.New("write failed")
	}

	f.n--

	return len(p), nil
}

func TestRenderEffective_PropagatesWriteError(t *testing.T) {
	err := RenderEffective(testResolved(), &failWriter{n: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write failed")
}
