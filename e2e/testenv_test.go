//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validateTestData checks the credential file before any test runs, with
// actionable messages for the usual bootstrap failures. Stays on stdlib JSON
// so the suite never couples to the packages it exercises.
func validateTestData(credPath string) {
	data, err := os.ReadFile(credPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot read credential file %s: %v\n", credPath, err)
		fmt.Fprintln(os.Stderr, "Run `go run ./cmd/e2e-bootstrap` to create test credentials.")
		os.Exit(1)
	}

	var parsed map[string]json.RawMessage
	if jsonErr := json.Unmarshal(data, &parsed); jsonErr != nil {
		fmt.Fprintf(os.Stderr, "FATAL: credential file %s is not valid JSON: %v\n", credPath, jsonErr)
		fmt.Fprintln(os.Stderr, "Re-run `go run ./cmd/e2e-bootstrap`.")
		os.Exit(1)
	}

	if _, ok := parsed["token"]; !ok {
		fmt.Fprintf(os.Stderr, "FATAL: credential file %s missing \"token\" key\n", credPath)
		fmt.Fprintln(os.Stderr, "Re-run `go run ./cmd/e2e-bootstrap`.")
		os.Exit(1)
	}
}

// writeConfigFile writes a minimal config pinning every path the binary
// touches: credentials from .testdata/, history in a throwaway location,
// private uploads by default.
func writeConfigFile(cfgPath, historyPath, tokenPath string) {
	content := fmt.Sprintf(`privacy = "private"
token_file = %q
history = true
history_file = %q
log_level = "debug"
`, tokenPath, historyPath)

	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: writing config %s: %v\n", cfgPath, err)
		os.Exit(1)
	}
}

// writeE2EConfig writes a per-test config into a temp dir and returns its
// path. Each test gets its own history database.
func writeE2EConfig(t *testing.T, tokenPath string) string {
	t.Helper()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	writeConfigFile(cfgPath, filepath.Join(dir, "history.db"), tokenPath)

	return cfgPath
}

// deleteVideo removes an uploaded test video through the videos endpoint,
// best effort. The access token is read back from the credential file, which
// the binary keeps fresh across runs.
func deleteVideo(t *testing.T, videoID string) {
	t.Helper()

	token := readAccessToken(t)
	if token == "" {
		t.Logf("no access token available, leaving test video %s in place", videoID)

		return
	}

	endpoint := "https://www.googleapis.com/youtube/v3/videos?id=" + url.QueryEscape(videoID)

	req, err := http.NewRequest(http.MethodDelete, endpoint, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 30 * time.Second}

	resp, err := client.Do(req)
	if err != nil {
		t.Logf("deleting test video %s: %v", videoID, err)

		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Logf("deleting test video %s: HTTP %d", videoID, resp.StatusCode)
	}
}

func readAccessToken(t *testing.T) string {
	t.Helper()

	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return ""
	}

	var parsed struct {
		Token struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ""
	}

	return parsed.Token.AccessToken
}

// --- Isolation checks (belt-and-suspenders with the TestMain setup) ---

func TestIsolation_EnvOverridesUnset(t *testing.T) {
	for _, v := range []string{"YTPUSH_CONFIG", "YTPUSH_TOKEN_FILE", "YTPUSH_CLIENT_SECRETS"} {
		assert.Empty(t, os.Getenv(v), "%s must not leak into test subprocesses", v)
	}
}

func TestIsolation_CredentialsFromTestdata(t *testing.T) {
	require.NotEmpty(t, credentialsPath, "credentialsPath should be set by TestMain")
	assert.True(t, strings.HasSuffix(filepath.Dir(credentialsPath), ".testdata"),
		"credentials should come from .testdata/, got: %s", credentialsPath)
}

func TestIsolation_ConfigIsPerTest(t *testing.T) {
	cfgA := writeE2EConfig(t, credentialsPath)
	cfgB := writeE2EConfig(t, credentialsPath)

	assert.NotEqual(t, cfgA, cfgB, "each test config should live in its own temp dir")

	for _, p := range []string{cfgA, cfgB} {
		_, err := os.Stat(p)
		assert.NoError(t, err, "config should exist at %s", p)
	}
}
