// Package testutil provides shared environment helpers for the end-to-end
// suite. It depends only on stdlib so the black-box tests stay decoupled
// from the packages they exercise.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadDotEnv reads KEY=VALUE pairs from a .env file at the given path.
// Missing file is not an error (CI sets env vars directly).
// Existing env vars take precedence over .env values.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = strings.Trim(value, "\"'")

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// ValidateChannelAllowlist crashes the process if YTPUSH_ALLOWED_TEST_CHANNELS
// is not set or if the channel named by channelEnvVar is not in the allowlist.
// Tests upload real videos; this keeps a stray env from pointing them at a
// production channel.
func ValidateChannelAllowlist(channelEnvVar string) {
	allowlist := os.Getenv("YTPUSH_ALLOWED_TEST_CHANNELS")
	if allowlist == "" {
		fmt.Fprintln(os.Stderr, "FATAL: YTPUSH_ALLOWED_TEST_CHANNELS not set")
		fmt.Fprintln(os.Stderr, "Set it in .env or as an environment variable.")
		fmt.Fprintln(os.Stderr, "Example: YTPUSH_ALLOWED_TEST_CHANNELS=UCabc123def456")
		os.Exit(1)
	}

	channel := os.Getenv(channelEnvVar)
	if channel == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", channelEnvVar)
		os.Exit(1)
	}

	for _, a := range strings.Split(allowlist, ",") {
		if strings.TrimSpace(a) == channel {
			return
		}
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s=%q is not in YTPUSH_ALLOWED_TEST_CHANNELS=%q\n",
		channelEnvVar, channel, allowlist)
	os.Exit(1)
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

// FindTestCredentialDir locates .testdata/ relative to the module root.
// Crashes if the directory does not exist.
func FindTestCredentialDir(moduleRoot string) string {
	dir := filepath.Join(moduleRoot, ".testdata")

	if _, err := os.Stat(dir); err != nil {
		fmt.Fprintln(os.Stderr, "FATAL: .testdata/ directory not found at "+dir)
		fmt.Fprintln(os.Stderr, "Run `go run ./cmd/e2e-bootstrap` to create test credentials.")
		os.Exit(1)
	}

	return dir
}
