package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolved contains the effective configuration after the full override
// chain (defaults -> file -> env -> CLI) has been applied. Path fields are
// tilde-expanded and defaulted to their platform locations; size and
// duration fields keep their string form and are parsed at the point of use
// (validation has already proven them parseable).
type Resolved struct {
	ConfigPath string

	AuthConfig
	UploadConfig
	HistoryConfig
	LoggingConfig
	NetworkConfig
}

// finalizePaths fills empty path fields with platform defaults and expands
// a leading tilde in user-supplied ones.
func (r *Resolved) finalizePaths() {
	if r.ClientSecrets == "" {
		r.ClientSecrets = DefaultClientSecretsPath()
	} else {
		r.ClientSecrets = expandTilde(r.ClientSecrets)
	}

	if r.TokenFile == "" {
		r.TokenFile = DefaultTokenPath()
	} else {
		r.TokenFile = expandTilde(r.TokenFile)
	}

	if r.HistoryFile == "" {
		r.HistoryFile = DefaultHistoryPath()
	} else {
		r.HistoryFile = expandTilde(r.HistoryFile)
	}
}

// expandTilde replaces a leading "~/" with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[2:])
}
