package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// configFilePermissions is the standard permission mode for config files.
// Owner read/write, group and others read-only.
const configFilePermissions = 0o644

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// configTemplate is the default config file content written on first login.
// All settings are present as commented-out defaults so users can discover
// every option without reading docs. The template is written once and never
// regenerated — user modifications are preserved.
const configTemplate = `# ytpush configuration

# Path to the OAuth client secrets file from the Google API console.
# client_secrets = ""

# Path to the stored credential file.
# token_file = ""

# Refresh the access token when it has less than this long to live.
# refresh_margin = "5m"

# Refresh attempts before falling back to interactive authorization.
# refresh_retries = 3

# Upload chunk size: "auto" sends the whole remainder per attempt.
# Explicit sizes must be multiples of 256KiB, e.g. "8MiB".
# chunk_size = "auto"

# Consecutive transient failures tolerated before an upload is abandoned.
# max_retries = 10

# Default video metadata, overridable per upload with flags.
# privacy = "public"
# category = "22"
# language = "en"
# license = "youtube"

# Record upload runs in a local history database.
# history = true
# history_file = ""

# Log verbosity: debug, info, warn, error
# log_level = "info"

# connect_timeout = "30s"
# user_agent = ""
`

// CreateDefault writes the starter config template to path. Fails if a file
// already exists there so user edits are never clobbered. The write is atomic
// (temp file + rename) and parent directories are created as needed.
func CreateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	return atomicWriteFile(path, []byte(configTemplate))
}

// atomicWriteFile writes data to a temporary file in the same directory as
// path, then renames it to the target path. This prevents partial writes
// from corrupting the config file on crash. Parent directories are created
// as needed. Files are created with configFilePermissions (0644).
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	// Clean up the temp file on any error path.
	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
