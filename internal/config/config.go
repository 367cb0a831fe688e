// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for ytpush. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags).
// The config file uses a flat key namespace, mirroring the small surface
// of a single-account upload tool.
package config

// Config is the top-level configuration structure parsed from a TOML file.
// The embedded sections flatten into a single key namespace, so the file
// reads as plain `key = value` lines without section headers.
type Config struct {
	AuthConfig
	UploadConfig
	HistoryConfig
	LoggingConfig
	NetworkConfig
}

// AuthConfig controls credential storage and refresh behavior.
// refresh_margin is how long before expiry a token is refreshed proactively;
// refresh_retries bounds the refresh attempts before falling back to
// interactive authorization.
type AuthConfig struct {
	ClientSecrets  string `toml:"client_secrets"`
	TokenFile      string `toml:"token_file"`
	RefreshMargin  string `toml:"refresh_margin"`
	RefreshRetries int    `toml:"refresh_retries"`
}

// UploadConfig controls transfer behavior and default video metadata.
// chunk_size is "auto" (send the whole remainder per attempt) or an explicit
// size that must be a multiple of 256 KiB per the resumable upload protocol.
type UploadConfig struct {
	ChunkSize  string `toml:"chunk_size"`
	MaxRetries int    `toml:"max_retries"`
	Privacy    string `toml:"privacy"`
	Category   string `toml:"category"`
	Language   string `toml:"language"`
	License    string `toml:"license"`
}

// HistoryConfig controls the local upload history ledger.
type HistoryConfig struct {
	History     bool   `toml:"history"`
	HistoryFile string `toml:"history_file"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath    string  // --config flag (empty = use default)
	TokenFile     *string // --token-file flag
	ClientSecrets *string // --client-secrets flag
	ChunkSize     *string // --chunk-size flag
	MaxRetries    *int    // --max-retries flag
}
