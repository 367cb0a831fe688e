package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are treated as fatal errors with "did you
// mean?" suggestions — this strictness is deliberate because silently
// ignoring a typo in a config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values. This supports the zero-config
// first-run experience: users can start without creating a config file.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
// The precedence order ensures CLI flags always win, matching user
// expectations for one-off overrides without editing the config file.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	// 1. Resolve config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Load config file (returns defaults if no file exists)
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	resolved := &Resolved{
		ConfigPath:    cfgPath,
		AuthConfig:    cfg.AuthConfig,
		UploadConfig:  cfg.UploadConfig,
		HistoryConfig: cfg.HistoryConfig,
		LoggingConfig: cfg.LoggingConfig,
		NetworkConfig: cfg.NetworkConfig,
	}

	// 3. Apply env overrides
	if env.TokenFile != "" {
		resolved.TokenFile = env.TokenFile
	}

	if env.ClientSecrets != "" {
		resolved.ClientSecrets = env.ClientSecrets
	}

	// 4. Apply CLI overrides (pointer fields: nil = not specified)
	if cli.TokenFile != nil {
		resolved.TokenFile = *cli.TokenFile
	}

	if cli.ClientSecrets != nil {
		resolved.ClientSecrets = *cli.ClientSecrets
	}

	if cli.ChunkSize != nil {
		resolved.ChunkSize = *cli.ChunkSize
	}

	if cli.MaxRetries != nil {
		resolved.MaxRetries = *cli.MaxRetries
	}

	// 5. Default and expand paths
	resolved.finalizePaths()

	// 6. Validate the final resolved values. CLI overrides bypass file-level
	// validation, so the sizes and counts they touch are re-checked here.
	if err := ValidateResolved(resolved); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return resolved, nil
}
