package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig        = "YTPUSH_CONFIG"
	EnvTokenFile     = "YTPUSH_TOKEN_FILE"
	EnvClientSecrets = "YTPUSH_CLIENT_SECRETS"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath    string // YTPUSH_CONFIG: override config file path
	TokenFile     string // YTPUSH_TOKEN_FILE: override credential file path
	ClientSecrets string // YTPUSH_CLIENT_SECRETS: override client secrets path
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:    os.Getenv(EnvConfig),
		TokenFile:     os.Getenv(EnvTokenFile),
		ClientSecrets: os.Getenv(EnvClientSecrets),
	}
}
