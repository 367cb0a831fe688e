package config

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain and are chosen so the tool works without
// any config file once client secrets are in place.
const (
	defaultRefreshMargin  = "5m"
	defaultRefreshRetries = 3
	defaultChunkSize      = "auto"
	defaultMaxRetries     = 10
	defaultPrivacy        = "public"
	defaultCategory       = "22"
	defaultLanguage       = "en"
	defaultLicense        = "youtube"
	defaultLogLevel       = "info"
	defaultConnectTimeout = "30s"
)

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		AuthConfig:    defaultAuthConfig(),
		UploadConfig:  defaultUploadConfig(),
		HistoryConfig: defaultHistoryConfig(),
		LoggingConfig: defaultLoggingConfig(),
		NetworkConfig: defaultNetworkConfig(),
	}
}

func defaultAuthConfig() AuthConfig {
	return AuthConfig{
		RefreshMargin:  defaultRefreshMargin,
		RefreshRetries: defaultRefreshRetries,
	}
}

func defaultUploadConfig() UploadConfig {
	return UploadConfig{
		ChunkSize:  defaultChunkSize,
		MaxRetries: defaultMaxRetries,
		Privacy:    defaultPrivacy,
		Category:   defaultCategory,
		Language:   defaultLanguage,
		License:    defaultLicense,
	}
}

func defaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		History: true,
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel: defaultLogLevel,
	}
}

func defaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		ConnectTimeout: defaultConnectTimeout,
	}
}
