package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Validation range constants.
const (
	minConnectTimeout = 1 * time.Second
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAuth(&cfg.AuthConfig)...)
	errs = append(errs, validateUpload(&cfg.UploadConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateNetwork(&cfg.NetworkConfig)...)

	return errors.Join(errs...)
}

// ValidateResolved re-checks the values that CLI flags can override. Unlike
// Validate(), which checks raw config file values, this runs after the full
// override chain (defaults -> file -> env -> CLI) has been applied.
func ValidateResolved(r *Resolved) error {
	var errs []error

	if _, err := ParseChunkSize(r.ChunkSize); err != nil {
		errs = append(errs, err)
	}

	if r.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries: must be >= 0, got %d", r.MaxRetries))
	}

	return errors.Join(errs...)
}

func validateAuth(a *AuthConfig) []error {
	var errs []error

	if err := validateDurationNonNeg("refresh_margin", a.RefreshMargin); err != nil {
		errs = append(errs, err)
	}

	if a.RefreshRetries < 0 {
		errs = append(errs, fmt.Errorf("refresh_retries: must be >= 0, got %d", a.RefreshRetries))
	}

	return errs
}

func validateUpload(u *UploadConfig) []error {
	var errs []error

	if _, err := ParseChunkSize(u.ChunkSize); err != nil {
		errs = append(errs, err)
	}

	if u.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries: must be >= 0, got %d", u.MaxRetries))
	}

	errs = append(errs, validatePrivacy(u.Privacy)...)
	errs = append(errs, validateCategory(u.Category)...)
	errs = append(errs, validateLicense(u.License)...)

	return errs
}

// ValidPrivacyStatuses are the privacy values the videos.insert API accepts.
var ValidPrivacyStatuses = map[string]bool{
	"public":   true,
	"private":  true,
	"unlisted": true,
}

func validatePrivacy(s string) []error {
	if !ValidPrivacyStatuses[s] {
		return []error{fmt.Errorf("privacy: must be one of public, private, unlisted; got %q", s)}
	}

	return nil
}

func validateCategory(s string) []error {
	if s == "" {
		return nil
	}

	if _, err := strconv.Atoi(s); err != nil {
		return []error{fmt.Errorf("category: must be a numeric category ID, got %q", s)}
	}

	return nil
}

// ValidLicenses are the license values the videos.insert API accepts.
var ValidLicenses = map[string]bool{
	"youtube":        true,
	"creativeCommon": true,
}

func validateLicense(s string) []error {
	if !ValidLicenses[s] {
		return []error{fmt.Errorf("license: must be one of youtube, creativeCommon; got %q", s)}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	return errs
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	if err := validateDurationMin("connect_timeout", n.ConnectTimeout, minConnectTimeout); err != nil {
		errs = append(errs, err)
	}

	return errs
}

// validateDurationMin checks that a duration string is valid and meets a minimum.
func validateDurationMin(field, value string, minimum time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	if d < minimum {
		return fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)
	}

	return nil
}

func validateDurationNonNeg(field, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	if d < 0 {
		return fmt.Errorf("%s: must be >= 0, got %s", field, d)
	}

	return nil
}
