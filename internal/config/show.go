package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration as a human-readable
// annotated summary to w. This powers the "config show" command, giving
// users visibility into the effective values after all four override layers
// (defaults -> file -> env -> CLI) have been applied.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (%s)\n\n", r.ConfigPath)

	ew.printf("# Auth\n")
	ew.printf("client_secrets  = %q\n", r.ClientSecrets)
	ew.printf("token_file      = %q\n", r.TokenFile)
	ew.printf("refresh_margin  = %q\n", r.RefreshMargin)
	ew.printf("refresh_retries = %d\n", r.RefreshRetries)
	ew.printf("\n")

	ew.printf("# Upload\n")
	ew.printf("chunk_size  = %q\n", r.ChunkSize)
	ew.printf("max_retries = %d\n", r.MaxRetries)
	ew.printf("privacy     = %q\n", r.Privacy)
	ew.printf("category    = %q\n", r.Category)
	ew.printf("language    = %q\n", r.Language)
	ew.printf("license     = %q\n", r.License)
	ew.printf("\n")

	ew.printf("# History\n")
	ew.printf("history      = %t\n", r.History)
	ew.printf("history_file = %q\n", r.HistoryFile)
	ew.printf("\n")

	ew.printf("# Logging\n")
	ew.printf("log_level = %q\n", r.LogLevel)
	ew.printf("\n")

	ew.printf("# Network\n")
	ew.printf("connect_timeout = %q\n", r.ConnectTimeout)

	if r.UserAgent != "" {
		ew.printf("user_agent      = %q\n", r.UserAgent)
	}

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops, so callers can chain
// printf calls without checking each one individually.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
