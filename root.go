package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ytpush/ytpush/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath    string
	flagTokenFile     string
	flagClientSecrets string
	flagJSON          bool
	flagVerbose       bool
	flagQuiet         bool
)

// Upload-command flags that participate in config resolution. Bound by the
// upload command, read by loadConfig through the merged flag set.
var (
	flagChunkSize  string
	flagMaxRetries int
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Resolved

// httpClientTimeout is the fallback request timeout when no config is loaded.
const httpClientTimeout = 30 * time.Second

// connectTimeout returns the configured connect timeout, falling back to
// the built-in default when config is absent or unparseable.
func connectTimeout() time.Duration {
	if resolvedCfg != nil {
		if d, err := time.ParseDuration(resolvedCfg.ConnectTimeout); err == nil && d > 0 {
			return d
		}
	}

	return httpClientTimeout
}

// defaultHTTPClient returns an HTTP client for API and token-endpoint
// requests. Prevents hung connections from blocking CLI commands indefinitely.
func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: connectTimeout()}
}

// transferHTTPClient returns an HTTP client for chunk transfer. Only the
// connect phase is bounded: a whole-request timeout would cap how long a
// chunk may take to send, which depends on chunk size and uplink speed.
func transferHTTPClient() *http.Client {
	ct := connectTimeout()

	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: ct, KeepAlive: 30 * time.Second}).DialContext,
			TLSHandshakeTimeout: ct,
		},
	}
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ytpush",
		Short:   "Headless YouTube uploader",
		Long:    "Upload videos to YouTube from the command line, with resumable transfers and unattended credential refresh.",
		Version: version,
		// Silence cobra's default error/usage printing; main() is the single
		// error reporter.
		SilenceErrors: true,
		SilenceUsage:  true,
		// PersistentPreRunE loads configuration before every command.
		// Resolution tolerates a missing config file, so even login works
		// before any file exists.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagTokenFile, "token-file", "", "credential file path")
	cmd.PersistentFlags().StringVar(&flagClientSecrets, "client-secrets", "", "OAuth client secrets file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	// Register subcommands.
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain and stores the result in resolvedCfg for use by subcommands.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
	}

	// Pointer overrides apply only when the user actually set the flag.
	if cmd.Flags().Changed("token-file") {
		cli.TokenFile = &flagTokenFile
	}

	if cmd.Flags().Changed("client-secrets") {
		cli.ClientSecrets = &flagClientSecrets
	}

	// Upload-only flags reach the resolver through the merged flag set;
	// Changed reports false on commands that never bind them.
	if cmd.Flags().Changed("chunk-size") {
		cli.ChunkSize = &flagChunkSize
	}

	if cmd.Flags().Changed("max-retries") {
		cli.MaxRetries = &flagMaxRetries
	}

	env := config.ReadEnvOverrides()

	resolved, err := config.Resolve(env, cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	// Config-based log level (lower priority than CLI flags).
	if resolvedCfg != nil {
		switch resolvedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	// CLI flags override config (highest priority).
	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
