package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ytpush/ytpush/internal/config"
	"github.com/ytpush/ytpush/internal/creds"
	"github.com/ytpush/ytpush/internal/tokenfile"
	"github.com/ytpush/ytpush/internal/youtube"
)

// Auth flags. --force-refresh is shared with the upload command.
var (
	flagBrowser      bool
	flagForceRefresh bool
)

// Token-file metadata keys for the cached channel identity.
const (
	metaChannelID    = "channel_id"
	metaChannelTitle = "channel_title"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize against a YouTube account",
		Long: `Authorize ytpush against a YouTube account and store the credential.

By default the authorization URL is printed for you to open anywhere and the
code is read from stdin, so login works over SSH and inside containers. With
--browser a local browser is opened and the code arrives on a localhost
callback instead.`,
		RunE: runLogin,
	}

	cmd.Flags().BoolVar(&flagBrowser, "browser", false, "authorize via a local browser and localhost callback")
	cmd.Flags().BoolVar(&flagForceRefresh, "force-refresh", false, "refresh the access token even if it is still valid")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored credential",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the authenticated channel",
		RunE:  runWhoami,
	}
}

// credOptions selects per-command credential behavior on top of the
// resolved config.
type credOptions struct {
	interactive bool
	force       bool
	browser     bool
}

// credManager builds the credential manager from the resolved config.
func credManager(logger *slog.Logger, opts credOptions) *creds.Manager {
	// Durations were proven parseable during config resolution.
	margin, _ := time.ParseDuration(resolvedCfg.RefreshMargin)

	return creds.New(creds.Options{
		TokenPath:        resolvedCfg.TokenFile,
		SecretsPath:      resolvedCfg.ClientSecrets,
		Scopes:           youtube.Scopes,
		RefreshMargin:    margin,
		RefreshRetries:   resolvedCfg.RefreshRetries,
		ForceRefresh:     opts.force,
		AllowInteractive: opts.interactive,
		Browser:          opts.browser,
		HTTPClient:       defaultHTTPClient(),
		Logger:           logger,
	})
}

func runLogin(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	logger.Info("login started", slog.Bool("browser", flagBrowser))

	m := credManager(logger, credOptions{
		interactive: true,
		force:       flagForceRefresh,
		browser:     flagBrowser,
	})

	if _, err := m.Ensure(ctx); err != nil {
		return err
	}

	logger.Info("login successful")

	writeStarterConfig(logger)

	// Identify the channel and cache it for whoami. The credential is
	// already saved; failing here only costs the friendly greeting.
	client := youtube.NewClient(youtube.DefaultBaseURL, defaultHTTPClient(), m.Source(ctx), logger, resolvedCfg.UserAgent)

	channel, err := client.MyChannel(ctx)
	if err != nil {
		logger.Warn("could not fetch channel identity", slog.String("error", err.Error()))
		statusf("Login successful.\n")

		return nil
	}

	mergeChannelMeta(logger, channel)
	statusf("Logged in as %s.\n", channel.Title)

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	if err := tokenfile.Delete(resolvedCfg.TokenFile); err != nil {
		return err
	}

	logger.Info("logout successful", slog.String("path", resolvedCfg.TokenFile))
	statusf("Logged out.\n")

	return nil
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	ChannelID    string `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
	Cached       bool   `json:"cached,omitempty"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := cmd.Context()

	m := credManager(logger, credOptions{})

	src := m.Source(ctx)
	if _, err := src.Token(); err != nil {
		if errors.Is(err, creds.ErrNotLoggedIn) {
			return fmt.Errorf("%w: run 'ytpush login' first", creds.ErrNotLoggedIn)
		}

		return err
	}

	client := youtube.NewClient(youtube.DefaultBaseURL, defaultHTTPClient(), src, logger, resolvedCfg.UserAgent)

	channel, err := client.MyChannel(ctx)
	if err != nil {
		// The token is known-good at this point, so fall back to the
		// identity cached at login when the API is unreachable.
		cached := cachedChannel()
		if cached == nil {
			return fmt.Errorf("fetching channel: %w", err)
		}

		logger.Warn("channels request failed, using cached identity",
			slog.String("error", err.Error()),
		)

		return printWhoami(cached, true)
	}

	mergeChannelMeta(logger, channel)

	return printWhoami(channel, false)
}

func printWhoami(channel *youtube.Channel, cached bool) error {
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(whoamiOutput{
			ChannelID:    channel.ID,
			ChannelTitle: channel.Title,
			Cached:       cached,
		})
	}

	fmt.Printf("Channel: %s\n", channel.Title)
	fmt.Printf("ID:      %s\n", channel.ID)

	if cached {
		fmt.Printf("(cached; the API was unreachable)\n")
	}

	return nil
}

// writeStarterConfig writes the commented-out starter config on first login
// so every option is discoverable without docs. Existing files are never
// touched, and failure only costs the convenience file.
func writeStarterConfig(logger *slog.Logger) {
	path := resolvedCfg.ConfigPath
	if path == "" {
		return
	}

	if _, err := os.Stat(path); err == nil {
		return
	}

	if err := config.CreateDefault(path); err != nil {
		logger.Warn("could not write starter config",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return
	}

	logger.Info("starter config written", slog.String("path", path))
}

// mergeChannelMeta caches the channel identity in the token file so whoami
// works offline. Best effort.
func mergeChannelMeta(logger *slog.Logger, channel *youtube.Channel) {
	err := tokenfile.MergeMeta(resolvedCfg.TokenFile, map[string]string{
		metaChannelID:    channel.ID,
		metaChannelTitle: channel.Title,
	})
	if err != nil {
		logger.Warn("could not cache channel identity", slog.String("error", err.Error()))
	}
}

// cachedChannel returns the channel identity cached in the token file, or
// nil when none is stored.
func cachedChannel() *youtube.Channel {
	meta, err := tokenfile.ReadMeta(resolvedCfg.TokenFile)
	if err != nil || meta[metaChannelID] == "" {
		return nil
	}

	return &youtube.Channel{ID: meta[metaChannelID], Title: meta[metaChannelTitle]}
}
