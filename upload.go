package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ytpush/ytpush/internal/config"
	"github.com/ytpush/ytpush/internal/creds"
	"github.com/ytpush/ytpush/internal/ledger"
	"github.com/ytpush/ytpush/internal/uploader"
	"github.com/ytpush/ytpush/internal/youtube"
)

// Upload metadata flags, bound in newUploadCmd().
var (
	flagTitle         string
	flagDescription   string
	flagCategory      string
	flagTags          []string
	flagPrivacy       string
	flagLanguage      string
	flagAudioLanguage string
	flagLatitude      float64
	flagLongitude     float64
	flagPlaylistID    string
	flagThumbnail     string
	flagLicense       string
	flagPublishAt     string
	flagStatsViewable bool
	flagMadeForKids   bool
	flagAgeGroup      string
	flagGender        string
	flagCountries     []string
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a video file",
		Long: `Upload a video file over the resumable upload protocol.

The transfer survives transient server and network failures: after each one
the session is probed for the acknowledged offset and the upload resumes
there, backing off with jitter until the retry ceiling.`,
		Args: cobra.ExactArgs(1),
		RunE: runUpload,
	}

	cmd.Flags().StringVar(&flagTitle, "title", "", "video title (defaults to the file name)")
	cmd.Flags().StringVar(&flagDescription, "description", "", "video description")
	cmd.Flags().StringVar(&flagCategory, "category", "", "numeric video category ID")
	cmd.Flags().StringSliceVar(&flagTags, "tags", nil, "comma-separated list of tags")
	cmd.Flags().StringVar(&flagPrivacy, "privacy", "", "privacy status: public, private or unlisted")
	cmd.Flags().StringVar(&flagLanguage, "language", "", "video language (BCP-47)")
	cmd.Flags().StringVar(&flagAudioLanguage, "audio-language", "", "audio track language (BCP-47)")
	cmd.Flags().Float64Var(&flagLatitude, "latitude", 0, "recording location latitude")
	cmd.Flags().Float64Var(&flagLongitude, "longitude", 0, "recording location longitude")
	cmd.Flags().StringVar(&flagPlaylistID, "playlist-id", "", "playlist to append the video to after upload")
	cmd.Flags().StringVar(&flagThumbnail, "thumbnail", "", "thumbnail image file (JPEG or PNG)")
	cmd.Flags().StringVar(&flagLicense, "license", "", "license: youtube or creativeCommon")
	cmd.Flags().StringVar(&flagPublishAt, "publish-at", "", "scheduled publish time, RFC 3339 (implies private)")
	cmd.Flags().BoolVar(&flagStatsViewable, "public-stats-viewable", false, "make video statistics publicly visible")
	cmd.Flags().BoolVar(&flagMadeForKids, "made-for-kids", false, "declare the video as made for kids")
	cmd.Flags().StringVar(&flagAgeGroup, "age-group", "", "audience age group, like age18_24")
	cmd.Flags().StringVar(&flagGender, "gender", "", "audience gender: male or female")
	cmd.Flags().StringSliceVar(&flagCountries, "countries", nil, "comma-separated audience country codes (ISO 3166-1 alpha-2)")
	cmd.Flags().StringVar(&flagChunkSize, "chunk-size", "", `chunk size: "auto" or a multiple of 256KiB`)
	cmd.Flags().IntVar(&flagMaxRetries, "max-retries", 0, "consecutive transient failures tolerated before giving up")
	cmd.Flags().BoolVar(&flagForceRefresh, "force-refresh", false, "refresh the access token before uploading")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	logger := buildLogger()

	ctx, stop := shutdownContext(cmd.Context(), logger)
	defer stop()

	path := args[0]

	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stating %q: %w", path, err)
	}

	if fi.IsDir() {
		return fmt.Errorf("%q is a directory, not a file", path)
	}

	meta, err := buildUploadRequest(cmd, path)
	if err != nil {
		return err
	}

	chunkSize, err := config.ParseChunkSize(resolvedCfg.ChunkSize)
	if err != nil {
		return err
	}

	// Pre-flight the thumbnail so a typo fails now, not after the transfer.
	if flagThumbnail != "" {
		if _, err := os.Stat(flagThumbnail); err != nil {
			return fmt.Errorf("stating thumbnail: %w", err)
		}
	}

	// Settle credentials before the transfer starts.
	m := credManager(logger, credOptions{force: flagForceRefresh})
	if _, err := m.Ensure(ctx); err != nil {
		if errors.Is(err, creds.ErrNotLoggedIn) {
			return fmt.Errorf("%w: run 'ytpush login' first", creds.ErrNotLoggedIn)
		}

		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	// The transfer client has no whole-request timeout; the credential
	// source keeps the bearer token fresh for uploads that outlive it.
	client := youtube.NewClient(youtube.DefaultBaseURL, transferHTTPClient(), m.Source(ctx), logger, resolvedCfg.UserAgent)

	eng := uploader.New(client, uploader.Options{
		MaxRetries: resolvedCfg.MaxRetries,
		ChunkSize:  chunkSize,
		Progress:   progressRenderer(),
		Logger:     logger,
	})

	run := beginRun(ctx, logger, path, meta, fi.Size())

	logger.Info("upload started",
		slog.String("path", path),
		slog.Int64("size", fi.Size()),
		slog.String("title", meta.Snippet.Title),
		slog.String("privacy", meta.Status.PrivacyStatus),
	)
	statusf("Uploading %s (%s)...\n", filepath.Base(path), formatSize(fi.Size()))

	res, err := eng.Upload(ctx, meta, f, fi.Size(), contentTypeForFile(path))
	if err != nil {
		run.fail(err, res.RetryHighWater)

		return err
	}

	run.complete(res.Video.ID, res.RetryHighWater)

	statusf("Upload complete: %s\n", watchURL(res.Video.ID))

	runPostActions(ctx, client, logger, res.Video.ID)

	return printUploadResult(meta, res, fi.Size())
}

// buildUploadRequest assembles the video metadata from flags and config
// defaults. Flags win; config supplies privacy, category, language and
// license when the flag is absent.
func buildUploadRequest(cmd *cobra.Command, path string) (*youtube.UploadRequest, error) {
	title := flagTitle
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	privacy := orDefault(flagPrivacy, resolvedCfg.Privacy)
	if !config.ValidPrivacyStatuses[privacy] {
		return nil, fmt.Errorf("invalid privacy %q: must be public, private or unlisted", privacy)
	}

	videoLicense := orDefault(flagLicense, resolvedCfg.License)
	if !config.ValidLicenses[videoLicense] {
		return nil, fmt.Errorf("invalid license %q: must be youtube or creativeCommon", videoLicense)
	}

	if flagPublishAt != "" {
		if _, err := time.Parse(time.RFC3339, flagPublishAt); err != nil {
			return nil, fmt.Errorf("invalid --publish-at %q: must be RFC 3339, like 2026-01-02T15:04:05Z: %w", flagPublishAt, err)
		}

		// Scheduled publishing requires the video to start private.
		privacy = "private"
	}

	req := &youtube.UploadRequest{
		Snippet: youtube.Snippet{
			Title:                title,
			Description:          flagDescription,
			Tags:                 flagTags,
			CategoryID:           orDefault(flagCategory, resolvedCfg.Category),
			DefaultLanguage:      orDefault(flagLanguage, resolvedCfg.Language),
			DefaultAudioLanguage: flagAudioLanguage,
		},
		Status: youtube.Status{
			PrivacyStatus:           privacy,
			License:                 videoLicense,
			PublishAt:               flagPublishAt,
			PublicStatsViewable:     flagStatsViewable,
			SelfDeclaredMadeForKids: flagMadeForKids,
		},
	}

	if cmd.Flags().Changed("latitude") != cmd.Flags().Changed("longitude") {
		return nil, errors.New("--latitude and --longitude must be given together")
	}

	if cmd.Flags().Changed("latitude") {
		req.Snippet.RecordingDetails = &youtube.RecordingDetails{
			Location: &youtube.GeoPoint{Latitude: flagLatitude, Longitude: flagLongitude},
		}
	}

	if flagAgeGroup != "" || flagGender != "" || len(flagCountries) > 0 {
		target := &youtube.Targeting{
			AgeGroup:  flagAgeGroup,
			Countries: flagCountries,
		}
		if flagGender != "" {
			target.Genders = []string{flagGender}
		}

		req.Status.Targeting = target
	}

	return req, nil
}

// orDefault returns value unless it is empty, then fallback.
func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}

	return fallback
}

// videoContentTypes covers the common video container formats; most are
// missing from Go's built-in mime table.
var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".flv":  "video/x-flv",
	".wmv":  "video/x-ms-wmv",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
	".3gp":  "video/3gpp",
}

// contentTypeForFile guesses a content type from the file extension.
func contentTypeForFile(path string) string {
	ext := strings.ToLower(filepath.Ext(path))

	if ct, ok := videoContentTypes[ext]; ok {
		return ct
	}

	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}

	return "application/octet-stream"
}

// progressRenderer returns a ProgressFunc that rewrites one status line on
// the terminal. Non-TTY stderr (cron, pipes) gets no inline progress; the
// structured logs cover it there.
func progressRenderer() uploader.ProgressFunc {
	if flagQuiet || !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}

	return func(uploaded, total int64) {
		pct := float64(uploaded) / float64(total) * 100
		fmt.Fprintf(os.Stderr, "\r%s / %s (%.1f%%)", formatSize(uploaded), formatSize(total), pct)

		if uploaded >= total {
			fmt.Fprint(os.Stderr, "\n")
		}
	}
}

// watchURL returns the public watch URL for a video ID.
func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// runPostActions fires the optional thumbnail and playlist one-shots:
// single requests, no retry. A failure here is reported but never unwinds
// the finished upload.
func runPostActions(ctx context.Context, client *youtube.Client, logger *slog.Logger, videoID string) {
	if flagThumbnail != "" {
		if err := setThumbnail(ctx, client, videoID); err != nil {
			logger.Warn("thumbnail upload failed", slog.String("error", err.Error()))
			fmt.Fprintf(os.Stderr, "Warning: thumbnail upload failed: %v\n", err)
		} else {
			statusf("Thumbnail set.\n")
		}
	}

	if flagPlaylistID != "" {
		if err := client.InsertPlaylistItem(ctx, flagPlaylistID, videoID); err != nil {
			logger.Warn("playlist insert failed",
				slog.String("playlist_id", flagPlaylistID),
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "Warning: could not add to playlist %s: %v\n", flagPlaylistID, err)
		} else {
			statusf("Added to playlist %s.\n", flagPlaylistID)
		}
	}
}

func setThumbnail(ctx context.Context, client *youtube.Client, videoID string) error {
	img, err := os.ReadFile(flagThumbnail)
	if err != nil {
		return fmt.Errorf("reading thumbnail: %w", err)
	}

	return client.SetThumbnail(ctx, videoID, img, contentTypeForFile(flagThumbnail))
}

// uploadOutput is the JSON schema for `upload --json`.
type uploadOutput struct {
	VideoID        string `json:"video_id"`
	URL            string `json:"url"`
	Title          string `json:"title"`
	Size           int64  `json:"size"`
	RetryHighWater int    `json:"retry_high_water"`
}

// printUploadResult writes the machine-readable outcome to stdout: the
// video ID in text mode (the original scripting contract), the full
// record with --json.
func printUploadResult(meta *youtube.UploadRequest, res *uploader.Result, size int64) error {
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(uploadOutput{
			VideoID:        res.Video.ID,
			URL:            watchURL(res.Video.ID),
			Title:          meta.Snippet.Title,
			Size:           size,
			RetryHighWater: res.RetryHighWater,
		})
	}

	fmt.Println(res.Video.ID)

	return nil
}

// uploadRun ties one engine invocation to its history row. A zero value
// (history disabled or unavailable) turns every method into a no-op.
type uploadRun struct {
	store  *ledger.Store
	id     string
	logger *slog.Logger
}

// beginRun opens the history ledger and records the run start. History is
// bookkeeping: any failure here is a warning, never an upload blocker.
func beginRun(ctx context.Context, logger *slog.Logger, path string, meta *youtube.UploadRequest, size int64) *uploadRun {
	if !resolvedCfg.History {
		return &uploadRun{}
	}

	store, err := ledger.Open(resolvedCfg.HistoryFile, logger)
	if err != nil {
		logger.Warn("upload history unavailable", slog.String("error", err.Error()))

		return &uploadRun{}
	}

	id, err := store.Begin(ctx, path, meta.Snippet.Title, meta.Status.PrivacyStatus, size)
	if err != nil {
		logger.Warn("could not record upload start", slog.String("error", err.Error()))
		store.Close()

		return &uploadRun{}
	}

	return &uploadRun{store: store, id: id, logger: logger}
}

func (r *uploadRun) complete(videoID string, highWater int) {
	if r.store == nil {
		return
	}
	defer r.store.Close()

	// The run context may already be canceled by the time bookkeeping runs.
	if err := r.store.Complete(context.Background(), r.id, videoID, highWater); err != nil {
		r.logger.Warn("could not record upload completion", slog.String("error", err.Error()))
	}
}

func (r *uploadRun) fail(cause error, highWater int) {
	if r.store == nil {
		return
	}
	defer r.store.Close()

	if err := r.store.Fail(context.Background(), r.id, cause.Error(), highWater); err != nil {
		r.logger.Warn("could not record upload failure", slog.String("error", err.Error()))
	}
}
