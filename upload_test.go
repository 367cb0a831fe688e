package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytpush/ytpush/internal/config"
)

// withUploadDefaults installs a resolved config with the stock metadata
// defaults and restores the previous one on cleanup.
func withUploadDefaults(t *testing.T) {
	t.Helper()

	oldCfg := resolvedCfg
	t.Cleanup(func() { resolvedCfg = oldCfg })

	resolvedCfg = &config.Resolved{
		UploadConfig: config.UploadConfig{
			ChunkSize:  "auto",
			MaxRetries: 10,
			Privacy:    "public",
			Category:   "22",
			Language:   "en",
			License:    "youtube",
		},
	}
}

func TestNewUploadCmd_Flags(t *testing.T) {
	cmd := newUploadCmd()

	expected := []string{
		"title", "description", "category", "tags", "privacy",
		"language", "audio-language", "latitude", "longitude",
		"playlist-id", "thumbnail", "license", "publish-at",
		"public-stats-viewable", "made-for-kids",
		"age-group", "gender", "countries",
		"chunk-size", "max-retries", "force-refresh",
	}
	for _, name := range expected {
		assert.NotNil(t, cmd.Flags().Lookup(name), "expected flag %q not found", name)
	}
}

func TestBuildUploadRequest_TitleDefaultsToFilename(t *testing.T) {
	cmd := newUploadCmd()
	withUploadDefaults(t)

	req, err := buildUploadRequest(cmd, "/videos/birthday party.mp4")
	require.NoError(t, err)

	assert.Equal(t, "birthday party", req.Snippet.Title)
	assert.Equal(t, "public", req.Status.PrivacyStatus)
	assert.Equal(t, "22", req.Snippet.CategoryID)
	assert.Equal(t, "en", req.Snippet.DefaultLanguage)
	assert.Equal(t, "youtube", req.Status.License)
}

func TestBuildUploadRequest_ExplicitMetadata(t *testing.T) {
	cmd := newUploadCmd()
	withUploadDefaults(t)

	flagTitle = "Conference Talk"
	flagDescription = "Recorded live"
	flagTags = []string{"go", "talks"}
	flagPrivacy = "unlisted"
	flagCategory = "28"

	req, err := buildUploadRequest(cmd, "/videos/talk.mkv")
	require.NoError(t, err)

	assert.Equal(t, "Conference Talk", req.Snippet.Title)
	assert.Equal(t, "Recorded live", req.Snippet.Description)
	assert.Equal(t, []string{"go", "talks"}, req.Snippet.Tags)
	assert.Equal(t, "unlisted", req.Status.PrivacyStatus)
	assert.Equal(t, "28", req.Snippet.CategoryID)
}

func TestBuildUploadRequest_InvalidPrivacy(t *testing.T) {
	cmd := newUploadCmd()
	withUploadDefaults(t)

	flagPrivacy = "secret"

	_, err := buildUploadRequest(cmd, "/videos/talk.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid privacy")
}

func TestBuildUploadRequest_InvalidLicense(t *testing.T) {
	cmd := newUploadCmd()
	withUploadDefaults(t)

	flagLicense = "gpl"

	_, err := buildUploadRequest(cmd, "/videos/talk.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid license")
}

func TestBuildUploadRequest_PublishAtMalformed(t *testing.T) {
	cmd := newUploadCmd()
	withUploadDefaults(t)

	flagPublishAt = "tomorrow at noon"

	_, err := buildUploadRequest(cmd, "/videos/talk.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish-at")
}

func TestBuildUploadRequest_PublishAtForcesPrivate(t *testing.T) {
	cmd := newUploadCmd()
	withUploadDefaults(t)

	flagPublishAt = "2026-09-01T12:00:00Z"
	flagPrivacy = "public"

	req, err := buildUploadRequest(cmd, "/videos/talk.mp4")
	require.NoError(t, err)

	assert.Equal(t, "private", req.Status.PrivacyStatus)
	assert.Equal(t, "2026-09-01T12:00:00Z", req.Status.PublishAt)
}

func TestBuildUploadRequest_LocationRequiresBothCoordinates(t *testing.T) {
	cmd := newUploadCmd()
	withUploadDefaults(t)

	require.NoError(t, cmd.Flags().Set("latitude", "60.17"))

	_, err := buildUploadRequest(cmd, "/videos/talk.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be given together")
}

func TestBuildUploadRequest_Location(t *testing.T) {
	cmd := newUploadCmd()
	withUploadDefaults(t)

	require.NoError(t, cmd.Flags().Set("latitude", "60.17"))
	require.NoError(t, cmd.Flags().Set("longitude", "24.94"))

	req, err := buildUploadRequest(cmd, "/videos/talk.mp4")
	require.NoError(t, err)

	require.NotNil(t, req.Snippet.RecordingDetails)
	require.NotNil(t, req.Snippet.RecordingDetails.Location)
	assert.InDelta(t, 60.17, req.Snippet.RecordingDetails.Location.Latitude, 0.001)
	assert.InDelta(t, 24.94, req.Snippet.RecordingDetails.Location.Longitude, 0.001)
}

func TestBuildUploadRequest_NoTargetingByDefault(t *testing.T) {
	cmd := newUploadCmd()
	withUploadDefaults(t)

	req, err := buildUploadRequest(cmd, "/videos/talk.mp4")
	require.NoError(t, err)

	assert.Nil(t, req.Status.Targeting)
}

func TestBuildUploadRequest_Targeting(t *testing.T) {
	cmd := newUploadCmd()
	withUploadDefaults(t)

	flagAgeGroup = "age18_24"
	flagGender = "female"
	flagCountries = []string{"FI", "SE"}

	req, err := buildUploadRequest(cmd, "/videos/talk.mp4")
	require.NoError(t, err)

	require.NotNil(t, req.Status.Targeting)
	assert.Equal(t, "age18_24", req.Status.Targeting.AgeGroup)
	assert.Equal(t, []string{"female"}, req.Status.Targeting.Genders)
	assert.Equal(t, []string{"FI", "SE"}, req.Status.Targeting.Countries)
}

func TestContentTypeForFile(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"video.mp4", "video/mp4"},
		{"video.MOV", "video/quicktime"},
		{"clip.webm", "video/webm"},
		{"old.avi", "video/x-msvideo"},
		{"thumb.jpg", "image/jpeg"},
		{"thumb.png", "image/png"},
		{"mystery.zzz", "application/octet-stream"},
		{"noextension", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, contentTypeForFile(tt.path))
		})
	}
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "set", orDefault("set", "fallback"))
	assert.Equal(t, "fallback", orDefault("", "fallback"))
}

func TestProgressRenderer_QuietDisables(t *testing.T) {
	oldQuiet := flagQuiet
	t.Cleanup(func() { flagQuiet = oldQuiet })

	flagQuiet = true

	assert.Nil(t, progressRenderer())
}

func TestWatchURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", watchURL("dQw4w9WgXcQ"))
}
