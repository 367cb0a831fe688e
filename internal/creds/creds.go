// Package creds manages the OAuth2 credential lifecycle: loading the stored
// record, proactive refresh ahead of expiry, and interactive authorization
// when no refreshable credentials exist. Every credential change is persisted
// to disk before it is handed to a caller.
package creds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ytpush/ytpush/internal/tokenfile"
)

var (
	// ErrNotLoggedIn means no usable stored credentials exist and the caller
	// did not permit an interactive flow.
	ErrNotLoggedIn = errors.New("creds: not logged in")

	// ErrAuthorizationFailed marks interactive authorization failures:
	// declined consent, state mismatch, failed code exchange.
	ErrAuthorizationFailed = errors.New("creds: authorization failed")

	// ErrRefreshExhausted means refresh kept failing until the retry ceiling.
	// The refresh token may still be good; the next run tries again.
	ErrRefreshExhausted = errors.New("creds: token refresh exhausted")
)

// Options configure a Manager. TokenPath, SecretsPath and Scopes are
// required; everything else has a usable zero value or default.
type Options struct {
	// TokenPath is where the credential record is stored.
	TokenPath string

	// SecretsPath is the OAuth2 client-secrets JSON downloaded from the
	// Google API console. Only read when an interactive flow runs or the
	// stored record predates embedded client identity.
	SecretsPath string

	// Scopes the tool needs. A stored record granting less forces
	// re-authorization.
	Scopes []string

	// RefreshMargin proactively refreshes tokens that expire within this
	// window. Zero refreshes only already-expired tokens.
	RefreshMargin time.Duration

	// RefreshRetries bounds how many times a failed refresh is retried
	// after the first attempt.
	RefreshRetries int

	// ForceRefresh refreshes even a token that is still comfortably valid.
	ForceRefresh bool

	// AllowInteractive permits the authorization flow when refresh cannot
	// produce a valid token.
	AllowInteractive bool

	// Browser selects the localhost-callback authorization flow instead of
	// the manual copy-paste flow.
	Browser bool

	// Prompt displays the authorization URL and returns the code the user
	// pasted. Defaults to a stderr/stdin prompt.
	Prompt func(authURL string) (string, error)

	// OpenURL launches the browser for the callback flow. Defaults to the
	// platform opener.
	OpenURL func(url string) error

	// HTTPClient, when set, carries all token-endpoint traffic.
	HTTPClient *http.Client

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Manager drives the credential lifecycle for one token file.
type Manager struct {
	opts    Options
	logger  *slog.Logger
	prompt  func(string) (string, error)
	openURL func(string) error

	// Injection points for tests.
	endpoint  oauth2.Endpoint
	now       func() time.Time
	randFloat func() float64
	baseDelay time.Duration
}

// New creates a Manager with defaults filled in.
func New(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	prompt := opts.Prompt
	if prompt == nil {
		prompt = stdinPrompt
	}

	openURL := opts.OpenURL
	if openURL == nil {
		openURL = defaultOpenURL
	}

	return &Manager{
		opts:    opts,
		logger:  logger,
		prompt:  prompt,
		openURL: openURL,

		endpoint:  google.Endpoint,
		now:       time.Now,
		randFloat: rand.Float64,
		baseDelay: time.Second,
	}
}

// Ensure returns a valid credential record, refreshing or re-authorizing
// as needed. The returned record is already persisted.
func (m *Manager) Ensure(ctx context.Context) (*tokenfile.Record, error) {
	return m.ensure(ctx, m.opts.AllowInteractive, m.opts.ForceRefresh)
}

func (m *Manager) ensure(ctx context.Context, interactive, force bool) (*tokenfile.Record, error) {
	rec, err := tokenfile.Load(m.opts.TokenPath)
	if err != nil {
		if !errors.Is(err, tokenfile.ErrCorrupt) {
			return nil, fmt.Errorf("creds: loading credentials: %w", err)
		}

		// Self-heal: an unreadable store is treated as no store at all.
		m.logger.Warn("credential file unreadable, discarding",
			slog.String("path", m.opts.TokenPath),
			slog.String("error", err.Error()),
		)

		if delErr := tokenfile.Delete(m.opts.TokenPath); delErr != nil {
			return nil, fmt.Errorf("creds: removing corrupt credentials: %w", delErr)
		}

		rec = nil
	}

	var refreshErr error

	switch {
	case rec == nil:
		// No stored credentials; authorization below.

	case !scopesCover(rec.Scopes, m.opts.Scopes):
		m.logger.Info("stored credentials do not cover requested scopes, re-authorization required",
			slog.Any("granted", rec.Scopes),
			slog.Any("requested", m.opts.Scopes),
		)

		rec = nil

	case !m.shouldRefresh(rec, force):
		return rec, nil

	case rec.Token.RefreshToken == "":
		m.logger.Info("stored credentials lack a refresh token, re-authorization required")

		rec = nil

	default:
		refreshed, err := m.refresh(ctx, rec)
		if err == nil {
			return refreshed, nil
		}

		if ctx.Err() != nil {
			return nil, err
		}

		m.logger.Warn("token refresh failed",
			slog.String("error", err.Error()),
		)

		refreshErr = err
		rec = nil
	}

	if !interactive {
		if refreshErr != nil {
			return nil, refreshErr
		}

		return nil, ErrNotLoggedIn
	}

	// Stored credentials are unusable at this point; clear them so a failed
	// authorization cannot leave a half-valid record behind.
	if err := tokenfile.Delete(m.opts.TokenPath); err != nil {
		return nil, fmt.Errorf("creds: clearing stale credentials: %w", err)
	}

	return m.authorize(ctx)
}

// shouldRefresh reports whether the record's access token needs a refresh
// round trip. A token with no recorded expiry is treated as stale.
func (m *Manager) shouldRefresh(rec *tokenfile.Record, force bool) bool {
	if force {
		return true
	}

	tok := rec.Token
	if tok.AccessToken == "" || tok.Expiry.IsZero() {
		return true
	}

	return tok.Expiry.Sub(m.now()) < m.opts.RefreshMargin
}

// scopesCover reports whether every requested scope was granted.
func scopesCover(granted, requested []string) bool {
	have := make(map[string]bool, len(granted))
	for _, s := range granted {
		have[s] = true
	}

	for _, s := range requested {
		if !have[s] {
			return false
		}
	}

	return true
}

// withHTTPClient makes the oauth2 library use the configured HTTP client
// for token-endpoint requests.
func (m *Manager) withHTTPClient(ctx context.Context) context.Context {
	if m.opts.HTTPClient == nil {
		return ctx
	}

	return context.WithValue(ctx, oauth2.HTTPClient, m.opts.HTTPClient)
}

// Source returns a token accessor for API clients. It serves the stored
// access token and refreshes through the manager once the token enters the
// refresh margin, so an upload that outlives its access token keeps going.
// It never starts an interactive flow.
//
// ctx must outlive the Source — it is bound to every refresh the Source
// performs. Pass context.Background() for long-lived use.
func (m *Manager) Source(ctx context.Context) *Source {
	return &Source{m: m, ctx: ctx}
}

// Source hands out access tokens, refreshing behind a mutex so concurrent
// API calls trigger at most one refresh.
type Source struct {
	m   *Manager
	ctx context.Context

	mu  sync.Mutex
	rec *tokenfile.Record
}

// Token returns a currently-valid access token.
func (s *Source) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec != nil && !s.m.shouldRefresh(s.rec, false) {
		return s.rec.Token.AccessToken, nil
	}

	rec, err := s.m.ensure(s.ctx, false, false)
	if err != nil {
		return "", err
	}

	s.rec = rec

	return rec.Token.AccessToken, nil
}
