package creds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"

	"github.com/ytpush/ytpush/internal/tokenfile"
)

// refresh obtains a new access token using the record's refresh token and
// persists the result before returning. Every failure class is retried up
// to the configured ceiling; the authorization server is the only party
// that can say a refresh token is dead, and it says so consistently.
func (m *Manager) refresh(ctx context.Context, rec *tokenfile.Record) (*tokenfile.Record, error) {
	cfg, err := m.refreshConfig(rec)
	if err != nil {
		return nil, err
	}

	ctx = m.withHTTPClient(ctx)
	seed := &oauth2.Token{RefreshToken: rec.Token.RefreshToken}

	var (
		attempt int
		tok     *oauth2.Token
	)

	err = retry.Do(ctx, m.refreshBackoff(), func(ctx context.Context) error {
		attempt++

		// A token source seeded without an access token always performs
		// the refresh round trip.
		t, tokenErr := cfg.TokenSource(ctx, seed).Token()
		if tokenErr != nil {
			m.logRefreshFailure(attempt, tokenErr)

			return retry.RetryableError(tokenErr)
		}

		tok = t

		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("creds: refreshing token: %w", err)
		}

		return nil, fmt.Errorf("creds: token refresh failed after %d attempts: %w: %w", attempt, ErrRefreshExhausted, err)
	}

	// The server may omit fields the old record already has.
	if tok.RefreshToken == "" {
		tok.RefreshToken = rec.Token.RefreshToken
	}

	if tok.Expiry.IsZero() {
		tok.Expiry = m.now().Add(time.Hour)
	}

	rec.Token = tok

	if err := tokenfile.Save(m.opts.TokenPath, rec); err != nil {
		return nil, fmt.Errorf("creds: persisting refreshed token: %w", err)
	}

	m.logger.Info("token refreshed",
		slog.Time("expiry", tok.Expiry),
		slog.Int("attempts", attempt),
	)

	return rec, nil
}

// refreshConfig builds the oauth2 config for a refresh round trip. The
// record carries the client identity it was issued under; records that
// predate that fall back to the client-secrets file.
func (m *Manager) refreshConfig(rec *tokenfile.Record) (*oauth2.Config, error) {
	if rec.ClientID != "" {
		return &oauth2.Config{
			ClientID:     rec.ClientID,
			ClientSecret: rec.ClientSecret,
			Endpoint:     m.endpoint,
			Scopes:       m.opts.Scopes,
		}, nil
	}

	return m.loadSecrets()
}

// refreshBackoff waits 2^attempt base delays plus up to one more base
// delay of jitter, stopping after the configured number of retries.
func (m *Manager) refreshBackoff() retry.Backoff {
	var attempt int

	return retry.BackoffFunc(func() (time.Duration, bool) {
		if attempt >= m.opts.RefreshRetries {
			return 0, true
		}

		wait := time.Duration(1<<attempt) * m.baseDelay
		wait += time.Duration(m.randFloat() * float64(m.baseDelay))
		attempt++

		return wait, false
	})
}

// logRefreshFailure separates authorization-server rejections from
// transport failures in the log stream.
func (m *Manager) logRefreshFailure(attempt int, err error) {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		m.logger.Warn("authorization server rejected refresh",
			slog.Int("attempt", attempt),
			slog.Int("status", rerr.Response.StatusCode),
			slog.String("code", rerr.ErrorCode),
		)

		return
	}

	m.logger.Warn("token refresh attempt failed",
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
	)
}
