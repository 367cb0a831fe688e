// Package tokenfile handles reading and writing the stored credential record.
// The record holds the OAuth2 token together with the scope grant and the
// client identity that obtained it, plus cached API metadata (channel ID,
// channel title). This is a leaf package imported by both creds/ and the CLI
// so neither has to know the on-disk layout.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
)

// FilePerms restricts credential files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the credential directory.
const DirPerms = 0o700

// ErrCorrupt marks a credential file that exists but cannot be decoded.
// Callers treat it as absent: delete the file and re-authorize.
var ErrCorrupt = errors.New("credential file corrupt")

// Record is the on-disk format for the stored credential. The token carries
// access token, refresh token, type and absolute expiry; Scopes is the grant
// the token was issued for, ClientID/ClientSecret identify the OAuth client
// that obtained it. Meta caches channel metadata from API responses.
type Record struct {
	Token        *oauth2.Token     `json:"token"`
	Scopes       []string          `json:"scopes,omitempty"`
	ClientID     string            `json:"client_id,omitempty"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Meta         map[string]string `json:"meta,omitempty"`
}

// Load reads a saved credential record from disk. Returns (nil, nil) if the
// file does not exist. A file that exists but cannot be decoded, or that
// decodes without a token field, returns an error wrapping ErrCorrupt so the
// caller can discard it and re-authorize instead of failing the run.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("tokenfile: decoding %s: %w: %w", path, ErrCorrupt, err)
	}

	if rec.Token == nil {
		return nil, fmt.Errorf("tokenfile: %s missing token field: %w", path, ErrCorrupt)
	}

	return &rec, nil
}

// ReadMeta reads just the cached metadata from a credential file without
// decoding the rest of the record. Returns (nil, nil) if the file does not
// exist.
func ReadMeta(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var parsed struct {
		Meta map[string]string `json:"meta"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("tokenfile: decoding %s: %w: %w", path, ErrCorrupt, err)
	}

	return parsed.Meta, nil
}

// Save writes a credential record to disk atomically (write-to-temp + rename)
// with 0600 permissions. The stored expiry is normalized to UTC. Never logs
// token values.
func Save(path string, rec *Record) error {
	if rec == nil || rec.Token == nil {
		return errors.New("tokenfile: nil record")
	}

	// Copy so normalizing the expiry does not mutate the caller's token.
	store := *rec
	tok := *rec.Token
	if !tok.Expiry.IsZero() {
		tok.Expiry = tok.Expiry.UTC()
	}
	store.Token = &tok

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	// Clean up temp file on any error path.
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	// Flush to stable storage before rename so a power loss between close and
	// rename cannot leave an empty or partial credential file at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}

// Delete removes the credential file. Missing file is not an error.
func Delete(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tokenfile: removing %s: %w", path, err)
	}

	return nil
}

// MergeMeta reads the current credential record, merges new metadata keys
// (new keys overwrite existing), and saves. Returns an error if the file
// does not exist or has no token.
func MergeMeta(path string, meta map[string]string) error {
	rec, err := Load(path)
	if err != nil {
		return fmt.Errorf("reading credentials for metadata update: %w", err)
	}

	if rec == nil {
		return fmt.Errorf("no credential file at %s", path)
	}

	if rec.Meta == nil {
		rec.Meta = make(map[string]string, len(meta))
	}

	maps.Copy(rec.Meta, meta)

	return Save(path, rec)
}
