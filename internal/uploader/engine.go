// Package uploader drives a resumable upload session to completion:
// one chunk in flight at a time, the offset advanced only by server
// acknowledgment, and bounded retry with multiplicative jitter on
// retriable failures.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/ytpush/ytpush/internal/youtube"
)

// Terminal failure classes. ErrRetriesExhausted means the transfer kept
// failing retriably until the configured ceiling was crossed.
// ErrMalformedReply means the server reported success without a video
// ID, which is a contract violation and never retried.
var (
	ErrRetriesExhausted = errors.New("uploader: retry limit exceeded")
	ErrMalformedReply   = errors.New("uploader: malformed server reply")
)

// errStalled marks a chunk reply that acknowledged no new bytes. It is
// charged against the retry budget like any other retriable failure.
var errStalled = errors.New("uploader: chunk accepted without progress")

// ProgressFunc observes acknowledged progress: uploaded is the number
// of bytes the server has confirmed, total the full size.
type ProgressFunc func(uploaded, total int64)

// Service is the part of the YouTube client the engine drives.
type Service interface {
	StartResumableUpload(ctx context.Context, meta *youtube.UploadRequest, size int64, contentType string) (*youtube.UploadSession, error)
	UploadChunk(ctx context.Context, session *youtube.UploadSession, chunk io.Reader, offset, length, total int64) (*youtube.ChunkResult, error)
	QueryUploadProgress(ctx context.Context, session *youtube.UploadSession, total int64) (*youtube.ChunkResult, error)
}

var _ Service = (*youtube.Client)(nil)

// Options configures an Engine.
type Options struct {
	// MaxRetries is the number of consecutive retriable failures
	// tolerated before the upload fails with ErrRetriesExhausted.
	MaxRetries int

	// ChunkSize is the number of bytes sent per attempt. Zero or
	// negative means the whole remainder goes out in one request.
	// Explicit sizes must be 256 KiB aligned; config validates that
	// before it gets here.
	ChunkSize int64

	// Progress, when non-nil, is called after every acknowledgment.
	Progress ProgressFunc

	Logger *slog.Logger
}

// Engine performs sequential chunked uploads against the resumable
// upload protocol. The acknowledged offset only ever moves forward.
type Engine struct {
	api        Service
	maxRetries int
	chunkSize  int64
	progress   ProgressFunc
	logger     *slog.Logger

	// sleepFunc and randFloat are replaced in tests.
	sleepFunc func(ctx context.Context, d time.Duration) error
	randFloat func() float64
}

// New creates an Engine. A nil logger falls back to slog.Default.
func New(api Service, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		api:        api,
		maxRetries: max(opts.MaxRetries, 0),
		chunkSize:  opts.ChunkSize,
		progress:   opts.Progress,
		logger:     logger,
		sleepFunc:  timeSleep,
		randFloat:  rand.Float64,
	}
}

// Result is the terminal outcome of a successful upload.
type Result struct {
	Video *youtube.Video

	// RetryHighWater is the longest consecutive-failure streak seen
	// during the transfer.
	RetryHighWater int
}

// session tracks one in-flight transfer. It is discarded on any
// terminal outcome; nothing about it survives the process.
type session struct {
	remote  *youtube.UploadSession
	size    int64
	offset  int64 // bytes the server has acknowledged
	retries int   // consecutive retriable failures
	peak    int
}

// Upload sends size bytes from content as one resumable upload and
// returns the finished video. content must serve stable bytes for the
// whole call: failed ranges are re-read and resent. The Result is
// non-nil even on failure so callers recording run outcomes still get
// the retry high-water mark; Video is nil then.
func (e *Engine) Upload(ctx context.Context, meta *youtube.UploadRequest, content io.ReaderAt, size int64, contentType string) (*Result, error) {
	if size <= 0 {
		return &Result{}, fmt.Errorf("uploader: refusing to upload empty content (size %d)", size)
	}

	s := &session{size: size}

	res, err := e.run(ctx, s, meta, content, contentType)
	if err != nil {
		return &Result{RetryHighWater: s.peak}, err
	}

	return res, nil
}

func (e *Engine) run(ctx context.Context, s *session, meta *youtube.UploadRequest, content io.ReaderAt, contentType string) (*Result, error) {
	if err := e.openSession(ctx, s, meta, contentType); err != nil {
		return nil, err
	}

	for {
		if s.offset >= s.size {
			return e.finalProbe(ctx, s)
		}

		length := s.size - s.offset
		if e.chunkSize > 0 && length > e.chunkSize {
			length = e.chunkSize
		}

		chunk := io.NewSectionReader(content, s.offset, length)

		res, err := e.api.UploadChunk(ctx, s.remote, chunk, s.offset, length, s.size)
		if err != nil {
			if bErr := e.backoff(ctx, s, "sending chunk", err); bErr != nil {
				return nil, bErr
			}

			probe, probeErr := e.resync(ctx, s)
			if probeErr != nil {
				return nil, probeErr
			}

			if probe.Done {
				return e.finish(s, probe)
			}

			e.advance(s, probe.AckedBytes)

			continue
		}

		if res.Done {
			return e.finish(s, res)
		}

		if res.AckedBytes <= s.offset {
			// Accepted but stored nothing new. Charging the budget keeps
			// a stalled session from spinning without bound.
			if bErr := e.delay(ctx, s, "sending chunk", errStalled); bErr != nil {
				return nil, bErr
			}

			continue
		}

		e.advance(s, res.AckedBytes)
	}
}

// openSession creates the remote session, retrying retriable failures
// under the same budget as chunks. There is no offset to resynchronize
// yet, so a failed attempt is simply repeated.
func (e *Engine) openSession(ctx context.Context, s *session, meta *youtube.UploadRequest, contentType string) error {
	for {
		remote, err := e.api.StartResumableUpload(ctx, meta, s.size, contentType)
		if err != nil {
			if bErr := e.backoff(ctx, s, "starting upload session", err); bErr != nil {
				return bErr
			}

			continue
		}

		s.remote = remote

		e.logger.Info("upload session opened",
			slog.Int64("size", s.size),
			slog.Int64("chunk_size", e.chunkSize),
		)

		return nil
	}
}

// resync asks the session how many bytes actually landed so the next
// attempt resumes at the server's offset instead of blindly resending.
// Probe failures draw from the same consecutive-failure budget.
func (e *Engine) resync(ctx context.Context, s *session) (*youtube.ChunkResult, error) {
	for {
		res, err := e.api.QueryUploadProgress(ctx, s.remote, s.size)
		if err != nil {
			if bErr := e.backoff(ctx, s, "querying upload progress", err); bErr != nil {
				return nil, bErr
			}

			continue
		}

		return res, nil
	}
}

// finalProbe resolves the case where the server acknowledged every byte
// without sending the terminal reply on the last chunk.
func (e *Engine) finalProbe(ctx context.Context, s *session) (*Result, error) {
	for {
		res, err := e.api.QueryUploadProgress(ctx, s.remote, s.size)
		if err != nil {
			if bErr := e.backoff(ctx, s, "final progress probe", err); bErr != nil {
				return nil, bErr
			}

			continue
		}

		if !res.Done {
			return nil, fmt.Errorf("uploader: server acknowledged all %d bytes without completing the upload: %w", s.size, ErrMalformedReply)
		}

		return e.finish(s, res)
	}
}

// advance moves the acknowledged offset forward, clamped to the source
// size. The consecutive-failure counter resets only when the server
// stored new bytes, so a stalled session still runs into the ceiling.
func (e *Engine) advance(s *session, acked int64) {
	if acked > s.size {
		e.logger.Warn("server acknowledged more bytes than declared",
			slog.Int64("acked", acked),
			slog.Int64("size", s.size),
		)

		acked = s.size
	}

	if acked <= s.offset {
		return
	}

	s.offset = acked
	s.retries = 0

	e.logger.Debug("chunk acknowledged",
		slog.Int64("offset", s.offset),
		slog.Int64("size", s.size),
	)

	if e.progress != nil {
		e.progress(s.offset, s.size)
	}
}

// backoff classifies a failure and, for a retriable one within budget,
// sleeps before the caller retries. Anything else comes back as a
// terminal error.
func (e *Engine) backoff(ctx context.Context, s *session, phase string, cause error) error {
	if !youtube.IsRetriable(cause) {
		return fmt.Errorf("uploader: %s: %w", phase, cause)
	}

	return e.delay(ctx, s, phase, cause)
}

// delay burns one unit of the consecutive-failure budget and sleeps.
// Crossing the ceiling turns the cause into ErrRetriesExhausted.
func (e *Engine) delay(ctx context.Context, s *session, phase string, cause error) error {
	s.retries++
	if s.retries > s.peak {
		s.peak = s.retries
	}

	if s.retries > e.maxRetries {
		return fmt.Errorf("uploader: %s failed %d consecutive times: %w: %w", phase, s.retries, ErrRetriesExhausted, cause)
	}

	wait := e.backoffDuration(s.retries)

	e.logger.Warn("retriable upload failure",
		slog.String("phase", phase),
		slog.Int("consecutive_failures", s.retries),
		slog.Duration("backoff", wait),
		slog.String("error", cause.Error()),
	)

	if err := e.sleepFunc(ctx, wait); err != nil {
		return fmt.Errorf("uploader: canceled during backoff: %w", err)
	}

	return nil
}

// backoffDuration computes the sleep before retry n: a uniform draw
// from [0, 2^n) seconds.
func (e *Engine) backoffDuration(retries int) time.Duration {
	return time.Duration(e.randFloat() * math.Pow(2, float64(retries)) * float64(time.Second))
}

// finish validates the terminal reply. A success without a video ID is
// a protocol violation, not a transient condition.
func (e *Engine) finish(s *session, res *youtube.ChunkResult) (*Result, error) {
	if res.Video == nil || res.Video.ID == "" {
		return nil, fmt.Errorf("uploader: completed upload carries no video id: %w", ErrMalformedReply)
	}

	if e.progress != nil {
		e.progress(s.size, s.size)
	}

	e.logger.Info("upload complete",
		slog.String("video_id", res.Video.ID),
		slog.Int64("size", s.size),
		slog.Int("retry_high_water", s.peak),
	)

	return &Result{Video: res.Video, RetryHighWater: s.peak}, nil
}

// timeSleep waits for the given duration or until the context is
// canceled. It is the default sleepFunc for Engine.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
