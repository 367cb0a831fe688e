package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

// statusResumeIncomplete is returned by the upload host for a chunk that
// was stored but did not finish the upload. Go's http.Client does not
// treat 308 without a Location header as a redirect, so it reaches us
// unmodified.
const statusResumeIncomplete = 308

// StartResumableUpload opens a resumable upload session for a video of
// the given size and content type. The returned session URL receives the
// file bytes; it embeds an upload ID and stays valid for about a day.
func (c *Client) StartResumableUpload(ctx context.Context, meta *UploadRequest, size int64, contentType string) (*UploadSession, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("youtube: encoding video metadata: %w", err)
	}

	path := "/upload/youtube/v3/videos?uploadType=resumable&part=snippet,status"

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("X-Upload-Content-Length", strconv.FormatInt(size, 10))
	if contentType != "" {
		req.Header.Set("X-Upload-Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("youtube: request canceled: %w", ctx.Err())
		}

		return nil, fmt.Errorf("youtube: creating upload session: %w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		return nil, fmt.Errorf("youtube: upload session response missing Location header")
	}

	if err := drainBody(resp.Body); err != nil {
		return nil, err
	}

	c.logger.Debug("upload session created",
		slog.Int64("size", size),
	)

	return &UploadSession{URL: sessionURL}, nil
}

// UploadChunk sends one contiguous byte range to an upload session.
// offset is the absolute position of the first chunk byte within the
// file, length is the number of bytes chunk will yield and total is the
// full file size. A single attempt, no retries — the caller decides
// retry policy and supplies a fresh reader per attempt.
//
// The result distinguishes the two success shapes of the protocol: a 308
// means the server stored some prefix of the file and reports how much
// via the Range header; a 200 or 201 carries the finished video resource.
func (c *Client) UploadChunk(ctx context.Context, session *UploadSession, chunk io.Reader, offset, length, total int64) (*ChunkResult, error) {
	req, err := c.newSessionRequest(ctx, session, chunk)
	if err != nil {
		return nil, err
	}

	req.ContentLength = length
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+length-1, total))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("youtube: request canceled: %w", ctx.Err())
		}

		return nil, fmt.Errorf("youtube: uploading chunk at %d: %w: %w", offset, ErrTransport, err)
	}
	defer resp.Body.Close()

	return c.handleChunkResponse(resp)
}

// QueryUploadProgress asks the session how many bytes it has stored, via
// a zero-byte chunk with an indeterminate Content-Range. Used to
// resynchronize after a failed or interrupted chunk.
func (c *Client) QueryUploadProgress(ctx context.Context, session *UploadSession, total int64) (*ChunkResult, error) {
	req, err := c.newSessionRequest(ctx, session, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Range", fmt.Sprintf("bytes */%d", total))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("youtube: request canceled: %w", ctx.Err())
		}

		return nil, fmt.Errorf("youtube: querying upload progress: %w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	return c.handleChunkResponse(resp)
}

// newSessionRequest builds a PUT against an absolute session URL. Session
// URLs already carry the upload identity in their query string, but the
// API still wants the bearer token.
func (c *Client) newSessionRequest(ctx context.Context, session *UploadSession, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session.URL, body)
	if err != nil {
		return nil, fmt.Errorf("youtube: creating session request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("youtube: obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", c.userAgent)

	return req, nil
}

// handleChunkResponse interprets an upload host reply for a chunk or a
// progress probe.
func (c *Client) handleChunkResponse(resp *http.Response) (*ChunkResult, error) {
	switch resp.StatusCode {
	case statusResumeIncomplete:
		acked, err := parseRangeHeader(resp.Header.Get("Range"))
		if err != nil {
			return nil, err
		}

		if err := drainBody(resp.Body); err != nil {
			return nil, err
		}

		c.logger.Debug("chunk accepted",
			slog.Int64("acked_bytes", acked),
		)

		return &ChunkResult{AckedBytes: acked}, nil

	case http.StatusOK, http.StatusCreated:
		var video Video
		if err := json.NewDecoder(resp.Body).Decode(&video); err != nil {
			return nil, fmt.Errorf("youtube: decoding completed upload response: %w", err)
		}

		return &ChunkResult{Done: true, Video: &video}, nil

	default:
		if err := c.checkStatus(resp); err != nil {
			return nil, err
		}

		// A 2xx the protocol does not define. Surfacing it as an error
		// keeps a server surprise from being mistaken for progress.
		return nil, fmt.Errorf("youtube: unexpected upload status %d", resp.StatusCode)
	}
}

// parseRangeHeader extracts the number of bytes the server has stored
// from a 308 Range header of the form "bytes=0-N". An absent header means
// the server has stored nothing yet.
func parseRangeHeader(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}

	rest, ok := strings.CutPrefix(value, "bytes=")
	if !ok {
		return 0, fmt.Errorf("youtube: malformed Range header %q", value)
	}

	_, high, ok := strings.Cut(rest, "-")
	if !ok {
		return 0, fmt.Errorf("youtube: malformed Range header %q", value)
	}

	last, err := strconv.ParseInt(high, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("youtube: malformed Range header %q: %w", value, err)
	}

	return last + 1, nil
}
