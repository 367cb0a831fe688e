package youtube

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// SetThumbnail replaces the thumbnail of an uploaded video with the given
// image. The API accepts JPEG and PNG up to 2MB; anything else comes back
// as a 400.
func (c *Client) SetThumbnail(ctx context.Context, videoID string, image []byte, contentType string) error {
	path := "/upload/youtube/v3/thumbnails/set?uploadType=media&videoId=" + url.QueryEscape(videoID)

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(image))
	if err != nil {
		return err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("youtube: request canceled: %w", ctx.Err())
		}

		return fmt.Errorf("youtube: setting thumbnail: %w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return err
	}

	return drainBody(resp.Body)
}

// InsertPlaylistItem appends an uploaded video to the end of a playlist.
func (c *Client) InsertPlaylistItem(ctx context.Context, playlistID, videoID string) error {
	body := map[string]any{
		"snippet": map[string]any{
			"playlistId": playlistID,
			"resourceId": map[string]any{
				"kind":    "youtube#video",
				"videoId": videoID,
			},
		},
	}

	return c.doJSON(ctx, http.MethodPost, "/youtube/v3/playlistItems?part=snippet", body, nil)
}

type channelListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

// MyChannel returns the channel owned by the authenticated account.
func (c *Client) MyChannel(ctx context.Context) (*Channel, error) {
	var list channelListResponse

	err := c.doJSON(ctx, http.MethodGet, "/youtube/v3/channels?part=snippet&mine=true", nil, &list)
	if err != nil {
		return nil, err
	}

	if len(list.Items) == 0 {
		return nil, fmt.Errorf("youtube: no channel associated with this account")
	}

	item := list.Items[0]

	return &Channel{ID: item.ID, Title: item.Snippet.Title}, nil
}
