// YouTube Data API v3 [PlaylistProvider] implementation
//
// Talks directly to the playlistItems resource. Quota cost per call class is
// fixed by the provider: list 1 unit, insert 50 units, delete 50 units.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const defaultYouTubeBaseURL = "https://www.googleapis.com/youtube/v3"

// youtubeErrorBody is the error envelope returned by Google APIs.
type youtubeErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// youtubePlaylistItem is a playlistItems resource with the snippet part.
type youtubePlaylistItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Title      string `json:"title"`
		PlaylistID string `json:"playlistId"`
		ResourceID struct {
			Kind    string `json:"kind"`
			VideoID string `json:"videoId"`
		} `json:"resourceId"`
	} `json:"snippet"`
}

// YouTubeProvider implements [PlaylistProvider] against the YouTube Data API.
//
// The http.Client is expected to carry OAuth credentials (an oauth2 client
// with a token source); this type performs no authentication of its own.
type YouTubeProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewYouTubeProvider creates a provider over the given authenticated client.
func NewYouTubeProvider(baseURL string, client *http.Client) *YouTubeProvider {
	if baseURL == "" {
		baseURL = defaultYouTubeBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &YouTubeProvider{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// List retrieves one page of items from a playlist.
//
// Calls GET /playlistItems with the snippet part (1 quota unit).
func (y *YouTubeProvider) List(ctx context.Context, playlistID, pageToken string) (*PlaylistPage, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("maxResults", "50")
	params.Set("playlistId", playlistID)
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var listResp struct {
		Items         []youtubePlaylistItem `json:"items"`
		NextPageToken string                `json:"nextPageToken"`
	}

	endpoint := "/playlistItems?" + params.Encode()
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &listResp); err != nil {
		return nil, err
	}

	page := &PlaylistPage{NextPageToken: listResp.NextPageToken}
	for _, item := range listResp.Items {
		page.Items = append(page.Items, PlaylistItem{
			ID:      item.ID,
			VideoID: item.Snippet.ResourceID.VideoID,
			Title:   item.Snippet.Title,
		})
	}

	return page, nil
}

// Insert adds a video to the target playlist.
//
// Calls POST /playlistItems (50 quota units) and returns the new playlist
// item ID.
func (y *YouTubeProvider) Insert(ctx context.Context, playlistID, videoID string) (string, error) {
	body := map[string]any{
		"snippet": map[string]any{
			"playlistId": playlistID,
			"resourceId": map[string]string{
				"kind":    "youtube#video",
				"videoId": videoID,
			},
		},
	}

	var created youtubePlaylistItem
	if err := y.doRequest(ctx, http.MethodPost, "/playlistItems?part=snippet", body, &created); err != nil {
		return "", err
	}

	return created.ID, nil
}

// Delete removes a playlist item by its provider-assigned ID.
//
// Calls DELETE /playlistItems (50 quota units).
func (y *YouTubeProvider) Delete(ctx context.Context, playlistItemID string) error {
	params := url.Values{}
	params.Set("id", playlistItemID)

	return y.doRequest(ctx, http.MethodDelete, "/playlistItems?"+params.Encode(), nil, nil)
}

// doRequest issues one API call, decoding the response into result and
// classifying any failure into a [ProviderError].
func (y *YouTubeProvider) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	apiURL := y.baseURL + endpoint

	var reqBody *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// classifyError maps a failed provider response to a [ProviderError].
//
// Classification prefers the reason string from the Google error envelope and
// falls back to the HTTP status code when the body is missing or unparseable.
func classifyError(resp *http.Response) error {
	perr := &ProviderError{Reason: ReasonUnknown, Code: resp.StatusCode}

	var errBody youtubeErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
		perr.Message = errBody.Error.Message
		if len(errBody.Error.Errors) > 0 {
			perr.Reason = classifyReason(errBody.Error.Errors[0].Reason)
		}
	}

	if perr.Reason == ReasonUnknown {
		perr.Reason = reasonFromStatus(resp.StatusCode)
	}

	return perr
}

// classifyReason maps provider reason strings onto the failure taxonomy.
func classifyReason(reason string) FailureReason {
	switch reason {
	case "quotaExceeded", "dailyLimitExceeded":
		return ReasonQuotaExceeded
	case "rateLimitExceeded", "userRateLimitExceeded":
		return ReasonRateLimited
	case "forbidden", "playlistItemsNotAccessible", "playlistForbidden":
		return ReasonForbidden
	case "notFound", "playlistNotFound", "playlistItemNotFound", "videoNotFound":
		return ReasonNotFound
	case "unauthorized", "authError", "invalidCredentials":
		return ReasonUnauthorized
	default:
		return ReasonUnknown
	}
}

// reasonFromStatus classifies by HTTP status when no reason string is present.
func reasonFromStatus(status int) FailureReason {
	switch status {
	case http.StatusUnauthorized:
		return ReasonUnauthorized
	case http.StatusForbidden:
		return ReasonForbidden
	case http.StatusNotFound:
		return ReasonNotFound
	case http.StatusTooManyRequests:
		return ReasonRateLimited
	default:
		return ReasonUnknown
	}
}
