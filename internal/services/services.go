// package services defines the playlist provider boundary consumed by the bulk orchestrator
package services

import (
	"context"
	"fmt"
	"net/http"
)

// FailureReason classifies a provider call failure. Every provider error maps
// to exactly one reason; anything unrecognized is ReasonUnknown.
type FailureReason string

const (
	ReasonQuotaExceeded FailureReason = "quota_exceeded"
	ReasonRateLimited   FailureReason = "rate_limited"
	ReasonForbidden     FailureReason = "forbidden"
	ReasonNotFound      FailureReason = "not_found"
	ReasonUnauthorized  FailureReason = "unauthorized"
	ReasonUnknown       FailureReason = "unknown"
)

// HTTPStatus maps the reason to the status reported at the service boundary.
func (r FailureReason) HTTPStatus() int {
	switch r {
	case ReasonQuotaExceeded, ReasonRateLimited:
		return http.StatusTooManyRequests
	case ReasonForbidden:
		return http.StatusForbidden
	case ReasonNotFound:
		return http.StatusNotFound
	case ReasonUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ProviderError is a classified failure from the remote playlist provider.
type ProviderError struct {
	Reason  FailureReason
	Code    int    // HTTP status returned by the provider
	Message string // provider-supplied message, if any
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider error (%s): status %d", e.Reason, e.Code)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Reason, e.Message)
}

// PlaylistPage is one page of playlist entries from the provider.
type PlaylistPage struct {
	Items         []PlaylistItem
	NextPageToken string
}

// PlaylistItem is one entry in a remote playlist.
type PlaylistItem struct {
	ID      string // provider-assigned playlist item ID
	VideoID string
	Title   string
}

// PlaylistProvider is the remote capability set consumed by the bulk
// orchestrator. One call maps to one remote API request.
type PlaylistProvider interface {
	// List retrieves one page of items from a playlist.
	List(ctx context.Context, playlistID, pageToken string) (*PlaylistPage, error)

	// Insert adds a video to the target playlist, returning the new
	// playlist item ID.
	Insert(ctx context.Context, playlistID, videoID string) (string, error)

	// Delete removes a playlist item by its provider-assigned ID.
	Delete(ctx context.Context, playlistItemID string) error
}

// ProviderResolver builds an authenticated [PlaylistProvider] for a user.
//
// Resolution fails with [shared.ErrNoTokens] when the user has no stored
// credentials; that failure is terminal for the request, never retried.
type ProviderResolver interface {
	Provider(ctx context.Context, userID string) (PlaylistProvider, error)
}
