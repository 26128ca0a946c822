// Package services defines the [PlaylistProvider] boundary and implements it for the YouTube Data API v3.
//
// # Provider Interface
//
// The bulk orchestrator consumes the provider through three calls (List,
// Insert, Delete), each mapping to exactly one remote API request with a
// fixed quota cost (list 1 unit, insert 50, delete 50).
//
// # YouTube Implementation
//
// [YouTubeProvider] talks to the playlistItems resource over an
// OAuth-authenticated http.Client. It performs no authentication itself;
// [OAuthProviderResolver] builds the client from the user's stored token and
// the oauth2 config, refreshing expired access tokens transparently.
//
// # Error Classification
//
// Failed provider calls surface as [ProviderError] with a [FailureReason]
// drawn from a closed taxonomy: quota_exceeded, rate_limited, forbidden,
// not_found, unauthorized, unknown. The reason string in the Google error
// envelope is preferred; the HTTP status is the fallback. The reason maps to
// an HTTP status at the service boundary (429, 429, 403, 404, 401, 500
// respectively).
//
// # Token Resolution
//
// Resolution fails with [shared.ErrNoTokens] when no credentials are stored
// for the user. That failure is terminal for the whole request.
package services
