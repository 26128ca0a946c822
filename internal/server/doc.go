// Package server provides HTTP routing, middleware, OAuth handling, and the JSON API surface.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// When the user runs the auth command, a temporary HTTP server starts on localhost, handles the callback,
// and shuts down after receiving the OAuth token.
//
// # JSON API
//
// [APIHandler] exposes bulk playlist mutations and quota reporting:
//
//	POST /api/bulk/add    → insert videos into a playlist
//	POST /api/bulk/remove → delete playlist items
//	POST /api/bulk/move   → relocate items into another playlist
//	GET  /api/quota       → today's usage against the daily budget
//
// Callers identify themselves with the X-User-ID header. A batch that partially
// fails is still a successful HTTP exchange: the response carries per-item
// statuses and the request returns 200.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
