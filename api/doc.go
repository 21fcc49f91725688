// Package api is the typed client for the task backend's HTTP surface.
//
// [Auth] talks to the public authentication endpoints (sign-in, sign-up,
// renewal) on a plain HTTP client. [Account] talks to the protected account
// endpoints and expects a Doer that attaches credentials, normally the request
// gateway. [Conn] is the shared JSON transport other typed clients build on.
//
// Requests are validated locally before any network call; a rejected input
// returns [ErrValidation] without touching the backend.
package api
