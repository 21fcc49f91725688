// Package jwt issues and verifies the access and refresh tokens spoken by the
// task backend, and lets clients read a token's expiry without the signing key.
//
// The in-process fake backend uses [Manager] to sign tokens; the client side only
// ever calls [ExpiresAt].
package jwt
