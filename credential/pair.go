package credential

import (
	"strings"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// Pair is the access/refresh credential pair issued by the backend, together
// with the summary of the account it was issued to.
//
// A zero ExpiresAt means the access token expiry is unknown. User is nil for
// pairs returned by a renewal; the store carries the previous user forward.
type Pair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresAt    time.Time     `json:"expires_at,omitempty"`
	User         *session.User `json:"user,omitempty"`
}

// Valid reports whether the pair carries an access token.
func (p Pair) Valid() bool {
	return strings.TrimSpace(p.AccessToken) != ""
}

// CanRenew reports whether the pair carries a refresh token.
func (p Pair) CanRenew() bool {
	return strings.TrimSpace(p.RefreshToken) != ""
}
