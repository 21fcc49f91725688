package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// SignUpRequest is the body of POST /api/auth/signup.
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
	Name     string `json:"name" validate:"notblank,max=100"`
}

// SignInRequest is the body of POST /api/auth/signin.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body of POST /api/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse is returned by sign-in and sign-up.
type AuthResponse struct {
	User         session.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
}

// RefreshResponse is returned by the renewal endpoint. The backend may omit
// refresh_token when it does not rotate.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// MessageResponse is the {"detail": "..."} body of sign-out.
type MessageResponse struct {
	Detail string `json:"detail"`
}

// Grant is the outcome of a successful sign-in or sign-up.
type Grant struct {
	User session.User
	Pair credential.Pair
}

// Auth calls the public authentication endpoints. It never attaches credentials.
type Auth struct {
	conn *Conn
	now  func() time.Time
}

// NewAuth returns an Auth client for baseURL. A nil doer uses http.DefaultClient.
func NewAuth(baseURL string, doer Doer) *Auth {
	return &Auth{conn: NewConn(baseURL, doer), now: time.Now}
}

// SignIn exchanges email and password for a credential pair.
func (a *Auth) SignIn(ctx context.Context, email, password string) (Grant, error) {
	req := SignInRequest{Email: normalizeEmail(email), Password: password}
	if err := Validate(req); err != nil {
		return Grant{}, err
	}

	var resp AuthResponse
	err := a.conn.JSON(ctx, http.MethodPost, "/api/auth/signin", req, &resp, func(status int) error {
		if status == http.StatusUnauthorized {
			return ErrInvalidCredentials
		}
		return nil
	})
	if err != nil {
		return Grant{}, err
	}
	return a.grant(resp)
}

// SignUp creates an account and returns its first credential pair.
func (a *Auth) SignUp(ctx context.Context, email, password, name string) (Grant, error) {
	req := SignUpRequest{Email: normalizeEmail(email), Password: password, Name: strings.TrimSpace(name)}
	if err := Validate(req); err != nil {
		return Grant{}, err
	}

	var resp AuthResponse
	if err := a.conn.JSON(ctx, http.MethodPost, "/api/auth/signup", req, &resp, nil); err != nil {
		return Grant{}, err
	}
	return a.grant(resp)
}

// Renew exchanges a refresh token for a new pair. The returned pair carries an
// empty RefreshToken when the backend did not rotate it.
func (a *Auth) Renew(ctx context.Context, refreshToken string) (credential.Pair, error) {
	req := RefreshRequest{RefreshToken: refreshToken}
	if err := Validate(req); err != nil {
		return credential.Pair{}, err
	}

	var resp RefreshResponse
	if err := a.conn.JSON(ctx, http.MethodPost, "/api/auth/refresh", req, &resp, nil); err != nil {
		return credential.Pair{}, err
	}
	if resp.AccessToken == "" {
		return credential.Pair{}, &Error{Status: http.StatusOK, Detail: "renewal response without access token", kind: ErrUnexpectedStatus}
	}

	pair := credential.Pair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if resp.ExpiresIn > 0 {
		pair.ExpiresAt = a.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	} else {
		pair.ExpiresAt = accessExpiry(resp.AccessToken)
	}
	return pair, nil
}

func (a *Auth) grant(resp AuthResponse) (Grant, error) {
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return Grant{}, &Error{Status: http.StatusOK, Detail: "auth response without tokens", kind: ErrUnexpectedStatus}
	}
	return Grant{
		User: resp.User,
		Pair: credential.Pair{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresAt:    accessExpiry(resp.AccessToken),
		},
	}, nil
}

func accessExpiry(token string) time.Time {
	exp, ok := jwt.ExpiresAt(token)
	if !ok {
		return time.Time{}
	}
	return exp
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
