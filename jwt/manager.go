package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

// MethodHS256 signs with a shared secret. It is the only method the task
// backend uses.
const MethodHS256 SigningMethod = "hs256"

// TokenType distinguishes access tokens from refresh tokens signed by the same key.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

var (
	// ErrWrongTokenType is returned when a refresh token is presented as an access token or vice versa.
	ErrWrongTokenType = errors.New("jwt: wrong token type")
	// ErrMissingUser is returned when a token carries no user id.
	ErrMissingUser = errors.New("jwt: token payload has no user id")
)

// Config configures a Manager.
//
// Config is expected to be built once and treated as immutable afterwards.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	Secret        []byte
	Issuer        string
	Leeway        time.Duration
	KeyID         string
}

// Manager issues and verifies access and refresh tokens.
//
// A Manager is safe for concurrent use.
type Manager struct {
	config Config
}

// Claims is the token payload: the owning user, the token type and the
// registered claims (exp, iat, iss, jti).
type Claims struct {
	UserID int64     `json:"user_id"`
	Type   TokenType `json:"type"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid access TTL configuration")
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.RefreshTTL < 0 {
		return nil, errors.New("invalid refresh TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	if cfg.SigningMethod != MethodHS256 {
		return nil, errors.New("unsupported signing method")
	}
	if len(cfg.Secret) < 32 {
		return nil, errors.New("hs256 requires a secret of at least 32 bytes")
	}

	return &Manager{config: cfg}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (j *Manager) AccessTTL() time.Duration { return j.config.AccessTTL }

// CreateAccess issues an access token for userID and returns it with its expiry.
// jti may be empty; a unique jti keeps two tokens issued within one second distinct.
func (j *Manager) CreateAccess(userID int64, jti string) (string, time.Time, error) {
	return j.create(userID, TypeAccess, j.config.AccessTTL, jti)
}

// CreateRefresh issues a refresh token for userID. jti identifies the token so
// the issuer can revoke or rotate it.
func (j *Manager) CreateRefresh(userID int64, jti string) (string, time.Time, error) {
	return j.create(userID, TypeRefresh, j.config.RefreshTTL, jti)
}

func (j *Manager) create(userID int64, typ TokenType, ttl time.Duration, jti string) (string, time.Time, error) {
	if userID <= 0 {
		return "", time.Time{}, ErrMissingUser
	}
	now := time.Now()
	exp := now.Add(ttl)

	claims := Claims{
		UserID: userID,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}

	signed, err := token.SignedString(j.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies tokenStr and checks that it is of type want.
func (j *Manager) Parse(tokenStr string, want TokenType) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if j.config.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid != j.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return j.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Type != want {
		return nil, ErrWrongTokenType
	}
	if claims.UserID <= 0 {
		return nil, ErrMissingUser
	}
	return claims, nil
}

// ExpiresAt reads the exp claim of tokenStr without verifying the signature.
// Clients use it to learn when an opaque-to-them access token expires; it must
// never be used to make an authorization decision.
func ExpiresAt(tokenStr string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
