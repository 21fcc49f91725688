package apitest

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/goSession/jwt"
)

type principalContextKey struct{}

type principal struct {
	userID int64
	token  string
}

func principalFromContext(ctx context.Context) (principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(principal)
	return p, ok
}

// guard rejects requests without a live access token with 401 and the
// WWW-Authenticate challenge the backend sends.
func (b *Backend) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			unauthorized(w, "Not authenticated")
			return
		}

		claims, err := b.tokens.Parse(token, jwt.TypeAccess)
		if err != nil || b.accessRevoked(token) {
			unauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), principalContextKey{}, principal{userID: claims.UserID, token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detail)
}
