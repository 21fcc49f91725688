package apitest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
)

func (b *Backend) signupHandler(w http.ResponseWriter, r *http.Request) {
	var req api.SignUpRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := api.Validate(req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	user, err := b.createUser(req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, errEmailTaken) {
			writeDetail(w, http.StatusConflict, "Email already registered")
			return
		}
		writeDetail(w, http.StatusInternalServerError, "could not create user")
		return
	}
	b.logger.InfoContext(r.Context(), "user signed up", slog.Int64("user_id", user.ID))
	b.writeGrant(w, r, http.StatusCreated, user.ID)
}

func (b *Backend) signinHandler(w http.ResponseWriter, r *http.Request) {
	var req api.SignInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if b.limiter != nil {
		if err := b.limiter.Check(r.Context(), email, ""); err != nil {
			b.writeThrottle(w, err)
			return
		}
	}

	user, ok := b.authenticate(req.Email, req.Password)
	if !ok {
		if b.limiter != nil {
			if err := b.limiter.Fail(r.Context(), email, ""); err != nil && !errors.Is(err, rate.ErrRateLimited) {
				b.logger.WarnContext(r.Context(), "sign-in limiter unavailable", slog.Any("error", err))
			}
		}
		writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if b.limiter != nil {
		if err := b.limiter.Reset(r.Context(), email); err != nil {
			b.logger.WarnContext(r.Context(), "sign-in limiter unavailable", slog.Any("error", err))
		}
	}
	b.logger.InfoContext(r.Context(), "user signed in", slog.Int64("user_id", user.ID))
	b.writeGrant(w, r, http.StatusOK, user.ID)
}

func (b *Backend) writeThrottle(w http.ResponseWriter, err error) {
	if errors.Is(err, rate.ErrRateLimited) {
		w.Header().Set("Retry-After", strconv.Itoa(int(b.limiterCooldown().Seconds())))
		writeDetail(w, http.StatusTooManyRequests, "Too many sign-in attempts")
		return
	}
	writeDetail(w, http.StatusServiceUnavailable, "sign-in temporarily unavailable")
}

func (b *Backend) limiterCooldown() time.Duration {
	if b.opts.SignInCooldown > 0 {
		return b.opts.SignInCooldown
	}
	return 15 * time.Minute
}

func (b *Backend) writeGrant(w http.ResponseWriter, r *http.Request, status int, userID int64) {
	user, _ := b.lookupUser(userID)
	access, err := b.issueAccess(userID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	refresh, err := b.issueRefresh(userID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, status, api.AuthResponse{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	})
}

func (b *Backend) refreshHandler(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)

	if d := time.Duration(b.refreshDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}

	var req api.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if b.failRefresh.Load() {
		writeDetail(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	claims, err := b.tokens.Parse(req.RefreshToken, jwt.TypeRefresh)
	if err != nil || !b.refreshLive(claims.ID) {
		writeDetail(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}
	if _, ok := b.lookupUser(claims.UserID); !ok {
		writeDetail(w, http.StatusUnauthorized, "Invalid token payload")
		return
	}

	access, err := b.issueAccess(claims.UserID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	resp := api.RefreshResponse{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int64(b.opts.AccessTTL / time.Second),
	}
	if b.opts.Rotate {
		b.consumeRefresh(claims.ID)
		next, err := b.issueRefresh(claims.UserID)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, "could not issue token")
			return
		}
		if !b.omitRefreshed.Load() {
			resp.RefreshToken = next
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (b *Backend) signoutHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	b.revokeAccess(p.token)
	writeJSON(w, http.StatusOK, api.MessageResponse{Detail: "Successfully signed out"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed JSON")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
