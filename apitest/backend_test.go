package apitest

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/tasks"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bearerDoer struct {
	token string
}

func (d *bearerDoer) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+d.token)
	return http.DefaultClient.Do(req)
}

func listAs(ctx context.Context, srv *Server, token string) error {
	_, err := tasks.New(srv.URL, &bearerDoer{token: token}).List(ctx)
	return err
}

func startServer(t *testing.T, opts Options) *Server {
	t.Helper()
	srv, err := Start(opts)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv
}

func TestSignUpSignInAndList(t *testing.T) {
	srv := startServer(t, Options{})
	auth := api.NewAuth(srv.URL, nil)
	ctx := context.Background()

	grant, err := auth.SignUp(ctx, "Alice@Example.com", "correct-horse", " Alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", grant.User.Email)
	assert.Equal(t, "Alice", grant.User.Name)
	assert.False(t, grant.Pair.ExpiresAt.IsZero(), "access expiry read from the token")

	_, err = auth.SignUp(ctx, "alice@example.com", "another-pass", "Alice 2")
	require.ErrorIs(t, err, api.ErrAccountExists)

	_, err = auth.SignIn(ctx, "alice@example.com", "wrong-password")
	require.ErrorIs(t, err, api.ErrInvalidCredentials)

	grant, err = auth.SignIn(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)

	assert.False(t, grant.User.CreatedAt.IsZero())
	require.NoError(t, listAs(ctx, srv, grant.Pair.AccessToken))
}

func TestAuthRoutesMatchBackendSurface(t *testing.T) {
	srv := startServer(t, Options{})
	_, err := srv.SeedUser("a@example.com", "password123", "A")
	require.NoError(t, err)
	grant, err := api.NewAuth(srv.URL, nil).SignIn(context.Background(), "a@example.com", "password123")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+grant.Pair.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "only signup, signin, refresh and signout live under /api/auth")
}

func TestRefreshWithoutRotationKeepsRefreshToken(t *testing.T) {
	srv := startServer(t, Options{AccessTTL: time.Minute})
	_, err := srv.SeedUser("a@example.com", "password123", "A")
	require.NoError(t, err)

	auth := api.NewAuth(srv.URL, nil)
	grant, err := auth.SignIn(context.Background(), "a@example.com", "password123")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		pair, err := auth.Renew(context.Background(), grant.Pair.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, grant.Pair.AccessToken, pair.AccessToken)
		assert.Empty(t, pair.RefreshToken)
	}
	assert.Equal(t, int64(2), srv.RefreshCalls())
}

func TestRefreshWithRotationRevokesOldToken(t *testing.T) {
	srv := startServer(t, Options{Rotate: true})
	_, err := srv.SeedUser("a@example.com", "password123", "A")
	require.NoError(t, err)

	auth := api.NewAuth(srv.URL, nil)
	grant, err := auth.SignIn(context.Background(), "a@example.com", "password123")
	require.NoError(t, err)

	pair, err := auth.Renew(context.Background(), grant.Pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, grant.Pair.RefreshToken, pair.RefreshToken)

	_, err = auth.Renew(context.Background(), grant.Pair.RefreshToken)
	require.ErrorIs(t, err, api.ErrUnauthorized, "rotated refresh token must not be reusable")

	_, err = auth.Renew(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
}

func TestKnobsExpireRevokeAndFail(t *testing.T) {
	srv := startServer(t, Options{})
	_, err := srv.SeedUser("a@example.com", "password123", "A")
	require.NoError(t, err)

	ctx := context.Background()
	auth := api.NewAuth(srv.URL, nil)
	grant, err := auth.SignIn(ctx, "a@example.com", "password123")
	require.NoError(t, err)
	srv.ExpireAccessTokens()
	err = listAs(ctx, srv, grant.Pair.AccessToken)
	require.ErrorIs(t, err, api.ErrUnauthorized)

	renewed, err := auth.Renew(ctx, grant.Pair.RefreshToken)
	require.NoError(t, err)
	require.NoError(t, listAs(ctx, srv, renewed.AccessToken))

	srv.FailRefresh(true)
	_, err = auth.Renew(ctx, grant.Pair.RefreshToken)
	require.ErrorIs(t, err, api.ErrUnauthorized)
	srv.FailRefresh(false)

	srv.RevokeRefreshTokens()
	_, err = auth.Renew(ctx, grant.Pair.RefreshToken)
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestSignOutRevokesPresentedAccessToken(t *testing.T) {
	srv := startServer(t, Options{})
	_, err := srv.SeedUser("a@example.com", "password123", "A")
	require.NoError(t, err)

	ctx := context.Background()
	grant, err := api.NewAuth(srv.URL, nil).SignIn(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	acct := api.NewAccount(srv.URL, &bearerDoer{token: grant.Pair.AccessToken})
	detail, err := acct.SignOut(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Successfully signed out", detail)

	err = listAs(ctx, srv, grant.Pair.AccessToken)
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestGuardRejectsMissingAndRefreshTokens(t *testing.T) {
	srv := startServer(t, Options{})
	_, err := srv.SeedUser("a@example.com", "password123", "A")
	require.NoError(t, err)

	grant, err := api.NewAuth(srv.URL, nil).SignIn(context.Background(), "a@example.com", "password123")
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/tasks")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))

	err = listAs(context.Background(), srv, grant.Pair.RefreshToken)
	require.ErrorIs(t, err, api.ErrUnauthorized, "refresh token must not authorize requests")
}

func TestMalformedBodyAndValidation(t *testing.T) {
	srv := startServer(t, Options{})

	resp, err := http.Post(srv.URL+"/api/auth/signup", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/auth/signup", "application/json",
		strings.NewReader(`{"email":"nope","password":"x","name":""}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRefreshDelay(t *testing.T) {
	srv := startServer(t, Options{})
	_, err := srv.SeedUser("a@example.com", "password123", "A")
	require.NoError(t, err)

	auth := api.NewAuth(srv.URL, nil)
	grant, err := auth.SignIn(context.Background(), "a@example.com", "password123")
	require.NoError(t, err)

	srv.SetRefreshDelay(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = auth.Renew(ctx, grant.Pair.RefreshToken)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSignInThrottle(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv := startServer(t, Options{Limiter: rdb, MaxSignInAttempts: 2, SignInCooldown: time.Minute})
	_, err := srv.SeedUser("a@example.com", "password123", "A")
	require.NoError(t, err)
	auth := api.NewAuth(srv.URL, nil)
	ctx := context.Background()

	// A success resets the counter.
	_, err = auth.SignIn(ctx, "a@example.com", "wrong-password")
	require.ErrorIs(t, err, api.ErrInvalidCredentials)
	_, err = auth.SignIn(ctx, "a@example.com", "password123")
	require.NoError(t, err)

	for range 2 {
		_, err = auth.SignIn(ctx, "A@example.com", "wrong-password")
		require.ErrorIs(t, err, api.ErrInvalidCredentials)
	}
	_, err = auth.SignIn(ctx, "a@example.com", "password123")
	require.ErrorIs(t, err, api.ErrRateLimited)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)

	mr.FastForward(2 * time.Minute)
	_, err = auth.SignIn(ctx, "a@example.com", "password123")
	require.NoError(t, err)
}
