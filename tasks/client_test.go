package tasks_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/apitest"
	"github.com/MrEthical07/goSession/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bearerDoer struct {
	token string
	calls atomic.Int32
}

func (d *bearerDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls.Add(1)
	req.Header.Set("Authorization", "Bearer "+d.token)
	return http.DefaultClient.Do(req)
}

func signedInClient(t *testing.T, srv *apitest.Server, email string) (*tasks.Client, *bearerDoer) {
	t.Helper()
	_, err := srv.SeedUser(email, "password123", "User")
	require.NoError(t, err)
	grant, err := api.NewAuth(srv.URL, nil).SignIn(context.Background(), email, "password123")
	require.NoError(t, err)
	doer := &bearerDoer{token: grant.Pair.AccessToken}
	return tasks.New(srv.URL, doer), doer
}

func strPtr(s string) *string { return &s }

func TestTaskLifecycle(t *testing.T) {
	srv, err := apitest.Start(apitest.Options{})
	require.NoError(t, err)
	defer srv.Close()

	c, _ := signedInClient(t, srv, "a@example.com")
	ctx := context.Background()

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	created, err := c.Create(ctx, tasks.Input{Title: "  write tests ", Description: strPtr("   ")})
	require.NoError(t, err)
	assert.Equal(t, "write tests", created.Title)
	assert.Nil(t, created.Description, "blank description is sent as absent")
	assert.False(t, created.Completed)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	updated, err := c.Update(ctx, created.ID, tasks.Input{Title: "write more tests", Description: strPtr("all of them")})
	require.NoError(t, err)
	assert.Equal(t, "write more tests", updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "all of them", *updated.Description)

	toggled, err := c.Toggle(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	toggled, err = c.Toggle(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Completed)

	require.NoError(t, c.Delete(ctx, created.ID))
	_, err = c.Get(ctx, created.ID)
	require.ErrorIs(t, err, api.ErrNotFound)
}

func TestTasksAreIsolatedPerUser(t *testing.T) {
	srv, err := apitest.Start(apitest.Options{})
	require.NoError(t, err)
	defer srv.Close()

	alice, _ := signedInClient(t, srv, "alice@example.com")
	bob, _ := signedInClient(t, srv, "bob@example.com")
	ctx := context.Background()

	task, err := alice.Create(ctx, tasks.Input{Title: "private"})
	require.NoError(t, err)

	_, err = bob.Get(ctx, task.ID)
	require.ErrorIs(t, err, api.ErrNotFound)
	_, err = bob.Toggle(ctx, task.ID)
	require.ErrorIs(t, err, api.ErrNotFound)
	require.ErrorIs(t, bob.Delete(ctx, task.ID), api.ErrNotFound)

	list, err := bob.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = alice.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "private", list[0].Title)
}

func TestValidationFailsBeforeNetwork(t *testing.T) {
	srv, err := apitest.Start(apitest.Options{})
	require.NoError(t, err)
	defer srv.Close()

	c, doer := signedInClient(t, srv, "a@example.com")
	ctx := context.Background()
	before := doer.calls.Load()

	_, err = c.Create(ctx, tasks.Input{Title: "   "})
	require.ErrorIs(t, err, api.ErrValidation)

	_, err = c.Create(ctx, tasks.Input{Title: strings.Repeat("x", 201)})
	require.ErrorIs(t, err, api.ErrValidation)

	_, err = c.Update(ctx, 1, tasks.Input{Title: "ok", Description: strPtr(strings.Repeat("d", 2001))})
	require.ErrorIs(t, err, api.ErrValidation)

	assert.Equal(t, before, doer.calls.Load())
}

func TestUnauthenticatedRequestSurfacesUnauthorized(t *testing.T) {
	srv, err := apitest.Start(apitest.Options{})
	require.NoError(t, err)
	defer srv.Close()

	_, err = tasks.New(srv.URL, &bearerDoer{token: "garbage"}).List(context.Background())
	require.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestTaskUnmarshalZonelessTimestamps(t *testing.T) {
	raw := `{"id":3,"title":"t","description":null,"completed":true,"user_id":9,
		"created_at":"2025-03-01T10:00:00.123456","updated_at":"2025-03-01 11:00:00"}`
	var task tasks.Task
	require.NoError(t, json.Unmarshal([]byte(raw), &task))
	assert.Equal(t, int64(3), task.ID)
	assert.True(t, task.Completed)
	assert.Nil(t, task.Description)
	assert.True(t, task.CreatedAt.Equal(time.Date(2025, 3, 1, 10, 0, 0, 123456000, time.UTC)))
	assert.True(t, task.UpdatedAt.Equal(time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)))
}
