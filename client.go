package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/internal/events"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/tasks"
)

// Client is the session manager a UI talks to. It is safe for concurrent use.
type Client struct {
	cfg    Config
	logger *slog.Logger

	store       *credential.Store
	cell        *session.Cell
	coordinator *refresh.Coordinator
	gateway     *gateway.Gateway
	http        *http.Client

	auth    *api.Auth
	account *api.Account
	tasks   *tasks.Client

	metrics *Metrics
	events  *events.Dispatcher
	owned   []func() error
}

// SignIn exchanges email and password for a credential pair, stores it and
// moves the session to Authenticated. Input is validated before any request
// is sent.
func (c *Client) SignIn(ctx context.Context, email, password string) (session.User, error) {
	grant, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		c.metrics.Inc(MetricSignInFailure)
		c.emit(ctx, events.Event{Type: events.TypeSignedIn, Error: errorText(err)})
		return session.User{}, err
	}
	if err := c.establish(ctx, grant); err != nil {
		return session.User{}, err
	}
	c.metrics.Inc(MetricSignInSuccess)
	c.emit(ctx, events.Event{Type: events.TypeSignedIn, UserID: grant.User.ID, Success: true})
	c.logger.InfoContext(ctx, "signed in", slog.Int64("user_id", grant.User.ID))
	return grant.User, nil
}

// SignUp creates an account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (session.User, error) {
	grant, err := c.auth.SignUp(ctx, email, password, name)
	if err != nil {
		c.metrics.Inc(MetricSignUpFailure)
		c.emit(ctx, events.Event{Type: events.TypeSignedUp, Error: errorText(err)})
		return session.User{}, err
	}
	if err := c.establish(ctx, grant); err != nil {
		return session.User{}, err
	}
	c.metrics.Inc(MetricSignUpSuccess)
	c.emit(ctx, events.Event{Type: events.TypeSignedUp, UserID: grant.User.ID, Success: true})
	c.logger.InfoContext(ctx, "signed up", slog.Int64("user_id", grant.User.ID))
	return grant.User, nil
}

func (c *Client) establish(ctx context.Context, grant api.Grant) error {
	user := grant.User
	pair := grant.Pair
	pair.User = &user
	c.store.Set(context.WithoutCancel(ctx), pair)
	if err := c.cell.MarkAuthenticated(&user); err != nil {
		return fmt.Errorf("session transition: %w", err)
	}
	return nil
}

// SignOut ends the session. The backend is told on a best-effort basis; its
// failure is logged and never prevents the local sign-out. Calling SignOut
// while signed out does nothing.
func (c *Client) SignOut(ctx context.Context) {
	_, present := c.store.Get()
	user := c.cell.Snapshot().User

	if present {
		if _, err := c.account.SignOut(ctx); err != nil {
			c.logger.WarnContext(ctx, "backend sign-out failed", slog.Any("error", err))
		}
	}

	c.store.Clear(context.WithoutCancel(ctx))
	if err := c.cell.MarkUnauthenticated(); err != nil {
		c.logger.WarnContext(ctx, "session transition on sign-out rejected", slog.Any("error", err))
	}

	if present {
		ev := events.Event{Type: events.TypeSignedOut, Success: true}
		if user != nil {
			ev.UserID = user.ID
		}
		c.metrics.Inc(MetricSignOut)
		c.emit(ctx, ev)
		c.logger.InfoContext(ctx, "signed out")
	}
}

// Restore resolves the session at startup. It loads the persisted credential
// pair and user summary, then checks the pair against the backend by listing
// tasks through the gateway, renewing it if needed.
//
// Without a persisted pair, or when the backend rejects it, the session becomes
// Unauthenticated and the returned error is nil. When the backend cannot be
// reached the session also becomes Unauthenticated and the error is returned;
// the pair is dropped from memory but stays persisted for the next start.
// Restore only acts while the session is Initializing. Later calls return the
// current state.
func (c *Client) Restore(ctx context.Context) (session.State, error) {
	if st := c.cell.Snapshot(); st.Status != session.StatusInitializing {
		return st, nil
	}

	found, err := c.store.Load(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "credential storage unavailable", slog.Any("error", err))
		c.resolveSignedOut(ctx)
		c.metrics.Inc(MetricRestoreFailure)
		return c.cell.Snapshot(), fmt.Errorf("load credential: %w", err)
	}
	if !found {
		c.resolveSignedOut(ctx)
		return c.cell.Snapshot(), nil
	}
	if pair, _ := c.store.Get(); pair.User == nil {
		c.store.Clear(context.WithoutCancel(ctx))
		c.resolveSignedOut(ctx)
		c.metrics.Inc(MetricRestoreFailure)
		c.logger.InfoContext(ctx, "persisted credential has no user summary, discarded")
		return c.cell.Snapshot(), nil
	}

	_, err = c.tasks.List(ctx)
	switch {
	case err == nil:
		pair, ok := c.store.Get()
		if !ok || pair.User == nil {
			c.resolveSignedOut(ctx)
			c.metrics.Inc(MetricRestoreFailure)
			return c.cell.Snapshot(), nil
		}
		if err := c.cell.MarkAuthenticated(pair.User); err != nil {
			return c.cell.Snapshot(), fmt.Errorf("session transition: %w", err)
		}
		c.metrics.Inc(MetricRestoreSuccess)
		c.emit(ctx, events.Event{Type: events.TypeRestored, UserID: pair.User.ID, Success: true})
		c.logger.InfoContext(ctx, "session restored", slog.Int64("user_id", pair.User.ID))
		return c.cell.Snapshot(), nil

	case errors.Is(err, ErrUnauthenticated), errors.Is(err, api.ErrUnauthorized):
		c.store.Clear(context.WithoutCancel(ctx))
		c.resolveSignedOut(ctx)
		c.metrics.Inc(MetricRestoreFailure)
		c.emit(ctx, events.Event{Type: events.TypeRestored, Error: errorText(err)})
		c.logger.InfoContext(ctx, "persisted session rejected", slog.Any("error", err))
		return c.cell.Snapshot(), nil

	default:
		c.store.Unload(context.WithoutCancel(ctx))
		c.resolveSignedOut(ctx)
		c.metrics.Inc(MetricRestoreFailure)
		c.emit(ctx, events.Event{Type: events.TypeRestored, Error: errorText(err)})
		c.logger.WarnContext(ctx, "session restore failed, credential kept on disk", slog.Any("error", err))
		return c.cell.Snapshot(), fmt.Errorf("restore session: %w", err)
	}
}

func (c *Client) resolveSignedOut(ctx context.Context) {
	if err := c.cell.MarkUnauthenticated(); err != nil {
		c.logger.WarnContext(ctx, "session transition rejected", slog.Any("error", err))
	}
}

// Send executes req through the gateway: the current credential is attached
// and a 401 triggers one renewal and one retry. It returns ErrUnauthenticated
// when the request cannot be authorized.
func (c *Client) Send(req *http.Request) (*http.Response, error) {
	return c.gateway.Do(req)
}

// HTTPClient returns an *http.Client whose transport is the gateway.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Tasks returns the task API client bound to this session.
func (c *Client) Tasks() *tasks.Client { return c.tasks }

// State returns the current session state.
func (c *Client) State() session.State { return c.cell.Snapshot() }

// Subscribe delivers the current state and then every change. Slow readers
// only see the latest state. Call cancel to stop.
func (c *Client) Subscribe() (<-chan session.State, func()) { return c.cell.Subscribe() }

// WaitResolved blocks until the session leaves Initializing.
func (c *Client) WaitResolved(ctx context.Context) (session.State, error) {
	return c.cell.WaitResolved(ctx)
}

// Credential returns the stored pair. UI code should not need it.
func (c *Client) Credential() (credential.Pair, bool) { return c.store.Get() }

// RenewalInFlight reports whether a credential renewal is running.
func (c *Client) RenewalInFlight() bool { return c.coordinator.InFlight() }

// MetricsSnapshot returns a copy of the lifecycle counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot { return c.metrics.Snapshot() }

// EventsDropped returns how many events were dropped because the buffer was full.
func (c *Client) EventsDropped() uint64 { return c.events.Dropped() }

// Close flushes pending events and releases resources the Client created.
// It does not sign out.
func (c *Client) Close() error {
	c.events.Close()
	return c.closeOwned()
}

func (c *Client) closeOwned() error {
	var errs []error
	for _, closeFn := range c.owned {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	c.owned = nil
	return errors.Join(errs...)
}

func (c *Client) emit(ctx context.Context, ev events.Event) {
	c.events.Emit(context.WithoutCancel(ctx), ev)
}

func (c *Client) currentUserID() int64 {
	if u := c.cell.Snapshot().User; u != nil {
		return u.ID
	}
	return 0
}

func (c *Client) refreshHooks() refresh.Hooks {
	return refresh.Hooks{
		OnStart: func() { c.metrics.Inc(MetricRenewalStarted) },
		OnJoin:  func() { c.metrics.Inc(MetricRenewalJoined) },
		OnSuccess: func(elapsed time.Duration) {
			c.metrics.Inc(MetricRenewalSuccess)
			c.metrics.Observe(MetricRenewalLatency, elapsed)
			c.emit(context.Background(), events.Event{
				Type:     events.TypeRenewed,
				UserID:   c.currentUserID(),
				Success:  true,
				Metadata: map[string]string{"elapsed": elapsed.String()},
			})
		},
		OnFailure: func(elapsed time.Duration, err error) {
			c.metrics.Inc(MetricRenewalFailure)
			if errors.Is(err, context.DeadlineExceeded) {
				c.metrics.Inc(MetricRenewalTimeout)
			}
			c.metrics.Observe(MetricRenewalLatency, elapsed)
			c.emit(context.Background(), events.Event{
				Type:     events.TypeRenewalFailed,
				Error:    errorText(err),
				Metadata: map[string]string{"elapsed": elapsed.String()},
			})
		},
	}
}

func (c *Client) gatewayHooks() gateway.Hooks {
	return gateway.Hooks{
		OnAttach:          func() { c.metrics.Inc(MetricCredentialAttached) },
		OnAuthFailure:     func() { c.metrics.Inc(MetricAuthFailure) },
		OnRetry:           func() { c.metrics.Inc(MetricRequestRetried) },
		OnUnauthenticated: func() { c.metrics.Inc(MetricUnauthenticated) },
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Config returns the configuration the Client was built with.
func (c *Client) Config() Config { return c.cfg }
