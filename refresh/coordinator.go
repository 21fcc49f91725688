package refresh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/session"
)

var (
	// ErrRenewalFailed wraps every renewal failure delivered to waiters.
	ErrRenewalFailed = errors.New("credential renewal failed")
	// ErrNoRefreshToken is returned when the store holds nothing to renew with.
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrSessionChanged is returned when the store was modified while the renewal
	// was in flight. The renewal result is discarded.
	ErrSessionChanged = errors.New("session changed during renewal")
	// ErrRotationRequired is returned under RotationRequired when the backend
	// did not issue a new refresh token.
	ErrRotationRequired = errors.New("renewal response carried no refresh token")
	// ErrInvalidResponse is returned when the backend answered without an access token.
	ErrInvalidResponse = errors.New("renewal response carried no access token")
	// ErrSignedOut is returned when renewal is asked for while the session is
	// Unauthenticated. The store is left untouched.
	ErrSignedOut = errors.New("session is signed out")
	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("refresh: missing dependency")
)

// DefaultTimeout bounds one renewal when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Renewer exchanges a refresh token for a new credential pair.
type Renewer interface {
	Renew(ctx context.Context, refreshToken string) (credential.Pair, error)
}

// RenewerFunc adapts a function to [Renewer].
type RenewerFunc func(ctx context.Context, refreshToken string) (credential.Pair, error)

// Renew calls f.
func (f RenewerFunc) Renew(ctx context.Context, refreshToken string) (credential.Pair, error) {
	return f(ctx, refreshToken)
}

// Rotation decides what happens when a renewal response omits the refresh token.
type Rotation uint8

const (
	// RotationOptional keeps the previous refresh token.
	RotationOptional Rotation = iota
	// RotationRequired treats the response as a renewal failure.
	RotationRequired
)

func (r Rotation) String() string {
	switch r {
	case RotationOptional:
		return "optional"
	case RotationRequired:
		return "required"
	default:
		return "unknown"
	}
}

// Hooks receive lifecycle notifications. Any field may be nil. Hooks run on the
// renewal goroutine (OnStart, OnSuccess, OnFailure) or the joining caller
// (OnJoin) and must not block.
type Hooks struct {
	OnStart   func()
	OnJoin    func()
	OnSuccess func(elapsed time.Duration)
	OnFailure func(elapsed time.Duration, err error)
}

// Options configures a Coordinator.
type Options struct {
	Store    *credential.Store
	Cell     *session.Cell
	Renewer  Renewer
	Timeout  time.Duration
	Rotation Rotation
	Hooks    Hooks
	Logger   *slog.Logger
}

type flight struct {
	done chan struct{}
	pair credential.Pair
	err  error
}

// Coordinator single-flights credential renewal.
type Coordinator struct {
	store    *credential.Store
	cell     *session.Cell
	renewer  Renewer
	timeout  time.Duration
	rotation Rotation
	hooks    Hooks
	logger   *slog.Logger

	mu       sync.Mutex
	inflight *flight
}

// New validates opts and returns a Coordinator.
func New(opts Options) (*Coordinator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	}
	if opts.Cell == nil {
		return nil, fmt.Errorf("%w: session cell", ErrMissingDependency)
	}
	if opts.Renewer == nil {
		return nil, fmt.Errorf("%w: renewer", ErrMissingDependency)
	}
	if opts.Timeout < 0 {
		return nil, errors.New("refresh: timeout must be >= 0")
	}
	if opts.Rotation != RotationOptional && opts.Rotation != RotationRequired {
		return nil, fmt.Errorf("refresh: unknown rotation policy %d", opts.Rotation)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Coordinator{
		store:    opts.Store,
		cell:     opts.Cell,
		renewer:  opts.Renewer,
		timeout:  timeout,
		rotation: opts.Rotation,
		hooks:    opts.Hooks,
		logger:   logger,
	}, nil
}

// Fresh returns a renewed credential pair. If a renewal is already in flight the
// caller waits for it instead of starting another. Cancelling ctx stops this
// caller from waiting; the renewal itself continues for the other waiters.
func (c *Coordinator) Fresh(ctx context.Context) (credential.Pair, error) {
	c.mu.Lock()
	f := c.inflight
	joined := f != nil
	if !joined {
		f = &flight{done: make(chan struct{})}
		c.inflight = f
	}
	c.mu.Unlock()

	if joined {
		if c.hooks.OnJoin != nil {
			c.hooks.OnJoin()
		}
	} else {
		go c.run(f)
	}

	select {
	case <-f.done:
		return f.pair, f.err
	case <-ctx.Done():
		return credential.Pair{}, ctx.Err()
	}
}

// InFlight reports whether a renewal is currently running.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight != nil
}

func (c *Coordinator) run(f *flight) {
	if c.hooks.OnStart != nil {
		c.hooks.OnStart()
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	pair, err := c.renew(ctx)
	cancel()

	elapsed := time.Since(start)
	if err != nil {
		if c.hooks.OnFailure != nil {
			c.hooks.OnFailure(elapsed, err)
		}
	} else if c.hooks.OnSuccess != nil {
		c.hooks.OnSuccess(elapsed)
	}

	c.mu.Lock()
	f.pair, f.err = pair, err
	c.inflight = nil
	close(f.done)
	c.mu.Unlock()
}

func (c *Coordinator) renew(ctx context.Context) (credential.Pair, error) {
	if c.cell.Snapshot().Status == session.StatusUnauthenticated {
		return credential.Pair{}, fmt.Errorf("%w: %w", ErrRenewalFailed, ErrSignedOut)
	}

	old, gen, ok := c.store.Snapshot()
	if !ok || !old.CanRenew() {
		return credential.Pair{}, c.fail(ctx, gen, ErrNoRefreshToken)
	}

	next, err := c.call(ctx, old.RefreshToken)
	if err != nil {
		return credential.Pair{}, c.fail(ctx, gen, err)
	}
	if next.AccessToken == "" {
		return credential.Pair{}, c.fail(ctx, gen, ErrInvalidResponse)
	}
	if next.RefreshToken == "" {
		if c.rotation == RotationRequired {
			return credential.Pair{}, c.fail(ctx, gen, ErrRotationRequired)
		}
		next.RefreshToken = old.RefreshToken
	}
	if next.User == nil {
		next.User = old.User
	}

	storeCtx := context.WithoutCancel(ctx)
	if !c.store.CompareAndSet(storeCtx, gen, next) {
		c.logger.InfoContext(ctx, "renewal result discarded, session changed")
		return credential.Pair{}, fmt.Errorf("%w: %w", ErrRenewalFailed, ErrSessionChanged)
	}
	// While Initializing the caller resolving the session marks it.
	if c.cell.Snapshot().Status == session.StatusAuthenticated {
		if err := c.cell.MarkAuthenticated(nil); err != nil {
			c.logger.WarnContext(ctx, "session transition after renewal rejected", slog.Any("error", err))
		}
	}

	c.logger.InfoContext(ctx, "credential renewed",
		slog.Bool("rotated", next.RefreshToken != old.RefreshToken),
		slog.Time("expires_at", next.ExpiresAt),
	)
	return next, nil
}

// call runs the Renewer and enforces the deadline even if it ignores ctx.
func (c *Coordinator) call(ctx context.Context, refreshToken string) (credential.Pair, error) {
	type result struct {
		pair credential.Pair
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		pair, err := c.renewer.Renew(ctx, refreshToken)
		ch <- result{pair: pair, err: err}
	}()

	select {
	case r := <-ch:
		if r.err == nil && ctx.Err() != nil {
			return credential.Pair{}, ctx.Err()
		}
		return r.pair, r.err
	case <-ctx.Done():
		return credential.Pair{}, ctx.Err()
	}
}

// fail forces the sign-out unless the store moved on while the renewal ran.
func (c *Coordinator) fail(ctx context.Context, gen uint64, cause error) error {
	storeCtx := context.WithoutCancel(ctx)
	if c.store.CompareAndClear(storeCtx, gen) {
		if err := c.cell.MarkUnauthenticated(); err != nil {
			c.logger.WarnContext(ctx, "session transition after failed renewal rejected", slog.Any("error", err))
		}
		c.logger.WarnContext(ctx, "credential renewal failed, signed out", slog.Any("error", cause))
	} else {
		c.logger.InfoContext(ctx, "credential renewal failed after session changed", slog.Any("error", cause))
	}
	return fmt.Errorf("%w: %w", ErrRenewalFailed, cause)
}
