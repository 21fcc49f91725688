package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/goSession/credential"
)

var (
	// ErrUnauthenticated is the terminal error for a request the backend refused
	// to authorize even after renewal, or that was sent without credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("gateway: missing dependency")
)

// Refresher produces a renewed credential pair.
type Refresher interface {
	Fresh(ctx context.Context) (credential.Pair, error)
}

// Hooks receive per-request notifications. Any field may be nil.
type Hooks struct {
	OnAttach          func()
	OnAuthFailure     func()
	OnRetry           func()
	OnUnauthenticated func()
}

// Options configures a Gateway.
type Options struct {
	Store     *credential.Store
	Refresher Refresher
	// Transport executes requests. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
	Hooks     Hooks
	Logger    *slog.Logger
}

// Gateway attaches credentials and enforces the retry-once protocol.
// It implements http.RoundTripper.
type Gateway struct {
	store     *credential.Store
	refresher Refresher
	transport http.RoundTripper
	hooks     Hooks
	logger    *slog.Logger
}

// New validates opts and returns a Gateway.
func New(opts Options) (*Gateway, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	}
	if opts.Refresher == nil {
		return nil, fmt.Errorf("%w: refresher", ErrMissingDependency)
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Gateway{
		store:     opts.Store,
		refresher: opts.Refresher,
		transport: transport,
		hooks:     opts.Hooks,
		logger:    logger,
	}, nil
}

// Client returns an *http.Client whose transport is g.
func (g *Gateway) Client() *http.Client {
	return &http.Client{Transport: g}
}

// RoundTrip implements http.RoundTripper. The caller's request is not modified.
func (g *Gateway) RoundTrip(req *http.Request) (*http.Response, error) {
	return g.Do(req)
}

// Do sends req through the attach-authenticate-retry protocol.
func (g *Gateway) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	sent, attached := g.store.Get()
	resp, err := g.send(req, getBody, sent.AccessToken, attached)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	discard(resp)
	g.fire(g.hooks.OnAuthFailure)

	if !attached {
		g.fire(g.hooks.OnUnauthenticated)
		return nil, fmt.Errorf("%w: %s %s sent without credentials", ErrUnauthenticated, req.Method, req.URL.Path)
	}

	token, err := g.renewedToken(ctx, sent.AccessToken)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		g.fire(g.hooks.OnUnauthenticated)
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	g.fire(g.hooks.OnRetry)
	resp, err = g.send(req, getBody, token, true)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		discard(resp)
		g.fire(g.hooks.OnUnauthenticated)
		g.logger.WarnContext(ctx, "request rejected after renewal",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
		)
		return nil, fmt.Errorf("%w: %s %s rejected after renewal", ErrUnauthenticated, req.Method, req.URL.Path)
	}
	return resp, nil
}

// renewedToken returns the token to retry with. A token already replaced by a
// concurrent renewal is reused without another round trip to the coordinator.
func (g *Gateway) renewedToken(ctx context.Context, sent string) (string, error) {
	current, ok := g.store.Get()
	if !ok {
		return "", errors.New("session ended while request was in flight")
	}
	if current.AccessToken != sent {
		return current.AccessToken, nil
	}
	pair, err := g.refresher.Fresh(ctx)
	if err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

func (g *Gateway) send(orig *http.Request, getBody func() (io.ReadCloser, error), token string, attach bool) (*http.Response, error) {
	req := orig.Clone(orig.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, err
		}
		req.Body = body
		req.GetBody = getBody
	}
	if attach {
		req.Header.Set("Authorization", "Bearer "+token)
		g.fire(g.hooks.OnAttach)
	}
	return g.transport.RoundTrip(req)
}

func (g *Gateway) fire(hook func()) {
	if hook != nil {
		hook()
	}
}

// replayableBody returns a function producing fresh copies of the request body,
// buffering it when the request cannot replay it itself.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		_ = req.Body.Close()
		return req.GetBody, nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("gateway: buffer request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
