package goSession

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/MrEthical07/goSession/api"
	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/gateway"
	"github.com/MrEthical07/goSession/internal/events"
	"github.com/MrEthical07/goSession/refresh"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/tasks"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Client. Configure it during initialization, call Build
// once and discard it.
type Builder struct {
	config    Config
	logger    *slog.Logger
	backend   credential.Backend
	redis     redis.UniversalClient
	transport http.RoundTripper
	renewer   refresh.Renewer
	eventSink EventSink

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL overrides Config.API.BaseURL.
func (b *Builder) WithBaseURL(baseURL string) *Builder {
	b.config.API.BaseURL = baseURL
	return b
}

// WithLogger sets the logger. Without it the logger is derived from Config.Log
// and writes to stderr.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithBackend sets the credential backend, overriding Config.Storage.
func (b *Builder) WithBackend(backend credential.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis supplies the client used by the redis storage backend. The Client
// does not close it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTransport sets the RoundTripper every backend request goes through.
func (b *Builder) WithTransport(rt http.RoundTripper) *Builder {
	b.transport = rt
	return b
}

// WithRenewer replaces the backend renewal call. Tests use it to script renewals.
func (b *Builder) WithRenewer(r refresh.Renewer) *Builder {
	b.renewer = r
	return b
}

// WithEventSink enables lifecycle events and delivers them to sink.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	if sink != nil {
		b.config.Events.Enabled = true
	}
	return b
}

// WithMetricsEnabled overrides Config.Metrics.Enabled.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms overrides Config.Metrics.EnableLatencyHistograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the credential store, session
// cell, refresh coordinator and gateway into a Client.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rotation, _ := parseRotation(cfg.Refresh.Rotation)

	logger := b.logger
	if logger == nil {
		logger = NewLogger(cfg.Log, os.Stderr)
	}

	c := &Client{
		cfg:     cfg,
		logger:  logger,
		metrics: NewMetrics(cfg.Metrics),
	}

	// -------- CREDENTIAL STORE --------
	backend, err := b.storageBackend(c)
	if err != nil {
		return nil, err
	}
	c.store = credential.NewStore(backend, logger.With(slog.String("component", "credential")))
	c.cell = session.NewCell()
	c.store.OnChange(func(present bool) {
		if present {
			return
		}
		if err := c.cell.MarkUnauthenticated(); err != nil {
			logger.Warn("session transition on credential removal rejected", slog.Any("error", err))
		}
	})

	// -------- BACKEND CLIENTS --------
	transport := b.transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	plain := &http.Client{Transport: transport, Timeout: cfg.API.Timeout}
	c.auth = api.NewAuth(cfg.API.BaseURL, plain)

	renewer := b.renewer
	if renewer == nil {
		renewer = c.auth
	}

	// -------- REFRESH COORDINATOR --------
	coord, err := refresh.New(refresh.Options{
		Store:    c.store,
		Cell:     c.cell,
		Renewer:  renewer,
		Timeout:  cfg.Refresh.Timeout,
		Rotation: rotation,
		Hooks:    c.refreshHooks(),
		Logger:   logger.With(slog.String("component", "refresh")),
	})
	if err != nil {
		c.closeOwned()
		return nil, err
	}
	c.coordinator = coord

	// -------- GATEWAY --------
	gw, err := gateway.New(gateway.Options{
		Store:     c.store,
		Refresher: coord,
		Transport: transport,
		Hooks:     c.gatewayHooks(),
		Logger:    logger.With(slog.String("component", "gateway")),
	})
	if err != nil {
		c.closeOwned()
		return nil, err
	}
	c.gateway = gw
	c.http = &http.Client{Transport: gw, Timeout: cfg.API.Timeout}
	c.account = api.NewAccount(cfg.API.BaseURL, c.http)
	c.tasks = tasks.New(cfg.API.BaseURL, c.http)

	c.events = events.NewDispatcher(events.Config{
		Enabled:    cfg.Events.Enabled,
		BufferSize: cfg.Events.BufferSize,
		DropIfFull: cfg.Events.DropIfFull,
	}, b.eventSink)

	b.built = true
	return c, nil
}

func (b *Builder) storageBackend(c *Client) (credential.Backend, error) {
	if b.backend != nil {
		return b.backend, nil
	}

	st := b.config.Storage
	switch st.Backend {
	case StorageFile:
		return credential.NewFileBackend(st.Path), nil
	case StorageRedis:
		client := b.redis
		if client == nil {
			owned := redis.NewClient(&redis.Options{
				Addr:     st.Redis.Addr,
				Password: st.Redis.Password,
				DB:       st.Redis.DB,
			})
			c.owned = append(c.owned, owned.Close)
			client = owned
		}
		return credential.NewRedisBackend(client, st.Redis.Prefix, st.Redis.Profile, st.Redis.TTL), nil
	case StorageMemory:
		return credential.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, st.Backend)
	}
}
