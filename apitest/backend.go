package apitest

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Options configures a Backend.
type Options struct {
	// AccessTTL is the access-token lifetime. Default 15m.
	AccessTTL time.Duration
	// RefreshTTL is the refresh-token lifetime. Default 7 days.
	RefreshTTL time.Duration
	// Rotate issues a new refresh token on every renewal and revokes the old one.
	Rotate bool
	// Secret signs tokens. A random secret is generated when empty.
	Secret []byte
	// BcryptCost defaults to bcrypt.MinCost to keep tests fast.
	BcryptCost int
	// Limiter enables sign-in throttling backed by this Redis client. Failed
	// sign-ins beyond MaxSignInAttempts within SignInCooldown answer 429.
	Limiter           redis.UniversalClient
	MaxSignInAttempts int
	SignInCooldown    time.Duration
	Logger            *slog.Logger
}

type userRecord struct {
	user session.User
	hash []byte
}

type taskRecord struct {
	id          int64
	userID      int64
	title       string
	description *string
	completed   bool
	createdAt   time.Time
	updatedAt   time.Time
}

// Backend is the in-memory task backend. It implements http.Handler.
type Backend struct {
	opts    Options
	tokens  *jwt.Manager
	limiter *rate.Limiter
	logger  *slog.Logger
	mux     *http.ServeMux

	mu         sync.Mutex
	usersByID  map[int64]*userRecord
	idByEmail  map[string]int64
	tasks      map[int64]*taskRecord
	nextUserID int64
	nextTaskID int64

	liveAccess    map[string]struct{}
	revokedAccess map[string]struct{}
	liveRefresh   map[string]struct{}

	refreshCalls  atomic.Int64
	failRefresh   atomic.Bool
	refreshDelay  atomic.Int64
	omitRefreshed atomic.Bool
}

// New returns a Backend.
func New(opts Options) (*Backend, error) {
	if opts.AccessTTL == 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL == 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.MinCost
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte(uuid.NewString() + uuid.NewString())
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     opts.AccessTTL,
		RefreshTTL:    opts.RefreshTTL,
		SigningMethod: jwt.MethodHS256,
		Secret:        opts.Secret,
		Issuer:        "tasks-api",
	})
	if err != nil {
		return nil, err
	}

	b := &Backend{
		opts:          opts,
		tokens:        tokens,
		logger:        logger,
		usersByID:     make(map[int64]*userRecord),
		idByEmail:     make(map[string]int64),
		tasks:         make(map[int64]*taskRecord),
		liveAccess:    make(map[string]struct{}),
		revokedAccess: make(map[string]struct{}),
		liveRefresh:   make(map[string]struct{}),
	}
	if opts.Limiter != nil {
		b.limiter = rate.New(opts.Limiter, rate.Config{
			Prefix:      "apitest",
			MaxAttempts: opts.MaxSignInAttempts,
			Cooldown:    opts.SignInCooldown,
		})
	}
	b.routes()
	return b, nil
}

func (b *Backend) routes() {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signup", b.signupHandler)
	mux.HandleFunc("POST /api/auth/signin", b.signinHandler)
	mux.HandleFunc("POST /api/auth/refresh", b.refreshHandler)
	mux.Handle("POST /api/auth/signout", b.guard(http.HandlerFunc(b.signoutHandler)))

	mux.Handle("GET /api/tasks", b.guard(http.HandlerFunc(b.listTasksHandler)))
	mux.Handle("POST /api/tasks", b.guard(http.HandlerFunc(b.createTaskHandler)))
	mux.Handle("GET /api/tasks/{id}", b.guard(http.HandlerFunc(b.getTaskHandler)))
	mux.Handle("PUT /api/tasks/{id}", b.guard(http.HandlerFunc(b.updateTaskHandler)))
	mux.Handle("PATCH /api/tasks/{id}/toggle", b.guard(http.HandlerFunc(b.toggleTaskHandler)))
	mux.Handle("DELETE /api/tasks/{id}", b.guard(http.HandlerFunc(b.deleteTaskHandler)))
	b.mux = mux
}

// ServeHTTP implements http.Handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

// RefreshCalls returns how many renewal requests reached the backend.
func (b *Backend) RefreshCalls() int64 { return b.refreshCalls.Load() }

// FailRefresh makes every renewal answer 401 while on is true.
func (b *Backend) FailRefresh(on bool) { b.failRefresh.Store(on) }

// SetRefreshDelay delays every renewal response by d.
func (b *Backend) SetRefreshDelay(d time.Duration) { b.refreshDelay.Store(int64(d)) }

// OmitRefreshToken makes renewals answer without a refresh token even when
// rotating, as a non-rotating backend would.
func (b *Backend) OmitRefreshToken(on bool) { b.omitRefreshed.Store(on) }

// ExpireAccessTokens invalidates every access token issued so far, as if their
// lifetime had elapsed.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for tok := range b.liveAccess {
		b.revokedAccess[tok] = struct{}{}
	}
	b.liveAccess = make(map[string]struct{})
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.liveRefresh = make(map[string]struct{})
}

// SeedUser registers an account directly, bypassing the HTTP surface.
func (b *Backend) SeedUser(email, password, name string) (session.User, error) {
	return b.createUser(email, password, name)
}

var errEmailTaken = errors.New("email already registered")

func (b *Backend) createUser(email, password, name string) (session.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.opts.BcryptCost)
	if err != nil {
		return session.User{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.idByEmail[email]; ok {
		return session.User{}, errEmailTaken
	}
	b.nextUserID++
	u := session.User{
		ID:        b.nextUserID,
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	b.usersByID[u.ID] = &userRecord{user: u, hash: hash}
	b.idByEmail[email] = u.ID
	return u, nil
}

func (b *Backend) authenticate(email, password string) (session.User, bool) {
	b.mu.Lock()
	id, ok := b.idByEmail[strings.ToLower(strings.TrimSpace(email))]
	var rec *userRecord
	if ok {
		rec = b.usersByID[id]
	}
	b.mu.Unlock()

	if rec == nil {
		return session.User{}, false
	}
	if bcrypt.CompareHashAndPassword(rec.hash, []byte(password)) != nil {
		return session.User{}, false
	}
	return rec.user, true
}

func (b *Backend) lookupUser(id int64) (session.User, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.usersByID[id]
	if !ok {
		return session.User{}, false
	}
	return rec.user, true
}

// issueAccess signs an access token and tracks it as live.
func (b *Backend) issueAccess(userID int64) (string, error) {
	tok, _, err := b.tokens.CreateAccess(userID, uuid.NewString())
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	b.liveAccess[tok] = struct{}{}
	b.mu.Unlock()
	return tok, nil
}

// issueRefresh signs a refresh token with a fresh jti and tracks it as live.
func (b *Backend) issueRefresh(userID int64) (string, error) {
	jti := uuid.NewString()
	tok, _, err := b.tokens.CreateRefresh(userID, jti)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	b.liveRefresh[jti] = struct{}{}
	b.mu.Unlock()
	return tok, nil
}

func (b *Backend) accessRevoked(tok string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, revoked := b.revokedAccess[tok]
	return revoked
}

func (b *Backend) revokeAccess(tok string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.liveAccess, tok)
	b.revokedAccess[tok] = struct{}{}
}

func (b *Backend) refreshLive(jti string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.liveRefresh[jti]
	return ok
}

func (b *Backend) consumeRefresh(jti string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.liveRefresh, jti)
}
