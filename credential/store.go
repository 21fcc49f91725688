package credential

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// ErrNotFound is returned by a [Backend] when no pair is persisted.
var ErrNotFound = errors.New("credential not found")

// Backend is a durable medium for the credential pair.
type Backend interface {
	Load(ctx context.Context) (Pair, error)
	Save(ctx context.Context, pair Pair) error
	Delete(ctx context.Context) error
}

// Listener is notified after every presence change of the stored pair.
type Listener func(present bool)

// Store holds the current credential pair.
//
// Get is synchronous and never fails. Set and Clear replace the cell atomically,
// write through to the Backend, and then notify listeners. Mutations are
// serialized with their backend write, so the durable copy always reflects the
// last mutation. Backend failures are logged and never surfaced: the in-memory
// cell stays authoritative.
type Store struct {
	// writeMu orders mutation, backend write and notification. mu guards the
	// in-memory cell only, so readers never wait on the backend.
	writeMu sync.Mutex

	mu         sync.RWMutex
	pair       Pair
	present    bool
	generation uint64

	backend Backend
	logger  *slog.Logger

	listenersMu sync.RWMutex
	listeners   []Listener
}

// NewStore creates a Store. A nil backend keeps the pair in memory only.
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		backend: backend,
		logger:  logger,
	}
}

// OnChange registers a listener. Listeners run synchronously on the mutating
// goroutine and must not mutate the Store.
func (s *Store) OnChange(l Listener) {
	if l == nil {
		return
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()
}

// Get returns the current pair and whether one exists.
func (s *Store) Get() (Pair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, s.present
}

// Snapshot returns the current pair together with the store generation.
// The generation changes on every mutation.
func (s *Store) Snapshot() (Pair, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, s.generation, s.present
}

// Set replaces the current pair.
func (s *Store) Set(ctx context.Context, pair Pair) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.swap(pair, true)
	s.persist(ctx, pair)
	s.notify(true)
}

// CompareAndSet replaces the pair only if the generation still equals gen.
func (s *Store) CompareAndSet(ctx context.Context, gen uint64, pair Pair) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.currentGeneration() != gen {
		return false
	}
	s.swap(pair, true)
	s.persist(ctx, pair)
	s.notify(true)
	return true
}

// Clear removes the current pair. Clearing an empty store is a no-op apart
// from the listener notification.
func (s *Store) Clear(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.swap(Pair{}, false)
	s.remove(ctx)
	s.notify(false)
}

// CompareAndClear removes the pair only if the generation still equals gen.
func (s *Store) CompareAndClear(ctx context.Context, gen uint64) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.currentGeneration() != gen {
		return false
	}
	s.swap(Pair{}, false)
	s.remove(ctx)
	s.notify(false)
	return true
}

// Unload drops the in-memory pair but keeps the persisted copy, so the next
// Load (typically in a new process) can pick it up again.
func (s *Store) Unload(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.swap(Pair{}, false)
	s.notify(false)
}

// Load restores the pair from the backend. It reports whether a pair was found.
// A backend read failure is returned so callers can distinguish "nothing stored"
// from "storage unavailable".
func (s *Store) Load(ctx context.Context) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	pair, err := s.backend.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !pair.Valid() {
		return false, nil
	}

	s.swap(pair, true)
	s.notify(true)
	return true, nil
}

func (s *Store) swap(pair Pair, present bool) {
	s.mu.Lock()
	s.pair = pair
	s.present = present
	s.generation++
	s.mu.Unlock()
}

func (s *Store) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Store) persist(ctx context.Context, pair Pair) {
	if err := s.backend.Save(ctx, pair); err != nil {
		s.logger.WarnContext(ctx, "credential backend save failed", slog.Any("error", err))
	}
}

func (s *Store) remove(ctx context.Context) {
	if err := s.backend.Delete(ctx); err != nil {
		s.logger.WarnContext(ctx, "credential backend delete failed", slog.Any("error", err))
	}
}

func (s *Store) notify(present bool) {
	s.listenersMu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		l(present)
	}
}
