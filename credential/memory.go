package credential

import (
	"context"
	"sync"
)

// MemoryBackend keeps the pair in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu      sync.Mutex
	pair    Pair
	present bool
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(context.Context) (Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return Pair{}, ErrNotFound
	}
	return m.pair, nil
}

func (m *MemoryBackend) Save(_ context.Context, pair Pair) error {
	m.mu.Lock()
	m.pair = pair
	m.present = true
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(context.Context) error {
	m.mu.Lock()
	m.pair = Pair{}
	m.present = false
	m.mu.Unlock()
	return nil
}
