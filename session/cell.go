package session

import (
	"context"
	"fmt"
	"sync"
)

// Cell owns the session state. It is safe for concurrent use.
type Cell struct {
	mu          sync.Mutex
	state       State
	subscribers map[uint64]chan State
	nextID      uint64
}

// NewCell returns a Cell in the Initializing state.
func NewCell() *Cell {
	return &Cell{
		state:       newState(StatusInitializing, nil),
		subscribers: make(map[uint64]chan State),
	}
}

// Snapshot returns the current state.
func (c *Cell) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MarkAuthenticated moves the cell to Authenticated. A nil user keeps the user
// already recorded and is only accepted while the cell is Authenticated.
func (c *Cell) MarkAuthenticated(user *User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := checkTransition(c.state.Status, StatusAuthenticated); err != nil {
		return err
	}
	if user == nil {
		if c.state.Status != StatusAuthenticated || c.state.User == nil {
			return fmt.Errorf("%w: %s -> %s without user", ErrInvalidTransition, c.state.Status, StatusAuthenticated)
		}
		user = c.state.User
	}
	c.setLocked(newState(StatusAuthenticated, user))
	return nil
}

// MarkUnauthenticated moves the cell to Unauthenticated and drops the user.
// Calling it while already Unauthenticated is a no-op.
func (c *Cell) MarkUnauthenticated() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := checkTransition(c.state.Status, StatusUnauthenticated); err != nil {
		return err
	}
	if c.state.Status == StatusUnauthenticated {
		return nil
	}
	c.setLocked(newState(StatusUnauthenticated, nil))
	return nil
}

// Subscribe returns a channel that always holds the most recent state. Slow
// readers skip intermediate states but never miss the latest one. The current
// state is delivered immediately. cancel releases the subscription.
func (c *Cell) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subscribers[id] = ch
	ch <- c.state
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
	return ch, cancel
}

// WaitResolved blocks until the cell leaves Initializing or ctx is done.
func (c *Cell) WaitResolved(ctx context.Context) (State, error) {
	ch, cancel := c.Subscribe()
	defer cancel()

	for {
		select {
		case st := <-ch:
			if st.Status != StatusInitializing {
				return st, nil
			}
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

func (c *Cell) setLocked(next State) {
	c.state = next
	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}
