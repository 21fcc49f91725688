package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewCellStartsInitializing(t *testing.T) {
	c := NewCell()
	st := c.Snapshot()
	if st.Status != StatusInitializing || !st.IsLoading || st.IsAuthenticated || st.User != nil {
		t.Fatalf("unexpected initial state %+v", st)
	}
}

func TestCellSignInSignOutCycle(t *testing.T) {
	c := NewCell()
	if err := c.MarkUnauthenticated(); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	u := &User{ID: 7, Email: "a@example.com", Name: "A"}
	if err := c.MarkAuthenticated(u); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	st := c.Snapshot()
	if !st.IsAuthenticated || st.IsLoading || st.User == nil || st.User.ID != 7 {
		t.Fatalf("unexpected state %+v", st)
	}

	u.Name = "mutated"
	if c.Snapshot().User.Name != "A" {
		t.Fatal("state must not alias caller's user")
	}

	if err := c.MarkUnauthenticated(); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	st = c.Snapshot()
	if st.IsAuthenticated || st.User != nil || st.Status != StatusUnauthenticated {
		t.Fatalf("unexpected state after sign out %+v", st)
	}
}

func TestCellRenewalKeepsUser(t *testing.T) {
	c := NewCell()
	_ = c.MarkAuthenticated(&User{ID: 1, Name: "kept"})
	if err := c.MarkAuthenticated(nil); err != nil {
		t.Fatalf("renew: %v", err)
	}
	if st := c.Snapshot(); st.User == nil || st.User.Name != "kept" {
		t.Fatalf("expected user kept, got %+v", st)
	}
}

func TestCellRejectsAuthenticatedWithoutUser(t *testing.T) {
	c := NewCell()
	if err := c.MarkAuthenticated(nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("initializing: expected ErrInvalidTransition, got %v", err)
	}
	if st := c.Snapshot(); st.Status != StatusInitializing {
		t.Fatalf("state must not change, got %+v", st)
	}

	_ = c.MarkUnauthenticated()
	if err := c.MarkAuthenticated(nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("unauthenticated: expected ErrInvalidTransition, got %v", err)
	}
	if st := c.Snapshot(); st.IsAuthenticated || st.User != nil {
		t.Fatalf("expected unauthenticated without user, got %+v", st)
	}
}

func TestCheckTransitionRejectsReturnToInitializing(t *testing.T) {
	for _, from := range []Status{StatusAuthenticated, StatusUnauthenticated} {
		err := checkTransition(from, StatusInitializing)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s -> initializing: expected ErrInvalidTransition, got %v", from, err)
		}
	}
	if err := checkTransition(Status(42), StatusAuthenticated); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("unknown status: expected ErrInvalidTransition, got %v", err)
	}
}

func TestCellDoubleSignOutIsNoop(t *testing.T) {
	c := NewCell()
	_ = c.MarkAuthenticated(&User{ID: 1})
	ch, cancel := c.Subscribe()
	defer cancel()
	<-ch

	if err := c.MarkUnauthenticated(); err != nil {
		t.Fatal(err)
	}
	<-ch
	if err := c.MarkUnauthenticated(); err != nil {
		t.Fatal(err)
	}
	select {
	case st := <-ch:
		t.Fatalf("second sign out must not notify, got %+v", st)
	default:
	}
}

func TestSubscribeDeliversLatest(t *testing.T) {
	c := NewCell()
	ch, cancel := c.Subscribe()
	defer cancel()

	if st := <-ch; st.Status != StatusInitializing {
		t.Fatalf("expected initial snapshot, got %s", st.Status)
	}

	_ = c.MarkAuthenticated(&User{ID: 1})
	_ = c.MarkUnauthenticated()
	_ = c.MarkAuthenticated(&User{ID: 2})

	st := <-ch
	if st.Status != StatusAuthenticated || st.User == nil || st.User.ID != 2 {
		t.Fatalf("expected latest state, got %+v", st)
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected coalesced delivery, got extra %+v", extra)
	default:
	}
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	c := NewCell()
	ch, cancel := c.Subscribe()
	<-ch
	cancel()
	cancel()

	_ = c.MarkUnauthenticated()
	select {
	case st := <-ch:
		t.Fatalf("cancelled subscription received %+v", st)
	default:
	}
}

func TestWaitResolved(t *testing.T) {
	c := NewCell()

	done := make(chan State, 1)
	go func() {
		st, err := c.WaitResolved(context.Background())
		if err != nil {
			t.Errorf("wait: %v", err)
		}
		done <- st
	}()

	time.Sleep(10 * time.Millisecond)
	_ = c.MarkUnauthenticated()

	select {
	case st := <-done:
		if st.Status != StatusUnauthenticated {
			t.Fatalf("expected unauthenticated, got %s", st.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitResolved did not return")
	}
}

func TestWaitResolvedContextCancel(t *testing.T) {
	c := NewCell()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	st, err := c.WaitResolved(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if st.Status != StatusInitializing {
		t.Fatalf("expected initializing, got %s", st.Status)
	}
}

func TestCellConcurrentTransitions(t *testing.T) {
	c := NewCell()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func(id int64) {
			defer wg.Done()
			_ = c.MarkAuthenticated(&User{ID: id})
		}(int64(i))
		go func() {
			defer wg.Done()
			_ = c.MarkUnauthenticated()
			_ = c.MarkAuthenticated(nil)
		}()
		go func() {
			defer wg.Done()
			st := c.Snapshot()
			if st.IsAuthenticated != (st.Status == StatusAuthenticated) {
				t.Errorf("inconsistent snapshot %+v", st)
			}
			if st.IsAuthenticated != (st.User != nil) {
				t.Errorf("user presence disagrees with status %+v", st)
			}
		}()
	}
	wg.Wait()
}

func TestUserUnmarshalCreatedAtLayouts(t *testing.T) {
	cases := map[string]time.Time{
		`"2025-01-02T03:04:05Z"`:       time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		`"2025-01-02T05:04:05+02:00"`:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		`"2025-01-02T03:04:05.250000"`: time.Date(2025, 1, 2, 3, 4, 5, 250_000_000, time.UTC),
		`"2025-01-02 03:04:05"`:        time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	for raw, want := range cases {
		var u User
		if err := json.Unmarshal([]byte(`{"id":1,"email":"a@b.co","name":"A","created_at":`+raw+`}`), &u); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if !u.CreatedAt.Equal(want) || u.ID != 1 || u.Name != "A" {
			t.Fatalf("%s: got %+v", raw, u)
		}
	}

	var u User
	if err := json.Unmarshal([]byte(`{"id":1,"created_at":"yesterday"}`), &u); err == nil {
		t.Fatal("expected invalid created_at to fail")
	}
}
