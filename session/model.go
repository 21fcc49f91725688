package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the coarse lifecycle position of the session.
type Status uint8

const (
	// StatusInitializing is the state at process start, before the initial check resolves.
	StatusInitializing Status = iota
	// StatusAuthenticated means a credential pair exists and the backend accepted it.
	StatusAuthenticated
	// StatusUnauthenticated means no usable credential exists until an explicit sign-in.
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// User is the summary of the signed-in account returned by the backend.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// The backend emits zone-less timestamps for UTC columns.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON accepts created_at with or without a zone offset. Zone-less
// values are read as UTC.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        int64  `json:"id"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	created, err := ParseTimestamp(raw.CreatedAt)
	if err != nil {
		return err
	}
	u.ID, u.Email, u.Name, u.CreatedAt = raw.ID, raw.Email, raw.Name, created
	return nil
}

// ParseTimestamp parses a backend timestamp. An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("session: invalid timestamp %q", s)
}

// State is an immutable snapshot of the session.
type State struct {
	User            *User
	Status          Status
	IsAuthenticated bool
	IsLoading       bool
}

func newState(status Status, user *User) State {
	st := State{
		Status:          status,
		IsAuthenticated: status == StatusAuthenticated,
		IsLoading:       status == StatusInitializing,
	}
	if status == StatusAuthenticated && user != nil {
		u := *user
		st.User = &u
	}
	return st
}
