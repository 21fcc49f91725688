package session

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when an operation would move the state along
// an edge that is not part of the session state machine.
var ErrInvalidTransition = errors.New("invalid session transition")

var allowed = map[Status]map[Status]bool{
	StatusInitializing: {
		StatusAuthenticated:   true,
		StatusUnauthenticated: true,
	},
	StatusAuthenticated: {
		StatusAuthenticated:   true,
		StatusUnauthenticated: true,
	},
	StatusUnauthenticated: {
		StatusAuthenticated:   true,
		StatusUnauthenticated: true,
	},
}

func checkTransition(from, to Status) error {
	if allowed[from][to] {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
