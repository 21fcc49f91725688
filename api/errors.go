package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when sign-in is rejected.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountExists is returned when sign-up hits an already registered email.
	ErrAccountExists = errors.New("account already exists")
	// ErrValidation is returned for input rejected locally or by the backend (422).
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned for a 401 outside sign-in.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned for a 404.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited is returned for a 429.
	ErrRateLimited = errors.New("too many attempts")
	// ErrUnexpectedStatus is returned for any other non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Error is a non-2xx backend response. It unwraps to one of the package sentinels.
type Error struct {
	Status int
	Detail string
	kind   error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Detail)
}

func (e *Error) Unwrap() error { return e.kind }

// Classifier maps a status code to a sentinel. Returning nil falls back to the
// default mapping.
type Classifier func(status int) error

func defaultKind(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrAccountExists
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return ErrValidation
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrUnexpectedStatus
	}
}

// validationItem is one entry of a 422 detail list.
type validationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// newError decodes a {"detail": ...} body. detail is either a string or a
// list of validation items.
func newError(status int, body []byte, classify Classifier) *Error {
	e := &Error{Status: status}
	if classify != nil {
		e.kind = classify(status)
	}
	if e.kind == nil {
		e.kind = defaultKind(status)
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		e.Detail = strings.TrimSpace(string(body))
		return e
	}

	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
		e.Detail = detail
		return e
	}

	var items []validationItem
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if field := lastLoc(it.Loc); field != "" {
				msgs = append(msgs, field+": "+it.Msg)
				continue
			}
			msgs = append(msgs, it.Msg)
		}
		e.Detail = strings.Join(msgs, "; ")
		return e
	}

	e.Detail = string(envelope.Detail)
	return e
}

func lastLoc(loc []any) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
