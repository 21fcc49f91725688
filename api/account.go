package api

import (
	"context"
	"net/http"
)

// Account calls the protected account endpoints. Its Doer is expected to
// attach credentials.
type Account struct {
	conn *Conn
}

// NewAccount returns an Account client for baseURL.
func NewAccount(baseURL string, doer Doer) *Account {
	return &Account{conn: NewConn(baseURL, doer)}
}

// SignOut asks the backend to invalidate the current session.
func (a *Account) SignOut(ctx context.Context) (string, error) {
	var msg MessageResponse
	if err := a.conn.JSON(ctx, http.MethodPost, "/api/auth/signout", nil, &msg, nil); err != nil {
		return "", err
	}
	return msg.Detail, nil
}
