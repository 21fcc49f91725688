package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxResponseBytes = 1 << 20

// Doer executes an HTTP request. *http.Client and *gateway.Gateway both satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Conn sends JSON requests to one backend.
type Conn struct {
	base string
	doer Doer
}

// NewConn returns a Conn rooted at baseURL. A nil doer uses http.DefaultClient.
func NewConn(baseURL string, doer Doer) *Conn {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Conn{base: strings.TrimRight(baseURL, "/"), doer: doer}
}

// BaseURL returns the backend root without a trailing slash.
func (c *Conn) BaseURL() string { return c.base }

// JSON sends in (if non-nil) as the request body and decodes a 2xx response into
// out (if non-nil). A non-2xx response is returned as *Error. Errors from the
// Doer are returned unchanged.
func (c *Conn) JSON(ctx context.Context, method, path string, in, out any, classify Classifier) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("api: read %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, data, classify)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}
