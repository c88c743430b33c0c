// Package httputil holds the outbound HTTP plumbing shared by the
// collaborator clients.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MaxErrorBody caps how much of a failed response is kept for logs.
const MaxErrorBody = 64 << 10

// NewClient returns the client used for every collaborator call. A zero
// timeout falls back to 30s.
func NewClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func IsSuccess(status int) bool {
	return status >= 200 && status <= 299
}

// ReadErrorBody returns the trimmed, capped body of a failed response.
func ReadErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, MaxErrorBody))
	return strings.TrimSpace(string(body))
}

// Probe issues GET url and succeeds only on a 2xx reply.
func Probe(ctx context.Context, hc *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxErrorBody))

	if !IsSuccess(resp.StatusCode) {
		return fmt.Errorf("GET %s returned status %d", url, resp.StatusCode)
	}
	return nil
}
