package emotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxFetchRetries = 2

// errNotFound means the provider has no data for the requested user.
var errNotFound = errors.New("not found")

// httpError is a non-2xx provider response.
type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// getJSON fetches url into dest, retrying 429 and 5xx responses with a short
// exponential backoff. A 404 is reported as errNotFound.
func getJSON(ctx context.Context, client *http.Client, url string, dest any) error {
	var lastErr error
	for attempt := 0; attempt <= maxFetchRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(time.Duration(1<<uint(attempt-1)) * 250 * time.Millisecond)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("request %s: %w", url, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if err := json.Unmarshal(body, dest); err != nil {
				return fmt.Errorf("decode %s: %w", url, err)
			}
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return errNotFound
		}

		bodyStr := string(body)
		if len(bodyStr) > 256 {
			bodyStr = bodyStr[:256]
		}
		lastErr = &httpError{StatusCode: resp.StatusCode, Body: bodyStr}
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return lastErr
		}
	}
	return lastErr
}
