package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	webhookAttempts = 3
	maxRetryWait    = 5 * time.Second
)

// webhook posts JSON payloads to chat APIs, retrying on 429 and 5xx.
type webhook struct {
	name    string
	client  *http.Client
	backoff time.Duration
}

func newWebhook(name string) webhook {
	return webhook{
		name:    name,
		client:  &http.Client{Timeout: 10 * time.Second},
		backoff: 500 * time.Millisecond,
	}
}

func (w webhook) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal payload: %w", w.name, err)
	}

	var lastErr error
	for attempt := 0; attempt < webhookAttempts; attempt++ {
		wait, err := w.once(ctx, url, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if wait < 0 || attempt == webhookAttempts-1 {
			break
		}
		if wait == 0 {
			wait = w.backoff << attempt
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", w.name, ctx.Err())
		case <-time.After(wait):
		}
	}
	return lastErr
}

// once sends a single request. A negative wait means the failure is not
// worth retrying; zero means retry with the default backoff.
func (w webhook) once(ctx context.Context, url string, body []byte) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return -1, fmt.Errorf("%s: create request: %w", w.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return -1, fmt.Errorf("%s: send: %w", w.name, err)
		}
		return 0, fmt.Errorf("%s: send: %w", w.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("%s: status %d: %s", w.name, resp.StatusCode, bytes.TrimSpace(snippet))
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return retryAfter(resp.Header.Get("Retry-After")), err
	case resp.StatusCode >= 500:
		return 0, err
	default:
		return -1, err
	}
}

// retryAfter parses a Retry-After header in seconds, capped at maxRetryWait.
func retryAfter(v string) time.Duration {
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs * float64(time.Second))
	if d > maxRetryWait {
		return maxRetryWait
	}
	return d
}
