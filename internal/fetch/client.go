// Package fetch provides the shared outbound HTTP client used by provider
// fetchers: per-request timeout, a stable User-Agent, and exponential-backoff
// retries on transient failures.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bher20/gpumarketwatch/internal/config"
)

// Client wraps http.Client with retry and header defaults from settings.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxRetries int
	backoff    time.Duration
}

// NewClient builds a Client from HTTP settings.
func NewClient(settings config.HTTPSettings) *Client {
	timeout := time.Duration(settings.TimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	wait := time.Duration(settings.BackoffS * float64(time.Second))
	if wait <= 0 {
		wait = 2 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  settings.UserAgent,
		maxRetries: settings.MaxRetries,
		backoff:    wait,
	}
}

// statusError marks an HTTP response code outside 2xx. 4xx responses other
// than 429 are permanent; retrying them only burns the rate limit further.
type statusError struct {
	status int
	url    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.status, e.url)
}

// Get performs a GET with retries and returns the response body. Extra
// headers are applied to every attempt.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.backoff
	b.MaxInterval = 10 * c.backoff
	b.MaxElapsedTime = time.Duration(c.maxRetries+1) * c.httpClient.Timeout

	var body []byte
	operation := func() error {
		data, err := c.do(ctx, url, headers)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && se.status >= 400 && se.status < 500 && se.status != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}
		body = data
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &statusError{status: resp.StatusCode, url: url}
	}
	return io.ReadAll(resp.Body)
}
