// Package httpx issues HTTP requests to ledger backends with rate
// limiting, hard timeouts, and a short-lived response cache, and maps
// transport failures onto a small error taxonomy.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/chainlens/chainlens/internal/ratelimit"
	"github.com/chainlens/chainlens/pkg/logging"
)

// DefaultTimeout is the hard per-request deadline.
const DefaultTimeout = 10 * time.Second

// Client fetches raw payloads from a ledger backend. Each request
// acquires the rate limiter keyed by the request URL before sending.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	cache      *Cache
	timeout    time.Duration
	log        *logging.Logger
}

// NewClient creates a transport client. limiter and cache are owned by
// the calling adapter; they are never shared across adapters.
func NewClient(limiter *ratelimit.Limiter, cache *Cache, timeout time.Duration, log *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logging.GetDefault()
	}
	return &Client{
		// The deadline is applied per request via context so a
		// timeout cancels only its own in-flight call.
		httpClient: &http.Client{},
		limiter:    limiter,
		cache:      cache,
		timeout:    timeout,
		log:        log,
	}
}

// Fetch performs a GET against url and returns the raw body.
// Failures map onto the taxonomy: deadline -> ErrTimeout, non-2xx ->
// *UpstreamError, anything else -> ErrNetwork. The rate-limiter
// acquisition happens before the request is sent, so an attempt that
// later times out still counts against the window.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx, url); err != nil {
			return nil, classify(err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: trimBody(body)}
	}

	return body, nil
}

// FetchCached checks the response cache under key before fetching, and
// populates it on a miss. Concurrent misses may fetch twice; the
// duplicate is wasteful, not incorrect.
func (c *Client) FetchCached(ctx context.Context, key, url string) ([]byte, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(key); ok {
			c.log.Debug("cache hit", "key", key)
			return body, nil
		}
	}

	body, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Put(key, body)
	}
	return body, nil
}

// classify maps transport faults onto the error taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// trimBody bounds an error payload so upstream errors stay readable.
func trimBody(body []byte) string {
	const max = 200
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}
