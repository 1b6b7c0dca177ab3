// Package mcstatus provides the default [statuspoll.Fetcher]: an HTTP
// client for the external server-status API.
//
// The client paces its requests with a token-bucket limiter so bulk
// sweeps cannot hammer the upstream, and can resolve a server's real
// host and port from SRV records when no explicit port is registered.
package mcstatus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/craftwatch/statuspoll"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits to prevent resource exhaustion when polling
// many servers through one upstream API
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

const (
	// DefaultBaseURL is the status API endpoint queried per server.
	DefaultBaseURL = "https://api.mcsrvstat.us/3"

	// DefaultGamePort is used when a server has no explicit port and
	// SRV resolution yields nothing.
	DefaultGamePort = 25565

	// DefaultRequestsPerSecond paces requests to the upstream API.
	DefaultRequestsPerSecond = 5

	// DefaultBurst is the token bucket size of the pacing limiter.
	DefaultBurst = 10
)

// Client fetches raw status payloads from the upstream status API.
//
// Timeouts are applied per request via context, not as a global client
// timeout, so each fetch gets its own independent deadline. Response
// bodies are capped at 1MB.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	resolver   *Resolver
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithBaseURL overrides the status API endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithRateLimit overrides the upstream pacing: rps requests per second
// with the given burst.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithResolver sets the SRV resolver used for servers registered
// without an explicit port. Nil disables SRV resolution.
func WithResolver(r *Resolver) ClientOption {
	return func(c *Client) {
		c.resolver = r
	}
}

// WithHTTPClient replaces the underlying HTTP client. Intended for
// tests; the default client's transport is tuned for polling.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a status API [Client].
//
// The default configuration targets [DefaultBaseURL], paces requests at
// [DefaultRequestsPerSecond], resolves SRV records with the system's
// default resolver settings, and pools connections conservatively.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			// no global timeout, deadlines come from the per-request context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		baseURL:  DefaultBaseURL,
		limiter:  rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), DefaultBurst),
		resolver: NewResolver(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch implements [statuspoll.Fetcher]: one request, no retries.
// Failures come back as *statuspoll.FetchError classified as timeout,
// http_error, or network_error.
func (c *Client) Fetch(ctx context.Context, host string, port int, timeout time.Duration) ([]byte, time.Duration, error) {
	host, port = c.resolveTarget(ctx, host, port)

	// pacing wait happens before the latency clock starts; queueing for
	// a token is not part of the server's ping time
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, classify(fmt.Errorf("upstream pacing: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s", c.baseURL, net.JoinHostPort(host, strconv.Itoa(port)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, classify(fmt.Errorf("failed to create request: %w", err))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, time.Since(start), classify(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, time.Since(start), &statuspoll.FetchError{
			Reason: statuspoll.FetchHTTPError,
			Err:    fmt.Errorf("status API returned %d for %s", resp.StatusCode, url),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, time.Since(start), classify(fmt.Errorf("failed to read response body: %w", err))
	}

	return body, time.Since(start), nil
}

// resolveTarget fills in the port for servers registered without one,
// via SRV when possible, else the game's default port.
func (c *Client) resolveTarget(ctx context.Context, host string, port int) (string, int) {
	if port != 0 {
		return host, port
	}
	if c.resolver != nil {
		if h, p, err := c.resolver.LookupSRV(ctx, host); err == nil {
			return h, p
		}
	}
	return host, DefaultGamePort
}

// Close releases idle connections in the client's pool. The client
// remains usable afterwards.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// classify wraps a transport-level error as a *statuspoll.FetchError
// with the right reason.
func classify(err error) *statuspoll.FetchError {
	reason := statuspoll.FetchNetworkError
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		reason = statuspoll.FetchTimeout
	}
	return &statuspoll.FetchError{Reason: reason, Err: err}
}
