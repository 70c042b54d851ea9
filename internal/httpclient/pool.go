// Package httpclient provides a single, shared HTTP client pool used by
// every fetch the crawler issues.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrTransport wraps any connect/read/TLS/timeout failure during a fetch.
var ErrTransport = errors.New("transport error")

const (
	defaultMaxConns        = 100
	defaultMaxConnsPerHost = 100
	defaultTimeout         = 30 * time.Second
	defaultIdleTimeout     = 90 * time.Second
	botUserAgent           = "SearchCrawlBot/1.0 (+https://example.invalid/bot)"
)

// Result is the outcome of a single GET. A non-2xx response is reported as
// Empty (not an error) so the pipeline can proceed with an empty page
// record, per spec §4.1.
type Result struct {
	StatusCode int
	Body       []byte
	Empty      bool
}

// Pool is the process-wide shared HTTP client.
type Pool struct {
	client          *http.Client
	timeout         time.Duration
	maxContentBytes int64
}

// Options configures the pool.
type Options struct {
	MaxConnsPerHost int
	Timeout         time.Duration
	MaxContentBytes int64
}

// New builds the shared client with a bounded connection pool, a default
// header set, and an OpenTelemetry-instrumented transport so every crawl
// fetch emits a span.
func New(opts Options) *Pool {
	maxConnsPerHost := opts.MaxConnsPerHost
	if maxConnsPerHost <= 0 {
		maxConnsPerHost = defaultMaxConnsPerHost
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxContentBytes := opts.MaxContentBytes
	if maxContentBytes <= 0 {
		maxContentBytes = 500_000
	}

	transport := &http.Transport{
		MaxIdleConns:        defaultMaxConns,
		MaxIdleConnsPerHost: maxConnsPerHost,
		MaxConnsPerHost:     maxConnsPerHost,
		IdleConnTimeout:     defaultIdleTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Pool{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		timeout:         timeout,
		maxContentBytes: maxContentBytes,
	}
}

// Get issues a GET for an absolute URL through the shared client.
func (p *Pool) Get(ctx context.Context, rawURL string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrTransport, err)
	}
	req.Header.Set("User-Agent", botUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Result{StatusCode: resp.StatusCode, Empty: true}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxContentBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrTransport, err)
	}

	return &Result{StatusCode: resp.StatusCode, Body: body}, nil
}
