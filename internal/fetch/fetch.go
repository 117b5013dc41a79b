// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch performs HTTP GET requests with retry-on-failure and
// optional proxy routing.
package fetch

import (
	"context"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/soultoolman/sci-dl/pkg/types"
)

// FetchError reports that every attempt against a URL failed. Err
// holds the failure of the last attempt.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %d attempt(s) failed: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client issues GET requests on behalf of a single session. It is safe
// for concurrent use; the underlying http.Client pools connections.
type Client struct {
	http      *http.Client
	retries   int
	userAgent string
}

// New builds a Client from session settings. When cfg.UseProxy is set
// the transport routes every request through the configured proxy
// (http, https, or socks5 all handled by net/http). An incomplete
// proxy yields a ConfigError.
func New(cfg types.Config) (*Client, error) {
	if cfg.Retries < 0 {
		return nil, types.ConfigErrorf("retries must be >= 0, got %d", cfg.Retries)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.UseProxy {
		if err := cfg.Proxy.Validate(); err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(cfg.Proxy.URL())
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		retries:   cfg.Retries,
		userAgent: cfg.UserAgent,
	}, nil
}

// Fetch GETs url, retrying transport errors, HTTP responses of 400 and
// above, and body-read failures. With retries = r the destination sees
// at most r+1 requests; retries are immediate and the timeout applies
// per attempt. On success the full body is buffered into the Result.
// If the context is cancelled between attempts, Fetch returns ctx.Err().
func (c *Client) Fetch(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.ConfigErrorf("invalid URL %q: %v", url, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		res, err := c.do(req)
		if err == nil {
			return res, nil
		}
		lastErr = err
	}
	return nil, &FetchError{URL: url, Attempts: c.retries + 1, Err: lastErr}
}

// do performs a single attempt. Failed responses are drained and
// closed so the connection can be reused by the next attempt.
func (c *Client) do(req *http.Request) (*Result, error) {
	resp, err := c.http.Do(req.Clone(req.Context()))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		body:       body,
	}, nil
}

// Result is an immutable snapshot of a completed response, exclusively
// owned by the caller. The body is fully buffered.
type Result struct {
	StatusCode int
	Header     http.Header
	body       []byte
}

// Body returns the buffered response body.
func (r *Result) Body() []byte { return r.body }

// ContentType returns the Content-Type header value.
func (r *Result) ContentType() string { return r.Header.Get("Content-Type") }

// ContentLength returns the buffered body length in bytes.
func (r *Result) ContentLength() int { return len(r.body) }

// Chunks yields the body as consecutive slices of at most size bytes;
// the last chunk may be shorter. The slices alias the buffered body
// and must not be modified. A second iteration re-reads the same
// buffer from the start.
func (r *Result) Chunks(size int) iter.Seq[[]byte] {
	if size <= 0 {
		size = types.DefaultChunkSize
	}
	return func(yield func([]byte) bool) {
		for off := 0; off < len(r.body); off += size {
			end := min(off+size, len(r.body))
			if !yield(r.body[off:end]) {
				return
			}
		}
	}
}
