// Package client executes workload requests against the service under test
// and reports only what the load generator observes: status, latency, size
// and transport errors. Response bodies are drained and discarded.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/workload"
)

// ErrUnexpectedStatus marks a response outside the 2xx range
var ErrUnexpectedStatus = errors.New("unexpected status")

// Doer is satisfied by *http.Client
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is the observation of one request
type Result struct {
	Task       string
	Method     string
	Route      string // route template, e.g. /analytics/{device_id}
	Identity   string
	StatusCode int
	Start      time.Time
	Latency    time.Duration
	BytesSent  int64
	BytesRecv  int64
	Err        error
}

// Failed reports whether the request counts as a failure: a transport error
// or a non-2xx status.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Transport reports whether the request failed on the wire: no response, or
// a response whose body could not be read in full. A complete non-2xx
// response is not a transport failure.
func (r Result) Transport() bool {
	return r.Err != nil && !errors.Is(r.Err, ErrUnexpectedStatus)
}

// Client sends workload requests to one base URL
type Client struct {
	base *url.URL
	doer Doer
}

// Option configures a Client
type Option func(*Client)

// WithDoer replaces the underlying HTTP client
func WithDoer(d Doer) Option {
	return func(c *Client) { c.doer = d }
}

// New creates a client for baseURL. A zero timeout leaves requests bounded
// only by their context and the transport defaults.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q needs a scheme and host", baseURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 1024
	transport.MaxIdleConnsPerHost = 1024

	c := &Client{
		base: base,
		doer: &http.Client{Transport: transport, Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the target base URL
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Execute sends req and never returns an error: every failure is folded
// into the Result so the caller's loop can carry on.
func (c *Client) Execute(ctx context.Context, req *workload.Request, route, identity string) Result {
	res := Result{
		Task:     req.Task,
		Method:   req.Method,
		Route:    route,
		Identity: identity,
		Start:    time.Now(),
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
		res.BytesSent = int64(len(req.Body))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.base.String()+req.Path, body)
	if err != nil {
		res.Err = fmt.Errorf("failed to build request: %w", err)
		return res
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		res.Latency = time.Since(res.Start)
		res.Err = err
		return res
	}
	n, copyErr := io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	res.Latency = time.Since(res.Start)
	res.BytesRecv = n
	res.StatusCode = resp.StatusCode

	switch {
	case copyErr != nil:
		res.Err = fmt.Errorf("failed to read response body: %w", copyErr)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		res.Err = fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return res
}
