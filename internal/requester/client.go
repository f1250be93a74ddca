// Package requester provides the rate-limited HTTP transport used to reach
// the Aegis backend, and the worker pool that runs backend fetches.
package requester

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

// Client wraps fasthttp.Client with a shared rate limiter and static headers
type Client struct {
	client    *fasthttp.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	userAgent string
	headers   map[string]string

	// Stats
	total  atomic.Int64
	failed atomic.Int64
}

// ClientOptions configures the HTTP client
type ClientOptions struct {
	Timeout             time.Duration
	MaxConnsPerHost     int
	MaxIdleConnDuration time.Duration
	UserAgent           string
	SkipTLSVerify       bool
	RPS                 int               // 0 disables limiting
	Headers             map[string]string // sent with every request
}

// DefaultClientOptions returns sensible defaults
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		Timeout:             10 * time.Second,
		MaxConnsPerHost:     16,
		MaxIdleConnDuration: 30 * time.Second,
		UserAgent:           "aegisdash/1.0",
		RPS:                 20,
	}
}

// NewClient creates a new HTTP client
func NewClient(opts *ClientOptions) *Client {
	if opts == nil {
		opts = DefaultClientOptions()
	}
	if opts.MaxConnsPerHost == 0 {
		opts.MaxConnsPerHost = 16
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}

	client := &fasthttp.Client{
		MaxConnsPerHost:     opts.MaxConnsPerHost,
		MaxIdleConnDuration: opts.MaxIdleConnDuration,
		ReadTimeout:         opts.Timeout,
		WriteTimeout:        opts.Timeout,
		TLSConfig: &tls.Config{
			InsecureSkipVerify: opts.SkipTLSVerify,
		},
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), opts.RPS)
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &Client{
		client:    client,
		limiter:   limiter,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		headers:   headers,
	}
}

// Request represents an HTTP request to be sent
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response represents an HTTP response
type Response struct {
	StatusCode   int
	Headers      map[string]string
	Body         []byte
	ResponseTime time.Duration
	Error        error
}

// OK reports a transport success with a 2xx status
func (r *Response) OK() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// ErrCanceled is returned when ctx ends before or during a request
var ErrCanceled = errors.New("requester: request canceled")

// Do sends an HTTP request and returns the response. The deadline is the
// earlier of ctx's deadline and the client timeout.
func (c *Client) Do(ctx context.Context, req *Request) *Response {
	start := time.Now()
	c.total.Add(1)

	if err := c.limiter.Wait(ctx); err != nil {
		c.failed.Add(1)
		return &Response{Error: fmt.Errorf("%w: %v", ErrCanceled, err)}
	}

	frequest := fasthttp.AcquireRequest()
	fresponse := fasthttp.AcquireResponse()
	release := func() {
		fasthttp.ReleaseRequest(frequest)
		fasthttp.ReleaseResponse(fresponse)
	}

	frequest.SetRequestURI(req.URL)
	frequest.Header.SetMethod(req.Method)
	frequest.Header.SetUserAgent(c.userAgent)
	frequest.Header.Set("Accept", "application/json")

	for key, value := range c.headers {
		frequest.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		frequest.Header.Set(key, value)
	}

	if len(req.Body) > 0 {
		frequest.SetBody(req.Body)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	// fasthttp has no context support: the call runs aside so that a
	// canceled ctx returns at once. The request and response stay owned by
	// that goroutine until DoDeadline returns.
	done := make(chan error, 1)
	go func() {
		done <- c.client.DoDeadline(frequest, fresponse, deadline)
	}()

	var err error
	select {
	case <-ctx.Done():
		go func() {
			<-done
			release()
		}()
		c.failed.Add(1)
		return &Response{
			Error:        fmt.Errorf("%w: %v", ErrCanceled, ctx.Err()),
			ResponseTime: time.Since(start),
		}
	case err = <-done:
	}
	defer release()
	responseTime := time.Since(start)

	if err != nil {
		c.failed.Add(1)
		return &Response{
			Error:        err,
			ResponseTime: responseTime,
		}
	}

	headers := make(map[string]string)
	fresponse.Header.VisitAll(func(key, value []byte) {
		headers[string(key)] = string(value)
	})

	// Copy body: fasthttp reuses the buffer after release
	body := make([]byte, len(fresponse.Body()))
	copy(body, fresponse.Body())

	return &Response{
		StatusCode:   fresponse.StatusCode(),
		Headers:      headers,
		Body:         body,
		ResponseTime: responseTime,
	}
}

// Get issues a GET request
func (c *Client) Get(ctx context.Context, url string) *Response {
	return c.Do(ctx, &Request{Method: fasthttp.MethodGet, URL: url})
}

// PostJSON marshals body and POSTs it as application/json
func (c *Client) PostJSON(ctx context.Context, url string, body any) *Response {
	data, err := json.Marshal(body)
	if err != nil {
		return &Response{Error: fmt.Errorf("requester: encode body: %w", err)}
	}

	return c.Do(ctx, &Request{
		Method:  fasthttp.MethodPost,
		URL:     url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    data,
	})
}

// ClientStats holds request counters
type ClientStats struct {
	Total  int64
	Failed int64
}

// Stats returns transport counters
func (c *Client) Stats() ClientStats {
	return ClientStats{
		Total:  c.total.Load(),
		Failed: c.failed.Load(),
	}
}
