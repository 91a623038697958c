package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/testshift/testshift/pkg/apierror"
)

// Options configures an HTTPExecutor.
type Options struct {
	// BaseURL is the deployment root every request path is resolved against.
	BaseURL string

	// APIToken is sent as a bearer token when set; otherwise Username and
	// Password are sent as basic auth.
	APIToken string
	Username string
	Password string

	// MaxRequestsPerMinute caps the outbound request rate. Zero disables
	// rate limiting.
	MaxRequestsPerMinute int

	// MaxRetries bounds retries of retryable failures beyond the first
	// attempt.
	MaxRetries int

	// RequestTimeout bounds a single HTTP attempt.
	RequestTimeout time.Duration

	// BypassSSL disables TLS certificate verification.
	BypassSSL bool
}

// HTTPExecutor is the default Executor implementation. It retries retryable
// classifications with capped exponential backoff, honors Retry-After on
// rate limiting, throttles outbound requests, and trips a circuit breaker
// on sustained failure.
type HTTPExecutor struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// retryBaseDelay is the backoff starting point; each retry doubles it up to
// retryMaxDelay.
const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 30 * time.Second
)

// NewHTTPExecutor creates an executor for one deployment.
func NewHTTPExecutor(opts Options) *HTTPExecutor {
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.BypassSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	var limiter *rate.Limiter
	if opts.MaxRequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.MaxRequestsPerMinute)/60.0), opts.MaxRequestsPerMinute/10+1)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &HTTPExecutor{
		opts: opts,
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.RequestTimeout,
		},
		limiter: limiter,
		breaker: breaker,
	}
}

// Execute runs the request, retrying retryable failures up to MaxRetries
// times. The returned error on failure is always a *apierror.Failure (or a
// context error when cancelled).
func (e *HTTPExecutor) Execute(ctx context.Context, req *Request) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= e.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := e.waitBeforeRetry(ctx, attempt, lastErr); err != nil {
				return nil, err
			}
		}

		resp, err := e.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !apierror.Classify(err).Retryable {
			return nil, err
		}
	}

	return nil, lastErr
}

// attempt performs a single HTTP round trip through the limiter and breaker.
func (e *HTTPExecutor) attempt(ctx context.Context, req *Request) (*Response, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	result, err := e.breaker.Execute(func() (any, error) {
		return e.roundTrip(ctx, req)
	})
	if err != nil {
		var f *apierror.Failure
		if fe, ok := err.(*apierror.Failure); ok {
			f = fe
		} else {
			// Breaker-open and connectivity errors surface as no-response
			// failures.
			f = &apierror.Failure{Err: err}
		}
		return nil, f
	}

	return result.(*Response), nil
}

func (e *HTTPExecutor) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := e.buildRequest(ctx, req)
	if err != nil {
		return nil, &apierror.Failure{Err: err}
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, &apierror.Failure{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apierror.Failure{Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &apierror.Failure{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (e *HTTPExecutor) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	u := strings.TrimSuffix(e.opts.BaseURL, "/") + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.Raw != nil:
		body = req.Raw
		contentType = req.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, err
	}

	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	if e.opts.APIToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.opts.APIToken)
	} else if e.opts.Username != "" {
		httpReq.SetBasicAuth(e.opts.Username, e.opts.Password)
	}

	return httpReq, nil
}

// waitBeforeRetry sleeps the backoff for the given attempt, preferring the
// backend's Retry-After on rate-limit failures.
func (e *HTTPExecutor) waitBeforeRetry(ctx context.Context, attempt int, lastErr error) error {
	delay := retryBaseDelay << (attempt - 1)
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	if classified := apierror.Classify(lastErr); classified.Category == apierror.CategoryRateLimit && classified.RetryAfter > 0 {
		delay = classified.RetryAfter
	}

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func decodeJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
