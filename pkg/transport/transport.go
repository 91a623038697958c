// Package transport provides the resilient HTTP executor the product
// adapters call through. Adapters issue one logical attempt and receive
// either a typed response or a raw *apierror.Failure carrying status code,
// headers, and body for classification; retry, rate limiting, and circuit
// breaking live entirely on this side of the boundary.
package transport

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// Request is a single API call description.
type Request struct {
	// Method is the HTTP method.
	Method string

	// Path is the URL path relative to the executor's base URL.
	Path string

	// Query holds optional query parameters.
	Query url.Values

	// Body is JSON-marshaled when set. Mutually exclusive with Raw.
	Body any

	// Raw streams an unencoded payload (attachment uploads). ContentType
	// must be set alongside it.
	Raw         io.Reader
	ContentType string

	// Header holds additional request headers.
	Header http.Header
}

// Response is a successful API call outcome.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	return decodeJSON(r.Body, v)
}

// Executor issues API requests. Implementations own connection pooling,
// retry, backoff, rate limiting, and circuit breaking; callers treat every
// call as one logical attempt. A failed call returns a *apierror.Failure so
// the caller can classify it.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}
