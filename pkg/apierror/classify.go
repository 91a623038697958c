package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// defaultRetryAfter is used when a 429 response carries no parseable
// Retry-After header.
const defaultRetryAfter = 60 * time.Second

// Failure is the raw outcome of a failed transport call. StatusCode 0 means
// no HTTP response was received at all.
type Failure struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Err        error
}

// Error implements the error interface so a Failure can travel through
// error-returning call chains until it reaches Classify.
func (f *Failure) Error() string {
	if f.StatusCode == 0 {
		return fmt.Sprintf("no response: %v", f.Err)
	}
	return fmt.Sprintf("HTTP %d", f.StatusCode)
}

// Unwrap returns the underlying connectivity error, if any.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Classify maps a raw failure to exactly one classified error. It is total
// and deterministic: every input, including a plain error with no HTTP
// response, produces one *Error. Already-classified errors pass through
// unchanged. Rules are priority-ordered; first match wins.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	if e, ok := As(err); ok {
		return e
	}

	var f *Failure
	if !errors.As(err, &f) {
		// No transport response at all.
		return NewNetwork("connection failed", err)
	}

	switch {
	case f.StatusCode == 0:
		return NewNetwork("connection failed", f.Err)
	case f.StatusCode == http.StatusUnauthorized:
		return &Error{
			Category:   CategoryAuthentication,
			StatusCode: f.StatusCode,
			Retryable:  false,
			Message:    "authentication failed",
			Err:        f,
		}
	case f.StatusCode == http.StatusForbidden:
		return &Error{
			Category:   CategoryAuthorization,
			StatusCode: f.StatusCode,
			Retryable:  false,
			Message:    "permission denied",
			Err:        f,
		}
	case f.StatusCode == http.StatusNotFound:
		return &Error{
			Category:   CategoryNotFound,
			StatusCode: f.StatusCode,
			Retryable:  false,
			Message:    "resource not found",
			Err:        f,
		}
	case f.StatusCode == http.StatusConflict:
		return &Error{
			Category:   CategoryConflict,
			StatusCode: f.StatusCode,
			Retryable:  false,
			Message:    "resource conflict",
			Err:        f,
		}
	case f.StatusCode == http.StatusTooManyRequests:
		return &Error{
			Category:   CategoryRateLimit,
			StatusCode: f.StatusCode,
			Retryable:  true,
			Message:    "rate limit exceeded",
			RetryAfter: parseRetryAfter(f.Header),
			Err:        f,
		}
	case f.StatusCode >= 400 && f.StatusCode < 500:
		return &Error{
			Category:    CategoryValidation,
			StatusCode:  f.StatusCode,
			Retryable:   false,
			Message:     "request rejected",
			FieldErrors: parseFieldErrors(f.Body),
			Err:         f,
		}
	case f.StatusCode >= 500 && f.StatusCode < 600:
		return &Error{
			Category:   CategoryServer,
			StatusCode: f.StatusCode,
			Retryable:  true,
			Message:    "server error",
			Err:        f,
		}
	default:
		return &Error{
			Category:   CategoryUnknown,
			StatusCode: f.StatusCode,
			Retryable:  false,
			Message:    fmt.Sprintf("unexpected status %d", f.StatusCode),
			Err:        f,
		}
	}
}

// parseRetryAfter reads the Retry-After header as delay seconds, falling back
// to defaultRetryAfter when absent or unparseable. HTTP-date values are not
// supported by the backends this tool talks to.
func parseRetryAfter(h http.Header) time.Duration {
	if h == nil {
		return defaultRetryAfter
	}
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

// errorBody is the field-error envelope the product APIs return on 4xx.
type errorBody struct {
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"field_errors"`
	Errors      []fieldError      `json:"errors"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// parseFieldErrors extracts field-level validation messages from a 4xx
// response body. A body that is not JSON, or carries no field errors,
// yields nil.
func parseFieldErrors(body []byte) map[string]string {
	if len(body) == 0 {
		return nil
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return nil
	}
	if len(eb.FieldErrors) > 0 {
		return eb.FieldErrors
	}
	if len(eb.Errors) == 0 {
		return nil
	}
	out := make(map[string]string, len(eb.Errors))
	for _, fe := range eb.Errors {
		if fe.Field != "" {
			out[fe.Field] = fe.Message
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
