// Package apierror defines the classified error taxonomy shared by every
// product adapter. A raw transport failure is normalized exactly once into an
// *Error carrying a category, an advisory retryable flag, and call-site
// context; nothing above the adapter boundary ever sees a raw HTTP error.
package apierror

import (
	"errors"
	"fmt"
	"time"
)

// Category is the classification of a failure for retry and reporting logic.
type Category string

const (
	// CategoryAuthentication indicates missing or invalid credentials (401).
	CategoryAuthentication Category = "authentication"

	// CategoryAuthorization indicates insufficient permissions (403).
	CategoryAuthorization Category = "authorization"

	// CategoryValidation indicates a rejected request payload (4xx) or a
	// local pre-flight validation failure.
	CategoryValidation Category = "validation"

	// CategoryNetwork indicates a connectivity failure with no HTTP response.
	CategoryNetwork Category = "network"

	// CategoryServer indicates a backend failure (5xx).
	CategoryServer Category = "server"

	// CategoryRateLimit indicates request throttling (429).
	CategoryRateLimit Category = "rate_limit"

	// CategoryConflict indicates a resource state conflict (409).
	CategoryConflict Category = "conflict"

	// CategoryNotFound indicates a missing resource (404).
	CategoryNotFound Category = "not_found"

	// CategoryClient indicates a local usage error, such as calling a
	// capability whose adapter was never initialized.
	CategoryClient Category = "client"

	// CategoryUnknown is the fallback for anything not otherwise matched.
	CategoryUnknown Category = "unknown"
)

// Context identifies the call site that produced an error.
type Context struct {
	// Module is the product adapter name (manager, parameters, ...).
	Module string `json:"module,omitempty"`

	// Operation is the adapter operation (createTestCase, listFolders, ...).
	Operation string `json:"operation,omitempty"`

	// ResourceID is the id of the resource involved, if applicable.
	ResourceID string `json:"resource_id,omitempty"`

	// ResourceType is the kind of resource involved (folder, test-case, ...).
	ResourceType string `json:"resource_type,omitempty"`
}

// Error is a classified, retry-annotated failure. Instances are created once
// by Classify or by a variant constructor and carried upward unchanged.
type Error struct {
	// Category is the taxonomy bucket for this failure.
	Category Category `json:"category"`

	// StatusCode is the HTTP status code, or 0 when no response was received.
	StatusCode int `json:"status_code,omitempty"`

	// Retryable advises whether the transport may retry the call.
	// It is advisory only; nothing in this package enforces it.
	Retryable bool `json:"retryable"`

	// Message is the human-readable failure description.
	Message string `json:"message"`

	// FieldErrors holds field-level validation messages from the backend.
	FieldErrors map[string]string `json:"field_errors,omitempty"`

	// RetryAfter is the backend-requested wait for rate_limit errors.
	RetryAfter time.Duration `json:"retry_after,omitempty"`

	// Context identifies the call site.
	Context Context `json:"context"`

	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Context.Module != "" && e.Context.Operation != "" {
		return fmt.Sprintf("[%s] %s/%s: %s", e.Category, e.Context.Module, e.Context.Operation, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Category, msg)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality for errors.Is: two classified errors match
// when their categories match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Category == t.Category
}

// WithContext annotates the error with its call site and returns it.
func (e *Error) WithContext(module, operation string) *Error {
	e.Context.Module = module
	e.Context.Operation = operation
	return e
}

// WithResource annotates the error with the resource it concerns.
func (e *Error) WithResource(resourceType, resourceID string) *Error {
	e.Context.ResourceType = resourceType
	e.Context.ResourceID = resourceID
	return e
}

// NewValidation creates a validation error for a locally rejected request.
// fieldErrors may be nil when the failure is not field-scoped.
func NewValidation(message string, fieldErrors map[string]string) *Error {
	return &Error{
		Category:    CategoryValidation,
		Retryable:   false,
		Message:     message,
		FieldErrors: fieldErrors,
	}
}

// NewNetwork creates a network error for a call that received no response.
func NewNetwork(message string, err error) *Error {
	return &Error{
		Category:  CategoryNetwork,
		Retryable: true,
		Message:   message,
		Err:       err,
	}
}

// NewClient creates a client error for a local usage failure.
func NewClient(message string) *Error {
	return &Error{
		Category:  CategoryClient,
		Retryable: false,
		Message:   message,
	}
}

// NewUnsupported creates the client error returned when a capability is not
// provided by any configured adapter.
func NewUnsupported(capability string) *Error {
	return &Error{
		Category:  CategoryClient,
		Retryable: false,
		Message:   fmt.Sprintf("operation %s is not supported by any configured product", capability),
	}
}

// As extracts a classified error from an error chain. When err does not carry
// one, the second return is false.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable reports whether err carries a retryable classification.
func IsRetryable(err error) bool {
	if e, ok := As(err); ok {
		return e.Retryable
	}
	return false
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, c Category) bool {
	if e, ok := As(err); ok {
		return e.Category == c
	}
	return false
}
