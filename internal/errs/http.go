// Package errs defines the error types the API returns to clients.
//
// Every failure that reaches the client goes through HTTPError, so the
// caller always sees the same JSON shape: a machine code, a message, the
// status, and optional field-level details. Upstream status passthrough is
// the one exception; see NewUpstreamStatusError.
package errs

import "strings"

// FieldError represents a field-level validation error.
// Example:
//
//	{ "field": "architecture", "error": "\"arm\" is not a valid mingw architecture" }
type FieldError struct {
	// Field is the request field the error relates to (e.g. "package").
	Field string `json:"field"`

	// Error is the human-readable error message.
	Error string `json:"error"`
}

// HTTPError is the main custom error type for API responses.
//
// It implements the `error` interface via Error() and is serialized
// directly to JSON by the global error handler.
//   - Code: machine-friendly error code (e.g. "INVALID_PACKAGE_NAME").
//   - Message: human-friendly message.
//   - Status: HTTP status code.
//   - Override: lets the client show Message verbatim.
//   - Errors: list of per-field errors (validation).
//   - NoBody: write only the status, no JSON body.
type HTTPError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"status"`
	Override bool   `json:"override"`

	// Errors holds field-level validation errors.
	Errors []FieldError `json:"errors"`

	// NoBody is set for upstream status passthrough, where the caller must
	// receive the upstream status with an empty body.
	NoBody bool `json:"-"`
}

// Error makes *HTTPError satisfy the built-in `error` interface.
func (e *HTTPError) Error() string {
	return e.Message
}

// Is reports whether target is also an *HTTPError. It does not compare
// Code or Status.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// WithMessage returns a copy of this HTTPError with Message replaced.
func (e *HTTPError) WithMessage(message string) *HTTPError {
	return &HTTPError{
		Code:     e.Code,
		Message:  message,
		Status:   e.Status,
		Override: e.Override,
		Errors:   e.Errors,
		NoBody:   e.NoBody,
	}
}

// MakeUpperCaseWithUnderscores converts a string into UPPER_CASE_WITH_UNDERSCORES.
//
//	"Bad Request" -> "BAD_REQUEST"
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
