package errs

import (
	"net/http"
	"strconv"
)

// Machine codes for relay failures that are not plain status texts.
const (
	CodeUpstreamUnreachable = "UPSTREAM_UNREACHABLE"
	CodeUpstreamCircuitOpen = "UPSTREAM_CIRCUIT_OPEN"
	CodeUpstreamTooLarge    = "UPSTREAM_BODY_TOO_LARGE"
)

// NewBadRequestError creates a 400 Bad Request HTTPError.
//
// This supports extra payload:
//   - code: optional custom code string (if nil, defaults to "BAD_REQUEST")
//   - errors: optional slice of field errors (validation errors)
func NewBadRequestError(message string, override bool, code *string, errors []FieldError) *HTTPError {
	formattedCode := MakeUpperCaseWithUnderscores(http.StatusText(http.StatusBadRequest))

	// The caller's code is used as-is.
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   http.StatusBadRequest,
		Override: override,
		Errors:   errors,
	}
}

// NewNotFoundError creates a 404 Not Found HTTPError.
func NewNotFoundError(message string, override bool, code *string) *HTTPError {
	formattedCode := MakeUpperCaseWithUnderscores(http.StatusText(http.StatusNotFound))

	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:     formattedCode,
		Message:  message,
		Status:   http.StatusNotFound,
		Override: override,
	}
}

// NewInternalServerError creates a 500 Internal Server Error HTTPError.
//
// The message is the generic status text, never the real internal error.
func NewInternalServerError() *HTTPError {
	return &HTTPError{
		Code:     MakeUpperCaseWithUnderscores(http.StatusText(http.StatusInternalServerError)),
		Message:  http.StatusText(http.StatusInternalServerError),
		Status:   http.StatusInternalServerError,
		Override: false,
	}
}

// NewUpstreamUnreachableError creates a 502 Bad Gateway HTTPError for
// network-level failures talking to the upstream (DNS, refused, timeout).
func NewUpstreamUnreachableError() *HTTPError {
	return &HTTPError{
		Code:    CodeUpstreamUnreachable,
		Message: "Upstream repository is unreachable",
		Status:  http.StatusBadGateway,
	}
}

// NewUpstreamCircuitOpenError creates a 503 Service Unavailable HTTPError
// used while the upstream circuit breaker is open.
func NewUpstreamCircuitOpenError() *HTTPError {
	return &HTTPError{
		Code:    CodeUpstreamCircuitOpen,
		Message: "Upstream repository is temporarily unavailable",
		Status:  http.StatusServiceUnavailable,
	}
}

// NewUpstreamTooLargeError creates a 502 Bad Gateway HTTPError for an
// upstream file larger than the relay is configured to buffer.
func NewUpstreamTooLargeError() *HTTPError {
	return &HTTPError{
		Code:    CodeUpstreamTooLarge,
		Message: "Upstream file exceeds the relay size limit",
		Status:  http.StatusBadGateway,
	}
}

// NewUpstreamStatusError relays a non-200 upstream status.
//
// The response carries the upstream status and nothing else, so a 404
// from the repository stays a 404 for the caller.
func NewUpstreamStatusError(status int) *HTTPError {
	text := http.StatusText(status)
	if text == "" {
		text = "status " + strconv.Itoa(status)
	}

	return &HTTPError{
		Code:    "UPSTREAM_" + MakeUpperCaseWithUnderscores(text),
		Message: "Upstream responded with " + text,
		Status:  status,
		NoBody:  true,
	}
}

// ValidationError converts a generic validation error into a 400 Bad Request HTTPError.
func ValidationError(err error) *HTTPError {
	return NewBadRequestError("Validation failed: "+err.Error(), false, nil, nil)
}
