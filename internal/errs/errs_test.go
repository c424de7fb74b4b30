package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeUpperCaseWithUnderscores(t *testing.T) {
	assert.Equal(t, "BAD_REQUEST", MakeUpperCaseWithUnderscores("Bad Request"))
	assert.Equal(t, "NOT_FOUND", MakeUpperCaseWithUnderscores(http.StatusText(http.StatusNotFound)))
}

func TestNewBadRequestError(t *testing.T) {
	code := "INVALID_PACKAGE_NAME"
	fields := []FieldError{{Field: "package", Error: "bad"}}

	err := NewBadRequestError("bad package", true, &code, fields)

	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, code, err.Code)
	assert.True(t, err.Override)
	assert.Equal(t, fields, err.Errors)
	assert.False(t, err.NoBody)

	assert.Equal(t, "BAD_REQUEST", NewBadRequestError("x", false, nil, nil).Code)
}

func TestNewUpstreamStatusError(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{status: http.StatusNotFound, code: "UPSTREAM_NOT_FOUND"},
		{status: http.StatusServiceUnavailable, code: "UPSTREAM_SERVICE_UNAVAILABLE"},
		{status: http.StatusNoContent, code: "UPSTREAM_NO_CONTENT"},
		{status: 599, code: "UPSTREAM_STATUS_599"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := NewUpstreamStatusError(tt.status)

			assert.Equal(t, tt.status, err.Status)
			assert.Equal(t, tt.code, err.Code)
			assert.True(t, err.NoBody)
		})
	}
}

func TestUpstreamFailureErrors(t *testing.T) {
	unreachable := NewUpstreamUnreachableError()
	assert.Equal(t, http.StatusBadGateway, unreachable.Status)
	assert.Equal(t, CodeUpstreamUnreachable, unreachable.Code)

	tooLarge := NewUpstreamTooLargeError()
	assert.Equal(t, http.StatusBadGateway, tooLarge.Status)
	assert.Equal(t, CodeUpstreamTooLarge, tooLarge.Code)

	open := NewUpstreamCircuitOpenError()
	assert.Equal(t, http.StatusServiceUnavailable, open.Status)
	assert.Equal(t, CodeUpstreamCircuitOpen, open.Code)
}

func TestHTTPError_IsAndWithMessage(t *testing.T) {
	base := NewUpstreamStatusError(http.StatusNotFound)
	wrapped := fmt.Errorf("relay: %w", base)

	assert.True(t, errors.Is(wrapped, &HTTPError{}))

	var httpErr *HTTPError
	assert.True(t, errors.As(wrapped, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.Status)

	changed := base.WithMessage("gone")
	assert.Equal(t, "gone", changed.Error())
	assert.Equal(t, base.Code, changed.Code)
	assert.True(t, changed.NoBody)
	assert.NotEqual(t, base.Message, changed.Message, "original must not be mutated")
}

func TestValidationError(t *testing.T) {
	err := ValidationError(errors.New("bad input"))

	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "Validation failed: bad input", err.Message)
}
