package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/msys2-relay/internal/errs"
	"github.com/deppfellow/msys2-relay/internal/msys2"
)

// Validatable is implemented by request payload types that know how to validate themselves.
//
// Typical pattern:
//   - Define a request struct with binding tags (`param:"environment"`)
//   - Implement Validate() error that runs validation.Struct(...)
type Validatable interface {
	Validate() error
}

// BindAndValidate binds request data into payload and validates it.
//
// Flow:
//  1. c.Bind(payload) populates the struct from path params, query and body.
//  2. payload.Validate() applies validation rules.
//  3. Returns *errs.HTTPError (400) with field-level errors if validation fails.
//
// payload must be a pointer so Bind can fill it.
func BindAndValidate(c echo.Context, payload Validatable) error {
	if err := c.Bind(payload); err != nil {
		return errs.NewBadRequestError(bindErrorMessage(err), false, nil, nil)
	}

	if err := payload.Validate(); err != nil {
		return ToHTTPError(err)
	}

	return nil
}

// bindErrorMessage extracts the human part of an echo bind error.
func bindErrorMessage(err error) string {
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		if msg, ok := echoErr.Message.(string); ok && msg != "" {
			return msg
		}
	}
	return "Invalid request"
}

// ToHTTPError converts an error returned by Validate into a 400 HTTPError.
//
// Repository address errors, whether returned by msys2.Validate or reported
// by the struct-level rule, get their own code (e.g. INVALID_ARCHITECTURE)
// and a single field error. Anything else is a plain validation failure.
func ToHTTPError(err error) *errs.HTTPError {
	if addrErr := addressErrorFrom(err); addrErr != nil {
		return AddressError(addrErr)
	}
	return errs.ValidationError(err)
}

// AddressError turns a rejected repository address into a 400 whose code is
// the error kind and whose single field error names the offending segment.
func AddressError(err *msys2.ValidationError) *errs.HTTPError {
	code := string(err.Kind)
	return errs.NewBadRequestError(err.Error(), true, &code, []errs.FieldError{
		{Field: err.Kind.Field(), Error: err.Error()},
	})
}

// addressErrorFrom recovers the *msys2.ValidationError behind err. The
// struct-level rule reports it as a validator.FieldError whose tag is the
// kind and whose param is the environment.
func addressErrorFrom(err error) *msys2.ValidationError {
	var addrErr *msys2.ValidationError
	if errors.As(err, &addrErr) {
		return addrErr
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	for _, e := range validationErrors {
		switch kind := msys2.ErrorKind(e.Tag()); kind {
		case msys2.InvalidEnvironment, msys2.InvalidArchitecture, msys2.InvalidPackageName:
			return &msys2.ValidationError{
				Kind:        kind,
				Value:       fmt.Sprint(e.Value()),
				Environment: e.Param(),
			}
		}
	}
	return nil
}
