package msys2

import "fmt"

// ErrorKind classifies a rejected package file request.
type ErrorKind string

const (
	InvalidEnvironment  ErrorKind = "INVALID_ENVIRONMENT"
	InvalidArchitecture ErrorKind = "INVALID_ARCHITECTURE"
	InvalidPackageName  ErrorKind = "INVALID_PACKAGE_NAME"
)

// Field returns the request field the kind refers to.
func (k ErrorKind) Field() string {
	switch k {
	case InvalidEnvironment:
		return "environment"
	case InvalidArchitecture:
		return "architecture"
	case InvalidPackageName:
		return "package"
	default:
		return ""
	}
}

// ValidationError is returned by Validate. It is always caused by the caller's
// input and never by the upstream.
type ValidationError struct {
	Kind  ErrorKind
	Value string

	// Environment is set for InvalidArchitecture so the message can name it.
	Environment string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case InvalidEnvironment:
		return fmt.Sprintf("%q is not a valid msys2 environment", e.Value)
	case InvalidArchitecture:
		return fmt.Sprintf("%q is not a valid %s architecture", e.Value, e.Environment)
	case InvalidPackageName:
		return fmt.Sprintf("%q is not a valid package name", e.Value)
	default:
		return fmt.Sprintf("%q is not valid", e.Value)
	}
}

// Is matches any *ValidationError with the same Kind, so callers can write
// errors.Is(err, msys2.ErrInvalidPackageName).
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidEnvironment  = &ValidationError{Kind: InvalidEnvironment}
	ErrInvalidArchitecture = &ValidationError{Kind: InvalidArchitecture}
	ErrInvalidPackageName  = &ValidationError{Kind: InvalidPackageName}
)
