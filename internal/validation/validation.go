// Package validation contains the logic for validating
// request data.
//
// It uses the `validator` library to enforce rules defined in
// struct tags, plus a struct-level rule for MSYS2 package file
// addresses, and turns failures into errors the client can
// understand.
package validation

import (
	"github.com/go-playground/validator/v10"

	"github.com/deppfellow/msys2-relay/internal/msys2"
)

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves every request.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(packageFileStructLevel, msys2.PackageFile{})
	return v
}

// packageFileStructLevel applies the repository rules to a whole
// msys2.PackageFile. Environment, architecture and package depend on each
// other and are checked in that order, so at most one error is reported.
//
// The reported tag is the msys2.ErrorKind; for architecture errors the
// param carries the environment so the message can name it.
func packageFileStructLevel(sl validator.StructLevel) {
	f := sl.Current().Interface().(msys2.PackageFile)

	_, err := msys2.Validate(f.Environment, f.Architecture, f.Package)
	vErr, ok := err.(*msys2.ValidationError)
	if !ok {
		return
	}

	var structField string
	switch vErr.Kind {
	case msys2.InvalidEnvironment:
		structField = "Environment"
	case msys2.InvalidArchitecture:
		structField = "Architecture"
	case msys2.InvalidPackageName:
		structField = "Package"
	}

	sl.ReportError(vErr.Value, vErr.Kind.Field(), structField, string(vErr.Kind), vErr.Environment)
}

// Struct validates s against its `validate` tags and registered struct rules.
func Struct(s interface{}) error {
	return validate.Struct(s)
}
