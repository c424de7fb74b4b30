package middleware

import (
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/msys2-relay/internal/errs"
)

// UnescapePathParams decodes route params exactly once.
//
// Echo matches on URL.RawPath whenever the client used a non-canonical
// escape (x86%5F64, a%2Fb) and then hands the params over still encoded.
// When RawPath is empty the params come from URL.Path and are already
// decoded, so they are left alone.
func UnescapePathParams() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.RawPath == "" {
				return next(c)
			}

			names := c.ParamNames()
			values := c.ParamValues()
			decoded := make([]string, len(values))

			for i, v := range values {
				d, err := url.PathUnescape(v)
				if err != nil {
					field := ""
					if i < len(names) {
						field = names[i]
					}
					code := "INVALID_PATH_ESCAPE"
					return errs.NewBadRequestError("Malformed percent-encoding in path", true, &code, []errs.FieldError{
						{Field: field, Error: err.Error()},
					})
				}
				decoded[i] = d
			}

			c.SetParamValues(decoded...)
			return next(c)
		}
	}
}
