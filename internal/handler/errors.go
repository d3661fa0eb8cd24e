package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	apperrors "noelphones/internal/errors"
)

var errInvalidBody = apperrors.Validation("invalid request body")

// ErrorHandler renders every error as an ErrorResponse. Expected errors keep
// their message; anything unexpected is logged and collapsed to a generic 500.
func ErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolve(err)
		if status >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", c.Request().Method).
				Str("path", c.Path()).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error().Err(err).Msg("write error response")
		}
	}
}

func resolve(err error) (int, apperrors.ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok || he.Code >= http.StatusInternalServerError {
			msg = strings.ToLower(http.StatusText(he.Code))
		}
		code := strings.ToUpper(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
		return he.Code, apperrors.ErrorResponse{Error: msg, Code: code}
	}

	httpErr := apperrors.MapErrorToHTTP(err)
	return httpErr.StatusCode, httpErr.ToErrorResponse()
}

// validationError turns validator output into a client-facing validation
// error. Missing fields are reported as "<fields> required". Field names are
// whatever the validator's tag name func yields, the JSON names in practice.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errInvalidBody
	}

	var missing, invalid []string
	for _, fe := range fieldErrs {
		name := fe.Field()
		if fe.Tag() == "required" {
			missing = append(missing, name)
			continue
		}
		invalid = append(invalid, name)
	}

	if len(missing) > 0 {
		return apperrors.Validation(strings.Join(missing, ", ") + " required")
	}
	return apperrors.Validation(fmt.Sprintf("invalid %s", strings.Join(invalid, ", ")))
}
