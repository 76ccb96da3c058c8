package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/shop_api/internal/service"
	"github.com/Skotchmaster/shop_api/internal/validation"
)

const (
	msgInternal    = "An unexpected error occurred on the server."
	msgUnavailable = "Service temporarily unavailable, please retry."
)

type validationBody struct {
	Success bool                    `json:"success"`
	Errors  []validation.FieldError `json:"errors"`
}

// ErrorHandler renders every error as JSON. String messages become
// {"message": ...}; structured messages are written as they are. Internal
// errors never reach the client.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var body any = map[string]string{"message": msgInternal}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case string:
			body = map[string]string{"message": m}
		case nil:
			body = map[string]string{"message": http.StatusText(code)}
		default:
			body = m
		}
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

func invalid(err *validation.Error) error {
	return echo.NewHTTPError(http.StatusBadRequest, validationBody{Success: false, Errors: err.Errors})
}

// fail logs the failure at a level matching its status and returns the
// client-facing error.
func fail(l *slog.Logger, event string, status int, msg string, err error) error {
	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "reason", msg, "error", err)
	} else {
		l.Warn(event, "status", status, "reason", msg, "error", err)
	}
	return echo.NewHTTPError(status, msg)
}

// serviceError maps service errors to HTTP responses. notFound is the message
// used for ErrNotFound and fallback the one used for unexpected errors.
func serviceError(l *slog.Logger, event string, err error, notFound, fallback string) error {
	var ve *validation.Error
	if errors.As(err, &ve) {
		l.Warn(event, "status", http.StatusBadRequest, "reason", "validation failed", "error", err)
		return invalid(ve)
	}

	var ce *service.ClientError
	if errors.As(err, &ce) {
		return fail(l, event, clientStatus(ce.Kind), ce.Msg, err)
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		return fail(l, event, http.StatusNotFound, notFound, err)
	case errors.Is(err, service.ErrConflict):
		return fail(l, event, http.StatusConflict, "Resource is still referenced or already exists.", err)
	case errors.Is(err, service.ErrTimeout), errors.Is(err, service.ErrUnavailable):
		return fail(l, event, http.StatusServiceUnavailable, msgUnavailable, err)
	case errors.Is(err, service.ErrDataIntegrity):
		return fail(l, event, http.StatusInternalServerError, "An internal error occurred while processing your request. Please try again later.", err)
	}
	return fail(l, event, http.StatusInternalServerError, fallback, err)
}

func clientStatus(kind error) int {
	switch {
	case errors.Is(kind, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(kind, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(kind, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(kind, service.ErrTimeout), errors.Is(kind, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func parseID(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
