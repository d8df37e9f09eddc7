package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hunoz/dave-user-api/internal/apperrors"
	"github.com/hunoz/dave-user-api/internal/logctx"
)

// errorBody is the wire shape of every failed response.
type errorBody struct {
	Message string `json:"message"`
}

// toHTTPError translates a taxonomy error into its HTTP status. The body
// carries only the fixed user-facing message; detail stays in the log.
func toHTTPError(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}

	status := http.StatusInternalServerError
	switch appErr.Kind() {
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindUnauthorized:
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		logctx.From(c.Request().Context()).Error("request failed", "error", appErr)
	}
	return c.JSON(status, errorBody{Message: appErr.Message()})
}
