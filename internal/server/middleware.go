package server

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/hunoz/dave-user-api/internal/auth"
	"github.com/hunoz/dave-user-api/internal/logctx"
)

// userContextKey carries the verified caller identity on the echo context.
const userContextKey = "user"

// requestLogger binds a request-scoped logger, tagged with the request id,
// into the request context for the duration of the call.
func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = c.Request().Header.Get(echomw.DefaultRequestIDConfig.TargetHeader)
			}
			ctx := logctx.WithRequestID(c.Request().Context(), logger, requestID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// authenticate verifies the Authorization header and stores the caller
// identity on the context. Verification failures map to 401 through the
// shared error handler.
func authenticate(verifier auth.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}
			user, err := verifier.Verify(c.Request().Context(), auth.StripBearer(header))
			if err != nil {
				return toHTTPError(c, err)
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// callerOf returns the verified identity stored by authenticate.
func callerOf(c echo.Context) (auth.UserInfo, error) {
	user, ok := c.Get(userContextKey).(auth.UserInfo)
	if !ok {
		return auth.UserInfo{}, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return user, nil
}
