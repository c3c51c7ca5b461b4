package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout returns middleware that puts a deadline on each request
// context and answers 504 Gateway Timeout when the handler overruns it. The
// configured limit must leave room for a full model invocation, which is the
// slowest thing a handler does.
func RequestTimeout(limit time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), limit)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			// The handler runs in its own goroutine so expiry is observed
			// even when the handler never checks the context.
			result := make(chan error, 1)
			go func() { result <- next(c) }()

			select {
			case err := <-result:
				return err
			case <-ctx.Done():
			}

			if ctx.Err() != context.DeadlineExceeded {
				// Cancelled for another reason, typically the client
				// disconnecting mid-request.
				return ctx.Err()
			}
			if c.Response().Committed {
				return nil
			}
			return echo.NewHTTPError(http.StatusGatewayTimeout,
				"handler did not finish within the request time limit")
		}
	}
}
