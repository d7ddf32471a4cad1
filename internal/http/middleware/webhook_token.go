package middleware

import (
	"crypto/subtle"
	"net/http"

	echo "github.com/labstack/echo/v4"
)

const WebhookTokenHeader = "X-Webhook-Token"

// WebhookTokenMiddleware requires X-Webhook-Token to equal token. An empty token disables the check.
func WebhookTokenMiddleware(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}
			got := c.Request().Header.Get(WebhookTokenHeader)
			if got == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing webhook token"})
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid webhook token"})
			}
			return next(c)
		}
	}
}
