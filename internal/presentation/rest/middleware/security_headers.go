package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeadersMiddleware セキュリティヘッダーを設定するミドルウェア
func SecurityHeadersMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Response().Header()

			header.Set("X-XSS-Protection", "1; mode=block")
			header.Set("X-Frame-Options", "DENY")
			header.Set("X-Content-Type-Options", "nosniff")
			// JSON APIのみを提供する
			header.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			header.Set("Cache-Control", "no-store")

			if c.Scheme() == "https" {
				header.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			header.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			return next(c)
		}
	}
}
