package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/labstack/echo/v4"

	"economy-server/internal/infrastructure/config"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

// APIKeyMiddleware APIキー認証ミドルウェア
// キーが一つも設定されていない場合、管理APIは無効
func APIKeyMiddleware(cfg *config.AdminAPIConfig, logger *otelinfra.Logger) echo.MiddlewareFunc {
	allowed := cfg.AllowedPrefixes()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			if !cfg.Enabled() {
				logger.Warn(ctx, "Admin API is disabled", nil)
				return c.JSON(http.StatusForbidden, ErrorResponse{
					Error:   "forbidden",
					Message: "Admin API is disabled",
					Code:    "FORBIDDEN",
				})
			}

			apiKey := c.Request().Header.Get("X-API-Key")
			if apiKey == "" {
				logger.Warn(ctx, "Missing X-API-Key header", nil)
				return unauthorized(c, "Missing X-API-Key header")
			}

			if !cfg.ValidKey(apiKey) {
				logger.Warn(ctx, "Invalid API key", nil)
				return unauthorized(c, "Invalid API key")
			}

			// IP制限のチェック（設定されている場合）
			if len(allowed) > 0 {
				clientIP := getClientIP(c)
				if !config.IPAllowed(clientIP, allowed) {
					logger.Warn(ctx, "IP address not allowed", map[string]interface{}{
						"ip": clientIP,
					})
					return c.JSON(http.StatusForbidden, ErrorResponse{
						Error:   "forbidden",
						Message: "IP address not allowed",
						Code:    "FORBIDDEN",
					})
				}
			}

			return next(c)
		}
	}
}

// getClientIP クライアントのIPアドレスを取得
func getClientIP(c echo.Context) string {
	// X-Forwarded-Forヘッダーから取得（プロキシ経由の場合）
	if forwardedFor := c.Request().Header.Get("X-Forwarded-For"); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		return strings.TrimSpace(first)
	}

	if realIP := c.Request().Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	addr := c.Request().RemoteAddr
	if addrPort, err := netip.ParseAddrPort(addr); err == nil {
		return addrPort.Addr().String()
	}
	return addr
}
