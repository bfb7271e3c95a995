package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	authapp "economy-server/internal/application/auth"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

const (
	// ContextKeyGuildID 認証済みギルドIDのコンテキストキー
	ContextKeyGuildID = "guild_id"
	// ContextKeyUserID 認証済みユーザーIDのコンテキストキー
	ContextKeyUserID = "user_id"
)

// TokenParser JWTトークンを検証して利用者を返す
type TokenParser interface {
	ParseToken(tokenString string) (*authapp.Principal, error)
}

// AuthMiddleware JWT認証ミドルウェア
func AuthMiddleware(parser TokenParser, logger *otelinfra.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn(ctx, "Missing authorization header", nil)
				return unauthorized(c, "Missing authorization header")
			}

			// Bearerトークンの形式を確認
			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || scheme != "Bearer" || tokenString == "" {
				logger.Warn(ctx, "Invalid authorization header format", nil)
				return unauthorized(c, "Invalid authorization header format")
			}

			principal, err := parser.ParseToken(tokenString)
			if err != nil {
				logger.Warn(ctx, "Invalid token", map[string]interface{}{
					"error": err.Error(),
				})
				return unauthorized(c, "Invalid or expired token")
			}

			c.Set(ContextKeyGuildID, principal.GuildID)
			c.Set(ContextKeyUserID, principal.UserID)

			return next(c)
		}
	}
}

// GuildID 認証済みギルドIDを取得
func GuildID(c echo.Context) string {
	guildID, _ := c.Get(ContextKeyGuildID).(string)
	return guildID
}

// UserID 認証済みユーザーIDを取得
func UserID(c echo.Context) string {
	userID, _ := c.Get(ContextKeyUserID).(string)
	return userID
}

func unauthorized(c echo.Context, message string) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthorized",
		Message: message,
		Code:    "UNAUTHORIZED",
	})
}
