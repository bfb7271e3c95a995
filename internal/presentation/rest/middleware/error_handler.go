package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	otelinfra "economy-server/internal/infrastructure/observability/otel"
	"economy-server/internal/presentation/apierror"
)

// ErrorResponse エラーレスポンス
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorHandlerMiddleware エラーハンドリングミドルウェア
func ErrorHandlerMiddleware(logger *otelinfra.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}
			return handleError(c, err, logger)
		}
	}
}

// handleError エラーを処理して適切なHTTPレスポンスを返す
func handleError(c echo.Context, err error, logger *otelinfra.Logger) error {
	ctx := c.Request().Context()

	if ce, ok := apierror.Classify(err); ok {
		logger.Warn(ctx, "Request rejected", map[string]interface{}{
			"code":  ce.Code,
			"error": err.Error(),
		})
		return c.JSON(ce.Status, ErrorResponse{
			Error:   http.StatusText(ce.Status),
			Message: err.Error(),
			Code:    ce.Code,
			Details: ce.Details,
		})
	}

	// EchoのHTTPエラー
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		logger.Warn(ctx, "HTTP error", map[string]interface{}{
			"status_code": httpErr.Code,
			"message":     httpErr.Message,
		})
		message, ok := httpErr.Message.(string)
		if !ok {
			message = http.StatusText(httpErr.Code)
		}
		return c.JSON(httpErr.Code, ErrorResponse{
			Error:   http.StatusText(httpErr.Code),
			Message: message,
		})
	}

	// 予期しないエラー（ストレージ障害など）
	logger.Error(ctx, "Internal server error", err, map[string]interface{}{
		"path": c.Request().URL.Path,
	})
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   http.StatusText(http.StatusInternalServerError),
		Message: "An unexpected error occurred",
		Code:    "INTERNAL_ERROR",
	})
}
