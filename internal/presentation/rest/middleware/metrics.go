package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

// MetricsMiddleware メトリクス記録ミドルウェア
// ErrorHandlerMiddlewareより外側に置くと、変換後のステータスコードで集計される
func MetricsMiddleware(metrics *otelinfra.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			ctx := c.Request().Context()
			method := c.Request().Method

			err := next(c)

			// ルーティング後のパスで集計する
			path := c.Path()
			metrics.RecordRequest(ctx, method, path)
			metrics.RecordResponseTime(ctx, method, path, time.Since(start).Seconds())

			if errorType := classifyStatus(c.Response().Status, err); errorType != "" {
				metrics.RecordError(ctx, errorType)
			}

			return err
		}
	}
}

// classifyStatus ステータスコードからエラー種別を判定
func classifyStatus(statusCode int, err error) string {
	switch {
	case statusCode >= 500:
		return "server_error"
	case statusCode >= 400:
		return "client_error"
	case err != nil:
		// レスポンス未送信のまま返されたエラー
		return "server_error"
	default:
		return ""
	}
}
