package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

// LoggingInterceptor リクエストのログとメトリクスを記録するインターセプター
// パニックはInternalに変換する
func LoggingInterceptor(logger *otelinfra.Logger, metrics *otelinfra.Metrics) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "gRPC handler panicked", nil, map[string]interface{}{
					"method": info.FullMethod,
					"panic":  r,
				})
				resp, err = nil, status.Error(codes.Internal, "internal server error")
			}

			code := status.Code(err)
			duration := time.Since(start)
			fields := map[string]interface{}{
				"method":      info.FullMethod,
				"code":        code.String(),
				"duration_ms": duration.Milliseconds(),
			}

			if metrics != nil {
				metrics.RecordRequest(ctx, "grpc", info.FullMethod)
				metrics.RecordResponseTime(ctx, "grpc", info.FullMethod, duration.Seconds())
			}

			switch code {
			case codes.OK:
				logger.Info(ctx, "gRPC request completed", fields)
			case codes.Internal, codes.Unknown, codes.Unavailable:
				if metrics != nil {
					metrics.RecordError(ctx, "server_error")
				}
				logger.Error(ctx, "gRPC request failed", err, fields)
			default:
				if metrics != nil {
					metrics.RecordError(ctx, "client_error")
				}
				logger.Warn(ctx, "gRPC request rejected", fields)
			}
		}()

		return handler(ctx, req)
	}
}
