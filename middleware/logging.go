package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/tierq/request"
)

// Logging returns middleware that logs request start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, r *request.Request, next Handler) ([]byte, error) {
		logger.Info("request started",
			slog.String("handler", r.Handler),
			slog.String("request_id", r.ID.String()),
			slog.String("user_id", r.UserID),
			slog.String("tier", string(r.Tier)),
		)

		start := time.Now()
		result, err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("request failed",
				slog.String("handler", r.Handler),
				slog.String("request_id", r.ID.String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("request completed",
				slog.String("handler", r.Handler),
				slog.String("request_id", r.ID.String()),
				slog.Duration("elapsed", elapsed),
			)
		}

		return result, err
	}
}
