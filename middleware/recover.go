package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/xraph/tierq/request"
)

// Recover returns middleware that recovers from panics in the handler chain.
// Panics are converted to errors and logged with a stack trace, so a
// panicking handler fails its request instead of crashing the scheduler.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, r *request.Request, next Handler) (result []byte, retErr error) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := string(debug.Stack())
				logger.Error("request handler panicked",
					slog.String("handler", r.Handler),
					slog.String("request_id", r.ID.String()),
					slog.Any("panic", rec),
					slog.String("stack", stack),
				)
				result = nil
				retErr = fmt.Errorf("panic in handler %s: %v", r.Handler, rec)
			}
		}()
		return next(ctx)
	}
}
