package middleware

import (
	"time"

	"go.uber.org/zap"

	"github.com/wynkjs/wynk/pkg/wynk"
)

// Logging logs one line per request with its status and duration. Paths in
// skip are not logged.
func Logging(logger *zap.Logger, skip ...string) wynk.MiddlewareFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}

	return func(next wynk.HandlerFunc) wynk.HandlerFunc {
		return func(c wynk.RequestContext) error {
			if skipped[c.Path()] {
				return next(c)
			}
			start := time.Now()

			err := next(c)

			fields := []zap.Field{
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			if id := GetRequestID(c); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}
			if err != nil {
				logger.Error("request failed", append(fields, zap.Error(err))...)
				return err
			}
			logger.Info("request", fields...)
			return nil
		}
	}
}
