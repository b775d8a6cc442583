package middleware

import (
	"log/slog"
	"time"

	"github.com/miladsoleymani/qmux/core"
)

// Logging returns middleware that logs every processed message with its
// result and processing time. A nil logger uses slog.Default().
func Logging(logger *slog.Logger) core.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next core.Processor) core.Processor {
		return core.ProcessorFunc(func(c core.Context) (core.Result, error) {
			start := time.Now()
			res, err := next.Process(c)
			attrs := []any{
				slog.String("queue", c.Queue()),
				slog.String("key", string(c.Key())),
				slog.Duration("elapsed", time.Since(start)),
			}

			if err != nil {
				logger.ErrorContext(c.Context(), "message failed", append(attrs, slog.Any("error", err))...)
				return res, err
			}

			attrs = append(attrs, slog.String("status", string(res.Status)))
			if res.Reason != "" {
				attrs = append(attrs, slog.String("reason", res.Reason))
			}
			logger.InfoContext(c.Context(), "message processed", attrs...)
			return res, nil
		})
	}
}
