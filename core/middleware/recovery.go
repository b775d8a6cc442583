package middleware

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/miladsoleymani/qmux/core"
)

// Recovery returns middleware that recovers from panics in processors,
// logs the stack trace, and returns the panic as an error.
func Recovery(logger *slog.Logger) core.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next core.Processor) core.Processor {
		return core.ProcessorFunc(func(c core.Context) (res core.Result, err error) {
			defer func() {
				if r := recover(); r != nil {
					buf := make([]byte, 4096)
					n := runtime.Stack(buf, false)
					logger.ErrorContext(c.Context(), "panic recovered",
						slog.String("queue", c.Queue()),
						slog.Any("panic", r),
						slog.String("stack", string(buf[:n])),
					)
					res = core.Result{}
					err = fmt.Errorf("qmux: panic recovered: %v", r)
				}
			}()
			return next.Process(c)
		})
	}
}
