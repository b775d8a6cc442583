package middleware

import (
	"time"

	"github.com/miladsoleymani/qmux/core"
)

// MetricsCollector is the interface that metrics backends must implement.
// This keeps the middleware decoupled from any specific metrics library.
type MetricsCollector interface {
	// MessageProcessed records that a message was processed.
	// status is empty when err is not nil.
	MessageProcessed(queue string, status core.Status, duration time.Duration, err error)
}

// Metrics returns middleware that reports processing metrics to the given collector.
func Metrics(collector MetricsCollector) core.Middleware {
	return func(next core.Processor) core.Processor {
		return core.ProcessorFunc(func(c core.Context) (core.Result, error) {
			start := time.Now()
			res, err := next.Process(c)
			var status core.Status
			if err == nil {
				status = res.Status
			}
			collector.MessageProcessed(c.Queue(), status, time.Since(start), err)
			return res, err
		})
	}
}
