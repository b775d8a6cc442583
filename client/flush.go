package client

import (
	"context"
	"log/slog"
)

// Flusher delivers buffered messages. *SpoolProducer implements it.
type Flusher interface {
	Flush(ctx context.Context) error
}

// FlushListener flushes a spool when the process terminates. Calling
// FlushMessages more than once is safe: an empty spool sends nothing.
type FlushListener struct {
	spool  Flusher
	logger *slog.Logger
}

// NewFlushListener creates a FlushListener. A nil logger uses slog.Default().
func NewFlushListener(spool Flusher, logger *slog.Logger) *FlushListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlushListener{spool: spool, logger: logger}
}

// FlushMessages flushes the spool.
func (l *FlushListener) FlushMessages(ctx context.Context) error {
	if err := l.spool.Flush(ctx); err != nil {
		l.logger.ErrorContext(ctx, "flush spooled messages", slog.Any("error", err))
		return err
	}
	return nil
}
