package audit

import (
	"context"
	"log/slog"
)

// LogSink writes events to the structured log. It is the fallback sink for
// deployments that run without a Kafka broker.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(ctx context.Context, event Event) error {
	attrs := []any{
		"log_type", "audit",
		"action", event.Action,
		"application_id", event.ApplicationID.String(),
		"request_id", event.RequestID,
		"timestamp", event.Timestamp,
	}
	for k, v := range event.Detail {
		attrs = append(attrs, k, v)
	}
	s.logger.InfoContext(ctx, "audit event", attrs...)
	return nil
}
