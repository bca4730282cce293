// Package notify is the fire-and-forget notification sink. Delivery failures
// are logged, never propagated.
package notify

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

type Sink interface {
	Notify(ctx context.Context, userID snowflake.ID, title, body string)
}

// LogSink records notifications to the structured log. It stands in for the
// push/email delivery service, which is out of scope for this core.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("notify")}
}

func (s *LogSink) Notify(ctx context.Context, userID snowflake.ID, title, body string) {
	_ = ctx
	s.log.Info("notification",
		zap.String("user_id", userID.String()),
		zap.String("title", title),
		zap.String("body", body),
	)
}
