package notify

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notify",
	fx.Provide(func(log *zap.Logger) Sink {
		return NewLogSink(log)
	}),
)
