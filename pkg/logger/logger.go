package logger

import (
	"context"

	"go.uber.org/zap"

	"github.com/HighTechnologyAI/ironbrain-sub001/pkg/trace"
)

// NewLogger builds the production logger used by every component.
func NewLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return l
}

// WithTrace attaches the trace_id from ctx to the logger, if present.
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	traceID := trace.FromContext(ctx)
	if traceID != "" {
		return logger.With(zap.String("trace_id", traceID))
	}
	return logger
}
