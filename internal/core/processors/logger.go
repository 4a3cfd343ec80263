package processors

import (
	"time"

	"go.uber.org/zap"

	"manifold/internal/core"
	"manifold/internal/core/family"
)

// RequestLogger logs the start and completion of each invocation.
type RequestLogger struct {
	name     string
	priority int
}

// NewRequestLogger creates the logging processor. It runs before everything
// else in the pipeline.
func NewRequestLogger() *RequestLogger {
	return &RequestLogger{
		name:     "request-logger",
		priority: -100,
	}
}

// Name returns the processor name
func (r *RequestLogger) Name() string {
	return r.name
}

// Priority returns the processor priority
func (r *RequestLogger) Priority() int {
	return r.priority
}

// OnRequest logs the invocation before family dispatch.
func (r *RequestLogger) OnRequest(ctx *core.RequestContext, inv *core.Invocation) error {
	ctx.Log.Info("request started",
		zap.String("model", inv.ModelID),
		zap.String("family", family.Classify(inv.ModelID).String()),
		zap.Int("turns", len(inv.Turns)),
		zap.Bool("stream", inv.Stream),
	)
	return nil
}

// OnResponse logs the completed invocation with its latency.
func (r *RequestLogger) OnResponse(ctx *core.RequestContext, output string) error {
	ctx.Log.Info("request finished",
		zap.Duration("latency", time.Since(ctx.StartTime)),
		zap.Int("output_chars", len(output)),
	)
	return nil
}
