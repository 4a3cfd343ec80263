// Package adapter is the provider format adapter: it classifies a model
// identifier into a provider family and applies that family's request
// formatter and response decoder as a matched pair. Classification runs
// once per entry point, so the formatter and decoder of a single invocation
// always belong to the same family.
package adapter

import (
	"context"

	"go.uber.org/zap"

	"manifold/internal/core"
	"manifold/internal/core/decode"
	"manifold/internal/core/family"
	"manifold/internal/core/format"
)

// Adapter holds no per-call state; every invocation's payload, parsed
// document and delta sequence are call-local.
type Adapter struct {
	formatter *format.Formatter
	log       *zap.Logger
}

// New creates an Adapter.
func New(log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		formatter: format.New(log),
		log:       log,
	}
}

// NewWithFormatter creates an Adapter around a caller-supplied formatter.
func NewWithFormatter(log *zap.Logger, f *format.Formatter) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{formatter: f, log: log}
}

// Invoke serializes a uniform chat request into the wire payload of the
// model's provider family. An unknown family produces an empty payload and
// no error.
func (a *Adapter) Invoke(ctx context.Context, modelID string, turns []core.ChatTurn, params core.GenerationParams) ([]byte, error) {
	return a.formatter.Format(ctx, family.Classify(modelID), turns, params)
}

// Decode extracts the plain-text result from a complete provider response.
func (a *Adapter) Decode(modelID string, raw []byte) (string, error) {
	return decode.Extract(family.Classify(modelID), raw)
}

// DecodeStream normalizes raw provider stream events into text deltas,
// emitted in arrival order.
func (a *Adapter) DecodeStream(ctx context.Context, modelID string, events <-chan []byte) <-chan string {
	return decode.Stream(ctx, family.Classify(modelID), events, a.log)
}
