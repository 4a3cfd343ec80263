package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestContext extends the standard context with per-invocation fields.
// Every invocation gets a fresh RequestContext; nothing in it survives the
// call.
type RequestContext struct {
	context.Context
	RequestID string
	StartTime time.Time
	Log       *zap.Logger

	mu       sync.RWMutex
	metadata map[string]any
}

// NewRequestContext creates a RequestContext with a generated request ID.
func NewRequestContext(ctx context.Context, log *zap.Logger) *RequestContext {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &RequestContext{
		Context:   ctx,
		RequestID: id,
		StartTime: time.Now(),
		Log:       log.With(zap.String("request_id", id)),
		metadata:  make(map[string]any),
	}
}

// SetMetadata sets a metadata value (thread-safe).
func (c *RequestContext) SetMetadata(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metadata[key] = value
}

// GetMetadata gets a metadata value (thread-safe).
func (c *RequestContext) GetMetadata(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.metadata[key]
	return v, ok
}
