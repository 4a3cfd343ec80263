// Package catalog tracks the models advertised by the upstream. Listing is
// best-effort: a failed refresh keeps an explanatory placeholder entry
// instead of failing the server.
package catalog

import (
	"context"
	"sync"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"manifold/internal/transport"
)

// Model is one catalog entry.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// errorModel is served when the upstream listing cannot be fetched.
var errorModel = Model{
	ID:   "error",
	Name: "Could not fetch models from the upstream, please check your credentials and endpoint configuration.",
}

// Catalog caches the upstream model listing.
type Catalog struct {
	tc  *transport.Client
	log *zap.Logger

	mu     sync.RWMutex
	models []Model
}

// New creates an empty catalog backed by tc.
func New(tc *transport.Client, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{tc: tc, log: log}
}

// Refresh replaces the cached listing with the upstream's
// modelSummaries[].{modelId,modelName}. A fetch or parse failure is logged
// and leaves the placeholder entry in place; it never fails the caller.
func (c *Catalog) Refresh(ctx context.Context) {
	raw, err := c.tc.ListModels(ctx)
	if err != nil {
		c.log.Warn("failed to fetch model catalog", zap.Error(err))
		c.setModels([]Model{errorModel})
		return
	}

	summaries := gjson.GetBytes(raw, "modelSummaries")
	if !summaries.IsArray() {
		c.log.Warn("model catalog response has no modelSummaries array")
		c.setModels([]Model{errorModel})
		return
	}

	var models []Model
	summaries.ForEach(func(_, summary gjson.Result) bool {
		models = append(models, Model{
			ID:   summary.Get("modelId").String(),
			Name: summary.Get("modelName").String(),
		})
		return true
	})

	c.setModels(models)
	c.log.Info("model catalog refreshed", zap.Int("models", len(models)))
}

// Models returns a copy of the cached listing.
func (c *Catalog) Models() []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}

func (c *Catalog) setModels(models []Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = models
}
