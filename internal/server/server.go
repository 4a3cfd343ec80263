// Package server exposes the uniform chat completion surface over HTTP.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"manifold/internal/adapter"
	"manifold/internal/catalog"
	"manifold/internal/core"
	"manifold/internal/core/processors"
	"manifold/internal/transport"
)

// Server hosts the chat completion, model listing and health endpoints.
type Server struct {
	addr      string
	log       *zap.Logger
	adapter   *adapter.Adapter
	transport *transport.Client
	catalog   *catalog.Catalog
	pipeline  *core.Pipeline
	server    *http.Server
}

// New wires the adapter, transport and catalog into a server.
func New(addr string, log *zap.Logger, tc *transport.Client) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	pipeline := core.NewPipeline()
	pipeline.Add(processors.NewRequestLogger())

	return &Server{
		addr:      addr,
		log:       log,
		adapter:   adapter.New(log),
		transport: tc,
		catalog:   catalog.New(tc, log),
		pipeline:  pipeline,
	}
}

// Handler returns the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/v1/models", s.handleModels)
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)

	return mux
}

// Start refreshes the model catalog, serves until SIGINT/SIGTERM, then
// shuts down gracefully.
func (s *Server) Start() error {
	// Best-effort; a failed refresh leaves the placeholder entry
	refreshCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	s.catalog.Refresh(refreshCtx)
	cancel()

	s.server = &http.Server{
		Addr:        s.addr,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.log.Info("starting manifold", zap.String("addr", s.addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}
