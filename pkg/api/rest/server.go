// Package rest implements the daemon's HTTP integration layer: it decodes
// requests into the dispatcher's typed request vocabulary and translates
// results and errors back into JSON and status codes.
package rest

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kmdouglass/kpal/pkg/core"
)

// Server is the REST API server. It holds no state of its own beyond the
// engine it fronts and the *http.Server it manages.
type Server struct {
	engine *core.Engine
	srv    *http.Server
}

// NewServer returns a Server bound to engine, listening on the address in
// engine's configuration.
func NewServer(engine *core.Engine) *Server {
	return &Server{engine: engine}
}

// Start builds the router and begins serving in a background goroutine. It
// returns once the listener is configured; ListenAndServe errors other than
// a clean Shutdown are logged through the engine's logger.
func (s *Server) Start() error {
	r := mux.NewRouter()
	s.registerRoutes(r)

	addr := s.engine.Config().HTTP.Address
	if addr == "" {
		addr = ":8080"
	}

	s.srv = &http.Server{
		Addr:    addr,
		Handler: r,
	}

	logger := s.engine.Logger().WithComponent("rest")
	logger.Info("REST API listening", "address", addr)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("REST API server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP listener, waiting for in-flight
// requests to complete or ctx to expire.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) registerRoutes(r *mux.Router) {
	r.Use(requestID(s.engine.Logger().WithComponent("rest")))

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	if s.engine.Config().Metrics.Enabled {
		endpoint := s.engine.Config().Metrics.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.Handle(endpoint, promhttp.Handler()).Methods(http.MethodGet)
	}

	v0 := r.PathPrefix("/api/v0").Subrouter()

	v0.HandleFunc("/libraries", s.handleListLibraries).Methods(http.MethodGet)
	v0.HandleFunc("/libraries/{id}", s.handleGetLibrary).Methods(http.MethodGet)

	v0.HandleFunc("/peripherals", s.handleListPeripherals).Methods(http.MethodGet)
	v0.HandleFunc("/peripherals", s.handleCreatePeripheral).Methods(http.MethodPost)
	v0.HandleFunc("/peripherals/{id}", s.handleGetPeripheral).Methods(http.MethodGet)
	v0.HandleFunc("/peripherals/{id}/attributes", s.handleListAttributes).Methods(http.MethodGet)
	v0.HandleFunc("/peripherals/{id}/attributes/{aid}", s.handleGetAttribute).Methods(http.MethodGet)
	v0.HandleFunc("/peripherals/{id}/attributes/{aid}", s.handleSetAttribute).Methods(http.MethodPatch)
}
