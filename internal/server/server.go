// Copyright Contributors to the SeaClaw Platform project

// Package server assembles the gateway's HTTP surface: a chi router
// dispatching to the orchestrator, relay, swarm controller, and plan
// tracker. Validation happens at this layer, before any component call.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/seaclaw/platform/internal/orchestrator"
	"github.com/seaclaw/platform/internal/planstore"
	"github.com/seaclaw/platform/internal/registry"
	"github.com/seaclaw/platform/internal/relay"
	"github.com/seaclaw/platform/internal/server/handlers"
	"github.com/seaclaw/platform/internal/server/middleware"
	"github.com/seaclaw/platform/internal/swarm"
)

var log = ctrl.Log.WithName("server")

// requestTimeout bounds one request end to end. It sits just above the
// relay's 120-second chat bound so the relay's own 504 wins the race.
const requestTimeout = 125 * time.Second

// Options holds everything the server dispatches to.
type Options struct {
	// Address is the listen address, e.g. ":8090".
	Address      string
	Orchestrator *orchestrator.Orchestrator
	Registry     *registry.Registry
	Relay        *relay.Relay
	Swarm        *swarm.Controller
	PlanStore    *planstore.Store
}

// Server is the gateway HTTP server.
type Server struct {
	opts       Options
	httpServer *http.Server
}

// New assembles a server over the given components.
func New(opts Options) *Server {
	return &Server{opts: opts}
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "address", s.opts.Address)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		log.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Routes builds the router. Exposed so tests can mount it on httptest.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Get("/health", s.healthHandler)

	agentHandler := handlers.NewAgentHandler(s.opts.Orchestrator, s.opts.Relay, s.opts.Registry)
	swarmHandler := handlers.NewSwarmHandler(s.opts.Swarm)
	taskHandler := handlers.NewTaskHandler(s.opts.PlanStore)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/agents/create", agentHandler.Create)
		r.Get("/agents", agentHandler.List)

		r.Route("/agents/{username}", func(r chi.Router) {
			r.Get("/", agentHandler.Get)
			r.Delete("/", agentHandler.Delete)
			r.Post("/restart", agentHandler.Restart)
			r.Patch("/config", agentHandler.UpdateConfig)
			r.Post("/chat", agentHandler.Chat)
			r.Post("/project", agentHandler.Project)
			r.Get("/workspace", agentHandler.Workspace)
			r.Get("/tasks", agentHandler.Tasks)

			r.Post("/workers", swarmHandler.Spawn)
			r.Get("/workers", swarmHandler.List)
			r.Delete("/workers/{worker}", swarmHandler.Terminate)
			r.Post("/relay", swarmHandler.Relay)
		})

		r.Get("/platform/tasks", taskHandler.List)
		r.Patch("/platform/tasks/{id}", taskHandler.Update)
	})

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","timestamp":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
}
