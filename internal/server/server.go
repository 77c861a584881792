// Package server exposes the HTTP API. Every route under /api is scoped to
// the account named by the X-Account-Email header; the fronting auth layer
// is trusted to have validated it.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/freightline/loadbook/internal/common"
	"github.com/freightline/loadbook/internal/crm"
	"github.com/freightline/loadbook/internal/export"
	"github.com/freightline/loadbook/internal/ingest"
	"github.com/freightline/loadbook/internal/repository"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker func(ctx context.Context) error

type Server struct {
	ingest       *ingest.Service
	loads        repository.LoadRepository
	brokers      repository.BrokerRepository
	interactions repository.InteractionRepository
	tasks        repository.TaskRepository
	aggregator   *crm.Aggregator
	exporter     *export.Service
	health       HealthChecker
	log          *slog.Logger
}

func New(
	ingestSvc *ingest.Service,
	loads repository.LoadRepository,
	brokers repository.BrokerRepository,
	interactions repository.InteractionRepository,
	tasks repository.TaskRepository,
	aggregator *crm.Aggregator,
	exporter *export.Service,
	health HealthChecker,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ingest:       ingestSvc,
		loads:        loads,
		brokers:      brokers,
		interactions: interactions,
		tasks:        tasks,
		aggregator:   aggregator,
		exporter:     exporter,
		health:       health,
		log:          logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(accountMiddleware)

		r.Post("/extract", s.handleExtract)
		r.Post("/gmail-sync", s.handleGmailSync)
		r.Post("/extension-sync", s.handleExtensionSync)

		r.Get("/loads", s.handleListLoads)
		r.Delete("/loads", s.handleClearLoads)
		r.Get("/loads/export", s.handleExportLoads)
		r.Get("/stats", s.handleStats)

		r.Get("/brokers", s.handleListBrokers)
		r.Post("/brokers", s.handleCreateBroker)
		r.Get("/brokers/{id}", s.handleGetBroker)
		r.Patch("/brokers/{id}", s.handleUpdateBroker)
		r.Get("/brokers/{id}/interactions", s.handleListInteractions)
		r.Post("/brokers/{id}/interactions", s.handleCreateInteraction)
		r.Delete("/interactions/{id}", s.handleDeleteInteraction)

		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks", s.handleCreateTask)
		r.Patch("/tasks/{id}", s.handleUpdateTask)
		r.Delete("/tasks/{id}", s.handleDeleteTask)

		r.Post("/crm/sync", s.handleCRMSync)
	})

	return r
}

// accountMiddleware resolves the caller's partition. A missing or blank
// header falls back to the shared default partition rather than rejecting.
func accountMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := common.NormalizeAccount(r.Header.Get("X-Account-Email"))
		next.ServeHTTP(w, r.WithContext(common.WithAccount(r.Context(), account)))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.log.Error("healthz.store_unreachable", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
