package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
	MaxBodySize    int64
	// AccessLog enables chi's request logger.
	AccessLog bool
}

// NewRouter wires the gateway routes. Every request is traced with otelhttp.
func NewRouter(sessions *SessionHandler, reports *ReportHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	if cfg.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.RequestSize(cfg.MaxBodySize))
	}
	r.Use(TokenMiddleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessions.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessions.Get)
				r.Delete("/", sessions.Delete)
				r.Post("/search", sessions.Search)
				r.Get("/search", sessions.SearchResults)
				r.Post("/items", sessions.AddItem)
				r.Patch("/items/{product_id}", sessions.UpdateQuantity)
				r.Delete("/items/{product_id}", sessions.RemoveItem)
				r.Post("/freebies", sessions.AddFreebie)
				r.Delete("/freebies/{product_id}", sessions.RemoveFreebie)
				r.Put("/pricing", sessions.UpdatePricing)
				r.Post("/clear", sessions.Clear)
				r.Post("/submit", sessions.Submit)
			})
		})
		r.Get("/sales", reports.ListSales)
		r.Get("/daily-cut", reports.DailyCut)
		r.Post("/daily-cut/reconcile", reports.Reconcile)
		r.Get("/stores", reports.Stores)
	})

	name := cfg.ServiceName
	if name == "" {
		name = "pos-gateway"
	}
	return otelhttp.NewHandler(r, name)
}
