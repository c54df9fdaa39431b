// Package httptransport is the thin HTTP layer over the store and the
// archive pipeline. Handlers validate and translate; domain rules live in
// the services they delegate to.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/UoA-eResearch/driveoff/internal/archive"
	"github.com/UoA-eResearch/driveoff/internal/platform/metrics"
	"github.com/UoA-eResearch/driveoff/internal/platform/middleware"
	"github.com/UoA-eResearch/driveoff/internal/store"
)

// Actions an API key can be granted, matching the endpoints they unlock.
const (
	ActionPost    = "POST"
	ActionPut     = "PUT"
	ActionGet     = "GET"
	ActionArchive = "ARCHIVE"
)

// Handler carries the dependencies of every endpoint.
type Handler struct {
	store       store.Store
	logger      *slog.Logger
	metrics     *metrics.Metrics
	keys        middleware.KeyValidator
	jobs        chan<- archive.Job
	vaultRoot   string
	archiveRoot string
}

func NewHandler(
	st store.Store,
	logger *slog.Logger,
	m *metrics.Metrics,
	keys middleware.KeyValidator,
	jobs chan<- archive.Job,
	vaultRoot, archiveRoot string,
) *Handler {
	return &Handler{
		store:       st,
		logger:      logger,
		metrics:     m,
		keys:        keys,
		jobs:        jobs,
		vaultRoot:   vaultRoot,
		archiveRoot: archiveRoot,
	}
}

// Register mounts the API routes under /api/v1. Every route is guarded by an
// API key holding the matching action.
func (h *Handler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(middleware.Recovery(h.logger))
	api.Use(middleware.RequestID)
	api.Use(middleware.Logger(h.logger))
	api.Use(middleware.Timeout(30 * time.Second))

	guard := func(action string) func(http.Handler) http.Handler {
		return middleware.RequireAPIKey(h.keys, action, h.logger)
	}
	api.With(guard(ActionPost)).Post("/resdriveinfo", h.handlePostDriveInfo)
	api.With(guard(ActionPut)).Put("/resdriveinfo", h.handlePutDriveInfo)
	api.With(guard(ActionGet)).Get("/resdriveinfo", h.handleGetDriveInfo)
	api.With(guard(ActionPost)).Post("/submission", h.handlePostSubmission)
	api.With(guard(ActionArchive)).Post("/archive", h.handlePostArchive)

	r.Mount("/api/v1", api)
}

// NewRouter assembles the full router: the guarded API, the Prometheus
// scrape endpoint and a liveness probe.
func NewRouter(h *Handler, corsHosts []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.CORS(corsHosts))
	h.Register(r)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
