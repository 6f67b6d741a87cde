// It defines the console server, sets up the routes using chi and links
// them to the handler functions.

package api

import (
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vrsandeep/cne-console/internal/core"
	"github.com/vrsandeep/cne-console/internal/preview"
)

const (
	defaultCacheSize = 16
	maxUploadBytes   = 64 << 20
)

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	app       *core.App
	logger    *slog.Logger
	templates *template.Template

	previewMu sync.Mutex
	previews  *lru.Cache[string, *preview.Session]

	approveMu sync.Mutex
	approving map[string]bool
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	size := app.Config.Preview.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	previews, err := lru.NewWithEvict(size, func(_ string, s *preview.Session) { s.Close() })
	if err != nil {
		// Only a non-positive size makes NewWithEvict fail.
		panic(err)
	}
	return &Server{
		app:       app,
		logger:    app.Logger,
		templates: parseTemplates(),
		previews:  previews,
		approving: make(map[string]bool),
	}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(2 * time.Minute))

		r.Get("/health", s.handleHealth)
		r.Post("/uploads", s.handleUpload)

		r.Get("/rejected", s.handleListRejected)
		r.Delete("/rejected/{rejectedID}", s.handleDeleteRejected)

		r.Get("/jobs", s.handleListJobs)
		r.Route("/jobs/{jobID}", func(r chi.Router) {
			r.Use(jobIDCtx)
			r.Get("/", s.handleGetJob)
			r.Delete("/", s.handleUntrackJob)
			r.Post("/track", s.handleTrackJob)
			r.Post("/refresh", s.handleRefreshJob)
			r.Get("/preview", s.handleGetPreview)
			r.Get("/preview.xlsx", s.handleExportXLSX)
			r.Get("/csv", s.handleDownloadCSV)
			r.Post("/approve", s.handleApprove)
			r.Get("/approvals", s.handleListApprovals)
		})
	})

	r.Get("/ws/jobs", s.app.WsHub.ServeWs)

	// Pages
	r.Get("/", s.handleUploadPage)
	r.Post("/uploads", s.handleUploadForm)
	r.Get("/jobs", s.handleHistoryPage)
	r.Route("/jobs/{jobID}", func(r chi.Router) {
		r.Use(jobIDCtx)
		r.Get("/", s.handleResultPage)
		r.Post("/approve", s.handleApproveForm)
		r.Post("/untrack", s.handleUntrackForm)
	})

	return r
}

// Close releases the cached preview sessions.
func (s *Server) Close() {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()
	s.previews.Purge()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DB.PingContext(r.Context()); err != nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
		return
	}
	if err := s.app.Client.Health(r.Context()); err != nil {
		RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "degraded",
			"backend": err.Error(),
		})
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.app.Version,
		"tracked":    len(s.app.Tracker.IDs()),
		"ws_clients": s.app.WsHub.ClientCount(),
	})
}
