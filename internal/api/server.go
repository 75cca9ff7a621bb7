package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nao1215/pubchemscan/internal/database"
	"github.com/nao1215/pubchemscan/internal/model"
)

// Compounds performs lookups. *pipeline.CachedExtractor implements it.
type Compounds interface {
	Lookup(ctx context.Context, cid int) (*model.Lookup, error)
	Refresh(ctx context.Context, cid int) (*model.Lookup, error)
}

// Catalog queries stored lookups. *database.CompoundDB implements it.
type Catalog interface {
	ListCompounds(ctx context.Context) ([]database.CompoundSummary, error)
	GetLookupHistory(ctx context.Context, cid int) ([]database.LookupMetadata, error)
	FindReferencing(ctx context.Context, identifier, relType string) ([]database.Relation, error)
}

// Server is the HTTP API server for pubchemscan.
type Server struct {
	router    chi.Router
	compounds Compounds
	catalog   Catalog
	log       *slog.Logger
	version   string
}

// NewServer creates and configures the HTTP server.
// catalog may be nil when the cache is disabled; catalog routes then
// respond 503.
func NewServer(compounds Compounds, catalog Catalog, log *slog.Logger, version string) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		compounds: compounds,
		catalog:   catalog,
		log:       log,
		version:   version,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/compounds", s.handleListCompounds)
		r.Get("/compounds/{cid}", s.handleGetCompound)
		r.Get("/compounds/{cid}/history", s.handleHistory)
		r.Get("/related/{id}", s.handleRelated)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}
