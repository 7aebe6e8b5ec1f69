package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/boothkeeper/boothkeeper/internal/catalog"
	"github.com/boothkeeper/boothkeeper/internal/conventions"
	"github.com/boothkeeper/boothkeeper/internal/observability"
	"github.com/boothkeeper/boothkeeper/internal/platform/httpx"
	reporthttp "github.com/boothkeeper/boothkeeper/internal/revenue/http"
	"github.com/boothkeeper/boothkeeper/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Owners            OwnerResolver
	CatalogHandler    *catalog.Handler
	ConventionHandler *conventions.Handler
	ReportHandler     *reporthttp.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireOwner(params.Owners, params.Logger))

		var conventionRoutes, categoryRoutes []func(chi.Router)
		if params.ReportHandler != nil {
			params.ReportHandler.MountRoutes(r)
			conventionRoutes = append(conventionRoutes, params.ReportHandler.MountConventionRoutes)
			categoryRoutes = append(categoryRoutes, params.ReportHandler.MountCategoryRoutes)
		}
		if params.ConventionHandler != nil {
			params.ConventionHandler.MountRoutes(r, conventionRoutes...)
		}
		if params.CatalogHandler != nil {
			params.CatalogHandler.MountRoutes(r, categoryRoutes...)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	return r
}
