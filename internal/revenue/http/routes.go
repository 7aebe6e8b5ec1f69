// Package reporthttp exposes revenue reports over JSON and CSV.
package reporthttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/boothkeeper/boothkeeper/internal/platform/httpx"
	"github.com/boothkeeper/boothkeeper/internal/shared"
)

// MountRoutes registers the dashboard endpoints. CSV exports are rate
// limited per owner.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit reached")
		}),
	)

	r.Get("/dashboard", h.handleDashboard)
	r.With(limiter).Get("/dashboard.csv", h.handleDashboardCSV)
}

// MountConventionRoutes registers routes nested under /conventions/{id}.
func (h *Handler) MountConventionRoutes(r chi.Router) {
	r.Get("/report", h.handleDailyReport)
}

// MountCategoryRoutes registers routes nested under /categories.
func (h *Handler) MountCategoryRoutes(r chi.Router) {
	r.Get("/tree", h.handleCategoryTree)
}

func rateLimitKey(r *http.Request) (string, error) {
	if owner := shared.OwnerID(r.Context()); owner != "" {
		return "owner:" + owner, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
