package conventions

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/boothkeeper/boothkeeper/internal/platform/httpx"
	"github.com/boothkeeper/boothkeeper/internal/shared"
)

// Handler exposes convention editing as JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers convention routes. nested mounts additional routes
// under /conventions/{id}.
func (h *Handler) MountRoutes(r chi.Router, nested ...func(chi.Router)) {
	r.Route("/conventions", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Post("/delete", h.delete)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.show)
			r.Patch("/", h.update)
			r.Put("/report/{day}", h.upsertDailyCounts)
			r.Route("/custom-reports", func(r chi.Router) {
				r.Get("/", h.listCustomReports)
				r.Post("/", h.createCustomReport)
				r.Post("/delete", h.deleteCustomReports)
				r.Patch("/{itemID}", h.updateCustomReport)
			})
			r.Route("/custom-discounts", func(r chi.Router) {
				r.Get("/", h.listCustomDiscounts)
				r.Post("/", h.createCustomDiscount)
				r.Post("/delete", h.deleteCustomDiscounts)
				r.Patch("/{itemID}", h.updateCustomDiscount)
			})
			for _, mount := range nested {
				mount(r)
			}
		})
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	params := shared.ParseListParams(r.URL.Query())
	items, page, err := h.service.List(r.Context(), shared.OwnerID(r.Context()), params)
	if err != nil {
		h.fail(w, "list conventions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"conventions": items, "pagination": page})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	conv, err := h.service.Get(r.Context(), shared.OwnerID(r.Context()), id)
	if err != nil {
		h.fail(w, "get convention", err)
		return
	}
	httpx.JSON(w, http.StatusOK, conv)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateConventionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), shared.OwnerID(r.Context()), req)
	if err != nil {
		h.fail(w, "create convention", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateConventionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), shared.OwnerID(r.Context()), id, req)
	if err != nil {
		h.fail(w, "update convention", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	n, err := h.service.Delete(r.Context(), shared.OwnerID(r.Context()), req)
	if err != nil {
		h.fail(w, "delete conventions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *Handler) upsertDailyCounts(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	day, err := shared.ParseDay(chi.URLParam(r, "day"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpsertDailyCountsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.UpsertDailyCounts(r.Context(), shared.OwnerID(r.Context()), id, day, req); err != nil {
		h.fail(w, "record daily counts", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listCustomReports(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.service.CustomReports(r.Context(), shared.OwnerID(r.Context()), id)
	if err != nil {
		h.fail(w, "list custom reports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"custom_reports": items})
}

func (h *Handler) createCustomReport(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req CreateCustomReportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.CreateCustomReport(r.Context(), shared.OwnerID(r.Context()), id, req)
	if err != nil {
		h.fail(w, "create custom report", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateCustomReport(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlID(w, r, "itemID")
	if !ok {
		return
	}
	var req UpdateCustomReportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.UpdateCustomReport(r.Context(), shared.OwnerID(r.Context()), itemID, req)
	if err != nil {
		h.fail(w, "update custom report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteCustomReports(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req BulkDeleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	n, err := h.service.DeleteCustomReports(r.Context(), shared.OwnerID(r.Context()), id, req)
	if err != nil {
		h.fail(w, "delete custom reports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *Handler) listCustomDiscounts(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.service.CustomDiscounts(r.Context(), shared.OwnerID(r.Context()), id)
	if err != nil {
		h.fail(w, "list custom discounts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"custom_discounts": items})
}

func (h *Handler) createCustomDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req CreateCustomDiscountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.CreateCustomDiscount(r.Context(), shared.OwnerID(r.Context()), id, req)
	if err != nil {
		h.fail(w, "create custom discount", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateCustomDiscount(w http.ResponseWriter, r *http.Request) {
	itemID, ok := urlID(w, r, "itemID")
	if !ok {
		return
	}
	var req UpdateCustomDiscountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.UpdateCustomDiscount(r.Context(), shared.OwnerID(r.Context()), itemID, req)
	if err != nil {
		h.fail(w, "update custom discount", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteCustomDiscounts(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id")
	if !ok {
		return
	}
	var req BulkDeleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	n, err := h.service.DeleteCustomDiscounts(r.Context(), shared.OwnerID(r.Context()), id, req)
	if err != nil {
		h.fail(w, "delete custom discounts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.IsClientError(err) {
		h.logger.Warn(op+" rejected", slog.Any("error", err))
	} else {
		h.logger.Error(op+" failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func urlID(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+key)
		return 0, false
	}
	return id, true
}
