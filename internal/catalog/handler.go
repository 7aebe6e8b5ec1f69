package catalog

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/boothkeeper/boothkeeper/internal/platform/httpx"
	"github.com/boothkeeper/boothkeeper/internal/shared"
)

// Handler exposes catalog CRUD as JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes. categoryRoutes are mounted inside
// /categories.
func (h *Handler) MountRoutes(r chi.Router, categoryRoutes ...func(chi.Router)) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.listCategories)
		r.Post("/", h.createCategory)
		r.Post("/delete", h.deleteCategories)
		r.Patch("/{id}", h.updateCategory)
		for _, mount := range categoryRoutes {
			mount(r)
		}
	})
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Post("/", h.createProduct)
		r.Post("/delete", h.deleteProducts)
		r.Get("/{id}", h.showProduct)
		r.Patch("/{id}", h.updateProduct)
		r.Post("/{id}/variations", h.addVariation)
	})
	r.Route("/variations", func(r chi.Router) {
		r.Patch("/{id}", h.updateVariation)
		r.Post("/delete", h.deleteVariations)
	})
	r.Route("/discounts", func(r chi.Router) {
		r.Get("/", h.listDiscounts)
		r.Post("/", h.createDiscount)
		r.Post("/delete", h.deleteDiscounts)
		r.Patch("/{id}", h.updateDiscount)
	})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Categories(r.Context(), shared.OwnerID(r.Context()))
	if err != nil {
		h.fail(w, "list categories", err)
		return
	}
	if items == nil {
		items = []Category{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": items})
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.CreateCategory(r.Context(), shared.OwnerID(r.Context()), req)
	if err != nil {
		h.fail(w, "create category", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.UpdateCategory(r.Context(), shared.OwnerID(r.Context()), id, req)
	if err != nil {
		h.fail(w, "update category", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteCategories(w http.ResponseWriter, r *http.Request) {
	h.bulkDelete(w, r, "delete categories", h.service.DeleteCategories)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	params := shared.ParseListParams(r.URL.Query())
	items, page, err := h.service.Products(r.Context(), shared.OwnerID(r.Context()), params)
	if err != nil {
		h.fail(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": items, "pagination": page})
}

func (h *Handler) showProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.service.Product(r.Context(), shared.OwnerID(r.Context()), id)
	if err != nil {
		h.fail(w, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.CreateProduct(r.Context(), shared.OwnerID(r.Context()), req)
	if err != nil {
		h.fail(w, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateProductRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.UpdateProduct(r.Context(), shared.OwnerID(r.Context()), id, req)
	if err != nil {
		h.fail(w, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteProducts(w http.ResponseWriter, r *http.Request) {
	h.bulkDelete(w, r, "delete products", h.service.DeleteProducts)
}

func (h *Handler) addVariation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req CreateVariationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.AddVariation(r.Context(), shared.OwnerID(r.Context()), id, req)
	if err != nil {
		h.fail(w, "add variation", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateVariation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateVariationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.UpdateVariation(r.Context(), shared.OwnerID(r.Context()), id, req)
	if err != nil {
		h.fail(w, "update variation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteVariations(w http.ResponseWriter, r *http.Request) {
	h.bulkDelete(w, r, "delete variations", h.service.DeleteVariations)
}

func (h *Handler) listDiscounts(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Discounts(r.Context(), shared.OwnerID(r.Context()))
	if err != nil {
		h.fail(w, "list discounts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"discounts": items})
}

func (h *Handler) createDiscount(w http.ResponseWriter, r *http.Request) {
	var req CreateDiscountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.CreateDiscount(r.Context(), shared.OwnerID(r.Context()), req)
	if err != nil {
		h.fail(w, "create discount", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateDiscountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.UpdateDiscount(r.Context(), shared.OwnerID(r.Context()), id, req)
	if err != nil {
		h.fail(w, "update discount", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteDiscounts(w http.ResponseWriter, r *http.Request) {
	h.bulkDelete(w, r, "delete discounts", h.service.DeleteDiscounts)
}

func (h *Handler) bulkDelete(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, ownerID string, req BulkDeleteRequest) (int64, error)) {
	var req BulkDeleteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	n, err := fn(r.Context(), shared.OwnerID(r.Context()), req)
	if err != nil {
		h.fail(w, op, err)
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

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return 0, false
	}
	return id, true
}
