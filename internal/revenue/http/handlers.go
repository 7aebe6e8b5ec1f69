package reporthttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/boothkeeper/boothkeeper/internal/hierarchy"
	"github.com/boothkeeper/boothkeeper/internal/platform/httpx"
	"github.com/boothkeeper/boothkeeper/internal/revenue"
	"github.com/boothkeeper/boothkeeper/internal/revenue/export"
	"github.com/boothkeeper/boothkeeper/internal/revenue/projection"
	"github.com/boothkeeper/boothkeeper/internal/shared"
)

const (
	defaultWindowDays = 7
	defaultTopN       = 5
	maxTopN           = 50
	requestTimeout    = 5 * time.Second
)

// ReportService is the aggregation contract the handler depends on.
type ReportService interface {
	ComputePeriodStats(ctx context.Context, ownerID string, conventionID *int64, r revenue.DateRange) (revenue.PeriodStats, error)
	ComputeDailyReport(ctx context.Context, ownerID string, conventionID int64, day time.Time) (revenue.DailyReport, error)
	CategoryForest(ctx context.Context, ownerID string) (*hierarchy.Forest, error)
}

// Handler serves the dashboard, the daily report and the category tree.
type Handler struct {
	logger      *slog.Logger
	service     ReportService
	defaultZone *time.Location
	csvPool     sync.Pool
	now         func() time.Time
}

// NewHandler constructs the report handler. defaultZone applies when a
// request names no time zone.
func NewHandler(logger *slog.Logger, service ReportService, defaultZone *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultZone == nil {
		defaultZone = time.UTC
	}
	h := &Handler{
		logger:      logger,
		service:     service,
		defaultZone: defaultZone,
		now:         time.Now,
	}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

type dashboardQuery struct {
	conventionID *int64
	rng          revenue.DateRange
	top          int
	lang         string
}

// parseDashboardQuery reads from, to, convention, tz, top and lang. Missing
// dates default to the last seven days ending today in the viewer's zone.
func (h *Handler) parseDashboardQuery(r *http.Request) (dashboardQuery, error) {
	q := r.URL.Query()
	var out dashboardQuery

	loc, err := shared.LoadLocation(strings.TrimSpace(q.Get("tz")), h.defaultZone)
	if err != nil {
		return out, err
	}
	today := shared.DayOf(h.now(), loc)
	from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	switch {
	case from == "" && to == "":
		out.rng = revenue.DateRange{Start: shared.AddDays(today, -(defaultWindowDays - 1)), End: today}
	case from == "" || to == "":
		return out, fmt.Errorf("%w: from and to must be given together", revenue.ErrInvalidRange)
	default:
		if out.rng, err = revenue.ParseDateRange(from, to); err != nil {
			return out, err
		}
	}

	if raw := strings.TrimSpace(q.Get("convention")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return out, fmt.Errorf("%w: invalid convention", httpx.ErrValidation)
		}
		out.conventionID = &id
	}

	out.top = defaultTopN
	if raw := strings.TrimSpace(q.Get("top")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return out, fmt.Errorf("%w: invalid top", httpx.ErrValidation)
		}
		out.top = min(n, maxTopN)
	}
	out.lang = q.Get("lang")
	return out, nil
}

func (h *Handler) loadDashboard(ctx context.Context, q dashboardQuery) (projection.DashboardView, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	stats, err := h.service.ComputePeriodStats(ctx, shared.OwnerID(ctx), q.conventionID, q.rng)
	if err != nil {
		if errors.Is(err, httpx.ErrUnauthorized) || errors.Is(err, httpx.ErrValidation) {
			return projection.DashboardView{}, err
		}
		h.logger.Error("compute period stats failed", slog.Any("error", err), slog.String("range", q.rng.String()))
		return projection.EmptyDashboard(q.rng), nil
	}
	return projection.Dashboard(stats, q.top), nil
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseDashboardQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.loadDashboard(r.Context(), q)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleDashboardCSV(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseDashboardQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.loadDashboard(r.Context(), q)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer h.csvPool.Put(buf)

	formatter := export.NewFormatter(q.lang)
	var writeErr error
	switch r.URL.Query().Get("sheet") {
	case "", "daily":
		writeErr = export.WriteDailyTableCSV(buf, view.Table, formatter)
	case "products":
		writeErr = export.WriteLeaderboardCSV(buf, view.TopProducts, formatter)
	case "categories":
		writeErr = export.WriteLeaderboardCSV(buf, view.TopCategories, formatter)
	default:
		httpx.RespondError(w, fmt.Errorf("%w: unknown sheet", httpx.ErrValidation))
		return
	}
	if writeErr != nil {
		h.logger.Error("write dashboard csv failed", slog.Any("error", writeErr))
		httpx.RespondError(w, writeErr)
		return
	}
	filename := fmt.Sprintf("revenue-%s-%s.csv", shared.FormatDay(q.rng.Start), shared.FormatDay(q.rng.End))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("day"))
	var day time.Time
	if raw == "" {
		loc, err := shared.LoadLocation(strings.TrimSpace(r.URL.Query().Get("tz")), h.defaultZone)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		day = shared.DayOf(h.now(), loc)
	} else if day, err = shared.ParseDay(raw); err != nil {
		httpx.RespondError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	report, err := h.service.ComputeDailyReport(ctx, shared.OwnerID(ctx), id, day)
	if err != nil {
		if !httpx.IsClientError(err) {
			h.logger.Error("compute daily report failed", slog.Any("error", err), slog.Int64("convention_id", id))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleCategoryTree(w http.ResponseWriter, r *http.Request) {
	forest, err := h.service.CategoryForest(r.Context(), shared.OwnerID(r.Context()))
	if err != nil {
		h.logger.Error("build category tree failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, forest)
}
