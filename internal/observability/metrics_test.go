package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/dashboard")

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `boothkeeper_http_requests_total{code="418",route="/api/dashboard"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `boothkeeper_http_request_duration_seconds_bucket{route="/api/dashboard"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestObserveReport(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveReport("period_stats", false, 40*time.Millisecond)
	metrics.ObserveReport("period_stats", true, time.Millisecond)
	metrics.ObserveReport("period_stats", true, time.Millisecond)

	body := scrape(t, metrics)
	if !strings.Contains(body, `boothkeeper_reports_total{cache="hit",kind="period_stats"} 2`) {
		t.Fatalf("expected two cache hits, got: %s", body)
	}
	if !strings.Contains(body, `boothkeeper_report_duration_seconds_count{kind="period_stats"} 1`) {
		t.Fatalf("expected one timed build, got: %s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveReport("daily", false, time.Second)
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
}
