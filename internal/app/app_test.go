package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boothkeeper/boothkeeper/internal/conventions"
	"github.com/boothkeeper/boothkeeper/internal/observability"
	reporthttp "github.com/boothkeeper/boothkeeper/internal/revenue/http"
	"github.com/boothkeeper/boothkeeper/internal/shared"
	"github.com/boothkeeper/boothkeeper/jobs"
	_ "github.com/boothkeeper/boothkeeper/testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTestModeGuard(t *testing.T) {
	RefreshTestMode()
	assert.True(t, InTestMode())
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("REPORT_EARLIEST_DATE", "2019-01-01")
	t.Setenv("DEFAULT_TIMEZONE", "America/Chicago")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, "2019-01-01", shared.FormatDay(cfg.EarliestDate()))
	assert.Equal(t, "America/Chicago", cfg.Location().String())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("REPORT_EARLIEST_DATE", "first of may")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("REPORT_EARLIEST_DATE", "2000-01-01")
	t.Setenv("DEFAULT_TIMEZONE", "Nowhere/Special")
	_, err = LoadConfig()
	require.Error(t, err)
}

type stubResolver struct {
	owner shared.Owner
	err   error
}

func (s stubResolver) Resolve(ctx context.Context, r *http.Request) (shared.Owner, error) {
	return s.owner, s.err
}

func TestRequireOwner(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(shared.OwnerID(r.Context())))
	})
	cases := []struct {
		name     string
		resolver stubResolver
		status   int
		body     string
	}{
		{name: "owner", resolver: stubResolver{owner: shared.Owner{ID: "alice"}}, status: http.StatusOK, body: "alice"},
		{name: "no session", resolver: stubResolver{err: shared.ErrNoSession}, status: http.StatusUnauthorized},
		{name: "expired", resolver: stubResolver{err: shared.ErrSessionUnknown}, status: http.StatusUnauthorized},
		{name: "redis down", resolver: stubResolver{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RequireOwner(tc.resolver, quietLogger())(echo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestRouterGuardsAPI(t *testing.T) {
	var accessLog bytes.Buffer
	log.SetOutput(&accessLog)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	router := NewRouter(RouterParams{
		Logger:            quietLogger(),
		Config:            &Config{RateLimitPerMinute: 100},
		Owners:            stubResolver{err: shared.ErrNoSession},
		ConventionHandler: conventions.NewHandler(quietLogger(), nil),
		ReportHandler:     reporthttp.NewHandler(quietLogger(), nil, time.UTC),
		Metrics:           observability.NewMetrics(),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	for _, target := range []string{"/api/conventions", "/api/dashboard", "/api/conventions/4/report"} {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
		assert.Contains(t, rec.Header().Get("Content-Type"), "problem+json")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "boothkeeper_http_requests_total")
	assert.Empty(t, accessLog.String())
}

type stubBumper struct{ err error }

func (b stubBumper) Bump(ctx context.Context) error { return b.err }

type recordingQueue struct {
	payloads []jobs.ReportInvalidatePayload
	err      error
}

func (q *recordingQueue) EnqueueReportInvalidate(ctx context.Context, payload jobs.ReportInvalidatePayload) error {
	q.payloads = append(q.payloads, payload)
	return q.err
}

func TestReportInvalidatorDefersFailedBump(t *testing.T) {
	queue := &recordingQueue{}
	ctx := shared.ContextWithOwner(context.Background(), shared.Owner{ID: "alice"})

	require.NoError(t, NewReportInvalidator(stubBumper{}, queue, quietLogger()).Bump(ctx))
	assert.Empty(t, queue.payloads)

	require.NoError(t, NewReportInvalidator(stubBumper{err: errors.New("redis down")}, queue, quietLogger()).Bump(ctx))
	require.Len(t, queue.payloads, 1)
	assert.Equal(t, "alice", queue.payloads[0].OwnerID)

	queue.err = errors.New("queue down")
	assert.Error(t, NewReportInvalidator(stubBumper{err: errors.New("redis down")}, queue, quietLogger()).Bump(ctx))
	assert.Error(t, NewReportInvalidator(stubBumper{err: errors.New("redis down")}, nil, quietLogger()).Bump(ctx))
}
