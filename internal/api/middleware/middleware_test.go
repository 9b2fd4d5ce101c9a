package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"auction-marketplace/internal/metrics"
	"auction-marketplace/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORS_Preflight(t *testing.T) {
	called := false
	handler := CORS(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/ws/notifications", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)
}

func TestCORS_PassesThrough(t *testing.T) {
	handler := RequestLogger(logger.NewNop())(CORS(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetrics_CountsByRouteAndStatus(t *testing.T) {
	e := echo.New()
	e.Use(Metrics())
	e.GET("/api/v1/things/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/api/v1/broken", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "bad")
	})

	ok := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/things/:id", "204")
	bad := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/broken", "400")
	okBefore := testutil.ToFloat64(ok)
	badBefore := testutil.ToFloat64(bad)

	for _, path := range []string{"/api/v1/things/1", "/api/v1/things/2", "/api/v1/broken"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.NotZero(t, rec.Code)
	}

	assert.Equal(t, okBefore+2, testutil.ToFloat64(ok))
	assert.Equal(t, badBefore+1, testutil.ToFloat64(bad))
}
