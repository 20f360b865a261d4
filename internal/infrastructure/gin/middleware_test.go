package gin_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	ginpkg "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infragin "github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/gin"
	"github.com/jonesrussell/north-cloud/sentiment/internal/infrastructure/logger"
)

func TestMain(m *testing.M) {
	ginpkg.SetMode(ginpkg.TestMode)
	os.Exit(m.Run())
}

func newTestRouter(t *testing.T) *ginpkg.Engine {
	t.Helper()

	router := ginpkg.New()
	router.Use(infragin.RecoveryMiddleware(logger.NewNop()))
	router.Use(infragin.RequestIDLoggerMiddleware(logger.NewNop()))
	return router
}

func TestRequestIDLoggerMiddleware_GeneratesID(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	router.GET("/test", func(c *ginpkg.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	reqID := w.Header().Get(infragin.RequestIDHeader)
	assert.Len(t, reqID, 32)
}

func TestRequestIDLoggerMiddleware_PreservesInboundIDAndContextLogger(t *testing.T) {
	t.Parallel()

	const inboundID = "trace-from-upstream-abc123"

	router := newTestRouter(t)
	var gotID string
	var gotLogger logger.Logger
	router.GET("/test", func(c *ginpkg.Context) {
		gotID = c.GetString(infragin.RequestIDKey)
		gotLogger = logger.FromContext(c.Request.Context())
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set(infragin.RequestIDHeader, inboundID)
	router.ServeHTTP(w, req)

	assert.Equal(t, inboundID, w.Header().Get(infragin.RequestIDHeader))
	assert.Equal(t, inboundID, gotID)
	assert.NotNil(t, gotLogger)
}

func TestRecoveryMiddleware_ReturnsGenericBody(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	router.GET("/boom", func(*ginpkg.Context) { panic("model exploded") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "An unexpected error occurred", body["error"])
	assert.Equal(t, "model exploded", body["message"])
}

func TestCORSMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		origins    []string
		origin     string
		method     string
		wantOrigin string
		wantCode   int
	}{
		{name: "wildcard", origins: []string{"*"}, origin: "https://a.example", method: http.MethodGet, wantOrigin: "*", wantCode: http.StatusOK},
		{name: "listed origin", origins: []string{"https://a.example"}, origin: "https://a.example", method: http.MethodGet, wantOrigin: "https://a.example", wantCode: http.StatusOK},
		{name: "unlisted origin", origins: []string{"https://a.example"}, origin: "https://b.example", method: http.MethodGet, wantOrigin: "", wantCode: http.StatusOK},
		{name: "preflight", origins: []string{"*"}, origin: "https://a.example", method: http.MethodOptions, wantOrigin: "*", wantCode: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newTestRouter(t)
			router.Use(infragin.CORSMiddleware(infragin.CORSConfig{Enabled: true, AllowedOrigins: tt.origins}))
			router.Handle(tt.method, "/x", func(c *ginpkg.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/x", http.NoBody)
			req.Header.Set("Origin", tt.origin)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestHealthRoutes_AggregatesChecks(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	infragin.RegisterHealthRoutes(router, infragin.HealthOptions{
		ServiceName:    "sentiment",
		ServiceVersion: "test",
		Checks: map[string]infragin.HealthChecker{
			"model:ok": infragin.PingHealthChecker("model", infragin.HealthStatusUnhealthy,
				func(context.Context) error { return nil }),
			"cache": infragin.PingHealthChecker("cache", infragin.HealthStatusDegraded,
				func(context.Context) error { return errors.New("dial tcp: refused") }),
		},
		Ready: func() bool { return false },
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	require.Equal(t, http.StatusOK, w.Code)
	var resp infragin.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, infragin.HealthStatusDegraded, resp.Status)
	assert.Equal(t, infragin.HealthStatusHealthy, resp.Checks["model:ok"].Status)
	assert.Equal(t, infragin.HealthStatusDegraded, resp.Checks["cache"].Status)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", http.NoBody))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthRoutes_UnhealthyReturns503(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	infragin.RegisterHealthRoutes(router, infragin.HealthOptions{
		ServiceName: "sentiment",
		Checks: map[string]infragin.HealthChecker{
			"model:down": infragin.PingHealthChecker("model", infragin.HealthStatusUnhealthy,
				func(context.Context) error { return errors.New("503") }),
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
}
