package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/travel-agent/app"
	"github.com/upb/travel-agent/config"
	"github.com/upb/travel-agent/repositories/postgres"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestHandleHealth(t *testing.T) {
	handler := NewHealthHandler(zap.NewNop()).
		WithCheck("never", func(context.Context) error {
			t.Fatal("liveness must not run readiness checks")
			return nil
		})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.HandleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
	assert.False(t, response.Timestamp.IsZero())
}

func TestHandleReadiness(t *testing.T) {
	logger := zap.NewNop()

	t.Run("ready when every check passes", func(t *testing.T) {
		handler := NewHealthHandler(logger).
			WithCheck("a", func(context.Context) error { return nil }).
			WithCheck("b", func(context.Context) error { return nil })

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()

		handler.HandleReadiness(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "ready", response.Status)
		assert.Equal(t, map[string]string{"a": "healthy", "b": "healthy"}, response.Checks)
	})

	t.Run("not ready when one check fails", func(t *testing.T) {
		handler := NewHealthHandler(logger).
			WithCheck("a", func(context.Context) error { return nil }).
			WithCheck("b", func(context.Context) error { return errors.New("connection refused") })

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()

		handler.HandleReadiness(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var response HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "not_ready", response.Status)
		assert.Equal(t, "healthy", response.Checks["a"])
		assert.Equal(t, "connection refused", response.Checks["b"])
	})

	t.Run("checks share the timeout", func(t *testing.T) {
		handler := NewHealthHandler(logger).
			WithTimeout(20*time.Millisecond).
			WithCheck("slow", func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			})

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()

		handler.HandleReadiness(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("database check", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectPing().WillReturnError(sql.ErrConnDone)

		handler := NewHealthHandler(logger).WithCheck("database", postgres.Wrap(db, logger).HealthCheck)

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()

		handler.HandleReadiness(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// newUpstream fakes the LLM provider and Nominatim status endpoints
func newUpstream(t *testing.T, healthy bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case "/v1/models":
			_, _ = w.Write([]byte(`{"data":[]}`))
		case "/status":
			_, _ = w.Write([]byte(`{"status":0,"message":"OK"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestDependencies(t *testing.T, upstreamURL, tavilyKey string) *app.Dependencies {
	t.Helper()
	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{RequestTimeout: 5 * time.Second},
		Agent: config.AgentConfig{
			Provider:      "groq",
			APIKey:        "test-key",
			BaseURL:       upstreamURL + "/v1",
			Model:         "llama-3.3-70b-versatile",
			MaxIterations: 4,
			Timeout:       time.Second,
		},
		Search: config.SearchConfig{
			Nominatim: config.NominatimConfig{
				BaseURL:   upstreamURL,
				UserAgent: "TripAgentBot/1.0 (test)",
				Timeout:   time.Second,
			},
			Tavily:          config.TavilyConfig{BaseURL: upstreamURL, APIKey: tavilyKey},
			FallbackOnEmpty: true,
			Breaker:         config.BreakerConfig{Enabled: true, MaxFailures: 3, Timeout: time.Second},
		},
		RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerMinute: 30},
	}

	deps, err := app.NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })
	return deps
}

func TestDependencyHealthHandler(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		deps := newTestDependencies(t, newUpstream(t, true).URL, "tvly-test")
		handler := NewDependencyHealthHandler(deps)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var response HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, map[string]string{
			"provider":  "healthy",
			"nominatim": "healthy",
			"tavily":    "healthy",
		}, response.Checks)
	})

	t.Run("upstreams down and tavily unconfigured", func(t *testing.T) {
		deps := newTestDependencies(t, newUpstream(t, false).URL, "")
		handler := NewDependencyHealthHandler(deps)

		w := httptest.NewRecorder()
		handler.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var response HealthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "not_ready", response.Status)
		assert.Equal(t, "provider unavailable", response.Checks["provider"])
		assert.Equal(t, "api key not configured", response.Checks["tavily"])
		assert.NotEqual(t, "healthy", response.Checks["nominatim"])
	})
}

func TestStatusHandler(t *testing.T) {
	deps := newTestDependencies(t, newUpstream(t, true).URL, "tvly-test")

	w := httptest.NewRecorder()
	StatusHandler(deps)(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var response StatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, StatusResponse{
		Version:      app.Version,
		Environment:  "test",
		Providers:    []string{"groq"},
		Model:        "llama-3.3-70b-versatile",
		Tools:        []string{"search_attractions", "search_restaurants", "search_activities", "search_transportation"},
		Primary:      "nominatim",
		Secondary:    "tavily",
		BreakerState: "closed",
		RateLimit:    30,
	}, response)
}
