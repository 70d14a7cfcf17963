package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusOK, map[string]string{"answer": "Visit Goa"})
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Visit Goa", response["answer"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteJSON(w, http.StatusNoContent, nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteOK(w, map[string]string{"version": "dev"}))
	assert.Equal(t, http.StatusOK, w.Code)

	var response SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	dataMap := response.Data.(map[string]interface{})
	assert.Equal(t, "dev", dataMap["version"])
}

func TestWriteBadRequest(t *testing.T) {
	w := httptest.NewRecorder()
	details := map[string]interface{}{"messages": "messages is required"}

	require.NoError(t, WriteBadRequest(w, "Validation failed", details))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "bad_request", response.Error)
	assert.Equal(t, "Validation failed", response.Message)
	assert.Equal(t, "messages is required", response.Details["messages"])
}

func TestWriteTooManyRequests(t *testing.T) {
	t.Run("sets retry after rounded up", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteTooManyRequests(w, "", 1500*time.Millisecond, map[string]interface{}{"limit": 20})
		require.NoError(t, err)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "2", w.Header().Get("Retry-After"))

		var response ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "rate_limit_exceeded", response.Error)
		assert.Equal(t, "Rate limit exceeded", response.Message)
		assert.Equal(t, float64(20), response.Details["limit"])
	})

	t.Run("no retry after", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteTooManyRequests(w, "slow down", 0, nil))
		assert.Empty(t, w.Header().Get("Retry-After"))
	})
}

func TestWriteBadGateway(t *testing.T) {
	w := httptest.NewRecorder()

	require.NoError(t, WriteBadGateway(w, "", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "bad_gateway", response.Error)
	assert.Equal(t, "Upstream service failed", response.Message)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name              string
		status            int
		expectedErrorType string
	}{
		{"bad request", http.StatusBadRequest, "bad_request"},
		{"not found", http.StatusNotFound, "not_found"},
		{"method not allowed", http.StatusMethodNotAllowed, "method_not_allowed"},
		{"rate limit", http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"bad gateway", http.StatusBadGateway, "bad_gateway"},
		{"gateway timeout", http.StatusGatewayTimeout, "gateway_timeout"},
		{"unknown status defaults to internal error", http.StatusTeapot, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			require.NoError(t, WriteError(w, tt.status, "msg", nil))
			assert.Equal(t, tt.status, w.Code)

			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedErrorType, response.Error)
			assert.Equal(t, "msg", response.Message)
		})
	}
}
