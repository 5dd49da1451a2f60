package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/haibadguy/websocket-vs-sse/internal/platform/errors"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRemoteAddr = "1.2.3.4:1234"

func rateLimitedHandler(ratePerSecond float64, burst int) echo.HandlerFunc {
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	return ErrorHandlingMiddleware()(newRateLimiter(ratePerSecond, burst)(ok))
}

func callFrom(t *testing.T, handler echo.HandlerFunc, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/simulate/outage", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	require.NoError(t, handler(echo.New().NewContext(req, rec)))
	return rec
}

func TestRateLimiterAllowsRequestsUnderLimit(t *testing.T) {
	handler := rateLimitedHandler(10, 3)

	for range 3 {
		assert.Equal(t, http.StatusOK, callFrom(t, handler, testRemoteAddr).Code)
	}
}

func TestRateLimiterBlocksExcessiveRequests(t *testing.T) {
	handler := rateLimitedHandler(0.01, 1)

	assert.Equal(t, http.StatusOK, callFrom(t, handler, testRemoteAddr).Code)

	rec := callFrom(t, handler, testRemoteAddr)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rate limit exceeded", resp.Error)
	assert.Equal(t, apperrors.TypeRateLimited, resp.Type)
}

func TestRateLimiterDifferentIPsAreIndependent(t *testing.T) {
	handler := rateLimitedHandler(0.01, 1)

	assert.Equal(t, http.StatusOK, callFrom(t, handler, testRemoteAddr).Code)
	assert.Equal(t, http.StatusOK, callFrom(t, handler, "5.6.7.8:5678").Code)
	assert.Equal(t, http.StatusTooManyRequests, callFrom(t, handler, testRemoteAddr).Code)
}
