package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protectedHandler(t *testing.T, key string) http.Handler {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return APIKeyAuth(key)(next)
}

func TestAPIKeyAuthMissingKey(t *testing.T) {
	h := protectedHandler(t, "secret")

	req := httptest.NewRequest("GET", "/v1/syntheses", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuthWrongKey(t *testing.T) {
	h := protectedHandler(t, "secret")

	req := httptest.NewRequest("GET", "/v1/syntheses", nil)
	req.Header.Set("X-API-Key", "not-the-secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAPIKeyAuthHeaderVariants(t *testing.T) {
	h := protectedHandler(t, "secret")

	byHeader := httptest.NewRequest("GET", "/v1/syntheses", nil)
	byHeader.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, byHeader)
	require.Equal(t, http.StatusOK, rec.Code)

	byBearer := httptest.NewRequest("GET", "/v1/syntheses", nil)
	byBearer.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, byBearer)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthIsPublic(t *testing.T) {
	h := &Handler{}
	router := NewRouter(h, RouterConfig{BackendAPIKey: "secret"})

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}
