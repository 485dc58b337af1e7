package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSpec = `
openapi: 3.0.3
info:
  title: Test API
  version: 1.0.0
paths:
  /v1/route:
    post:
      operationId: route
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [prompt]
              properties:
                prompt:
                  type: string
                  minLength: 1
      responses:
        '200':
          description: ok
`

func writeTestSpec(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSpec), 0o644))
	return path
}

func newTestMiddleware(t *testing.T, enabled bool) *ValidationMiddleware {
	t.Helper()
	logger := logrus.New()
	vm, err := NewValidationMiddleware(writeTestSpec(t), enabled, logger)
	require.NoError(t, err)
	return vm
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestValidationMiddleware_ValidRequest(t *testing.T) {
	handler := newTestMiddleware(t, true).Handler(okHandler())

	req := httptest.NewRequest("POST", "/v1/route", strings.NewReader(`{"prompt":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidationMiddleware_MissingRequiredField(t *testing.T) {
	handler := newTestMiddleware(t, true).Handler(okHandler())

	req := httptest.NewRequest("POST", "/v1/route", strings.NewReader(`{"other":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestValidationMiddleware_UnknownPathPassesThrough(t *testing.T) {
	handler := newTestMiddleware(t, true).Handler(okHandler())

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidationMiddleware_Disabled(t *testing.T) {
	handler := newTestMiddleware(t, false).Handler(okHandler())

	// missing the required prompt field, but validation is off
	req := httptest.NewRequest("POST", "/v1/route", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewValidationMiddleware_MissingSpec(t *testing.T) {
	logger := logrus.New()
	_, err := NewValidationMiddleware("/nonexistent/openapi.yaml", true, logger)
	assert.Error(t, err)
}
