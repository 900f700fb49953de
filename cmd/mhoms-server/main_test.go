package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INFO333/mhoms-api/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                 "0",
		Env:                  "test",
		JWTSecret:            "test-secret-that-is-at-least-32-bytes-long",
		JWTExpiration:        time.Hour,
		JWTRefreshExpiration: 24 * time.Hour,
		Timezone:             "UTC",
		CORSOrigins:          []string{"http://localhost:3000"},
		RateLimitRPS:         1000,
		RateLimitBurst:       1000,
	}
}

// newTestServer builds the full middleware chain without a database. Only
// requests that stop before a repository call are safe to send.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	e, err := newServer(testConfig(), zerolog.New(io.Discard), nil)
	require.NoError(t, err)
	return e
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(newTestServer(t), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, version, body["version"])
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newTestServer(t)
	for _, target := range []string{"/patients", "/doctors", "/appointments", "/dashboard/stats"} {
		rec := serve(e, http.MethodGet, target, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Authentication required - Please provide a valid token", body["message"])
		assert.Equal(t, target, body["path"])
	}
}

func TestInvalidBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRoutesArePublic(t *testing.T) {
	rec := serve(newTestServer(t), http.MethodPost, "/auth/login", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	errs, ok := body["errors"].(map[string]interface{})
	require.True(t, ok, "validation errors map expected")
	assert.Contains(t, errs, "username")
	assert.Contains(t, errs, "password")
}

func TestBodyLimit(t *testing.T) {
	big := `{"username":"` + strings.Repeat("a", 2<<20) + `"}`
	rec := serve(newTestServer(t), http.MethodPost, "/auth/login", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRateLimitIgnoresForwardedFor(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 1
	e, err := newServer(cfg, zerolog.New(io.Discard), nil)
	require.NoError(t, err)

	codes := make([]int, 0, 2)
	for _, forwarded := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(echo.HeaderXForwardedFor, forwarded)
		req.Header.Set(echo.HeaderXRealIP, forwarded)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestNewServer_BadTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Timezone = "Mars/Olympus_Mons"
	_, err := newServer(cfg, zerolog.New(io.Discard), nil)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, version+"\n", out.String())
}
