package identity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INFO333/mhoms-api/internal/platform/apperr"
	"github.com/INFO333/mhoms-api/internal/platform/validation"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	e := echo.New()
	e.Validator = validation.New()
	return NewHandler(svc), e
}

func post(e *echo.Echo, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

const registerBody = `{"username":"john_admin","email":"john@mhoms.com","password":"password123","fullName":"John Admin","role":"ADMIN"}`

func TestHandler_Register(t *testing.T) {
	h, e := newTestHandler()
	c, rec := post(e, "/auth/register", registerBody)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Bearer", body["tokenType"])
	assert.Equal(t, "John Admin", body["fullName"])
	assert.NotContains(t, body, "password")
}

func TestHandler_Register_ShortPassword(t *testing.T) {
	h, e := newTestHandler()
	c, rec := post(e, "/auth/register", `{"username":"jane","email":"jane@x.com","password":"p123","role":"PATIENT"}`)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "jane", resp.Username)
	assert.Equal(t, "PATIENT", resp.Role)
}

func TestHandler_Register_Invalid(t *testing.T) {
	h, e := newTestHandler()
	c, _ := post(e, "/auth/register", `{"username":"jo","email":"bad","role":"NURSE"}`)
	err := h.Register(c)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.KindValidation))

	fields := err.(*apperr.Error).Fields
	for _, f := range []string{"username", "email", "password", "role"} {
		assert.Contains(t, fields, f)
	}
}

func TestHandler_LoginAndRefresh(t *testing.T) {
	h, e := newTestHandler()
	c, _ := post(e, "/auth/register", registerBody)
	require.NoError(t, h.Register(c))

	c, rec := post(e, "/auth/login", `{"username":"john_admin","password":"password123"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var login AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))

	c, rec = post(e, "/auth/refresh", `{"refreshToken":"`+login.RefreshToken+`"}`)
	require.NoError(t, h.Refresh(c))
	var refreshed AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	assert.Equal(t, login.RefreshToken, refreshed.RefreshToken)
	assert.NotEqual(t, login.AccessToken, refreshed.AccessToken)
}

func TestHandler_Login_BadPassword(t *testing.T) {
	h, e := newTestHandler()
	c, _ := post(e, "/auth/register", registerBody)
	require.NoError(t, h.Register(c))

	c, _ = post(e, "/auth/login", `{"username":"john_admin","password":"nope"}`)
	err := h.Login(c)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestHandler_Refresh_MissingToken(t *testing.T) {
	h, e := newTestHandler()
	c, _ := post(e, "/auth/refresh", `{}`)
	err := h.Refresh(c)
	require.Error(t, err)
	assert.Equal(t, "Refresh token is required", err.(*apperr.Error).Fields["refreshToken"])
}
