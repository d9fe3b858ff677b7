package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/paleolab/internal/common"
	"github.com/dmitrijs2005/paleolab/internal/server/archive"
	"github.com/dmitrijs2005/paleolab/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	rec := newTestEnv(t, false, nil).do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = newTestEnv(t, false, errBoom).do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.do(http.MethodGet, "/api/v1/cores/", "", "bob-token")

	rec := env.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `paleolab_http_requests_total{code="200",method="GET",route="/api/v1/cores/"} 1`)
}

func TestLogin_SetsCookie(t *testing.T) {
	for _, secure := range []bool{false, true} {
		env := newTestEnv(t, secure, nil)
		rec := env.do(http.MethodPost, "/api/v1/auth/login", `{"email":"bob@lab.org","password":"pw"}`, "")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[loginResponse](t, rec)
		assert.Equal(t, "bob-token", resp.Token)
		assert.Equal(t, bob.ID, resp.Employee.ID)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		c := cookies[0]
		assert.Equal(t, common.SessionCookieName, c.Name)
		assert.Equal(t, "bob-token", c.Value)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, secure, c.Secure)
	}
}

func TestLogin_Failure(t *testing.T) {
	env := newTestEnv(t, false, nil)
	rec := env.do(http.MethodPost, "/api/v1/auth/login", `{"email":"bob@lab.org","password":"bad"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decode[ErrorResponse](t, rec).Error)
	assert.Empty(t, rec.Result().Cookies())

	rec = env.do(http.MethodPost, "/api/v1/auth/login", `{"email":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "is not valid JSON", decode[ErrorResponse](t, rec).Fields["body"])

	env.auth.loginErr = common.ErrorStoreUnavailable
	rec = env.do(http.MethodPost, "/api/v1/auth/login", `{"email":"bob@lab.org","password":"pw"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	metricsBody := env.do(http.MethodGet, "/metrics", "", "").Body.String()
	assert.Contains(t, metricsBody, `paleolab_login_attempts_total{outcome="failure"} 1`)
	assert.Contains(t, metricsBody, `paleolab_login_attempts_total{outcome="error"} 1`)
}

func TestLogout_ClearsCookie(t *testing.T) {
	env := newTestEnv(t, false, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: "bob-token"})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"bob-token"}, env.auth.loggedOut)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)

	rec = env.do(http.MethodPost, "/api/v1/auth/logout", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code, "anonymous logout is a no-op")
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t, false, nil)
	rec := env.do(http.MethodPost, "/api/v1/auth/register",
		`{"email":"a@x.com","username":"alice","first_name":"A","last_name":"L","password":"p1","confirm_password":"p1","is_admin":true}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "alice", decode[models.Employee](t, rec).Username)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.do(http.MethodPost, "/api/v1/auth/register", `{"password":"p1","confirm_password":"p2"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "passwords must match", decode[ErrorResponse](t, rec).Fields["confirm_password"])
}

func TestMe(t *testing.T) {
	env := newTestEnv(t, false, nil)

	rec := env.do(http.MethodGet, "/api/v1/auth/me", "", "bob-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bob.ID, decode[models.Employee](t, rec).ID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: "admin-token"})
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, admin.ID, decode[models.Employee](t, rec).ID)

	for _, tok := range []string{"", "forged"} {
		rec = env.do(http.MethodGet, "/api/v1/auth/me", "", tok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "token %q", tok)
	}
}

func TestSession_StoreDown(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.auth.currentErr = common.ErrorStoreUnavailable

	rec := env.do(http.MethodGet, "/api/v1/cores/", "", "bob-token")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "service unavailable", decode[ErrorResponse](t, rec).Error)
}

func TestSession_StoreDownDoesNotBlockLogin(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.auth.currentErr = common.ErrorStoreUnavailable

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"bob@lab.org","password":"pw"}`))
	req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: "stale-token"})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/auth/register",
		`{"email":"carol@lab.org","username":"carol","password":"pw","confirm_password":"pw"}`, "stale-token")
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCores(t *testing.T) {
	env := newTestEnv(t, false, nil)
	lat := models.Coordinate(-3312350)
	env.cores.core = &models.Core{ID: 4, Name: "GC-04", Lat: &lat}
	env.cores.list = []*models.Core{env.cores.core}

	rec := env.do(http.MethodGet, "/api/v1/cores/", "", "bob-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":4,"name":"GC-04","lat":-33.1235,"lon":null,"w_depth_m":null,"length_cm":null,"type":null,"created_at":"0001-01-01T00:00:00Z"}]`, rec.Body.String())
	assert.Equal(t, bob, env.cores.actor)

	rec = env.do(http.MethodPost, "/api/v1/cores/", `{"name":"GC-05","lat":"12.5","w_depth_m":300}`, "bob-token")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "GC-05", env.cores.input.Name)
	assert.Equal(t, models.Coordinate(1250000), *env.cores.input.Lat)
	assert.Equal(t, 300, *env.cores.input.WaterDepthM)

	rec = env.do(http.MethodGet, "/api/v1/cores/4", "", "bob-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(4), env.cores.id)

	rec = env.do(http.MethodPatch, "/api/v1/cores/4", `{"type":"box"}`, "bob-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "box", *env.cores.patch.Type)
	assert.Nil(t, env.cores.patch.Name)

	rec = env.do(http.MethodDelete, "/api/v1/cores/4", "", "bob-token")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, env.cores.deleted)

	rec = env.do(http.MethodGet, "/api/v1/cores/", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCores_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"not found", common.ErrorNotFound, http.StatusNotFound, "not found"},
		{"duplicate", &common.DuplicateKeyError{Field: "name"}, http.StatusConflict, "name is already in use"},
		{"forbidden", common.ErrorForbidden, http.StatusForbidden, "forbidden"},
		{"store down", common.ErrorStoreUnavailable, http.StatusServiceUnavailable, "service unavailable"},
		{"internal", errBoom, http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, false, nil)
			env.cores.err = tt.err
			rec := env.do(http.MethodPatch, "/api/v1/cores/4", `{"name":"GC-01"}`, "bob-token")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantMsg, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestCores_BadID(t *testing.T) {
	env := newTestEnv(t, false, nil)
	for _, id := range []string{"abc", "0", "-3"} {
		rec := env.do(http.MethodGet, "/api/v1/cores/"+id, "", "bob-token")
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
		assert.Equal(t, "is invalid", decode[ErrorResponse](t, rec).Fields["id"])
	}
}

func TestCores_Validation(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.cores.err = &common.ValidationError{Fields: map[string]string{"lat": "must be between -90 and 90"}}

	rec := env.do(http.MethodPost, "/api/v1/cores/", `{"name":"x","lat":91}`, "bob-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrorResponse{Error: "validation error", Fields: map[string]string{"lat": "must be between -90 and 90"}}, decode[ErrorResponse](t, rec))
}

func TestCores_DecodeErrorsNameTheField(t *testing.T) {
	tests := []struct {
		method, path, body string
		fields             map[string]string
	}{
		{http.MethodPost, "/api/v1/cores/", `{"name":"x","lat":"abc"}`, map[string]string{"lat": "is not a valid coordinate"}},
		{http.MethodPost, "/api/v1/cores/", `{"name":"x","lon":1000}`, map[string]string{"lon": "is not a valid coordinate"}},
		{http.MethodPost, "/api/v1/cores/", `{"name":"x","w_depth_m":"deep"}`, map[string]string{"w_depth_m": "must be an integer"}},
		{http.MethodPatch, "/api/v1/cores/4", `{"length_cm":1.5}`, map[string]string{"length_cm": "must be an integer"}},
		{http.MethodPatch, "/api/v1/cores/4", `{"name":7}`, map[string]string{"name": "must be a string"}},
		{http.MethodPost, "/api/v1/cores/", `{"name":`, map[string]string{"body": "is not valid JSON"}},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			env := newTestEnv(t, false, nil)
			rec := env.do(tt.method, tt.path, tt.body, "bob-token")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.fields, decode[ErrorResponse](t, rec).Fields)
			assert.Nil(t, env.cores.actor)
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	env := newTestEnv(t, false, nil)
	body := `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`

	rec := env.do(http.MethodPost, "/api/v1/cores/", body, "bob-token")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "is too large", decode[ErrorResponse](t, rec).Fields["body"])
}

func TestArchive(t *testing.T) {
	env := newTestEnv(t, false, nil)

	rec := env.do(http.MethodPost, "/api/v1/cores/archive", "", "admin-token")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, archive.ErrDisabled.Error(), decode[ErrorResponse](t, rec).Error)

	env.archive.err = nil
	env.archive.res = &archive.Result{Key: "cores/2026/01/01/root-x.json", URL: "https://s3/x", Count: 3}
	rec = env.do(http.MethodPost, "/api/v1/cores/archive", "", "admin-token")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 3, decode[archive.Result](t, rec).Count)

	rec = env.do(http.MethodPost, "/api/v1/cores/archive", "", "bob-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEmployees(t *testing.T) {
	env := newTestEnv(t, false, nil)
	env.employees.employee = &models.Employee{ID: 7, Username: "carol"}
	env.employees.list = []*models.Employee{admin, bob}

	rec := env.do(http.MethodGet, "/api/v1/employees/", "", "admin-token")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Employee](t, rec), 2)

	rec = env.do(http.MethodPost, "/api/v1/employees/",
		`{"email":"c@lab.org","username":"carol","first_name":"C","last_name":"D","password":"x","confirm_password":"x","is_admin":true}`, "admin-token")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.employees.input.IsAdmin)
	assert.Equal(t, admin, env.employees.actor)

	rec = env.do(http.MethodPatch, "/api/v1/employees/7", `{"is_admin":false}`, "admin-token")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.employees.patch.IsAdmin)
	assert.False(t, *env.employees.patch.IsAdmin)
	assert.Nil(t, env.employees.patch.Email)

	rec = env.do(http.MethodGet, "/api/v1/employees/7", "", "admin-token")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodDelete, "/api/v1/employees/7", "", "admin-token")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(7), env.employees.id)

	env.employees.err = common.ErrorForbidden
	rec = env.do(http.MethodDelete, "/api/v1/employees/7", "", "bob-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/employees/", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPStatusFromError(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatusFromError(nil))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusFromError(common.NewValidationError("x", "y")))
	assert.Equal(t, http.StatusConflict, HTTPStatusFromError(&common.DuplicateKeyError{Field: "email"}))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatusFromError(archive.ErrDisabled))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromError(errBoom))
}
