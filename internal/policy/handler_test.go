package policy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func testHandlerRouter(t *testing.T, source GrantSource) http.Handler {
	t.Helper()
	handler := NewHandler(testLogger(), NewEngine(DefaultCatalogue()), source)
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router
}

func TestHandlerRolePermissions(t *testing.T) {
	router := testHandlerRouter(t, &stubGrantSource{})

	req := httptest.NewRequest(http.MethodGet, "/roles/viewer/permissions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "viewer", body.Role)
	require.Contains(t, body.Permissions, "content:read")

	req = httptest.NewRequest(http.MethodGet, "/roles/superhero/permissions", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerUserPermissionsSkipsExpired(t *testing.T) {
	yesterday := time.Now().Add(-24 * time.Hour)
	source := &stubGrantSource{grants: map[string][]UserRole{
		"user-1": {
			{UserID: "user-1", Role: RoleViewer, Scope: ScopeGlobal},
			{UserID: "user-1", Role: RoleOwner, Scope: ScopeGlobal, ExpiresAt: &yesterday},
		},
	}}
	router := testHandlerRouter(t, source)

	req := httptest.NewRequest(http.MethodGet, "/users/user-1/permissions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Permissions []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body.Permissions, "content:read")
	require.NotContains(t, body.Permissions, "billing:manage", "expired owner grant must not contribute")
}

func TestHandlerCheck(t *testing.T) {
	source := &stubGrantSource{grants: map[string][]UserRole{
		"user-1": {{UserID: "user-1", Role: RoleEditor, Scope: ScopeWorkspace}},
	}}
	router := testHandlerRouter(t, source)

	body := strings.NewReader(`{"userId":"user-1","action":"content:publish","scope":"content","resourceId":"post-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/check", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out checkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, out.Allowed)

	body = strings.NewReader(`{"userId":"user-2","action":"content:publish"}`)
	req = httptest.NewRequest(http.MethodPost, "/check", body)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.False(t, out.Allowed)
	require.Equal(t, "User has no roles assigned", out.Reason)

	req = httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(`{"action":"content:read"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
