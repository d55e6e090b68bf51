package grants

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/policy"
)

func testRouter(repo RepositoryPort) http.Handler {
	logger := slog.New(slog.DiscardHandler)
	service := NewService(repo, policy.DefaultCatalogue(), nil, logger)
	handler := NewHandler(logger, service)
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router
}

func TestHandlerCreateGrant(t *testing.T) {
	repo := &stubRepo{}
	router := testRouter(repo)

	body := strings.NewReader(`{"userId":"user-1","role":"viewer","scope":"workspace","grantedBy":"admin-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/grants", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var out grantResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "viewer", out.Role)
	require.Equal(t, "workspace", out.Scope)
	require.NotEmpty(t, out.ID)
	require.Len(t, repo.created, 1)
}

func TestHandlerCreateGrantRejectsUnknownRole(t *testing.T) {
	router := testRouter(&stubRepo{})

	body := strings.NewReader(`{"userId":"user-1","role":"superhero","scope":"global","grantedBy":"admin-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/grants", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerListGrants(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	repo := &stubRepo{listed: map[string][]Grant{
		"user-1": {{
			ID:        "grant-1",
			UserID:    "user-1",
			Role:      policy.RoleEditor,
			Scope:     policy.ScopeProject,
			GrantedAt: time.Now(),
			GrantedBy: "admin-1",
			ExpiresAt: &expires,
		}},
	}}
	router := testRouter(repo)

	req := httptest.NewRequest(http.MethodGet, "/users/user-1/grants", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Grants []grantResponse `json:"grants"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Grants, 1)
	require.Equal(t, "project", out.Grants[0].Scope)
	require.NotNil(t, out.Grants[0].ExpiresAt)
}

func TestHandlerReplaceGrants(t *testing.T) {
	repo := &stubRepo{}
	router := testRouter(repo)

	body := strings.NewReader(`{"grants":[
		{"role":"viewer","scope":"workspace","grantedBy":"admin-1"},
		{"role":"editor","scope":"project","resourceId":"proj-9","grantedBy":"admin-1"}
	]}`)
	req := httptest.NewRequest(http.MethodPut, "/users/user-1/grants", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Grants []grantResponse `json:"grants"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Grants, 2)
	require.Equal(t, "user-1", out.Grants[0].UserID)
	require.Len(t, repo.replaced["user-1"], 2)
}

func TestHandlerRevoke(t *testing.T) {
	repo := &stubRepo{}
	router := testRouter(repo)

	req := httptest.NewRequest(http.MethodDelete, "/users/user-1/grants/grant-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []string{"grant-1"}, repo.deleted)
}

func TestHandlerRevokeWrongUserIs404(t *testing.T) {
	repo := &stubRepo{owners: map[string]string{"grant-1": "owner-1"}}
	router := testRouter(repo)

	req := httptest.NewRequest(http.MethodDelete, "/users/someone-else/grants/grant-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Empty(t, repo.deleted)
}
