package policy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/shared"
)

type stubGrantSource struct {
	grants map[string][]UserRole
	err    error
}

func (s *stubGrantSource) UserGrants(ctx context.Context, userID string) ([]UserRole, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.grants[userID], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func serveRequire(t *testing.T, mw Middleware, action Permission, scope Scope, userID, path string) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.With(mw.Require(action, scope)).Get("/content/{resourceID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.With(mw.Require(action, scope)).Get("/content", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != "" {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: userID}))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireWithoutPrincipal(t *testing.T) {
	mw := Middleware{Engine: NewEngine(DefaultCatalogue()), Grants: &stubGrantSource{}, Logger: testLogger()}
	rec := serveRequire(t, mw, PermContentRead, ScopeContent, "", "/content")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireDeniesWithReason(t *testing.T) {
	source := &stubGrantSource{grants: map[string][]UserRole{
		"user-1": {{UserID: "user-1", Role: RoleViewer, Scope: ScopeGlobal}},
	}}
	mw := Middleware{Engine: NewEngine(DefaultCatalogue()), Grants: source, Logger: testLogger()}
	rec := serveRequire(t, mw, PermContentDelete, ScopeContent, "user-1", "/content")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "User does not have content:delete permission", strings.TrimSpace(rec.Body.String()))
}

func TestRequireAllowsAndPinsResource(t *testing.T) {
	source := &stubGrantSource{grants: map[string][]UserRole{
		"user-1": {{UserID: "user-1", Role: RoleEditor, Scope: ScopeContent, ResourceID: "post-1"}},
	}}
	mw := Middleware{Engine: NewEngine(DefaultCatalogue()), Grants: source, Logger: testLogger()}

	rec := serveRequire(t, mw, PermContentUpdate, ScopeContent, "user-1", "/content/post-1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serveRequire(t, mw, PermContentUpdate, ScopeContent, "user-1", "/content/post-2")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireGrantSourceFailure(t *testing.T) {
	source := &stubGrantSource{err: errors.New("store down")}
	mw := Middleware{Engine: NewEngine(DefaultCatalogue()), Grants: source, Logger: testLogger()}
	rec := serveRequire(t, mw, PermContentRead, ScopeContent, "user-1", "/content")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
