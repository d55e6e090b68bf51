package policy

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/platform/httpx"
)

// Handler exposes catalogue introspection and decision checks over JSON.
type Handler struct {
	logger *slog.Logger
	engine *Engine
	grants GrantSource
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, engine *Engine, grants GrantSource) *Handler {
	return &Handler{logger: logger, engine: engine, grants: grants}
}

// MountRoutes registers introspection routes. Authorization middleware is
// applied by the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/roles", h.listRoles)
	r.Get("/roles/{role}/permissions", h.rolePermissions)
	r.Get("/users/{userID}/permissions", h.userPermissions)
	r.Post("/check", h.check)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles := h.engine.Catalogue().Roles()
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	sort.Strings(names)
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": names})
}

func (h *Handler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	role := Role(chi.URLParam(r, "role"))
	set, err := h.engine.Catalogue().Permissions(role)
	if err != nil {
		if errors.Is(err, ErrUnknownRole) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"role":        string(role),
		"permissions": sortedPermissions(set),
	})
}

// userPermissions reports the union of permissions the user's live grants
// carry. Expired grants are excluded from this view even though the engine's
// any-expired rule still applies at decision time.
func (h *Handler) userPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	list, err := h.grants.UserGrants(r.Context(), userID)
	if err != nil {
		h.logger.Error("load grants", slog.String("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	now := time.Now()
	union := make(PermissionSet)
	for _, grant := range list {
		if grant.Expired(now) {
			continue
		}
		set, err := h.engine.Catalogue().Permissions(grant.Role)
		if err != nil {
			h.logger.Error("resolve role", slog.String("role", string(grant.Role)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		for perm := range set {
			union[perm] = struct{}{}
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"userId":      userID,
		"permissions": sortedPermissions(union),
	})
}

type checkRequest struct {
	UserID     string `json:"userId"`
	Action     string `json:"action"`
	Scope      string `json:"scope"`
	ResourceID string `json:"resourceId,omitempty"`
}

type checkResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// check evaluates a decision for an arbitrary user. Intended for admin
// tooling and support; the request path itself is guarded by the router.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var in checkRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if in.UserID == "" || in.Action == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "userId and action are required")
		return
	}
	scope := ScopeGlobal
	if in.Scope != "" {
		parsed, err := ParseScope(in.Scope)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
			return
		}
		scope = parsed
	}
	list, err := h.grants.UserGrants(r.Context(), in.UserID)
	if err != nil {
		h.logger.Error("load grants", slog.String("user_id", in.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	decision, err := h.engine.Evaluate(r.Context(), Request{
		UserID:     in.UserID,
		UserRoles:  list,
		Action:     Permission(in.Action),
		Scope:      scope,
		ResourceID: in.ResourceID,
	})
	if err != nil {
		h.logger.Error("evaluate", slog.String("user_id", in.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, checkResponse{Allowed: decision.Allowed, Reason: decision.Reason})
}

func sortedPermissions(set PermissionSet) []string {
	out := make([]string, 0, len(set))
	for perm := range set {
		out = append(out, string(perm))
	}
	sort.Strings(out)
	return out
}
