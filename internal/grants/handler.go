package grants

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/platform/httpx"
)

// Handler exposes the grant management JSON API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers grant management routes. Authorization middleware is
// applied by the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/grants", h.create)
	r.Get("/users/{userID}/grants", h.listByUser)
	r.Put("/users/{userID}/grants", h.replace)
	r.Delete("/users/{userID}/grants/{grantID}", h.revoke)
}

type grantResponse struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Role       string     `json:"role"`
	Scope      string     `json:"scope"`
	ResourceID string     `json:"resourceId,omitempty"`
	GrantedAt  time.Time  `json:"grantedAt"`
	GrantedBy  string     `json:"grantedBy"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

func toResponse(g Grant) grantResponse {
	return grantResponse{
		ID:         g.ID,
		UserID:     g.UserID,
		Role:       string(g.Role),
		Scope:      g.Scope.String(),
		ResourceID: g.ResourceID,
		GrantedAt:  g.GrantedAt,
		GrantedBy:  g.GrantedBy,
		ExpiresAt:  g.ExpiresAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	g, err := h.service.Grant(r.Context(), in)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Grant Rejected", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(g))
}

func (h *Handler) listByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	list, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list grants", slog.String("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]grantResponse, len(list))
	for i, g := range list {
		out[i] = toResponse(g)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": out})
}

func (h *Handler) replace(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var in struct {
		Grants []CreateInput `json:"grants"`
	}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	list, err := h.service.Replace(r.Context(), userID, in.Grants)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Replace Rejected", err.Error())
		return
	}
	out := make([]grantResponse, len(list))
	for i, g := range list {
		out[i] = toResponse(g)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": out})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	grantID := chi.URLParam(r, "grantID")
	if err := h.service.Revoke(r.Context(), grantID, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "grant does not exist")
			return
		}
		h.logger.Error("revoke grant", slog.String("grant_id", grantID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
