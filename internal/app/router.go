package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/grants"
	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/observability"
	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/policy"
	"github.com/Krosebrook/CreatorStudioLite-sub000/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	GrantsHandler    *grants.Handler
	PolicyHandler    *policy.Handler
	JobHandler       *jobs.Handler
	PolicyMiddleware policy.Middleware
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with studio defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	// Grant management and catalogue introspection are admin surfaces,
	// gated by the engine itself.
	r.Route("/api/authz", func(r chi.Router) {
		r.Use(params.PolicyMiddleware.Require(policy.PermGrantsManage, policy.ScopeGlobal))
		params.GrantsHandler.MountRoutes(r)
		params.PolicyHandler.MountRoutes(r)
		if params.JobHandler != nil {
			params.JobHandler.MountRoutes(r)
		}
	})

	return r
}
