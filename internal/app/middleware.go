package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/observability"
	"github.com/Krosebrook/CreatorStudioLite-sub000/internal/shared"
)

// identityHeader carries the authenticated user ID, injected by the edge
// gateway after authentication. The studio never authenticates itself.
const identityHeader = "X-Studio-User"

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the studio middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	})

	identityMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID := r.Header.Get(identityHeader); userID != "" {
				r = r.WithContext(shared.ContextWithPrincipal(r.Context(), shared.Principal{UserID: userID}))
			}
			next.ServeHTTP(w, r)
		})
	}

	requestsPerMinute := 300
	if cfg.Config != nil && cfg.Config.RateLimitPerMinute > 0 {
		requestsPerMinute = cfg.Config.RateLimitPerMinute
	}
	requestTimeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		requestTimeout = cfg.Config.AppRequestTimeout
	}

	return []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
		httprate.LimitByIP(requestsPerMinute, time.Minute),
		secureMiddleware.Handler,
		cfg.Metrics.Middleware,
		identityMiddleware,
	}
}
