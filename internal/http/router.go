package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"expediente/internal/platform/metrics"
	"expediente/internal/platform/middleware"
	"expediente/pkg/platform/httputil"
	"expediente/pkg/platform/middleware/metadata"
	"expediente/pkg/platform/middleware/requesttime"
)

// Registrar mounts a feature's routes.
type Registrar interface {
	Register(r chi.Router)
}

// Options configure NewRouter.
type Options struct {
	Logger *slog.Logger
	// Registry, when set, is served at MetricsPath.
	Registry    *prometheus.Registry
	MetricsPath string
	// Clock stamps each request; nil means time.Now.
	Clock func() time.Time
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
	// RateLimiter, when set, guards feature routes. Health and metrics
	// stay unthrottled.
	RateLimiter *middleware.RateLimiter
}

// NewRouter wires the shared middleware chain, the health and metrics
// endpoints, and every feature handler.
func NewRouter(opts Options, handlers ...Registrar) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(metadata.ClientMetadata)
	if opts.Clock != nil {
		r.Use(requesttime.WithClock(opts.Clock))
	} else {
		r.Use(requesttime.Middleware)
	}
	r.Use(middleware.AccessLog(logger))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Registry != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, metrics.Handler(opts.Registry))
	}

	r.Group(func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Middleware)
		}
		for _, h := range handlers {
			h.Register(r)
		}
	})
	return r
}
