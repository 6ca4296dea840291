package api

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shortlinker/shortlinker/internal/api/middleware"
	"github.com/shortlinker/shortlinker/internal/redisx"
	"github.com/shortlinker/shortlinker/internal/storage"
)

// RouterConfig wires every handler group the router dispatches to.
type RouterConfig struct {
	Redirect   *RedirectHandler
	Links      *LinksAPI
	Analytics  *AnalyticsAPI
	Config     *ConfigAPI
	Store      storage.Gateway
	Redis      *redisx.Client
	AdminToken string
	FrontendURL string
	IsProduction bool
	RateLimitPerMin int
	Log        *zap.Logger
}

// NewRouter builds the root handler with a prefix-priority dispatch: a
// plain path-prefix check routes most requests (redirects) around the
// mux entirely before falling through to the admin API sub-router and
// the health/ready/metrics endpoints.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	apiRouter := newAPIRouter(cfg, log)
	apiHandler := middleware.CORS(cfg.FrontendURL, cfg.IsProduction)(
		middleware.Logger(log)(apiRouter),
	)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.HandleFunc("/health", Health)
	mux.Handle("/ready", Readiness(cfg.Store, cfg.Redis))
	mux.HandleFunc("/uptime", Uptime)
	mux.Handle("/metrics", Metrics())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path != "/health" && path != "/ready" && path != "/metrics" {
			IncrementRequestCount()
		}

		if !strings.HasPrefix(path, "/api") && path != "/health" && path != "/ready" && path != "/metrics" && path != "/uptime" {
			if r.Method == http.MethodGet && path != "/" && len(path) > 1 {
				cfg.Redirect.ServeHTTP(w, r)
				return
			}
		}
		mux.ServeHTTP(w, r)
	})
}

// newAPIRouter builds the /api/ sub-dispatcher with a custom switch-based
// router rather than a third-party mux, since the route set is small and
// fixed.
func newAPIRouter(cfg RouterConfig, log *zap.Logger) http.Handler {
	rateLimited := func(h http.HandlerFunc) http.Handler {
		limit := cfg.RateLimitPerMin
		if limit <= 0 {
			limit = 100
		}
		var wrapped http.Handler = h
		if cfg.Redis != nil {
			wrapped = middleware.RateLimit(cfg.Redis, limit, time.Minute, log)(wrapped)
		}
		return middleware.Auth(cfg.AdminToken)(wrapped)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		if path == "" {
			path = "/"
		}

		switch {
		case r.Method == http.MethodPost && path == "/links":
			rateLimited(cfg.Links.Create).ServeHTTP(w, r)
		case r.Method == http.MethodPost && path == "/links/import":
			rateLimited(cfg.Links.Import).ServeHTTP(w, r)
		case r.Method == http.MethodGet && path == "/links/export":
			rateLimited(cfg.Links.Export).ServeHTTP(w, r)
		case r.Method == http.MethodGet && path == "/links":
			rateLimited(cfg.Links.List).ServeHTTP(w, r)
		case r.Method == http.MethodGet && strings.HasPrefix(path, "/links/"):
			code := strings.TrimPrefix(path, "/links/")
			rateLimited(func(w http.ResponseWriter, r *http.Request) { cfg.Links.Get(w, r, code) }).ServeHTTP(w, r)
		case r.Method == http.MethodDelete && strings.HasPrefix(path, "/links/"):
			code := strings.TrimPrefix(path, "/links/")
			rateLimited(func(w http.ResponseWriter, r *http.Request) { cfg.Links.Delete(w, r, code) }).ServeHTTP(w, r)

		case r.Method == http.MethodGet && strings.HasPrefix(path, "/analytics/") && strings.HasSuffix(path, "/stream"):
			code := strings.TrimSuffix(strings.TrimPrefix(path, "/analytics/"), "/stream")
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { cfg.Analytics.Stream(w, r, code) }).ServeHTTP(w, r)
		case r.Method == http.MethodGet && strings.HasPrefix(path, "/analytics/"):
			code := strings.TrimPrefix(path, "/analytics/")
			rateLimited(func(w http.ResponseWriter, r *http.Request) { cfg.Analytics.Get(w, r, code) }).ServeHTTP(w, r)

		case r.Method == http.MethodGet && path == "/config":
			rateLimited(cfg.Config.List).ServeHTTP(w, r)
		case r.Method == http.MethodGet && strings.HasPrefix(path, "/config/"):
			key := strings.TrimPrefix(path, "/config/")
			rateLimited(func(w http.ResponseWriter, r *http.Request) { cfg.Config.Get(w, r, key) }).ServeHTTP(w, r)
		case r.Method == http.MethodPut && strings.HasPrefix(path, "/config/"):
			key := strings.TrimPrefix(path, "/config/")
			rateLimited(func(w http.ResponseWriter, r *http.Request) { cfg.Config.Set(w, r, key) }).ServeHTTP(w, r)
		case r.Method == http.MethodDelete && strings.HasPrefix(path, "/config/"):
			key := strings.TrimPrefix(path, "/config/")
			rateLimited(func(w http.ResponseWriter, r *http.Request) { cfg.Config.Reset(w, r, key) }).ServeHTTP(w, r)

		default:
			http.NotFound(w, r)
		}
	})
}
