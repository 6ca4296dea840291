// Package api hosts the HTTP surfaces: the redirect fast path, the admin
// CRUD/config API, the SSE analytics stream and the health/ready/metrics
// endpoints, wired together by router.go using a prefix-priority dispatch
// instead of a general-purpose mux.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shortlinker/shortlinker/internal/clicks"
	"github.com/shortlinker/shortlinker/internal/models"
	"github.com/shortlinker/shortlinker/internal/redirect"
)

// RedirectHandler serves GET /{code} with a direct-header-write fast
// path: the Location and status are written before any analytics
// bookkeeping happens.
type RedirectHandler struct {
	resolver *redirect.Resolver
	ingress  *clicks.Ingress
	log      *zap.Logger
}

// NewRedirectHandler builds the handler.
func NewRedirectHandler(resolver *redirect.Resolver, ingress *clicks.Ingress, log *zap.Logger) *RedirectHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedirectHandler{resolver: resolver, ingress: ingress, log: log}
}

func (h *RedirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := extractCode(r.URL.Path)
	if code == "" {
		http.NotFound(w, r)
		return
	}

	password := r.URL.Query().Get("pw")
	result := h.resolver.Resolve(r.Context(), code, password)

	switch result.Outcome {
	case redirect.OutcomeRedirect:
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Location", result.Link.Target)
		w.WriteHeader(http.StatusTemporaryRedirect)
		h.recordClick(r, code)
	case redirect.OutcomeGone:
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusGone)
	case redirect.OutcomePasswordRequired:
		writeJSONError(w, http.StatusUnauthorized, "password required")
	default:
		http.NotFound(w, r)
	}
}

// extractCode strips the leading slash from the request path and stops
// at the next slash, if any.
func extractCode(path string) string {
	if len(path) <= 1 {
		return ""
	}
	code := path[1:]
	if idx := strings.IndexByte(code, '/'); idx >= 0 {
		code = code[:idx]
	}
	return code
}

// recordClick captures request data before the async handoff: r is not
// safe to read from once the handler returns.
func (h *RedirectHandler) recordClick(r *http.Request, code string) {
	ip := extractIP(r)
	userAgent := r.UserAgent()
	referrer := r.Referer()

	h.ingress.TrySend(models.ClickDetail{
		Code:      code,
		Timestamp: time.Now(),
		Referrer:  referrer,
		UserAgent: userAgent,
		IP:        ip,
	})
}

func extractIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		return host[:idx]
	}
	return host
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
