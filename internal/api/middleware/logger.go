package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Logger emits a structured zap access log per request, skipping the hot
// paths (redirect lookups, health/ready/metrics) to keep their latency
// off the critical path.
func Logger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipLogging(r) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

func skipLogging(r *http.Request) bool {
	path := r.URL.Path
	if path == "/health" || path == "/ready" || path == "/metrics" {
		return true
	}
	// Short, non-API paths at GET are the redirect fast path.
	return r.Method == http.MethodGet && path != "/" && len(path) <= 10 && !hasAPIPrefix(path)
}

func hasAPIPrefix(path string) bool {
	return len(path) >= 4 && path[:4] == "/api"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
