// Package middleware holds the admin API's HTTP middleware chain: CORS,
// structured request logging, bearer-token auth and Redis-backed rate
// limiting.
package middleware

import "net/http"

// CORS applies an origin-echo policy: requests from the configured
// frontend origin are allowed with credentials; in non-production, any
// origin is echoed back for local development.
func CORS(frontendURL string, isProduction bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := frontendURL
			if allowed == "" {
				allowed = "http://localhost:3000"
			}

			switch {
			case origin == allowed || origin == "":
				w.Header().Set("Access-Control-Allow-Origin", allowed)
			case !isProduction:
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
