package httpserver

import (
	"net/http"
	"slices"
	"strings"

	"github.com/fdg312/incident-hub/internal/config"
)

var corsAllowedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodOptions,
}

// corsPolicy holds the parsed CORS_ALLOWED_ORIGINS list.
// "*" admits any origin.
type corsPolicy struct {
	origins     map[string]bool
	any         bool
	credentials bool
}

func newCORSPolicy(cfg *config.Config) corsPolicy {
	p := corsPolicy{
		origins:     make(map[string]bool, len(cfg.CORSAllowedOrigins)),
		credentials: cfg.CORSAllowCredentials,
	}
	for _, o := range cfg.CORSAllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			p.any = true
			continue
		}
		p.origins[o] = true
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	return origin != "" && (p.any || p.origins[origin])
}

// allowOriginValue: a literal "*" is not valid together with credentials,
// so the request origin is echoed instead.
func (p corsPolicy) allowOriginValue(origin string) string {
	if p.any && !p.credentials && !p.origins[origin] {
		return "*"
	}
	return origin
}

// CORSMiddleware returns an http.Handler that adds CORS headers.
func CORSMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := policy.allows(origin)

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", policy.allowOriginValue(origin))
			w.Header().Add("Vary", "Origin")

			// receipts are downloaded as attachments
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

			if policy.credentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		}

		if r.Method != http.MethodOptions || origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Preflight. A disallowed origin or method gets 204 without CORS
		// headers and the browser blocks the real request.
		requested := r.Header.Get("Access-Control-Request-Method")
		if allowed && (requested == "" || slices.Contains(corsAllowedMethods, requested)) {
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(corsAllowedMethods, ","))
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			w.Header().Set("Access-Control-Max-Age", "600")
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
