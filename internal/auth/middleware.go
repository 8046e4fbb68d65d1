package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fdg312/incident-hub/internal/config"
	"github.com/fdg312/incident-hub/internal/userctx"
)

// publicPaths are reachable without a token even when AUTH_REQUIRED=1.
// /v1/auth/me is deliberately absent.
var publicPaths = map[string]bool{
	"/healthz":                 true,
	"/v1/onboarding":           true,
	"/v1/auth/signin":          true,
	"/v1/auth/signup":          true,
	"/v1/auth/forgot-password": true,
}

// Middleware проверяет Bearer JWT и кладёт user id в контекст
type Middleware struct {
	config  *config.Config
	service *Service
}

func NewMiddleware(cfg *config.Config, service *Service) *Middleware {
	return &Middleware{
		config:  cfg,
		service: service,
	}
}

// RequireAuth rejects requests without a valid token unless the path is
// public or AUTH_REQUIRED is off.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.config.AuthRequired || publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.authenticate(r)
		if err != nil {
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", unauthorizedMessage(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(userctx.WithUserID(r.Context(), userID)))
	})
}

// OptionalAuth validates a Bearer token only when one is provided.
// Without a token the request is served as the default owner.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] || strings.TrimSpace(r.Header.Get("Authorization")) == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.authenticate(r)
		if err != nil {
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", unauthorizedMessage(err))
			return
		}

		next.ServeHTTP(w, r.WithContext(userctx.WithUserID(r.Context(), userID)))
	})
}

func (m *Middleware) authenticate(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}

	return m.service.VerifyJWT(strings.TrimSpace(token))
}

func unauthorizedMessage(err error) string {
	if errors.Is(err, ErrTokenExpired) {
		return "Token expired"
	}
	return "Unauthorized"
}
