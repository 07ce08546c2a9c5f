package handlers

import (
	"net/http"
	"strings"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/handlers/response"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

type MiddlewareProvider struct {
	Verifier primary.TokenVerifier
	Logger   primary.Logger
}

func New(verifier primary.TokenVerifier, logger primary.Logger) *MiddlewareProvider {
	return &MiddlewareProvider{
		Verifier: verifier,
		Logger:   logger,
	}
}

// JWTMiddleware authenticates the bearer token and stores the principal in
// the request context
func (m *MiddlewareProvider) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.WriteError(w, response.ErrorMessage{Message: "Authorization header missing", StatusCode: http.StatusUnauthorized})
			return
		}

		// Extract token from "Bearer <token>"
		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			response.WriteError(w, response.ErrorMessage{Message: "Invalid token", StatusCode: http.StatusUnauthorized})
			return
		}

		principal, err := m.Verifier.VerifyToken(r.Context(), strings.TrimSpace(tokenString))
		if err != nil {
			m.Logger.Debug("Rejected token", "error", err)
			response.WriteError(w, response.ErrorMessage{Message: "Invalid token", StatusCode: http.StatusUnauthorized})
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// AdminOnly must run after JWTMiddleware
func (m *MiddlewareProvider) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := MustPrincipal(w, r)
		if !ok {
			return
		}
		if !p.IsAdmin() {
			response.FromError(w, errs.ErrAdminOnly)
			return
		}
		next.ServeHTTP(w, r)
	})
}
