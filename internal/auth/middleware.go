// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/teletable/backend/internal/log"
)

type ctxClaimsKey struct{}

// ContextWithClaims attaches validated claims to the context.
func ContextWithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey{}, claims)
}

// ClaimsFromContext extracts the authenticated principal, if any.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(ctxClaimsKey{}).(Claims)
	return claims, ok
}

// ExtractBearer returns the token from an "Authorization: Bearer <t>" header,
// or "" if absent.
func ExtractBearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Middleware validates the bearer token and stores the claims in the
// request context. Requests without a valid token are rejected with 401.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearer(r)
			if token == "" {
				log.FromContext(r.Context()).Warn().
					Str(log.FieldEvent, "auth.missing_header").
					Str(log.FieldPath, r.URL.Path).
					Msg("authorization header missing")
				writeAuthError(w, http.StatusUnauthorized, "Missing authorization header")
				return
			}

			claims, err := DecodeToken(token, secret)
			if err != nil {
				log.FromContext(r.Context()).Warn().
					Str(log.FieldEvent, "auth.invalid_token").
					Str(log.FieldPath, r.URL.Path).
					Msg("invalid or expired token")
				writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// RequireRole rejects requests whose principal is below min. It must run
// after Middleware.
func RequireRole(min Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "No authentication information")
				return
			}
			if !claims.Role.AtLeast(min) {
				log.FromContext(r.Context()).Warn().
					Str(log.FieldEvent, "auth.forbidden").
					Str(log.FieldUserID, claims.Sub).
					Str(log.FieldRole, string(claims.Role)).
					Str(log.FieldPath, r.URL.Path).
					Msg("role below requirement")
				writeAuthError(w, http.StatusForbidden, "Insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
