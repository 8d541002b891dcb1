package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/rookgm/brewtrack/internal/models"
)

type contextKey string

const (
	authPayloadKey contextKey = "auth_payload"
)

// AuthCookie is the cookie carrying the token
const AuthCookie = "auth_token"

// tokenFromRequest returns token from cookie or Authorization bearer header
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(AuthCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

type TokenService interface {
	CreateToken(payload *models.TokenPayload) (string, error)
	VerifyToken(tokenString string) (*models.TokenPayload, error)
}

// AuthMiddleware gets the token from the cookie or header and passes its payload to the context
func AuthMiddleware(ts TokenService) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				http.Error(w, "no token", http.StatusUnauthorized)
				return
			}

			payload, err := ts.VerifyToken(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireStaff rejects viewers without staff role
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := getAuthPayload(r.Context(), authPayloadKey)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if payload.Role != models.RoleStaff {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getAuthPayload extracts authorization token payload from context
func getAuthPayload(ctx context.Context, key contextKey) (*models.TokenPayload, bool) {
	payload, ok := ctx.Value(key).(*models.TokenPayload)
	if !ok || payload == nil {
		return nil, false
	}
	return payload, true
}

// viewerScope returns the scope a viewer may read orders through
func viewerScope(payload *models.TokenPayload) models.Scope {
	if payload.Role == models.RoleStaff {
		return models.StaffScope()
	}
	return models.CustomerScope(payload.CustomerName)
}

// orderScope returns single order scope, restricted to the owner for customers
func orderScope(payload *models.TokenPayload, orderID string) models.Scope {
	scope := models.OrderScope(orderID)
	if payload.Role != models.RoleStaff {
		scope.CustomerName = payload.CustomerName
	}
	return scope
}
