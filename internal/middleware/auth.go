package middleware

import (
	"context"
	"net/http"
	"strings"

	"fleetrent-backend/internal/auth"
	"fleetrent-backend/internal/models"
	"fleetrent-backend/pkg/utils"

	"github.com/gorilla/websocket"
)

type contextKey string

const UserIDKey contextKey = "user_id"
const EmailKey contextKey = "email"
const RoleKey contextKey = "role"
const TenantIDKey contextKey = "tenant_id"
const CustomerIDKey contextKey = "customer_id"

// TenantHeader lets a super admin act inside one tenant
const TenantHeader = "X-Tenant-ID"

type userLookup interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	users      userLookup
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, users userLookup) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		users:      users,
	}
}

// Authenticate is a middleware that validates JWT tokens
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, status, msg := m.authenticate(r)
		if status != 0 {
			utils.Error(w, status, msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) authenticate(r *http.Request) (context.Context, int, string) {
	authHeader := r.Header.Get("Authorization")
	// Browsers cannot set headers on websocket upgrades
	if authHeader == "" && websocket.IsWebSocketUpgrade(r) {
		if token := r.URL.Query().Get("token"); token != "" {
			authHeader = "Bearer " + token
		}
	}
	if authHeader == "" {
		return nil, http.StatusUnauthorized, "Authorization header required"
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, http.StatusUnauthorized, "Invalid authorization format"
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid or expired token"
	}

	// Check database for current user status (for immediate permission updates)
	user, err := m.users.Get(r.Context(), claims.UserID)
	if err != nil {
		return nil, http.StatusUnauthorized, "User not found"
	}
	if !user.IsActive {
		return nil, http.StatusForbidden, "Account suspended. Please contact administrator."
	}

	tenantID := ""
	if user.TenantID != nil {
		tenantID = *user.TenantID
	}
	if user.Role == models.RoleSuperAdmin {
		if t := r.Header.Get(TenantHeader); t != "" {
			tenantID = t
		}
	}

	ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
	ctx = context.WithValue(ctx, EmailKey, user.Email)
	ctx = context.WithValue(ctx, RoleKey, user.Role)
	ctx = context.WithValue(ctx, TenantIDKey, tenantID)
	if claims.CustomerID != "" {
		ctx = context.WithValue(ctx, CustomerIDKey, claims.CustomerID)
	}
	return ctx, 0, ""
}

// RequireRole authenticates the request and checks the user has one of the allowed roles.
// super_admin passes every check.
func (m *AuthMiddleware) RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, status, msg := m.authenticate(r)
			if status != 0 {
				utils.Error(w, status, msg)
				return
			}

			role, _ := GetRoleFromContext(ctx)
			if !roleAllowed(role, allowedRoles) {
				utils.Error(w, http.StatusForbidden, "Forbidden - insufficient permissions")
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func roleAllowed(role string, allowed []string) bool {
	if role == models.RoleSuperAdmin {
		return true
	}
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}

// WithIdentity stores an authenticated identity on ctx. Used by tests and the CLI.
func WithIdentity(ctx context.Context, userID, tenantID, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, RoleKey, role)
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// GetUserIDFromContext extracts user ID from request context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetEmailFromContext extracts email from request context
func GetEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}

// GetRoleFromContext extracts role from request context
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// GetTenantIDFromContext returns the tenant the request acts in; empty when none
func GetTenantIDFromContext(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(string)
	return tenantID, ok && tenantID != ""
}

// GetCustomerIDFromContext is set only for customer portal sessions
func GetCustomerIDFromContext(ctx context.Context) (string, bool) {
	customerID, ok := ctx.Value(CustomerIDKey).(string)
	return customerID, ok && customerID != ""
}
