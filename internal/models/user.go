package models

import "time"

// Roles
const (
	RoleSuperAdmin = "super_admin" // platform operator, provisions tenants
	RoleAdmin      = "admin"
	RoleStaff      = "staff"
	RoleCustomer   = "customer"
)

type User struct {
	ID            string     `json:"id"`
	TenantID      *string    `json:"tenant_id,omitempty"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"` // Never expose in JSON
	Role          string     `json:"role"`
	IsActive      bool       `json:"is_active"`
	TOTPSecret    *string    `json:"-"`
	TOTPEnabled   bool       `json:"totp_enabled"`
	TOTPEnabledAt *time.Time `json:"totp_enabled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
