package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"fleetrent-backend/internal/auth"
	"fleetrent-backend/internal/config"
	"fleetrent-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) Get(_ context.Context, id string) (*models.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u, nil
}

func setup(t *testing.T) (*AuthMiddleware, *auth.JWTManager, fakeUsers) {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "middleware-secret"
	cfg.JWT.ExpirationHours = 1
	jm := auth.NewJWTManager(cfg)

	tenant := "tenant-1"
	users := fakeUsers{
		"admin":     {ID: "admin", TenantID: &tenant, Role: models.RoleAdmin, IsActive: true},
		"staff":     {ID: "staff", TenantID: &tenant, Role: models.RoleStaff, IsActive: true},
		"root":      {ID: "root", Role: models.RoleSuperAdmin, IsActive: true},
		"suspended": {ID: "suspended", TenantID: &tenant, Role: models.RoleAdmin, IsActive: false},
	}
	return NewAuthMiddleware(jm, users), jm, users
}

func bearer(t *testing.T, jm *auth.JWTManager, u *models.User) string {
	t.Helper()
	token, err := jm.GenerateToken(u, "")
	require.NoError(t, err)
	return "Bearer " + token
}

func captureTenant(got *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, _ = GetTenantIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireRole(t *testing.T) {
	m, jm, users := setup(t)
	var tenant string
	h := m.RequireRole(models.RoleAdmin)(captureTenant(&tenant))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, jm, users["admin"]))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "tenant-1", tenant)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, jm, users["staff"]))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRole_SuperAdminTenantHeader(t *testing.T) {
	m, jm, users := setup(t)
	var tenant string
	h := m.RequireRole(models.RoleAdmin)(captureTenant(&tenant))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", bearer(t, jm, users["root"]))
	req.Header.Set(TenantHeader, "tenant-9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "tenant-9", tenant)
}

func TestAuthenticate_Rejections(t *testing.T) {
	m, jm, users := setup(t)
	var tenant string
	h := m.Authenticate(captureTenant(&tenant))

	cases := map[string]struct {
		header string
		want   int
	}{
		"missing":   {"", http.StatusUnauthorized},
		"malformed": {"Token abc", http.StatusUnauthorized},
		"garbage":   {"Bearer not-a-jwt", http.StatusUnauthorized},
		"suspended": {bearer(t, jm, users["suspended"]), http.StatusForbidden},
		"unknown":   {bearer(t, jm, &models.User{ID: "ghost"}), http.StatusUnauthorized},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, c.want, rec.Code)
		})
	}
}

func TestPanicRecovery(t *testing.T) {
	h := PanicRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}
