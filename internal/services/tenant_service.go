package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"fleetrent-backend/internal/auth"
	"fleetrent-backend/internal/models"
)

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,38}[a-z0-9]$`)
	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

const (
	defaultTenantTimezone = "Asia/Kolkata"
	defaultTenantCurrency = "INR"
	defaultAuditLimit     = 50
	maxAuditLimit         = 500
)

type tenantProvisioner interface {
	Provision(ctx context.Context, t *models.Tenant, admin *models.User, cfg *models.InstallmentConfig) error
}

type auditReader interface {
	auditLog
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*models.AdminActionLog, error)
}

type TenantService struct {
	tenants tenantProvisioner
	audit   auditReader
}

func NewTenantService(tenants tenantProvisioner, audit auditReader) *TenantService {
	return &TenantService{tenants: tenants, audit: audit}
}

// Provision onboards a rental company with its first admin and the default
// installment policy
func (s *TenantService) Provision(ctx context.Context, actorID string, req *models.ProvisionTenantRequest) (*models.ProvisionTenantResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, models.Invalid("name", "is required")
	}
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, models.Invalid("slug", "must be 3-40 lowercase letters, digits or dashes")
	}

	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = defaultTenantTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, models.Invalid("timezone", "unknown timezone %q", tz)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultTenantCurrency
	}
	if !currencyPattern.MatchString(currency) {
		return nil, models.Invalid("currency", "must be a 3-letter ISO code")
	}

	email := strings.ToLower(strings.TrimSpace(req.AdminEmail))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, models.Invalid("admin_email", "is not a valid address")
	}
	hash, err := auth.HashPassword(req.AdminPassword)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return nil, models.Invalid("admin_password", "must be at least %d characters", auth.MinPasswordLength)
	}
	if err != nil {
		return nil, err
	}

	tenant := &models.Tenant{Name: name, Slug: slug, Timezone: tz, Currency: currency}
	admin := &models.User{
		Name:         strings.TrimSpace(req.AdminName),
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	cfg := models.DefaultInstallmentConfig("")

	if err := s.tenants.Provision(ctx, tenant, admin, cfg); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("tenant slug or admin email already in use: %w", models.ErrConflict)
		}
		return nil, err
	}
	log.Printf("[Tenants] Provisioned %s (%s) with admin %s", tenant.Slug, tenant.ID, admin.Email)

	if s.audit != nil {
		tid := tenant.ID
		err := s.audit.CreateActionLog(ctx, &models.AdminActionLog{
			TenantID:    &tid,
			ActorID:     actorID,
			ActionType:  models.ActionProvisionTenant,
			TargetType:  "tenant",
			TargetID:    tenant.ID,
			Description: fmt.Sprintf("provisioned %s with admin %s", tenant.Slug, admin.Email),
		})
		if err != nil {
			log.Printf("[Tenants] Failed to write audit log: %v", err)
		}
	}

	return &models.ProvisionTenantResponse{Tenant: tenant, Admin: admin, Installment: cfg}, nil
}

// AuditLog lists a tenant's most recent operator actions
func (s *TenantService) AuditLog(ctx context.Context, tenantID string, limit int) ([]*models.AdminActionLog, error) {
	if tenantID == "" {
		return nil, models.Invalid("tenant_id", "is required")
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	return s.audit.ListByTenant(ctx, tenantID, limit)
}
