package services

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"

	"fleetrent-backend/internal/auth"
	"fleetrent-backend/internal/models"
)

type signupStore interface {
	CreateSignup(ctx context.Context, user *models.User, customer *models.Customer) (*models.CustomerUser, error)
}

type CustomerService struct {
	signups signupStore
	tokens  tokenIssuer
}

func NewCustomerService(signups signupStore, tokens tokenIssuer) *CustomerService {
	return &CustomerService{signups: signups, tokens: tokens}
}

// Signup creates a portal login for a customer. With CustomerID set the login
// claims that existing record; otherwise a new customer is created.
func (s *CustomerService) Signup(ctx context.Context, req *models.CustomerSignupRequest) (*models.CustomerSignupResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, models.Invalid("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, models.Invalid("email", "is not a valid address")
	}
	if req.TenantID == nil || strings.TrimSpace(*req.TenantID) == "" {
		return nil, models.Invalid("tenant_id", "is required")
	}
	claiming := req.CustomerID != nil && *req.CustomerID != ""
	if !claiming && strings.TrimSpace(req.Name) == "" {
		return nil, models.Invalid("name", "is required")
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return nil, models.Invalid("password", "must be at least %d characters", auth.MinPasswordLength)
	}
	if err != nil {
		return nil, err
	}

	tenantID := strings.TrimSpace(*req.TenantID)
	user := &models.User{
		TenantID:     &tenantID,
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleCustomer,
	}
	customer := &models.Customer{
		TenantID: tenantID,
		Name:     req.Name,
		Email:    email,
		Phone:    req.Phone,
	}
	if claiming {
		customer.ID = *req.CustomerID
	}

	link, err := s.signups.CreateSignup(ctx, user, customer)
	if errors.Is(err, models.ErrConflict) {
		return nil, models.Invalid("email", "an account with this email already exists")
	}
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.Invalid("customer_id", "customer does not exist")
	}
	if err != nil {
		return nil, err
	}
	user.IsActive = true
	log.Printf("[Signup] Created login %s for customer %s", user.ID, link.CustomerID)

	token, err := s.tokens.GenerateToken(user, link.CustomerID)
	if err != nil {
		return nil, err
	}
	return &models.CustomerSignupResponse{
		UserID:     user.ID,
		CustomerID: link.CustomerID,
		TenantID:   tenantID,
		Token:      token,
	}, nil
}
