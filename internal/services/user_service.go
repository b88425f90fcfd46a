package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"fleetrent-backend/internal/auth"
	"fleetrent-backend/internal/models"
)

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
}

type customerLinks interface {
	CustomerIDForUser(ctx context.Context, userID string) (string, error)
}

type tokenIssuer interface {
	GenerateToken(user *models.User, customerID string) (string, error)
	GenerateTempToken(user *models.User) (string, error)
	ValidateTempToken(token string) (*auth.TempClaims, error)
}

type UserService struct {
	users     userStore
	customers customerLinks
	tokens    tokenIssuer
	totp      *TOTPService
}

func NewUserService(users userStore, customers customerLinks, tokens tokenIssuer, totp *TOTPService) *UserService {
	return &UserService{users: users, customers: customers, tokens: tokens, totp: totp}
}

var errBadCredentials = fmt.Errorf("%w: invalid email or password", models.ErrUnauthorized)

// Login checks a password. Users with 2FA enabled get a short-lived temp
// token instead of a session unless the request already carries a code.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest, ipAddress string) (*models.AuthResponse, *models.LoginStep1Response, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, nil, models.Invalid("email", "email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil, errBadCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		log.Printf("[Auth] Failed login for %s from %s", user.Email, ipAddress)
		return nil, nil, errBadCredentials
	}
	if !user.IsActive {
		return nil, nil, models.ErrForbidden
	}

	if user.TOTPEnabled {
		if req.TOTPCode == "" {
			temp, err := s.tokens.GenerateTempToken(user)
			if err != nil {
				return nil, nil, err
			}
			return nil, &models.LoginStep1Response{
				Requires2FA: true,
				Message:     "Enter the code from your authenticator app",
				TempToken:   temp,
			}, nil
		}
		if err := s.totp.Verify(ctx, user, req.TOTPCode, ipAddress); err != nil {
			return nil, nil, err
		}
	}

	resp, err := s.session(ctx, user)
	return resp, nil, err
}

// CompleteLogin exchanges a temp token and a TOTP code for a session
func (s *UserService) CompleteLogin(ctx context.Context, req *models.LoginStep2Request, ipAddress string) (*models.AuthResponse, error) {
	claims, err := s.tokens.ValidateTempToken(req.TempToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, models.ErrForbidden
	}
	if err := s.totp.Verify(ctx, user, req.Code, ipAddress); err != nil {
		return nil, err
	}
	return s.session(ctx, user)
}

func (s *UserService) session(ctx context.Context, user *models.User) (*models.AuthResponse, error) {
	var customerID string
	if user.Role == models.RoleCustomer {
		id, err := s.customers.CustomerIDForUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		customerID = id
	}
	token, err := s.tokens.GenerateToken(user, customerID)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}
