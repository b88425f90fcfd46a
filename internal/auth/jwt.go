package auth

import (
	"errors"
	"time"

	"fleetrent-backend/internal/config"
	"fleetrent-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTypeTOTPPending = "2fa_pending"

type Claims struct {
	UserID     string `json:"user_id"`
	TenantID   string `json:"tenant_id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	Type       string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	hours := cfg.JWT.ExpirationHours
	if hours <= 0 {
		hours = 24
	}
	return &JWTManager{
		secret:     []byte(cfg.JWT.Secret),
		issuer:     cfg.JWT.Issuer,
		expiration: time.Duration(hours) * time.Hour,
		now:        time.Now,
	}
}

// GenerateToken creates a session token for a user. customerID is set for
// portal logins and empty for staff.
func (j *JWTManager) GenerateToken(user *models.User, customerID string) (string, error) {
	now := j.now()

	claims := &Claims{
		UserID:     user.ID,
		CustomerID: customerID,
		Email:      user.Email,
		Role:       user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.issuer,
			Subject:   user.ID,
		},
	}
	if user.TenantID != nil {
		claims.TenantID = *user.TenantID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken verifies a JWT token and returns the claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := j.parse(tokenString, claims); err != nil {
		return nil, err
	}
	// 2FA temp tokens must never open a session
	if claims.Type != "" {
		return nil, errors.New("invalid token type")
	}
	return claims, nil
}

// TempClaims for short-lived 2FA tokens (used between login step 1 and step 2)
type TempClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateTempToken creates a short-lived token for 2FA verification (5 minutes)
func (j *JWTManager) GenerateTempToken(user *models.User) (string, error) {
	now := j.now()

	claims := &TempClaims{
		UserID: user.ID,
		Email:  user.Email,
		Type:   tokenTypeTOTPPending,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateTempToken verifies a temporary 2FA token and returns the claims
func (j *JWTManager) ValidateTempToken(tokenString string) (*TempClaims, error) {
	claims := &TempClaims{}
	if err := j.parse(tokenString, claims); err != nil {
		return nil, err
	}

	// Verify it's a temp 2FA token
	if claims.Type != tokenTypeTOTPPending {
		return nil, errors.New("invalid token type")
	}

	return claims, nil
}

func (j *JWTManager) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return j.secret, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}
