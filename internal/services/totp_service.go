package services

import (
	"context"
	"log"
	"time"

	"fleetrent-backend/internal/models"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpIssuer        = "FleetRent"
	maxFailedAttempts = 5
	rateLimitWindow   = 15 * time.Minute
	// attemptRetention is how long the attempt log is kept
	attemptRetention = 24 * time.Hour
)

type totpUsers interface {
	Get(ctx context.Context, id string) (*models.User, error)
	SetTOTPSecret(ctx context.Context, userID, secret string) error
	EnableTOTP(ctx context.Context, userID string) error
}

type totpAttempts interface {
	RecordAttempt(ctx context.Context, a *models.TOTPAttempt) error
	FailedAttemptsSince(ctx context.Context, userID, ipAddress string, since time.Time) (models.TOTPFailureCounts, error)
	PurgeAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type TOTPService struct {
	users    totpUsers
	attempts totpAttempts
	now      func() time.Time
}

func NewTOTPService(users totpUsers, attempts totpAttempts) *TOTPService {
	return &TOTPService{users: users, attempts: attempts, now: time.Now}
}

// GenerateSetup creates a new secret for a user. It is stored but not
// enforced until a code from it is confirmed with VerifyAndEnable.
func (s *TOTPService) GenerateSetup(ctx context.Context, userID string) (*models.TOTPSetupResponse, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	if err := s.users.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, err
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		URL:         key.URL(),
		Issuer:      totpIssuer,
		AccountName: user.Email,
	}, nil
}

// VerifyAndEnable confirms the pending secret with a code and turns 2FA on
func (s *TOTPService) VerifyAndEnable(ctx context.Context, userID, code, ipAddress string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		return models.Invalid("code", "2FA setup not initiated")
	}
	if err := s.check(ctx, user, code, ipAddress); err != nil {
		return err
	}
	return s.users.EnableTOTP(ctx, user.ID)
}

// Verify validates a login code for a user with 2FA enabled
func (s *TOTPService) Verify(ctx context.Context, user *models.User, code, ipAddress string) error {
	if !user.TOTPEnabled || user.TOTPSecret == nil {
		return models.Invalid("code", "2FA is not enabled")
	}
	return s.check(ctx, user, code, ipAddress)
}

func (s *TOTPService) check(ctx context.Context, user *models.User, code, ipAddress string) error {
	limited, err := s.isRateLimited(ctx, user, ipAddress)
	if err != nil {
		return err
	}
	if limited {
		return models.ErrRateLimited
	}

	valid, _ := totp.ValidateCustom(code, *user.TOTPSecret, s.now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	attempt := &models.TOTPAttempt{UserID: user.ID, TenantID: user.TenantID, IPAddress: ipAddress, Success: valid}
	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		log.Printf("[TOTP] Failed to log verification attempt: %v", err)
	}
	if !valid {
		return models.Invalid("code", "invalid verification code")
	}
	return nil
}

// isRateLimited checks the user and the address against the failure limits
func (s *TOTPService) isRateLimited(ctx context.Context, user *models.User, ipAddress string) (bool, error) {
	counts, err := s.attempts.FailedAttemptsSince(ctx, user.ID, ipAddress, s.now().Add(-rateLimitWindow))
	if err != nil {
		return false, err
	}
	if counts.ByUser >= maxFailedAttempts {
		log.Printf("[TOTP] User %s locked out after %d failed codes", user.ID, counts.ByUser)
		return true, nil
	}
	// shared IPs get a larger allowance
	return ipAddress != "" && counts.ByIP >= maxFailedAttempts*2, nil
}

// PurgeAttempts drops attempt log rows past the retention window
func (s *TOTPService) PurgeAttempts(ctx context.Context) (int64, error) {
	return s.attempts.PurgeAttemptsBefore(ctx, s.now().Add(-attemptRetention))
}
