package handlers

import (
	"context"
	"net/http"

	"fleetrent-backend/internal/middleware"
	"fleetrent-backend/internal/models"
	"fleetrent-backend/pkg/utils"
)

type loginService interface {
	Login(ctx context.Context, req *models.LoginRequest, ipAddress string) (*models.AuthResponse, *models.LoginStep1Response, error)
	CompleteLogin(ctx context.Context, req *models.LoginStep2Request, ipAddress string) (*models.AuthResponse, error)
}

type totpSetup interface {
	GenerateSetup(ctx context.Context, userID string) (*models.TOTPSetupResponse, error)
	VerifyAndEnable(ctx context.Context, userID, code, ipAddress string) error
}

type AuthHandler struct {
	Users loginService
	TOTP  totpSetup
}

func NewAuthHandler(users loginService, totp totpSetup) *AuthHandler {
	return &AuthHandler{Users: users, TOTP: totp}
}

// Login checks credentials. A 2FA user without a code gets requires_2fa and a temp token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, step, err := h.Users.Login(r.Context(), &req, getIPAddress(r))
	if err != nil {
		utils.ServiceError(w, "Auth", err)
		return
	}
	if step != nil {
		utils.JSON(w, http.StatusOK, step)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// LoginTOTP finishes a 2FA login
func (h *AuthHandler) LoginTOTP(w http.ResponseWriter, r *http.Request) {
	var req models.LoginStep2Request
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.Users.CompleteLogin(r.Context(), &req, getIPAddress(r))
	if err != nil {
		utils.ServiceError(w, "Auth", err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// SetupTOTP starts 2FA enrolment for the current user
func (h *AuthHandler) SetupTOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	setup, err := h.TOTP.GenerateSetup(r.Context(), userID)
	if err != nil {
		utils.ServiceError(w, "TOTP", err)
		return
	}
	utils.JSON(w, http.StatusOK, setup)
}

// EnableTOTP confirms enrolment with a first code
func (h *AuthHandler) EnableTOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req models.TOTPEnableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.TOTP.VerifyAndEnable(r.Context(), userID, req.Code, getIPAddress(r)); err != nil {
		utils.ServiceError(w, "TOTP", err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]bool{"totp_enabled": true})
}
