package models

// TOTPSetupResponse returned when initiating 2FA setup
type TOTPSetupResponse struct {
	Secret      string `json:"secret"`       // Base32 secret for manual entry
	URL         string `json:"otpauth_url"`  // otpauth:// URI for authenticator apps
	Issuer      string `json:"issuer"`       // "FleetRent"
	AccountName string `json:"account_name"` // User's email
}

// TOTPEnableRequest to verify and enable 2FA
type TOTPEnableRequest struct {
	Code string `json:"code"` // 6-digit TOTP code
}

// LoginStep1Response when 2FA is required after password verification
type LoginStep1Response struct {
	Requires2FA bool   `json:"requires_2fa"`
	Message     string `json:"message,omitempty"`
	TempToken   string `json:"temp_token,omitempty"`
}

// LoginStep2Request completes a login that required 2FA
type LoginStep2Request struct {
	TempToken string `json:"temp_token"`
	Code      string `json:"code"`
}

// TOTPAttempt is one 2FA code check. TenantID is nil for platform super admins.
type TOTPAttempt struct {
	UserID    string
	TenantID  *string
	IPAddress string
	Success   bool
}

// TOTPFailureCounts are recent failed checks for a user and for an address
type TOTPFailureCounts struct {
	ByUser int
	ByIP   int
}
