package models

import "time"

type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Timezone  string    `json:"timezone"`
	Currency  string    `json:"currency"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ProvisionTenantRequest is sent by the admin console to onboard a rental company
type ProvisionTenantRequest struct {
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Timezone      string `json:"timezone"`
	Currency      string `json:"currency"`
	AdminName     string `json:"admin_name"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
}

type ProvisionTenantResponse struct {
	Tenant      *Tenant            `json:"tenant"`
	Admin       *User              `json:"admin"`
	Installment *InstallmentConfig `json:"installment_config"`
}
