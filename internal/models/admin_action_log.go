package models

import "time"

// AdminActionLog is the audit trail for operator actions (cancellations, provisioning)
type AdminActionLog struct {
	ID          string    `json:"id"`
	TenantID    *string   `json:"tenant_id,omitempty"`
	ActorID     string    `json:"actor_id"`
	ActionType  string    `json:"action_type"`
	TargetType  string    `json:"target_type"`
	TargetID    string    `json:"target_id"`
	Description string    `json:"description"`
	IPAddress   *string   `json:"ip_address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Audit action types
const (
	ActionCancelRental    = "cancel_rental"
	ActionProvisionTenant = "provision_tenant"
	ActionUpdateConfig    = "update_installment_config"
)
