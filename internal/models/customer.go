package models

import "time"

type Customer struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomerUser links an auth identity to a customer record
type CustomerUser struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	CustomerID string    `json:"customer_id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// CustomerSignupRequest is the body of the public signup endpoint.
// CustomerID links the new login to an existing customer instead of creating one.
type CustomerSignupRequest struct {
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	CustomerID *string `json:"customer_id"`
	TenantID   *string `json:"tenant_id"`
}

type CustomerSignupResponse struct {
	UserID     string `json:"user_id"`
	CustomerID string `json:"customer_id"`
	TenantID   string `json:"tenant_id"`
	Token      string `json:"token"`
}

// CustomerDocument is a stored file attached to a customer (signed agreements, ID scans)
type CustomerDocument struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	CustomerID   string    `json:"customer_id"`
	RentalID     *string   `json:"rental_id,omitempty"`
	DocumentType string    `json:"document_type"`
	FileName     string    `json:"file_name"`
	StorageKey   string    `json:"storage_key"`
	PublicURL    string    `json:"public_url"`
	CreatedAt    time.Time `json:"created_at"`
}

const DocumentTypeRentalAgreement = "rental_agreement"
