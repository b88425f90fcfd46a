package models

// ESignStatusRequest is the body of the status and view endpoints.
// EnvelopeID defaults to the rental's stored envelope.
type ESignStatusRequest struct {
	RentalID   string `json:"rental_id"`
	EnvelopeID string `json:"envelope_id"`
}

type ESignStatusResult struct {
	RentalID         string         `json:"rental_id"`
	EnvelopeID       string         `json:"envelope_id"`
	ProviderStatus   string         `json:"provider_status"`
	DocumentStatus   DocumentStatus `json:"document_status"`
	RentalStatus     RentalStatus   `json:"rental_status"`
	Changed          bool           `json:"changed"`
	SignedDocumentID *string        `json:"signed_document_id,omitempty"`
}

// WebhookResult tells the provider whether the event was applied
type WebhookResult struct {
	Received  bool           `json:"received"`
	Duplicate bool           `json:"duplicate,omitempty"`
	Ignored   string         `json:"ignored,omitempty"`
	RentalID  string         `json:"rental_id,omitempty"`
	Status    DocumentStatus `json:"status,omitempty"`
}
