package models

import "time"

// Identity verification media kinds fetched from the provider
const (
	MediaDocumentFront = "document-front"
	MediaDocumentBack  = "document-back"
	MediaFace          = "face"
)

type IdentityVerification struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	CustomerID       string    `json:"customer_id"`
	SessionID        string    `json:"session_id"`
	Status           string    `json:"status"`
	DocumentFrontURL *string   `json:"document_front_url,omitempty"`
	DocumentBackURL  *string   `json:"document_back_url,omitempty"`
	FaceURL          *string   `json:"face_url,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// VerificationMedia is one media item listed by the provider for a session
type VerificationMedia struct {
	ID          string `json:"id"`
	Context     string `json:"context"`
	MimeType    string `json:"mimetype"`
	ContentType string `json:"-"`
}

// VerificationStatusMediaSaved is set once any media has been persisted
const VerificationStatusMediaSaved = "media_saved"

// MediaIngestResult reports which media contexts were persisted
type MediaIngestResult struct {
	Verification *IdentityVerification `json:"verification"`
	Stored       []string              `json:"stored"`
	Failed       []string              `json:"failed,omitempty"`
}
