package esign

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"fleetrent-backend/internal/models"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body
const SignatureHeader = "X-Signature"

// SignerDetail is one signer entry of a webhook document
type SignerDetail struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// WebhookEvent is a validated inbound signing event
type WebhookEvent struct {
	EventType      string
	DocumentID     string
	ProviderStatus string
	Status         models.DocumentStatus
	Signers        []SignerDetail
}

type webhookEnvelope struct {
	Event *struct {
		EventType *string `json:"eventType"`
	} `json:"event"`
	Document *struct {
		DocumentID    *string        `json:"documentId"`
		Status        string         `json:"status"`
		SignerDetails []SignerDetail `json:"signerDetails"`
	} `json:"document"`
}

// ParseWebhook decodes an event body. Missing event or document sections, or an
// empty eventType/documentId, are rejected. An unrecognized eventType is not an
// error; it yields DocumentStatusUnknown for the caller to log.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var raw webhookEnvelope
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("malformed webhook body: %w", err)
	}
	if raw.Event == nil || raw.Event.EventType == nil || strings.TrimSpace(*raw.Event.EventType) == "" {
		return nil, fmt.Errorf("webhook missing event.eventType")
	}
	if raw.Document == nil || raw.Document.DocumentID == nil || strings.TrimSpace(*raw.Document.DocumentID) == "" {
		return nil, fmt.Errorf("webhook missing document.documentId")
	}

	return &WebhookEvent{
		EventType:      *raw.Event.EventType,
		DocumentID:     *raw.Document.DocumentID,
		ProviderStatus: raw.Document.Status,
		Status:         MapWebhookEvent(*raw.Event.EventType),
		Signers:        raw.Document.SignerDetails,
	}, nil
}

// Sign returns the hex HMAC-SHA256 of body
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature in constant time
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(body, secret)), []byte(strings.ToLower(signature)))
}
