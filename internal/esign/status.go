// Package esign bridges the e-signature provider to rental document status:
// provider vocabularies, webhook parsing and the DocuSign REST client.
package esign

import (
	"fmt"
	"strings"

	"fleetrent-backend/internal/models"
)

// webhookEvents maps webhook eventType values to document status
var webhookEvents = map[string]models.DocumentStatus{
	"sent":       models.DocumentStatusSent,
	"viewed":     models.DocumentStatusDelivered,
	"signed":     models.DocumentStatusSigned,
	"completed":  models.DocumentStatusCompleted,
	"declined":   models.DocumentStatusDeclined,
	"revoked":    models.DocumentStatusVoided,
	"expired":    models.DocumentStatusExpired,
	"reassigned": models.DocumentStatusSent,
}

// envelopeStatuses maps DocuSign envelope status values to document status
var envelopeStatuses = map[string]models.DocumentStatus{
	"created":   models.DocumentStatusPending,
	"sent":      models.DocumentStatusSent,
	"delivered": models.DocumentStatusDelivered,
	"signed":    models.DocumentStatusSigned,
	"completed": models.DocumentStatusCompleted,
	"declined":  models.DocumentStatusDeclined,
	"voided":    models.DocumentStatusVoided,
	"expired":   models.DocumentStatusExpired,
	"timedout":  models.DocumentStatusExpired,
}

func lookup(table map[string]models.DocumentStatus, value string) models.DocumentStatus {
	if s, ok := table[strings.ToLower(strings.TrimSpace(value))]; ok {
		return s
	}
	return models.DocumentStatusUnknown
}

// MapWebhookEvent maps a webhook eventType; unrecognized values give DocumentStatusUnknown
func MapWebhookEvent(eventType string) models.DocumentStatus {
	return lookup(webhookEvents, eventType)
}

// MapEnvelopeStatus maps a polled envelope status; unrecognized values give DocumentStatusUnknown
func MapEnvelopeStatus(status string) models.DocumentStatus {
	return lookup(envelopeStatuses, status)
}

// IsTerminal reports whether no further status change is accepted
func IsTerminal(s models.DocumentStatus) bool {
	switch s {
	case models.DocumentStatusCompleted, models.DocumentStatusDeclined,
		models.DocumentStatusVoided, models.DocumentStatusExpired:
		return true
	}
	return false
}

var openStates = []string{
	string(models.DocumentStatusPending),
	string(models.DocumentStatusSent),
	string(models.DocumentStatusDelivered),
	string(models.DocumentStatusSigned),
	string(models.DocumentStatusCompleted),
	string(models.DocumentStatusDeclined),
	string(models.DocumentStatusVoided),
	string(models.DocumentStatusExpired),
}

// documentTransitions lists the statuses each state may move to. Open states can
// move among themselves (a reassigned or multi-signer envelope goes back to sent);
// terminal states accept nothing.
var documentTransitions = map[string][]string{
	string(models.DocumentStatusPending):   openStates,
	string(models.DocumentStatusSent):      openStates,
	string(models.DocumentStatusDelivered): openStates,
	string(models.DocumentStatusSigned):    openStates,
	string(models.DocumentStatusCompleted): {},
	string(models.DocumentStatusDeclined):  {},
	string(models.DocumentStatusVoided):    {},
	string(models.DocumentStatusExpired):   {},
}

// ValidateTransition checks whether a document may move from current to target
func ValidateTransition(current, target models.DocumentStatus) error {
	if target == models.DocumentStatusUnknown {
		return fmt.Errorf("cannot transition to unknown status")
	}
	if current == "" {
		current = models.DocumentStatusPending
	}
	allowed, ok := documentTransitions[string(current)]
	if !ok {
		return fmt.Errorf("unknown current status: %s", current)
	}
	for _, s := range allowed {
		if s == string(target) {
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s", current, target)
}
