package esign

import (
	"testing"

	"fleetrent-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestMapWebhookEvent(t *testing.T) {
	table := map[string]models.DocumentStatus{
		"Sent":       models.DocumentStatusSent,
		"Viewed":     models.DocumentStatusDelivered,
		"Signed":     models.DocumentStatusSigned,
		"Completed":  models.DocumentStatusCompleted,
		"Declined":   models.DocumentStatusDeclined,
		"Revoked":    models.DocumentStatusVoided,
		"Expired":    models.DocumentStatusExpired,
		"Reassigned": models.DocumentStatusSent,
	}
	for in, want := range table {
		assert.Equal(t, want, MapWebhookEvent(in), in)
	}
	assert.Equal(t, models.DocumentStatusUnknown, MapWebhookEvent("Archived"))
}

func TestMapEnvelopeStatus(t *testing.T) {
	assert.Equal(t, models.DocumentStatusCompleted, MapEnvelopeStatus("completed"))
	assert.Equal(t, models.DocumentStatusDelivered, MapEnvelopeStatus(" Delivered "))
	assert.Equal(t, models.DocumentStatusPending, MapEnvelopeStatus("created"))
	assert.Equal(t, models.DocumentStatusUnknown, MapEnvelopeStatus("correct"))
}

func TestValidateTransition(t *testing.T) {
	assert.NoError(t, ValidateTransition(models.DocumentStatusPending, models.DocumentStatusSent))
	assert.NoError(t, ValidateTransition("", models.DocumentStatusCompleted))
	assert.NoError(t, ValidateTransition(models.DocumentStatusDelivered, models.DocumentStatusSent))
	assert.NoError(t, ValidateTransition(models.DocumentStatusSigned, models.DocumentStatusDeclined))

	for _, terminal := range []models.DocumentStatus{
		models.DocumentStatusCompleted, models.DocumentStatusDeclined,
		models.DocumentStatusVoided, models.DocumentStatusExpired,
	} {
		assert.True(t, IsTerminal(terminal))
		assert.Error(t, ValidateTransition(terminal, models.DocumentStatusSent))
		assert.Error(t, ValidateTransition(terminal, models.DocumentStatusCompleted))
	}

	assert.Error(t, ValidateTransition(models.DocumentStatusSent, models.DocumentStatusUnknown))
}
