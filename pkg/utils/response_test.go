package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fleetrent-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{models.Invalid("reason", "is required"), http.StatusBadRequest},
		{fmt.Errorf("load rental: %w", models.ErrNotFound), http.StatusNotFound},
		{models.ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("token: %w", models.ErrProviderAuth), http.StatusUnauthorized},
		{models.ErrForbidden, http.StatusForbidden},
		{models.ErrConflict, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusFor(c.err), c.err.Error())
	}
}

func TestServiceError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	ServiceError(rec, "Test", errors.New("connection refused to 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body["error"])
}

func TestServiceError_Validation(t *testing.T) {
	rec := httptest.NewRecorder()
	ServiceError(rec, "Test", models.Invalid("reason", "is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "reason: is required")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
