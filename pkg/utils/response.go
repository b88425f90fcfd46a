package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"fleetrent-backend/internal/models"
)

// JSON writes data as a JSON response with the given status
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[HTTP] Failed to encode response: %v", err)
	}
}

// Error writes {"error": message}
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// StatusFor maps service errors onto HTTP status codes
func StatusFor(err error) int {
	switch {
	case models.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrProviderAuth):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ServiceError writes err with its mapped status. Internal errors are logged
// and replaced by a generic message.
func ServiceError(w http.ResponseWriter, tag string, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[%s] %v", tag, err)
		Error(w, status, "Internal server error")
		return
	}
	Error(w, status, err.Error())
}
