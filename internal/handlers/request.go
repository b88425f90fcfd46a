package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"fleetrent-backend/internal/middleware"
	"fleetrent-backend/internal/models"
	"fleetrent-backend/pkg/utils"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into dst, writing a 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			utils.Error(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// requireTenant returns the tenant the caller acts in, writing a 403 when there is none
func requireTenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID, ok := middleware.GetTenantIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusForbidden, "No tenant selected")
		return "", false
	}
	return tenantID, true
}

// canSeeCustomer blocks customer sessions from reading other customers' data
func canSeeCustomer(r *http.Request, customerID string) bool {
	role, _ := middleware.GetRoleFromContext(r.Context())
	if role != models.RoleCustomer {
		return true
	}
	own, ok := middleware.GetCustomerIDFromContext(r.Context())
	return ok && own == customerID
}

// getIPAddress extracts the real IP address from the request
func getIPAddress(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
