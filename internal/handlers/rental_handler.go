package handlers

import (
	"context"
	"net/http"

	"fleetrent-backend/internal/middleware"
	"fleetrent-backend/internal/models"
	"fleetrent-backend/pkg/utils"
)

type rentalCanceller interface {
	CancelRental(ctx context.Context, tenantID string, req *models.CancelRentalRequest) (*models.CancelRentalResponse, error)
}

type RentalHandler struct {
	Service rentalCanceller
}

func NewRentalHandler(s rentalCanceller) *RentalHandler {
	return &RentalHandler{Service: s}
}

// CancelRental cancels a rental and settles its payment
func (h *RentalHandler) CancelRental(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req models.CancelRentalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CancelledBy == "" {
		req.CancelledBy, _ = middleware.GetEmailFromContext(r.Context())
	}

	resp, err := h.Service.CancelRental(r.Context(), tenantID, &req)
	if err != nil {
		utils.ServiceError(w, "Cancel", err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}
