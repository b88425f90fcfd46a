package handlers

import (
	"context"
	"net/http"

	"fleetrent-backend/internal/models"
	"fleetrent-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type mediaIngester interface {
	IngestMedia(ctx context.Context, tenantID, verificationID string) (*models.MediaIngestResult, error)
}

type VerificationHandler struct {
	Service mediaIngester
}

func NewVerificationHandler(s mediaIngester) *VerificationHandler {
	return &VerificationHandler{Service: s}
}

// IngestMedia copies a verification's images into storage
func (h *VerificationHandler) IngestMedia(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	result, err := h.Service.IngestMedia(r.Context(), tenantID, mux.Vars(r)["id"])
	if err != nil {
		utils.ServiceError(w, "Verification", err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}
