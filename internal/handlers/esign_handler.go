package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"fleetrent-backend/internal/models"
	"fleetrent-backend/pkg/utils"
)

// SignatureHeader carries the HMAC of an e-sign webhook body
const SignatureHeader = "X-Signature"

type esignBridge interface {
	CheckStatus(ctx context.Context, tenantID string, req *models.ESignStatusRequest) (*models.ESignStatusResult, error)
	ViewDocument(ctx context.Context, tenantID string, req *models.ESignStatusRequest) ([]byte, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (*models.WebhookResult, error)
}

type ESignHandler struct {
	Service esignBridge
}

func NewESignHandler(s esignBridge) *ESignHandler {
	return &ESignHandler{Service: s}
}

// Status polls the provider and applies the envelope's current state to the rental
func (h *ESignHandler) Status(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req models.ESignStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.Service.CheckStatus(r.Context(), tenantID, &req)
	if err != nil {
		utils.ServiceError(w, "ESign", err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}

// View streams the combined signed PDF of an envelope
func (h *ESignHandler) View(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req models.ESignStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pdf, err := h.Service.ViewDocument(r.Context(), tenantID, &req)
	if err != nil {
		utils.ServiceError(w, "ESign", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=agreement-%s.pdf", req.RentalID))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// Webhook receives signed provider callbacks. It is not behind user auth.
func (h *ESignHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "Unable to read body")
		return
	}
	result, err := h.Service.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		utils.ServiceError(w, "ESignWebhook", err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}
