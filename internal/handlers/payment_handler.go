package handlers

import (
	"context"
	"net/http"

	"fleetrent-backend/internal/models"
	"fleetrent-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type paymentLedger interface {
	RecordPayment(ctx context.Context, req *models.RecordPaymentRequest) (*models.Payment, *models.AllocationResult, error)
	AllocatePayment(ctx context.Context, tenantID, paymentID string) (*models.AllocationResult, error)
	CreateCharge(ctx context.Context, req *models.CreateChargeRequest) (*models.LedgerEntry, error)
}

type PaymentHandler struct {
	Ledger paymentLedger
}

func NewPaymentHandler(ledger paymentLedger) *PaymentHandler {
	return &PaymentHandler{Ledger: ledger}
}

// RecordPayment stores a received payment and optionally allocates it
func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req models.RecordPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.TenantID = tenantID

	payment, allocation, err := h.Ledger.RecordPayment(r.Context(), &req)
	if err != nil && payment == nil {
		utils.ServiceError(w, "Payments", err)
		return
	}
	resp := map[string]interface{}{"payment": payment, "allocation": allocation}
	if err != nil {
		// the payment is stored; allocation can be retried
		resp["allocation_error"] = err.Error()
	}
	utils.JSON(w, http.StatusCreated, resp)
}

// AllocatePayment applies a payment's unapplied credit to open charges
func (h *PaymentHandler) AllocatePayment(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	result, err := h.Ledger.AllocatePayment(r.Context(), tenantID, mux.Vars(r)["id"])
	if err != nil {
		utils.ServiceError(w, "Payments", err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}

// CreateCharge bills a customer
func (h *PaymentHandler) CreateCharge(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req models.CreateChargeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.TenantID = tenantID

	entry, err := h.Ledger.CreateCharge(r.Context(), &req)
	if err != nil {
		utils.ServiceError(w, "Ledger", err)
		return
	}
	utils.JSON(w, http.StatusCreated, entry)
}
