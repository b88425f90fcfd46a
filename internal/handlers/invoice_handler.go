package handlers

import (
	"context"
	"fmt"
	"net/http"

	"fleetrent-backend/internal/models"
	"fleetrent-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type invoiceService interface {
	Create(ctx context.Context, tenantID string, req *models.CreateInvoiceRequest) (*models.Invoice, error)
	Status(ctx context.Context, tenantID, invoiceID string) (*models.InvoicePaymentStatus, error)
	PDF(ctx context.Context, tenantID, invoiceID string) ([]byte, string, error)
}

type InvoiceHandler struct {
	Service invoiceService
}

func NewInvoiceHandler(s invoiceService) *InvoiceHandler {
	return &InvoiceHandler{Service: s}
}

// CreateInvoice issues an invoice for a rental's charges
func (h *InvoiceHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req models.CreateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.Service.Create(r.Context(), tenantID, &req)
	if err != nil {
		utils.ServiceError(w, "Invoice", err)
		return
	}
	utils.JSON(w, http.StatusCreated, inv)
}

// Status returns the computed paid state of an invoice
func (h *InvoiceHandler) Status(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	status, err := h.Service.Status(r.Context(), tenantID, mux.Vars(r)["id"])
	if err != nil {
		utils.ServiceError(w, "Invoice", err)
		return
	}
	utils.JSON(w, http.StatusOK, status)
}

// PDF downloads the rendered invoice
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	data, name, err := h.Service.PDF(r.Context(), tenantID, mux.Vars(r)["id"])
	if err != nil {
		utils.ServiceError(w, "Invoice", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
