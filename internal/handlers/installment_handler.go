package handlers

import (
	"context"
	"net/http"

	"fleetrent-backend/internal/middleware"
	"fleetrent-backend/internal/models"
	"fleetrent-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type installmentService interface {
	GetConfig(ctx context.Context, tenantID string) (*models.InstallmentConfig, error)
	UpdateConfig(ctx context.Context, tenantID, actorID string, cfg *models.InstallmentConfig) (*models.InstallmentConfig, error)
	Quote(ctx context.Context, tenantID string, req *models.InstallmentQuoteRequest) (*models.InstallmentSchedule, error)
	CreatePlan(ctx context.Context, tenantID, rentalID string, req *models.CreatePlanRequest) (*models.InstallmentPlan, error)
	ChargeInstallment(ctx context.Context, tenantID, id string) (*models.InstallmentCharge, error)
}

type InstallmentHandler struct {
	Service installmentService
}

func NewInstallmentHandler(s installmentService) *InstallmentHandler {
	return &InstallmentHandler{Service: s}
}

func (h *InstallmentHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	cfg, err := h.Service.GetConfig(r.Context(), tenantID)
	if err != nil {
		utils.ServiceError(w, "Installments", err)
		return
	}
	utils.JSON(w, http.StatusOK, cfg)
}

func (h *InstallmentHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var cfg models.InstallmentConfig
	if !decodeJSON(w, r, &cfg) {
		return
	}
	actor, _ := middleware.GetUserIDFromContext(r.Context())
	saved, err := h.Service.UpdateConfig(r.Context(), tenantID, actor, &cfg)
	if err != nil {
		utils.ServiceError(w, "Installments", err)
		return
	}
	utils.JSON(w, http.StatusOK, saved)
}

// Quote previews the installment schedule of a booking
func (h *InstallmentHandler) Quote(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req models.InstallmentQuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sched, err := h.Service.Quote(r.Context(), tenantID, &req)
	if err != nil {
		utils.ServiceError(w, "Installments", err)
		return
	}
	utils.JSON(w, http.StatusOK, sched)
}

// CreatePlan books the installment plan of a rental
func (h *InstallmentHandler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	var req models.CreatePlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	plan, err := h.Service.CreatePlan(r.Context(), tenantID, mux.Vars(r)["id"], &req)
	if err != nil {
		utils.ServiceError(w, "Installments", err)
		return
	}
	utils.JSON(w, http.StatusCreated, plan)
}

// Retry charges one installment immediately
func (h *InstallmentHandler) Retry(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	c, err := h.Service.ChargeInstallment(r.Context(), tenantID, mux.Vars(r)["id"])
	if err != nil {
		utils.ServiceError(w, "Installments", err)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}
