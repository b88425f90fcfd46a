package handlers

import (
	"context"
	"net/http"
	"strconv"

	"fleetrent-backend/internal/middleware"
	"fleetrent-backend/internal/models"
	"fleetrent-backend/pkg/utils"
)

type tenantAdmin interface {
	Provision(ctx context.Context, actorID string, req *models.ProvisionTenantRequest) (*models.ProvisionTenantResponse, error)
	AuditLog(ctx context.Context, tenantID string, limit int) ([]*models.AdminActionLog, error)
}

type AdminHandler struct {
	Service tenantAdmin
}

func NewAdminHandler(s tenantAdmin) *AdminHandler {
	return &AdminHandler{Service: s}
}

// ProvisionTenant onboards a rental company (super admin only)
func (h *AdminHandler) ProvisionTenant(w http.ResponseWriter, r *http.Request) {
	var req models.ProvisionTenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actor, _ := middleware.GetUserIDFromContext(r.Context())
	resp, err := h.Service.Provision(r.Context(), actor, &req)
	if err != nil {
		utils.ServiceError(w, "Tenants", err)
		return
	}
	utils.JSON(w, http.StatusCreated, resp)
}

// AuditLog lists the tenant's recent operator actions
func (h *AdminHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.Service.AuditLog(r.Context(), tenantID, limit)
	if err != nil {
		utils.ServiceError(w, "Audit", err)
		return
	}
	utils.JSON(w, http.StatusOK, logs)
}
