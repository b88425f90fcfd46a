package handlers

import (
	"context"
	"net/http"

	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/services"
	"fleetrent-backend/pkg/utils"
)

type kpiSource interface {
	GetKPIs(ctx context.Context, q *services.DashboardQuery) (*models.DashboardKPIs, error)
}

type DashboardHandler struct {
	Service kpiSource
}

func NewDashboardHandler(s kpiSource) *DashboardHandler {
	return &DashboardHandler{Service: s}
}

// KPIs returns the tenant dashboard for ?from=YYYY-MM-DD&to=YYYY-MM-DD&tz=Zone
func (h *DashboardHandler) KPIs(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	kpis, err := h.Service.GetKPIs(r.Context(), &services.DashboardQuery{
		TenantID: tenantID,
		From:     q.Get("from"),
		To:       q.Get("to"),
		Timezone: q.Get("tz"),
	})
	if err != nil {
		utils.ServiceError(w, "Dashboard", err)
		return
	}
	utils.JSON(w, http.StatusOK, kpis)
}
