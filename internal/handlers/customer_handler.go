package handlers

import (
	"context"
	"net/http"

	"fleetrent-backend/internal/models"
	"fleetrent-backend/pkg/utils"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type customerSignup interface {
	Signup(ctx context.Context, req *models.CustomerSignupRequest) (*models.CustomerSignupResponse, error)
}

type balanceReader interface {
	ComputeBalanceWithStatus(ctx context.Context, tenantID, customerID string) (*models.CustomerBalance, error)
	ComputeOutstandingBalance(ctx context.Context, tenantID, customerID string) (decimal.Decimal, error)
}

type CustomerHandler struct {
	Signups  customerSignup
	Balances balanceReader
}

func NewCustomerHandler(signups customerSignup, balances balanceReader) *CustomerHandler {
	return &CustomerHandler{Signups: signups, Balances: balances}
}

// Signup is the public customer portal registration
func (h *CustomerHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.CustomerSignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.Signups.Signup(r.Context(), &req)
	if err != nil {
		utils.ServiceError(w, "Signup", err)
		return
	}
	utils.JSON(w, http.StatusCreated, resp)
}

// Balance returns the customer's net balance with its classification
func (h *CustomerHandler) Balance(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	customerID := mux.Vars(r)["id"]
	if !canSeeCustomer(r, customerID) {
		utils.Error(w, http.StatusForbidden, "Access denied")
		return
	}
	balance, err := h.Balances.ComputeBalanceWithStatus(r.Context(), tenantID, customerID)
	if err != nil {
		utils.ServiceError(w, "Ledger", err)
		return
	}
	utils.JSON(w, http.StatusOK, balance)
}

// Outstanding returns what the customer owes as of today
func (h *CustomerHandler) Outstanding(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}
	customerID := mux.Vars(r)["id"]
	if !canSeeCustomer(r, customerID) {
		utils.Error(w, http.StatusForbidden, "Access denied")
		return
	}
	owed, err := h.Balances.ComputeOutstandingBalance(r.Context(), tenantID, customerID)
	if err != nil {
		utils.ServiceError(w, "Ledger", err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"customer_id": customerID,
		"outstanding": owed,
	})
}
