package http

import (
	"net/http"

	"fleetrent-backend/internal/handlers"
	"fleetrent-backend/internal/middleware"
	"fleetrent-backend/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Auth         *handlers.AuthHandler
	Customer     *handlers.CustomerHandler
	Rental       *handlers.RentalHandler
	Dashboard    *handlers.DashboardHandler
	ESign        *handlers.ESignHandler
	Payment      *handlers.PaymentHandler
	Invoice      *handlers.InvoiceHandler
	Installment  *handlers.InstallmentHandler
	Verification *handlers.VerificationHandler
	Admin        *handlers.AdminHandler
	Health       *handlers.HealthHandler
	Realtime     http.HandlerFunc
}

func NewRouter(h *Handlers, authMiddleware *middleware.AuthMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	staff := authMiddleware.RequireRole(models.RoleAdmin, models.RoleStaff)
	admin := authMiddleware.RequireRole(models.RoleAdmin)
	anyone := authMiddleware.RequireRole(models.RoleAdmin, models.RoleStaff, models.RoleCustomer)
	superAdmin := authMiddleware.RequireRole(models.RoleSuperAdmin)

	// Public API routes - Authentication
	r.HandleFunc("/auth/login", h.Auth.Login).Methods("POST")
	r.HandleFunc("/auth/login/2fa", h.Auth.LoginTOTP).Methods("POST")
	r.HandleFunc("/api/customer-signup", h.Customer.Signup).Methods("POST")

	// Provider callback, authenticated by HMAC signature instead of a session
	r.HandleFunc("/api/esign/webhook", h.ESign.Webhook).Methods("POST")

	// Protected API routes - 2FA enrolment
	totpAPI := r.PathPrefix("/api/auth/totp").Subrouter()
	totpAPI.Use(authMiddleware.Authenticate)
	totpAPI.HandleFunc("/setup", h.Auth.SetupTOTP).Methods("POST")
	totpAPI.HandleFunc("/enable", h.Auth.EnableTOTP).Methods("POST")

	// Protected API routes - Rentals
	rentalsAPI := r.PathPrefix("/api/rentals").Subrouter()
	rentalsAPI.Handle("/cancel", staff(http.HandlerFunc(h.Rental.CancelRental))).Methods("POST")
	rentalsAPI.Handle("/{id}/installments", staff(http.HandlerFunc(h.Installment.CreatePlan))).Methods("POST")

	// Protected API routes - Dashboard
	r.Handle("/api/dashboard/kpis", staff(http.HandlerFunc(h.Dashboard.KPIs))).Methods("GET")

	// Protected API routes - E-signature
	docusignAPI := r.PathPrefix("/api/docusign").Subrouter()
	docusignAPI.Handle("/status", staff(http.HandlerFunc(h.ESign.Status))).Methods("POST")
	docusignAPI.Handle("/view", staff(http.HandlerFunc(h.ESign.View))).Methods("POST")

	// Protected API routes - Customer balances (customers only see their own)
	customersAPI := r.PathPrefix("/api/customers").Subrouter()
	customersAPI.Handle("/{id}/balance", anyone(http.HandlerFunc(h.Customer.Balance))).Methods("GET")
	customersAPI.Handle("/{id}/outstanding", anyone(http.HandlerFunc(h.Customer.Outstanding))).Methods("GET")

	// Protected API routes - Payments and charges
	r.Handle("/api/payments", staff(http.HandlerFunc(h.Payment.RecordPayment))).Methods("POST")
	r.Handle("/api/payments/{id}/allocate", staff(http.HandlerFunc(h.Payment.AllocatePayment))).Methods("POST")
	r.Handle("/api/charges", staff(http.HandlerFunc(h.Payment.CreateCharge))).Methods("POST")

	// Protected API routes - Invoices
	invoicesAPI := r.PathPrefix("/api/invoices").Subrouter()
	invoicesAPI.Handle("", staff(http.HandlerFunc(h.Invoice.CreateInvoice))).Methods("POST")
	invoicesAPI.Handle("/{id}/status", staff(http.HandlerFunc(h.Invoice.Status))).Methods("GET")
	invoicesAPI.Handle("/{id}/pdf", staff(http.HandlerFunc(h.Invoice.PDF))).Methods("GET")

	// Protected API routes - Installments
	installmentsAPI := r.PathPrefix("/api/installments").Subrouter()
	installmentsAPI.Handle("/config", staff(http.HandlerFunc(h.Installment.GetConfig))).Methods("GET")
	installmentsAPI.Handle("/config", admin(http.HandlerFunc(h.Installment.UpdateConfig))).Methods("PUT")
	installmentsAPI.Handle("/quote", staff(http.HandlerFunc(h.Installment.Quote))).Methods("POST")
	installmentsAPI.Handle("/{id}/retry", staff(http.HandlerFunc(h.Installment.Retry))).Methods("POST")

	// Protected API routes - Identity verification media
	r.Handle("/api/verifications/{id}/media", staff(http.HandlerFunc(h.Verification.IngestMedia))).Methods("POST")

	// Protected API routes - Administration
	adminAPI := r.PathPrefix("/api/admin").Subrouter()
	adminAPI.Handle("/tenants", superAdmin(http.HandlerFunc(h.Admin.ProvisionTenant))).Methods("POST")
	adminAPI.Handle("/audit", admin(http.HandlerFunc(h.Admin.AuditLog))).Methods("GET")

	// Realtime rental updates for the tenant portal
	r.Handle("/ws/rentals", staff(h.Realtime)).Methods("GET")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", h.Health.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", h.Health.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", h.Health.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
