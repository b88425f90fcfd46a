package models

import "github.com/shopspring/decimal"

// DashboardKPIs is the KPI bundle shown on the tenant portal home page
type DashboardKPIs struct {
	From               string          `json:"from"`
	To                 string          `json:"to"`
	Timezone           string          `json:"tz"`
	Revenue            decimal.Decimal `json:"revenue"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	ActiveRentals      int             `json:"active_rentals"`
	NewBookings        int             `json:"new_bookings"`
	Cancellations      int             `json:"cancellations"`
	FleetSize          int             `json:"fleet_size"`
	VehiclesRented     int             `json:"vehicles_rented"`
	UtilizationPct     decimal.Decimal `json:"utilization_pct"`
	OverdueInstalments int             `json:"overdue_installments"`
	GeneratedAt        string          `json:"generated_at"`
}
