package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"
)

type invoiceStore interface {
	Create(ctx context.Context, inv *models.Invoice) error
	Get(ctx context.Context, tenantID, id string) (*models.Invoice, error)
}

type chargeLister interface {
	ListByCustomer(ctx context.Context, tenantID, customerID string) ([]models.LedgerEntry, error)
}

type invoicePayments interface {
	ComputePaidAmountForInvoice(ctx context.Context, inv *models.Invoice) (*models.InvoicePaymentStatus, error)
}

type InvoiceService struct {
	invoices  invoiceStore
	ledger    chargeLister
	payments  invoicePayments
	rentals   rentalReader
	customers customerLookup
	tenants   tenantLookup
}

func NewInvoiceService(
	invoices invoiceStore,
	ledger chargeLister,
	payments invoicePayments,
	rentals rentalReader,
	customers customerLookup,
	tenants tenantLookup,
) *InvoiceService {
	return &InvoiceService{
		invoices:  invoices,
		ledger:    ledger,
		payments:  payments,
		rentals:   rentals,
		customers: customers,
		tenants:   tenants,
	}
}

func (s *InvoiceService) rentalCharges(ctx context.Context, rental *models.Rental) ([]models.LedgerEntry, error) {
	entries, err := s.ledger.ListByCustomer(ctx, rental.TenantID, rental.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	var charges []models.LedgerEntry
	for _, e := range entries {
		if e.IsCharge() && e.RentalID != nil && *e.RentalID == rental.ID {
			charges = append(charges, e)
		}
	}
	sort.SliceStable(charges, func(i, j int) bool {
		return charges[i].EntryDate.Before(charges[j].EntryDate)
	})
	return charges, nil
}

// Create issues an invoice for everything charged on a rental
func (s *InvoiceService) Create(ctx context.Context, tenantID string, req *models.CreateInvoiceRequest) (*models.Invoice, error) {
	if tenantID == "" {
		return nil, models.Invalid("tenant_id", "is required")
	}
	if strings.TrimSpace(req.RentalID) == "" {
		return nil, models.Invalid("rental_id", "is required")
	}
	rental, err := s.rentals.Get(ctx, tenantID, req.RentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rental: %w", err)
	}

	charges, err := s.rentalCharges(ctx, rental)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, c := range charges {
		total = total.Add(c.Amount)
	}
	if !total.IsPositive() {
		return nil, models.Invalid("rental_id", "rental has no charges to invoice")
	}

	inv := &models.Invoice{
		TenantID:    tenantID,
		RentalID:    rental.ID,
		CustomerID:  rental.CustomerID,
		TotalAmount: total,
		DueDate:     req.DueDate,
	}
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	log.Printf("[Invoice] Issued %s for rental %s: %s", inv.InvoiceNumber, rental.ID, total.StringFixed(2))
	return inv, nil
}

// Status derives an invoice's paid state from the payments applied to its rental
func (s *InvoiceService) Status(ctx context.Context, tenantID, invoiceID string) (*models.InvoicePaymentStatus, error) {
	inv, err := s.invoices.Get(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.payments.ComputePaidAmountForInvoice(ctx, inv)
}

// invoiceDocument is everything printed on an invoice
type invoiceDocument struct {
	Tenant   *models.Tenant
	Customer *models.Customer
	Invoice  *models.Invoice
	Status   *models.InvoicePaymentStatus
	Charges  []models.LedgerEntry
}

// PDF renders an invoice and returns the document with its file name
func (s *InvoiceService) PDF(ctx context.Context, tenantID, invoiceID string) ([]byte, string, error) {
	inv, err := s.invoices.Get(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, "", err
	}
	status, err := s.payments.ComputePaidAmountForInvoice(ctx, inv)
	if err != nil {
		return nil, "", err
	}
	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load tenant: %w", err)
	}
	customer, err := s.customers.Get(ctx, tenantID, inv.CustomerID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load customer: %w", err)
	}
	rental, err := s.rentals.Get(ctx, tenantID, inv.RentalID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load rental: %w", err)
	}
	charges, err := s.rentalCharges(ctx, rental)
	if err != nil {
		return nil, "", err
	}

	data, err := renderInvoicePDF(&invoiceDocument{
		Tenant: tenant, Customer: customer, Invoice: inv, Status: status, Charges: charges,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to render invoice: %w", err)
	}
	return data, inv.InvoiceNumber + ".pdf", nil
}

func money(currency string, d decimal.Decimal) string {
	if currency == "" || currency == "INR" {
		return "Rs. " + d.StringFixed(2)
	}
	return currency + " " + d.StringFixed(2)
}

func renderInvoicePDF(doc *invoiceDocument) ([]byte, error) {
	loc := timeutil.LoadZone(doc.Tenant.Timezone)
	cur := doc.Tenant.Currency

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetTitle(doc.Invoice.InvoiceNumber, false)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, doc.Tenant.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Invoice %s", doc.Invoice.InvoiceNumber), "", 1, "C", false, 0, "")
	pdf.CellFormat(190, 6, fmt.Sprintf("Issued: %s", doc.Invoice.CreatedAt.In(loc).Format("02-Jan-2006")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Bill to
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Bill To", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Name: %s", doc.Customer.Name), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Phone: %s", doc.Customer.Phone), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Email: %s", doc.Customer.Email), "LB", 0, "L", false, 0, "")
	due := "On receipt"
	if doc.Invoice.DueDate != nil {
		due = doc.Invoice.DueDate.In(loc).Format("02-Jan-2006")
	}
	pdf.CellFormat(95, 7, fmt.Sprintf("Due: %s", due), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Line items
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(30, 7, "Date", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Category", "1", 0, "C", true, 0, "")
	pdf.CellFormat(90, 7, "Description", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, c := range doc.Charges {
		desc := c.Description
		if len(desc) > 50 {
			desc = desc[:47] + "..."
		}
		pdf.CellFormat(30, 6, c.EntryDate.In(loc).Format("02-Jan-2006"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, c.Category, "1", 0, "C", false, 0, "")
		pdf.CellFormat(90, 6, desc, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, money(cur, c.Amount), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	// Summary
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(63, 8, "Total: "+money(cur, doc.Status.TotalAmount), "1", 0, "C", false, 0, "")
	pdf.CellFormat(63, 8, "Paid: "+money(cur, doc.Status.PaidAmount), "1", 0, "C", false, 0, "")
	pdf.CellFormat(64, 8, "Due: "+money(cur, doc.Status.BalanceDue), "1", 1, "C", false, 0, "")

	if doc.Status.BalanceDue.IsPositive() {
		pdf.SetFillColor(255, 200, 200)
	} else {
		pdf.SetFillColor(200, 255, 200)
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(190, 10, "Status: "+strings.ToUpper(string(doc.Status.ComputedStatus)), "1", 1, "C", true, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
