package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fleetrent-backend/internal/billing"
	"fleetrent-backend/internal/esign"
	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/payments"
	"fleetrent-backend/internal/realtime"
	"fleetrent-backend/internal/repositories"
	"fleetrent-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, timeutil.DefaultZone)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, timeutil.DefaultZone)
	return &t
}

func strPtr(s string) *string { return &s }

func capturePtr(c models.CaptureStatus) *models.CaptureStatus { return &c }

type fakeTenants map[string]*models.Tenant

func (f fakeTenants) Get(_ context.Context, id string) (*models.Tenant, error) {
	t, ok := f[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return t, nil
}

type fakePayments struct {
	mu       sync.Mutex
	seq      int
	payments map[string]*models.Payment
	updates  []models.PaymentUpdate
}

func newFakePayments() *fakePayments {
	return &fakePayments{payments: map[string]*models.Payment{}}
}

func (f *fakePayments) Create(_ context.Context, req *models.RecordPaymentRequest) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	id := fmt.Sprintf("pay-%d", f.seq)
	_, credit := billing.PaymentCredit(req.Amount, req.CaptureStatus)
	p := &models.Payment{
		ID:                 id,
		TenantID:           req.TenantID,
		CustomerID:         req.CustomerID,
		RentalID:           req.RentalID,
		Amount:             req.Amount,
		RemainingAmount:    credit,
		Status:             models.PaymentStatusApplied,
		CaptureStatus:      req.CaptureStatus,
		ProcessorPaymentID: req.ProcessorPaymentID,
	}
	f.payments[id] = p
	cp := *p
	return &cp, nil
}

func (f *fakePayments) add(p *models.Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[p.ID] = p
}

func (f *fakePayments) Get(_ context.Context, tenantID, id string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok || p.TenantID != tenantID {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) LatestForRental(_ context.Context, tenantID, rentalID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.TenantID == tenantID && p.RentalID != nil && *p.RentalID == rentalID && p.ProcessorPaymentID != "" {
			cp := *p
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

type fakeLedger struct {
	mu            sync.Mutex
	order         []string
	entries       map[string]*models.LedgerEntry
	apps          []models.PaymentApplication
	applied       []models.AppliedPayment
	payments      *fakePayments
	conflictsLeft int
	applyCalls    int
}

func newFakeLedger(payments *fakePayments) *fakeLedger {
	return &fakeLedger{entries: map[string]*models.LedgerEntry{}, payments: payments}
}

func (f *fakeLedger) addCharge(id, tenantID, customerID, category, amount string, due *time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, id)
	f.entries[id] = &models.LedgerEntry{
		ID: id, TenantID: tenantID, CustomerID: customerID,
		Type: models.LedgerEntryTypeCharge, Category: category,
		Amount: dec(amount), RemainingAmount: dec(amount),
		DueDate: due, EntryDate: fixedNow.AddDate(0, 0, -len(f.order)),
	}
}

func (f *fakeLedger) remaining(id string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[id].RemainingAmount
}

func (f *fakeLedger) CreateCharge(_ context.Context, req *models.CreateChargeRequest) (*models.LedgerEntry, error) {
	id := fmt.Sprintf("charge-%d", len(f.order)+1)
	f.addCharge(id, req.TenantID, req.CustomerID, req.Category, req.Amount.String(), req.DueDate)
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.entries[id]
	return &cp, nil
}

func (f *fakeLedger) ListByCustomer(_ context.Context, tenantID, customerID string) ([]models.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.LedgerEntry
	for _, id := range f.order {
		e := f.entries[id]
		if e.TenantID == tenantID && e.CustomerID == customerID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeLedger) ListOpenCharges(ctx context.Context, tenantID, customerID string) ([]models.LedgerEntry, error) {
	all, _ := f.ListByCustomer(ctx, tenantID, customerID)
	var out []models.LedgerEntry
	for _, e := range all {
		if e.IsCharge() && e.RemainingAmount.IsPositive() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLedger) ApplyAllocations(_ context.Context, payment *models.Payment, plan []billing.Allocation) ([]models.PaymentApplication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls++
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return nil, repositories.ErrAllocationConflict
	}
	for _, a := range plan {
		e := f.entries[a.ChargeEntryID]
		if !e.RemainingAmount.Equal(a.ExpectedRemaining) || e.RemainingAmount.LessThan(a.Amount) {
			return nil, repositories.ErrAllocationConflict
		}
	}
	var apps []models.PaymentApplication
	total := decimal.Zero
	for _, a := range plan {
		e := f.entries[a.ChargeEntryID]
		e.RemainingAmount = e.RemainingAmount.Sub(a.Amount)
		app := models.PaymentApplication{
			ID: fmt.Sprintf("app-%d", len(f.apps)+1), TenantID: payment.TenantID,
			PaymentID: payment.ID, ChargeEntryID: a.ChargeEntryID, AmountApplied: a.Amount,
		}
		f.apps = append(f.apps, app)
		apps = append(apps, app)
		total = total.Add(a.Amount)
	}
	if f.payments != nil {
		f.payments.mu.Lock()
		if p, ok := f.payments.payments[payment.ID]; ok {
			p.RemainingAmount = p.RemainingAmount.Sub(total)
		}
		f.payments.mu.Unlock()
	}
	return apps, nil
}

func (f *fakeLedger) AppliedPaymentsForRental(_ context.Context, tenantID, rentalID string) ([]models.AppliedPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applied, nil
}

type fakeRentals struct {
	mu            sync.Mutex
	rentals       map[string]*models.Rental
	vehicles      map[string]*models.Vehicle
	cancellations []*models.CancellationWrite
	activations   []*models.ActivationWrite
	signedDocs    map[string]string
	statusWrites  []models.DocumentStatus
	activateErr   error
	applyErr      error
	claims        int
}

func newFakeRentals() *fakeRentals {
	return &fakeRentals{
		rentals:    map[string]*models.Rental{},
		vehicles:   map[string]*models.Vehicle{},
		signedDocs: map[string]string{},
	}
}

// seed adds a pending rental with a vehicle in the given state
func (f *fakeRentals) seed(rentalID string, rentalStatus models.RentalStatus, vehicleStatus models.VehicleStatus) *models.Rental {
	vehicleID := "veh-" + rentalID
	f.vehicles[vehicleID] = &models.Vehicle{ID: vehicleID, TenantID: "t1", Make: "Toyota", Model: "Corolla", Plate: "KA01AB1234", Status: vehicleStatus}
	r := &models.Rental{
		ID: rentalID, TenantID: "t1", CustomerID: "cust", VehicleID: &vehicleID,
		Status: rentalStatus, DocumentStatus: models.DocumentStatusSent, EnvelopeID: "env-" + rentalID,
		StartDate: fixedNow, EndDate: fixedNow.AddDate(0, 0, 10),
	}
	f.rentals[rentalID] = r
	return r
}

func (f *fakeRentals) rental(id string) models.Rental {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rentals[id]
}

func (f *fakeRentals) vehicleStatus(rentalID string) models.VehicleStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vehicles[*f.rentals[rentalID].VehicleID].Status
}

func (f *fakeRentals) Get(_ context.Context, tenantID, id string) (*models.Rental, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rentals[id]
	if !ok || r.TenantID != tenantID {
		return nil, models.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeRentals) GetByEnvelope(_ context.Context, envelopeID string) (*models.Rental, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rentals {
		if r.EnvelopeID == envelopeID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeRentals) GetVehicle(_ context.Context, tenantID, id string) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeRentals) ClaimCancellation(_ context.Context, tenantID, id string) (models.RentalStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rentals[id]
	if !ok || r.TenantID != tenantID {
		return "", models.ErrNotFound
	}
	if r.Status == models.RentalStatusCancelled || r.Status == models.RentalStatusCancelling {
		return "", fmt.Errorf("rental %s is %s: %w", id, r.Status, models.ErrConflict)
	}
	previous := r.Status
	r.Status = models.RentalStatusCancelling
	f.claims++
	return previous, nil
}

func (f *fakeRentals) ReleaseCancellation(_ context.Context, tenantID, id string, previous models.RentalStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.rentals[id]; r.Status == models.RentalStatusCancelling {
		r.Status = previous
	}
	return nil
}

func (f *fakeRentals) ApplyCancellation(_ context.Context, w *models.CancellationWrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	r := f.rentals[w.RentalID]
	if r.Status == models.RentalStatusCancelled {
		return models.ErrConflict
	}
	r.Status = models.RentalStatusCancelled
	r.Notes = w.NotesAppend
	if w.VehicleID != nil {
		f.vehicles[*w.VehicleID].Status = models.VehicleStatusAvailable
	}
	f.cancellations = append(f.cancellations, w)
	return nil
}

func (f *fakeRentals) ActivateRental(_ context.Context, w *models.ActivationWrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activateErr != nil {
		return f.activateErr
	}
	r := f.rentals[w.RentalID]
	if r.Status == models.RentalStatusActive {
		r.DocumentStatus = models.DocumentStatusCompleted
		return nil
	}
	if !r.Status.CanActivate() {
		return fmt.Errorf("rental %s is %s: %w", r.ID, r.Status, models.ErrConflict)
	}
	r.Status = models.RentalStatusActive
	r.DocumentStatus = models.DocumentStatusCompleted
	completed := w.CompletedAt
	r.EnvelopeCompletedAt = &completed
	if w.VehicleID != nil {
		f.vehicles[*w.VehicleID].Status = models.VehicleStatusRented
	}
	f.activations = append(f.activations, w)
	return nil
}

func (f *fakeRentals) UpdateDocumentStatus(_ context.Context, tenantID, rentalID string, status models.DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rentals[rentalID].DocumentStatus = status
	f.statusWrites = append(f.statusWrites, status)
	return nil
}

func (f *fakeRentals) SetSignedDocument(_ context.Context, tenantID, rentalID, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rentals[rentalID].SignedDocumentID = &documentID
	f.signedDocs[rentalID] = documentID
	return nil
}

type fakeProcessor struct {
	mu          sync.Mutex
	intents     map[string]*payments.Intent
	retrieveErr error
	cancelErr   error
	refundErr   error
	chargeErr   error
	calls       []string
	refundAmts  []*decimal.Decimal
	charges     []payments.ChargeRequest
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{intents: map[string]*payments.Intent{}}
}

func (f *fakeProcessor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeProcessor) RetrieveIntent(_ context.Context, id string) (*payments.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "retrieve")
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	in, ok := f.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such payment %s", id)
	}
	cp := *in
	return &cp, nil
}

func (f *fakeProcessor) CancelIntent(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "cancel")
	return f.cancelErr
}

func (f *fakeProcessor) CreateRefund(_ context.Context, id string, amount *decimal.Decimal, reason string) (*payments.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "refund")
	f.refundAmts = append(f.refundAmts, amount)
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	refunded := f.intents[id].Amount
	if amount != nil {
		refunded = *amount
	}
	return &payments.Refund{ID: "rfnd_" + id, Amount: refunded, Status: "processed"}, nil
}

func (f *fakeProcessor) ChargeSaved(_ context.Context, req payments.ChargeRequest) (*payments.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "charge")
	f.charges = append(f.charges, req)
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	return &payments.Charge{PaymentID: fmt.Sprintf("pay_%d", len(f.charges)), OrderID: "order", Status: payments.StatusSucceeded}, nil
}

type recordingNotifier struct {
	notices []*models.CancellationNotice
	err     error
}

func (r *recordingNotifier) NotifyCancellation(_ context.Context, n *models.CancellationNotice) error {
	r.notices = append(r.notices, n)
	return r.err
}

type recordingEvents struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *recordingEvents) Publish(e realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

type recordingAudit struct {
	entries []*models.AdminActionLog
}

func (r *recordingAudit) CreateActionLog(_ context.Context, e *models.AdminActionLog) error {
	r.entries = append(r.entries, e)
	return nil
}

type fakeCustomers map[string]*models.Customer

func (f fakeCustomers) Get(_ context.Context, tenantID, id string) (*models.Customer, error) {
	c, ok := f[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return c, nil
}

type fakeProvider struct {
	mu          sync.Mutex
	authErr     error
	status      string
	statusErr   error
	pdf         []byte
	downloadErr error
	authCalls   int
	downloads   int
}

func (f *fakeProvider) Authenticate(_ context.Context) (*esign.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &esign.Session{AccessToken: "tok", AccountID: "acct", BaseURI: "https://demo.example.com"}, nil
}

func (f *fakeProvider) EnvelopeStatus(_ context.Context, _ *esign.Session, envelopeID string) (string, error) {
	return f.status, f.statusErr
}

func (f *fakeProvider) DownloadCombined(_ context.Context, _ *esign.Session, envelopeID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.pdf, nil
}

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjectStore) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return "", f.putErr
	}
	f.objects[key] = data
	f.types[key] = contentType
	return "https://files.example.com/" + key, nil
}

func (f *fakeObjectStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return data, nil
}

type fakeDocuments struct {
	docs []*models.CustomerDocument
}

func (f *fakeDocuments) Create(_ context.Context, doc *models.CustomerDocument) error {
	doc.ID = fmt.Sprintf("doc-%d", len(f.docs)+1)
	f.docs = append(f.docs, doc)
	return nil
}

func (f fakeTenants) ListActiveIDs(_ context.Context) ([]string, error) {
	var ids []string
	for id, t := range f {
		if t.IsActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type overdueCall struct {
	tenantID  string
	dueBefore time.Time
}

type fakeInstallments struct {
	mu        sync.Mutex
	configs   map[string]*models.InstallmentConfig
	charges   map[string]*models.InstallmentCharge
	methods   map[string]string
	plans     []*models.InstallmentSchedule
	attempts  []models.InstallmentCharge
	overdue   []overdueCall
	overdueN  int64
	listErr   error
	recordErr error
}

func newFakeInstallments() *fakeInstallments {
	return &fakeInstallments{
		configs: map[string]*models.InstallmentConfig{},
		charges: map[string]*models.InstallmentCharge{},
		methods: map[string]string{},
	}
}

func (f *fakeInstallments) GetConfig(_ context.Context, tenantID string) (*models.InstallmentConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.configs[tenantID]; ok {
		cp := *c
		return &cp, nil
	}
	return models.DefaultInstallmentConfig(tenantID), nil
}

func (f *fakeInstallments) SaveConfig(_ context.Context, c *models.InstallmentConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.configs[c.TenantID] = &cp
	return nil
}

func (f *fakeInstallments) CreatePlan(_ context.Context, rental *models.Rental, sched *models.InstallmentSchedule) ([]*models.InstallmentCharge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plans = append(f.plans, sched)
	var out []*models.InstallmentCharge
	for _, inst := range sched.Installments {
		due := inst.DueDate
		c := &models.InstallmentCharge{
			ID: fmt.Sprintf("%s-inst-%d", rental.ID, inst.Sequence), TenantID: rental.TenantID,
			RentalID: rental.ID, CustomerID: rental.CustomerID, Sequence: inst.Sequence,
			Amount: inst.Amount, DueDate: inst.DueDate, Status: models.InstallmentScheduled, NextAttemptAt: &due,
		}
		f.charges[c.ID] = c
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeInstallments) add(c *models.InstallmentCharge) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charges[c.ID] = c
}

func (f *fakeInstallments) Get(_ context.Context, tenantID, id string) (*models.InstallmentCharge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.charges[id]
	if !ok || c.TenantID != tenantID {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeInstallments) ListDue(_ context.Context, now time.Time, limit int) ([]*models.InstallmentCharge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.InstallmentCharge
	for _, c := range f.charges {
		if c.Status != models.InstallmentPaid && c.NextAttemptAt != nil && !c.NextAttemptAt.After(now) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeInstallments) RecordAttempt(_ context.Context, c *models.InstallmentCharge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	cp := *c
	f.charges[c.ID] = &cp
	f.attempts = append(f.attempts, cp)
	return nil
}

func (f *fakeInstallments) SavedMethod(_ context.Context, tenantID, rentalID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref, ok := f.methods[rentalID]
	if !ok {
		return "", models.ErrNotFound
	}
	return ref, nil
}

func (f *fakeInstallments) SetSavedMethod(_ context.Context, tenantID, rentalID, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods[rentalID] = ref
	return nil
}

func (f *fakeInstallments) MarkOverdue(_ context.Context, tenantID string, dueBefore time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overdue = append(f.overdue, overdueCall{tenantID: tenantID, dueBefore: dueBefore})
	return f.overdueN, nil
}

func (f *fakeInstallments) charge(id string) models.InstallmentCharge {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.charges[id]
}

type recordingLedger struct {
	mu       sync.Mutex
	requests []*models.RecordPaymentRequest
	err      error
}

func (r *recordingLedger) RecordPayment(_ context.Context, req *models.RecordPaymentRequest) (*models.Payment, *models.AllocationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, nil, r.err
	}
	return &models.Payment{ID: fmt.Sprintf("p%d", len(r.requests)), TenantID: req.TenantID, Amount: req.Amount}, nil, nil
}
