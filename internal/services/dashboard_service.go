package services

import (
	"context"
	"encoding/json"
	"log"
	"regexp"
	"sync"
	"time"

	"fleetrent-backend/internal/cache"
	"fleetrent-backend/internal/metrics"
	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

var dateParam = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// defaultDashboardDays is the window used when the caller gives no dates
const defaultDashboardDays = 30

type revenueSource interface {
	SumCollected(ctx context.Context, tenantID string, from, to time.Time) (decimal.Decimal, error)
}

type balanceSource interface {
	SumOutstanding(ctx context.Context, tenantID string, today time.Time) (decimal.Decimal, error)
}

type rentalStats interface {
	CountByStatus(ctx context.Context, tenantID string, status models.RentalStatus) (int, error)
	CountCreatedBetween(ctx context.Context, tenantID string, from, to time.Time) (int, error)
	CountCancelledBetween(ctx context.Context, tenantID string, from, to time.Time) (int, error)
	FleetCounts(ctx context.Context, tenantID string) (total, rented int, err error)
}

type overdueSource interface {
	CountOverdue(ctx context.Context, tenantID string) (int, error)
}

// DashboardQuery is the validated form of the KPI request
type DashboardQuery struct {
	TenantID string
	From     string
	To       string
	Timezone string
}

type DashboardService struct {
	revenue     revenueSource
	balances    balanceSource
	rentals     rentalStats
	overdue     overdueSource
	clock       tenantClock
	local       *cache.TTLCache[string, *models.DashboardKPIs]
	sharedTTL   time.Duration
	sharedCache bool
}

// NewDashboardService wires the KPI sources. local is the in-process cache;
// when shared is true results are also stored in Redis for other replicas.
func NewDashboardService(revenue revenueSource, balances balanceSource, rentals rentalStats, overdue overdueSource,
	tenants tenantLookup, local *cache.TTLCache[string, *models.DashboardKPIs], ttl time.Duration, shared bool) *DashboardService {
	return &DashboardService{
		revenue:     revenue,
		balances:    balances,
		rentals:     rentals,
		overdue:     overdue,
		clock:       newTenantClock(tenants),
		local:       local,
		sharedTTL:   ttl,
		sharedCache: shared,
	}
}

type dashboardRange struct {
	loc  *time.Location
	from time.Time // start of first day
	to   time.Time // start of the day after the last day
}

func (s *DashboardService) resolveRange(ctx context.Context, q *DashboardQuery) (*dashboardRange, error) {
	var loc *time.Location
	if q.Timezone == "" {
		loc = s.clock.zone(ctx, q.TenantID)
		q.Timezone = loc.String()
	} else {
		var err error
		if loc, err = time.LoadLocation(q.Timezone); err != nil {
			return nil, models.Invalid("tz", "unknown timezone %q", q.Timezone)
		}
	}

	today := timeutil.StartOfDay(s.clock.now().In(loc))
	if q.To == "" {
		q.To = today.Format(timeutil.DateLayout)
	}
	if !dateParam.MatchString(q.To) {
		return nil, models.Invalid("to", "must be YYYY-MM-DD")
	}
	to, err := timeutil.ParseDate(q.To, loc)
	if err != nil {
		return nil, models.Invalid("to", "invalid date")
	}

	if q.From == "" {
		q.From = timeutil.AddDays(to, -(defaultDashboardDays - 1)).Format(timeutil.DateLayout)
	}
	if !dateParam.MatchString(q.From) {
		return nil, models.Invalid("from", "must be YYYY-MM-DD")
	}
	from, err := timeutil.ParseDate(q.From, loc)
	if err != nil {
		return nil, models.Invalid("from", "invalid date")
	}
	if from.After(to) {
		return nil, models.Invalid("from", "must not be after to")
	}

	return &dashboardRange{loc: loc, from: from, to: timeutil.AddDays(to, 1)}, nil
}

func dashboardKey(q *DashboardQuery) string {
	return q.TenantID + "|" + q.From + "|" + q.To + "|" + q.Timezone
}

// GetKPIs returns the tenant's KPI bundle for a date range, serving repeated
// requests from cache
func (s *DashboardService) GetKPIs(ctx context.Context, q *DashboardQuery) (*models.DashboardKPIs, error) {
	if q.TenantID == "" {
		return nil, models.Invalid("tenant_id", "is required")
	}
	r, err := s.resolveRange(ctx, q)
	if err != nil {
		return nil, err
	}

	key := dashboardKey(q)
	if s.local != nil {
		if kpis, ok := s.local.Get(key); ok {
			metrics.DashboardCacheTotal.WithLabelValues("hit").Inc()
			return kpis, nil
		}
	}
	if s.sharedCache {
		if data, ok := cache.GetCached(ctx, cache.DashboardKeyPrefix+key); ok {
			var kpis models.DashboardKPIs
			if err := json.Unmarshal(data, &kpis); err == nil {
				metrics.DashboardCacheTotal.WithLabelValues("shared_hit").Inc()
				if s.local != nil {
					s.local.Set(key, &kpis)
				}
				return &kpis, nil
			}
		}
	}
	metrics.DashboardCacheTotal.WithLabelValues("miss").Inc()

	kpis := s.compute(ctx, q, r)

	if s.local != nil {
		s.local.Set(key, kpis)
	}
	if s.sharedCache {
		if data, err := json.Marshal(kpis); err == nil {
			cache.SetCached(ctx, cache.DashboardKeyPrefix+key, data, s.sharedTTL)
		}
	}
	return kpis, nil
}

// compute runs every KPI query concurrently. A failed query is logged and its
// metric stays zero; the others are unaffected.
func (s *DashboardService) compute(ctx context.Context, q *DashboardQuery, r *dashboardRange) *models.DashboardKPIs {
	kpis := &models.DashboardKPIs{
		From:               q.From,
		To:                 q.To,
		Timezone:           q.Timezone,
		Revenue:            decimal.Zero,
		OutstandingBalance: decimal.Zero,
		UtilizationPct:     decimal.Zero,
	}
	tenantID := q.TenantID
	today := timeutil.StartOfDay(s.clock.now().In(r.loc))

	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					log.Printf("[Dashboard] %s panicked for tenant %s: %v", name, tenantID, p)
				}
			}()
			if err := fn(); err != nil {
				log.Printf("[Dashboard] %s failed for tenant %s: %v", name, tenantID, err)
			}
		}()
	}

	run("revenue", func() error {
		v, err := s.revenue.SumCollected(ctx, tenantID, r.from, r.to)
		if err == nil {
			kpis.Revenue = v
		}
		return err
	})
	run("outstanding", func() error {
		v, err := s.balances.SumOutstanding(ctx, tenantID, today)
		if err == nil {
			kpis.OutstandingBalance = v
		}
		return err
	})
	run("active_rentals", func() error {
		v, err := s.rentals.CountByStatus(ctx, tenantID, models.RentalStatusActive)
		if err == nil {
			kpis.ActiveRentals = v
		}
		return err
	})
	run("new_bookings", func() error {
		v, err := s.rentals.CountCreatedBetween(ctx, tenantID, r.from, r.to)
		if err == nil {
			kpis.NewBookings = v
		}
		return err
	})
	run("cancellations", func() error {
		v, err := s.rentals.CountCancelledBetween(ctx, tenantID, r.from, r.to)
		if err == nil {
			kpis.Cancellations = v
		}
		return err
	})
	run("fleet", func() error {
		total, rented, err := s.rentals.FleetCounts(ctx, tenantID)
		if err == nil {
			kpis.FleetSize = total
			kpis.VehiclesRented = rented
		}
		return err
	})
	run("overdue_installments", func() error {
		v, err := s.overdue.CountOverdue(ctx, tenantID)
		if err == nil {
			kpis.OverdueInstalments = v
		}
		return err
	})
	wg.Wait()

	if kpis.FleetSize > 0 {
		kpis.UtilizationPct = decimal.NewFromInt(int64(kpis.VehiclesRented)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(kpis.FleetSize))).
			Round(1)
	}
	kpis.GeneratedAt = s.clock.now().UTC().Format(time.RFC3339)
	return kpis
}
