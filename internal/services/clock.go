package services

import (
	"context"
	"log"
	"time"

	"fleetrent-backend/internal/models"
	"fleetrent-backend/internal/timeutil"
)

type tenantLookup interface {
	Get(ctx context.Context, id string) (*models.Tenant, error)
}

// tenantClock resolves "now" and "today" in each tenant's own timezone
type tenantClock struct {
	tenants tenantLookup
	now     func() time.Time
}

func newTenantClock(tenants tenantLookup) tenantClock {
	return tenantClock{tenants: tenants, now: time.Now}
}

func (c tenantClock) zone(ctx context.Context, tenantID string) *time.Location {
	if c.tenants == nil {
		return timeutil.DefaultZone
	}
	t, err := c.tenants.Get(ctx, tenantID)
	if err != nil {
		log.Printf("[Clock] Tenant %s timezone lookup failed, using default: %v", tenantID, err)
		return timeutil.DefaultZone
	}
	return timeutil.LoadZone(t.Timezone)
}

// today is midnight of the tenant's current calendar day
func (c tenantClock) today(ctx context.Context, tenantID string) time.Time {
	return timeutil.StartOfDay(c.now().In(c.zone(ctx, tenantID)))
}
