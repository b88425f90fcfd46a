package health

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisProbe reports whether the optional shared cache is reachable
type RedisProbe func() bool

type HealthChecker struct {
	db    Pinger
	redis RedisProbe
}

type HealthStatus struct {
	Status   string         `json:"status"`
	Database DatabaseHealth `json:"database"`
	Redis    string         `json:"redis"`
	Host     *HostStats     `json:"host,omitempty"`
}

type DatabaseHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

type HostStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	DiskPercent   float64 `json:"disk_percent"`
}

func NewHealthChecker(db Pinger, redis RedisProbe) *HealthChecker {
	return &HealthChecker{db: db, redis: redis}
}

// CheckBasic pings the database. Redis is optional and never makes the service unhealthy.
func (h *HealthChecker) CheckBasic(ctx context.Context) HealthStatus {
	dbHealth := h.checkDatabase(ctx)

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	redis := "disabled"
	if h.redis != nil {
		redis = "unavailable"
		if h.redis() {
			redis = "healthy"
		}
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
		Redis:    redis,
	}
}

// CheckDetailed adds host resource usage to CheckBasic
func (h *HealthChecker) CheckDetailed(ctx context.Context) HealthStatus {
	status := h.CheckBasic(ctx)
	status.Host = collectHostStats()
	return status
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DatabaseHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return DatabaseHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return DatabaseHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}

func collectHostStats() *HostStats {
	stats := &HostStats{}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemoryPercent = vm.UsedPercent
		stats.MemoryUsedMB = vm.Used / 1024 / 1024
	}
	if d, err := disk.Usage("/"); err == nil {
		stats.DiskPercent = d.UsedPercent
	}
	return stats
}
