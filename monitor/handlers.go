package monitor

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/najoast/brigade/core"
	"github.com/najoast/brigade/kitchen"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Services  map[string]string `json:"services"`
}

// ActorsStatus is the body of GET /actors.
type ActorsStatus struct {
	Count    int               `json:"count"`
	Actors   []core.ActorStats `json:"actors"`
	Services []*core.Handle    `json:"services"`
}

// KitchenStatus is the body of GET /kitchen.
type KitchenStatus struct {
	Timestamp time.Time      `json:"timestamp"`
	Roster    kitchen.Roster `json:"roster"`
}

// SystemStats is the body of GET /system.
type SystemStats struct {
	// Process specific
	NumGoroutine int    `json:"num_goroutine"`
	Alloc        uint64 `json:"alloc_bytes"`
	Sys          uint64 `json:"sys_bytes"`
	NumGC        uint32 `json:"num_gc"`

	// System wide
	Hostname        string  `json:"hostname,omitempty"`
	HostUptime      uint64  `json:"host_uptime_seconds,omitempty"`
	TotalRAM        uint64  `json:"total_ram"`
	AvailableRAM    uint64  `json:"available_ram"`
	UsedRAMPercent  float64 `json:"used_ram_percent"`
	TotalCPUCores   int     `json:"total_cpu_cores"`
	CPUUsagePercent float64 `json:"cpu_usage_percent"`
}

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/actors", s.actors)
	r.GET("/kitchen", s.kitchen)
	r.GET("/system", s.system)
}

func (s *Server) queryContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.cfg.QueryTimeout)
}

func (s *Server) health(c *gin.Context) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Services:  map[string]string{},
	}

	if s.src.Health != nil {
		ctx, cancel := s.queryContext(c)
		defer cancel()
		for name, err := range s.src.Health(ctx) {
			if err != nil {
				status.Services[name] = err.Error()
				status.Status = "degraded"
				continue
			}
			status.Services[name] = "ok"
		}
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (s *Server) actors(c *gin.Context) {
	if s.src.System == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "actor system unavailable"})
		return
	}

	stats := s.src.System.Stats()
	if stats == nil {
		stats = []core.ActorStats{}
	}
	services := s.src.System.ListServices()
	if services == nil {
		services = []*core.Handle{}
	}
	c.JSON(http.StatusOK, ActorsStatus{Count: len(stats), Actors: stats, Services: services})
}

func (s *Server) kitchen(c *gin.Context) {
	if s.src.Kitchen == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "kitchen unavailable"})
		return
	}

	ctx, cancel := s.queryContext(c)
	defer cancel()

	roster, err := s.src.Kitchen.Roster(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, KitchenStatus{Timestamp: time.Now(), Roster: roster})
}

func (s *Server) system(c *gin.Context) {
	ctx, cancel := s.queryContext(c)
	defer cancel()
	c.JSON(http.StatusOK, collectSystemStats(ctx))
}

// collectSystemStats never fails; host figures gopsutil cannot read stay zero.
func collectSystemStats(ctx context.Context) SystemStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := SystemStats{
		NumGoroutine:  runtime.NumGoroutine(),
		Alloc:         memStats.Alloc,
		Sys:           memStats.Sys,
		NumGC:         memStats.NumGC,
		TotalCPUCores: runtime.NumCPU(),
	}

	if vMem, err := mem.VirtualMemoryWithContext(ctx); err == nil && vMem != nil {
		stats.TotalRAM = vMem.Total
		stats.AvailableRAM = vMem.Available
		stats.UsedRAMPercent = vMem.UsedPercent
	}
	if percent, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percent) > 0 {
		stats.CPUUsagePercent = percent[0]
	}
	if info, err := host.InfoWithContext(ctx); err == nil && info != nil {
		stats.Hostname = info.Hostname
		stats.HostUptime = info.Uptime
	}

	return stats
}
