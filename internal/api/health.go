package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/process"
)

// ServerMetrics reports process statistics for /health.
type ServerMetrics struct {
	StartTime time.Time
	ping      func(ctx context.Context) error
}

// NewServerMetrics starts the uptime clock. ping, when non-nil, is used to
// check the document store.
func NewServerMetrics(ping func(ctx context.Context) error) *ServerMetrics {
	return &ServerMetrics{StartTime: time.Now(), ping: ping}
}

// GetUptime returns the uptime as "1d 2h 3m 4s", dropping leading zero units.
func (sm *ServerMetrics) GetUptime() string {
	uptime := time.Since(sm.StartTime)

	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// GetMemoryUsage returns the heap in use, in MB.
func (sm *ServerMetrics) GetMemoryUsage() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Alloc) / 1024 / 1024
}

// GetCPUUsage returns this process's CPU usage in percent.
func (sm *ServerMetrics) GetCPUUsage() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	return proc.CPUPercent()
}

// GetRSS returns the resident set size in MB.
func (sm *ServerMetrics) GetRSS() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return float64(info.RSS) / 1024 / 1024, nil
}

// StoreStatus pings the document store, "ok" when no pinger is configured.
func (sm *ServerMetrics) StoreStatus(ctx context.Context) string {
	if sm.ping == nil {
		return "ok"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sm.ping(ctx); err != nil {
		return "unavailable"
	}
	return "ok"
}

type healthResponse struct {
	Status     string  `json:"status"`
	Store      string  `json:"store"`
	Uptime     string  `json:"uptime"`
	MemoryMB   float64 `json:"memory_mb"`
	RSSMB      float64 `json:"rss_mb,omitempty"`
	CPUPercent float64 `json:"cpu_percent"`
	Goroutines int     `json:"goroutines"`
	Time       int64   `json:"time"`
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := healthResponse{
		Status:     "ok",
		Store:      s.health.StoreStatus(c.Request.Context()),
		Uptime:     s.health.GetUptime(),
		MemoryMB:   s.health.GetMemoryUsage(),
		Goroutines: runtime.NumGoroutine(),
		Time:       time.Now().Unix(),
	}
	if cpu, err := s.health.GetCPUUsage(); err == nil {
		resp.CPUPercent = cpu
	}
	if rss, err := s.health.GetRSS(); err == nil {
		resp.RSSMB = rss
	}

	status := http.StatusOK
	if resp.Store != "ok" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}
