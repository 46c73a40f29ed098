package observability

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// MonitoringStats is the snapshot served on the health endpoint.
type MonitoringStats struct {
	// --- CHAT METRICS ---
	Connections   int    `json:"connections"`
	MessagesSent  uint64 `json:"messages_sent"`
	LoginFailures uint64 `json:"login_failures"`

	// --- SYSTEM METRICS ---
	Goroutines int       `json:"goroutines"`
	AllocMemMb uint64    `json:"alloc_mem_mb"`
	NumGC      uint32    `json:"num_gc"`
	RSSBytes   uint64    `json:"rss_bytes"`
	CPUPercent float64   `json:"cpu_percent"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// MonitoringManager keeps counters updated by the transport and refreshes
// process metrics on every tick.
type MonitoringManager struct {
	log         *slog.Logger
	mu          sync.RWMutex
	latestStats MonitoringStats
	interval    time.Duration
	connections func() int
	proc        *process.Process

	messagesSent  atomic.Uint64
	loginFailures atomic.Uint64
}

// NewMonitoringManager reads the live connection count through connections,
// which may be nil.
func NewMonitoringManager(log *slog.Logger, interval time.Duration, connections func() int) *MonitoringManager {
	mm := &MonitoringManager{log: log, interval: interval, connections: connections}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process metrics unavailable", "error", err)
	} else {
		mm.proc = p
	}
	return mm
}

func (mm *MonitoringManager) IncrMessagesSent() {
	mm.messagesSent.Add(1)
}

func (mm *MonitoringManager) IncrLoginFailures() {
	mm.loginFailures.Add(1)
}

// Run is a supervised worker.
func (mm *MonitoringManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()

	mm.Refresh()
	for {
		select {
		case <-ctx.Done():
			mm.log.Debug("Monitoring stopped")
			return nil
		case <-ticker.C:
			mm.Refresh()
		}
	}
}

// Refresh recomputes the snapshot now.
func (mm *MonitoringManager) Refresh() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := MonitoringStats{
		MessagesSent:  mm.messagesSent.Load(),
		LoginFailures: mm.loginFailures.Load(),
		Goroutines:    runtime.NumGoroutine(),
		AllocMemMb:    m.Alloc / 1024 / 1024,
		NumGC:         m.NumGC,
		UpdatedAt:     time.Now().UTC(),
	}
	if mm.connections != nil {
		stats.Connections = mm.connections()
	}
	if mm.proc != nil {
		rss, cpu, err := selfStats(mm.proc)
		if err != nil {
			mm.log.Debug("Failed to collect self stats", "error", err)
		} else {
			stats.RSSBytes, stats.CPUPercent = rss, cpu
		}
	}

	mm.mu.Lock()
	mm.latestStats = stats
	mm.mu.Unlock()

	mm.log.Debug("Stats updated",
		"connections", stats.Connections,
		"messages_sent", stats.MessagesSent,
		"mem_mb", stats.AllocMemMb,
	)
}

func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.latestStats
}

// selfStats retrieves resident memory and CPU usage for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
