package pipeline

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// ResourceConfig configures memory backpressure on document admission.
type ResourceConfig struct {
	MaxMemoryBytes  uint64        // 0 disables backpressure
	MemoryThreshold float64       // fraction of MaxMemoryBytes that counts as pressure
	MonitorInterval time.Duration // sampling period and admission poll interval
}

// DefaultResourceConfig returns backpressure disabled with an 80% threshold.
func DefaultResourceConfig() ResourceConfig {
	return ResourceConfig{
		MaxMemoryBytes:  0,
		MemoryThreshold: 0.8,
		MonitorInterval: time.Second,
	}
}

// ResourceStats holds resource usage statistics for the run report.
type ResourceStats struct {
	CurrentMemoryBytes   uint64        `json:"current_memory_bytes"`
	PeakMemoryBytes      uint64        `json:"peak_memory_bytes"`
	MemoryUtilization    float64       `json:"memory_utilization"`
	MemoryPressureEvents int           `json:"memory_pressure_events"`
	AdmissionWaits       int           `json:"admission_waits"`
	AdmissionWaitTime    time.Duration `json:"admission_wait_time"`
}

// ResourceManager delays document admission while heap usage is above the
// configured fraction of the memory budget.
type ResourceManager struct {
	maxMemoryBytes  uint64
	memoryThreshold float64
	interval        time.Duration
	monitor         *MemoryMonitor

	mu    sync.Mutex
	stats ResourceStats
}

// NewResourceManager returns a manager; Start begins sampling.
func NewResourceManager(cfg ResourceConfig) *ResourceManager {
	rm := &ResourceManager{
		maxMemoryBytes:  cfg.MaxMemoryBytes,
		memoryThreshold: cfg.MemoryThreshold,
		interval:        cfg.MonitorInterval,
		monitor:         NewMemoryMonitor(cfg.MonitorInterval),
	}
	if rm.memoryThreshold <= 0 || rm.memoryThreshold > 1.0 {
		rm.memoryThreshold = 0.8
	}
	if rm.interval <= 0 {
		rm.interval = time.Second
	}
	return rm
}

// Enabled reports whether a memory budget is set.
func (rm *ResourceManager) Enabled() bool { return rm.maxMemoryBytes > 0 }

// Start begins background sampling when a budget is set.
func (rm *ResourceManager) Start() {
	if rm.Enabled() {
		rm.monitor.Start()
	}
}

// Stop ends sampling. It is safe to call more than once.
func (rm *ResourceManager) Stop() {
	rm.monitor.Stop()
}

// CheckMemoryPressure takes a fresh sample and reports whether usage exceeds
// the threshold.
func (rm *ResourceManager) CheckMemoryPressure() bool {
	if !rm.Enabled() {
		return false
	}
	current := rm.monitor.Sample()
	utilization := float64(current) / float64(rm.maxMemoryBytes)

	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.stats.MemoryUtilization = utilization
	if utilization > rm.memoryThreshold {
		rm.stats.MemoryPressureEvents++
		return true
	}
	return false
}

// WaitForCapacity blocks while memory is under pressure and other work is
// still in flight. With nothing in flight it admits regardless, otherwise a
// baseline above the budget would stall the batch forever.
func (rm *ResourceManager) WaitForCapacity(ctx context.Context, inFlight func() int) error {
	if !rm.Enabled() {
		return ctx.Err()
	}
	start := time.Now()
	waited := false
	defer func() {
		if waited {
			rm.mu.Lock()
			rm.stats.AdmissionWaits++
			rm.stats.AdmissionWaitTime += time.Since(start)
			rm.mu.Unlock()
		}
	}()

	ticker := time.NewTicker(rm.interval)
	defer ticker.Stop()
	for rm.CheckMemoryPressure() && inFlight() > 0 {
		waited = true
		runtime.GC()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return ctx.Err()
}

// GetStats returns a snapshot of the statistics.
func (rm *ResourceManager) GetStats() ResourceStats {
	rm.mu.Lock()
	stats := rm.stats
	rm.mu.Unlock()
	stats.CurrentMemoryBytes = rm.monitor.GetCurrentUsage()
	stats.PeakMemoryBytes = rm.monitor.GetPeakUsage()
	return stats
}

// MemoryMonitor samples heap usage periodically.
type MemoryMonitor struct {
	interval time.Duration
	read     func() uint64

	mu       sync.RWMutex
	current  uint64
	peak     uint64
	active   bool
	stopOnce sync.Once
	done     chan struct{}
}

// NewMemoryMonitor creates a monitor reading runtime.MemStats.Alloc.
func NewMemoryMonitor(interval time.Duration) *MemoryMonitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &MemoryMonitor{interval: interval, read: heapAlloc, done: make(chan struct{})}
}

func heapAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc
}

// Start begins sampling in the background.
func (mm *MemoryMonitor) Start() {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	if mm.active {
		return
	}
	mm.active = true
	go mm.loop()
}

// Stop ends sampling.
func (mm *MemoryMonitor) Stop() {
	mm.stopOnce.Do(func() { close(mm.done) })
	mm.mu.Lock()
	mm.active = false
	mm.mu.Unlock()
}

// Sample reads usage now and records it.
func (mm *MemoryMonitor) Sample() uint64 {
	v := mm.read()
	mm.mu.Lock()
	mm.current = v
	if v > mm.peak {
		mm.peak = v
	}
	mm.mu.Unlock()
	return v
}

// GetCurrentUsage returns the last sample in bytes.
func (mm *MemoryMonitor) GetCurrentUsage() uint64 {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.current
}

// GetPeakUsage returns the highest sample in bytes.
func (mm *MemoryMonitor) GetPeakUsage() uint64 {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return mm.peak
}

func (mm *MemoryMonitor) loop() {
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()
	mm.Sample()
	for {
		select {
		case <-ticker.C:
			mm.Sample()
		case <-mm.done:
			return
		}
	}
}
