package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultResourceConfig(t *testing.T) {
	cfg := DefaultResourceConfig()
	assert.Equal(t, uint64(0), cfg.MaxMemoryBytes)
	assert.InDelta(t, 0.8, cfg.MemoryThreshold, 0.001)
	assert.Equal(t, time.Second, cfg.MonitorInterval)
}

func TestNewResourceManager_InvalidThreshold(t *testing.T) {
	rm := NewResourceManager(ResourceConfig{MemoryThreshold: 1.5})
	defer rm.Stop()
	assert.InDelta(t, 0.8, rm.memoryThreshold, 0.001)
	assert.False(t, rm.Enabled())
}

func TestResourceManager_Disabled(t *testing.T) {
	rm := NewResourceManager(DefaultResourceConfig())
	rm.Start()
	defer rm.Stop()

	assert.False(t, rm.CheckMemoryPressure())
	require.NoError(t, rm.WaitForCapacity(context.Background(), func() int { return 5 }))
	assert.Zero(t, rm.GetStats().AdmissionWaits)
}

func TestResourceManager_PressureBlocksUntilWorkDrains(t *testing.T) {
	rm := NewResourceManager(ResourceConfig{MaxMemoryBytes: 1000, MemoryThreshold: 0.5, MonitorInterval: 5 * time.Millisecond})
	var usage atomic.Uint64
	usage.Store(900)
	rm.monitor.read = usage.Load
	defer rm.Stop()

	var inFlight atomic.Int32
	inFlight.Store(1)
	go func() {
		time.Sleep(30 * time.Millisecond)
		usage.Store(100)
	}()

	start := time.Now()
	require.NoError(t, rm.WaitForCapacity(context.Background(), func() int { return int(inFlight.Load()) }))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	stats := rm.GetStats()
	assert.Equal(t, 1, stats.AdmissionWaits)
	assert.Positive(t, stats.MemoryPressureEvents)
	assert.Equal(t, uint64(900), stats.PeakMemoryBytes)
}

func TestResourceManager_AdmitsWhenNothingInFlight(t *testing.T) {
	rm := NewResourceManager(ResourceConfig{MaxMemoryBytes: 1000, MemoryThreshold: 0.5, MonitorInterval: time.Hour})
	rm.monitor.read = func() uint64 { return 5000 }
	defer rm.Stop()

	require.NoError(t, rm.WaitForCapacity(context.Background(), func() int { return 0 }))
	assert.True(t, rm.CheckMemoryPressure())
}

func TestResourceManager_WaitCancelled(t *testing.T) {
	rm := NewResourceManager(ResourceConfig{MaxMemoryBytes: 1000, MemoryThreshold: 0.5, MonitorInterval: 5 * time.Millisecond})
	rm.monitor.read = func() uint64 { return 5000 }
	defer rm.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := rm.WaitForCapacity(ctx, func() int { return 1 })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryMonitor(t *testing.T) {
	mm := NewMemoryMonitor(time.Millisecond)
	mm.Start()
	mm.Start()
	assert.Eventually(t, func() bool { return mm.GetCurrentUsage() > 0 }, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, mm.GetPeakUsage(), mm.GetCurrentUsage())
	mm.Stop()
	mm.Stop()
}
