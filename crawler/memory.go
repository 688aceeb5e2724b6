package crawler

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// ThrottleLevel indicates memory pressure severity.
type ThrottleLevel int

const (
	// ThrottleNormal indicates memory usage is within normal bounds.
	ThrottleNormal ThrottleLevel = iota
	// ThrottleWarning indicates memory usage is elevated (75-90% of limit).
	ThrottleWarning
	// ThrottleCritical indicates memory usage is critical (>90% of limit).
	ThrottleCritical
)

func (l ThrottleLevel) String() string {
	switch l {
	case ThrottleWarning:
		return "warning"
	case ThrottleCritical:
		return "critical"
	default:
		return "normal"
	}
}

// MemoryWatcher gauges heap usage against a soft limit so long-running
// callers can refuse new crawls under pressure.
type MemoryWatcher struct {
	mu         sync.RWMutex
	limitBytes int64
	callback   func(level ThrottleLevel)
	lastLevel  ThrottleLevel
	readStats  func(*runtime.MemStats)
}

// NewMemoryWatcher creates a watcher for limitMB and installs it as the
// runtime's soft memory limit.
func NewMemoryWatcher(limitMB int64) *MemoryWatcher {
	limitBytes := limitMB * 1024 * 1024
	if limitBytes > 0 {
		debug.SetMemoryLimit(limitBytes)
	}
	return &MemoryWatcher{
		limitBytes: limitBytes,
		lastLevel:  ThrottleNormal,
		readStats:  runtime.ReadMemStats,
	}
}

// Check returns current heap usage as a percentage of the limit and the
// matching throttle level. The callback fires when the level changes.
func (m *MemoryWatcher) Check() (usedPercent float64, level ThrottleLevel) {
	m.mu.RLock()
	limitBytes := float64(m.limitBytes)
	readStats := m.readStats
	m.mu.RUnlock()

	if limitBytes <= 0 {
		return 0, ThrottleNormal
	}

	var memStats runtime.MemStats
	readStats(&memStats)
	usedPercent = float64(memStats.HeapAlloc) / limitBytes * 100

	switch {
	case usedPercent >= 90:
		level = ThrottleCritical
	case usedPercent >= 75:
		level = ThrottleWarning
	default:
		level = ThrottleNormal
	}

	m.mu.Lock()
	changed := level != m.lastLevel
	m.lastLevel = level
	callback := m.callback
	m.mu.Unlock()

	if changed && callback != nil {
		callback(level)
	}
	return usedPercent, level
}

// Admit reports whether a new crawl may start.
func (m *MemoryWatcher) Admit() bool {
	_, level := m.Check()
	return level != ThrottleCritical
}

// SetThrottleCallback registers a callback invoked when the level changes.
func (m *MemoryWatcher) SetThrottleCallback(cb func(level ThrottleLevel)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = cb
}
