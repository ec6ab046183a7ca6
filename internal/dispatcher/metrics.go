package dispatcher

import (
	"sort"
	"sync"
	"time"

	"github.com/dshills/gridsel/internal/dispatcher/handler"
)

// Metrics collects dispatch statistics.
type Metrics struct {
	mu      sync.RWMutex
	actions map[string]*ActionStats
	total   uint64
	errors  uint64
	noops   uint64
	panics  uint64
}

// ActionStats holds counters for one action name.
type ActionStats struct {
	Name          string
	DispatchCount uint64
	NoOpCount     uint64
	ErrorCount    uint64
	TotalDuration time.Duration
	LastStatus    handler.ResultStatus
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{actions: make(map[string]*ActionStats)}
}

// RecordDispatch records one completed dispatch.
func (m *Metrics) RecordDispatch(actionName string, d time.Duration, status handler.ResultStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	am := m.actions[actionName]
	if am == nil {
		am = &ActionStats{Name: actionName}
		m.actions[actionName] = am
	}
	am.DispatchCount++
	am.TotalDuration += d
	am.LastStatus = status

	switch status {
	case handler.StatusError:
		m.errors++
		am.ErrorCount++
	case handler.StatusNoOp:
		m.noops++
		am.NoOpCount++
	}
}

// RecordPanic records a panic recovery.
func (m *Metrics) RecordPanic(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics++
}

// MetricsSnapshot is a point-in-time copy of the global counters.
type MetricsSnapshot struct {
	TotalDispatches uint64
	TotalErrors     uint64
	TotalNoOps      uint64
	TotalPanics     uint64
	ActionCount     int
}

// Snapshot returns the global counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		TotalDispatches: m.total,
		TotalErrors:     m.errors,
		TotalNoOps:      m.noops,
		TotalPanics:     m.panics,
		ActionCount:     len(m.actions),
	}
}

// Action returns a copy of the counters for actionName, or nil.
func (m *Metrics) Action(actionName string) *ActionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	am := m.actions[actionName]
	if am == nil {
		return nil
	}
	cp := *am
	return &cp
}

// TopActions returns the n most dispatched actions.
func (m *Metrics) TopActions(n int) []ActionStats {
	m.mu.RLock()
	out := make([]ActionStats, 0, len(m.actions))
	for _, am := range m.actions {
		out = append(out, *am)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DispatchCount != out[j].DispatchCount {
			return out[i].DispatchCount > out[j].DispatchCount
		}
		return out[i].Name < out[j].Name
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = make(map[string]*ActionStats)
	m.total, m.errors, m.noops, m.panics = 0, 0, 0, 0
}
