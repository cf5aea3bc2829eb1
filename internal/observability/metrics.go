package observability

import "sync"

// Metrics provides basic in-memory counters for allocation operations and
// access-gate decisions.
type Metrics struct {
	mu             sync.Mutex
	operationCount map[string]int64
	denialCount    map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		operationCount: make(map[string]int64),
		denialCount:    make(map[string]int64),
	}
}

// RecordOperation increments the counter for a named operation.
func (m *Metrics) RecordOperation(operation string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operationCount[operation]++
}

// RecordDenial increments the counter for a denial reason.
func (m *Metrics) RecordDenial(reason string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denialCount[reason]++
}

// OperationCount returns the current count for a named operation.
func (m *Metrics) OperationCount(operation string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.operationCount[operation]
}

// DenialCount returns the current count for a denial reason.
func (m *Metrics) DenialCount(reason string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.denialCount[reason]
}
