package verification

import "sync"

// CounterStore is the persistence collaborator for attempt counters. The
// widgets receive one explicitly; whether it is device-durable (bbolt) or
// session-scoped (memory) is the caller's choice.
type CounterStore interface {
	Counter(key string) (int, error)
	SetCounter(key string, value int) error
	Increment(key string) (int, error)
}

// MemoryCounters is a session-scoped CounterStore. Used in tests and when
// no local store is configured.
type MemoryCounters struct {
	mu     sync.Mutex
	values map[string]int
}

// NewMemoryCounters builds an empty in-memory counter store.
func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{values: make(map[string]int)}
}

func (m *MemoryCounters) Counter(key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *MemoryCounters) SetCounter(key string, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryCounters) Increment(key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key]++
	return m.values[key], nil
}
