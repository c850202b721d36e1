package ledgerapi

import "sort"

// Event is a recorded emission from a MemLedger.
type Event struct {
	Name    string
	Payload []byte
}

// MemLedger is an in-memory State/EventSink/Clock used by contract tests.
// It records every emitted event so tests can assert on the audit trail.
type MemLedger struct {
	data   map[string][]byte
	events []Event
	now    int64
}

func NewMemLedger() *MemLedger {
	return &MemLedger{data: make(map[string][]byte)}
}

func (m *MemLedger) Get(key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *MemLedger) Put(key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

func (m *MemLedger) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func (m *MemLedger) Emit(name string, payload []byte) error {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.events = append(m.events, Event{Name: name, Payload: cp})
	return nil
}

func (m *MemLedger) Now() (int64, error) {
	return m.now, nil
}

// SetNow fixes the ledger timestamp returned by Now.
func (m *MemLedger) SetNow(ts int64) {
	m.now = ts
}

// Events returns all recorded events in emission order.
func (m *MemLedger) Events() []Event {
	return m.events
}

// EventsNamed returns the recorded events with the given name.
func (m *MemLedger) EventsNamed(name string) []Event {
	var out []Event
	for _, e := range m.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Keys returns all populated state keys, sorted.
func (m *MemLedger) Keys() []string {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
