package audit

import (
	"context"
	"sync"
)

// InMemory keeps records in memory, for tests and local development.
type InMemory struct {
	mu      sync.Mutex
	records []Record
}

// NewInMemory returns an empty in-memory audit store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

func (m *InMemory) Append(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return nil
}

func (m *InMemory) List(ctx context.Context, resourceType, resourceID string, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for i := len(m.records) - 1; i >= 0; i-- {
		rec := m.records[i]
		if resourceType != "" && rec.ResourceType != resourceType {
			continue
		}
		if resourceID != "" && rec.ResourceID != resourceID {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *InMemory) ListByStore(ctx context.Context, storeID string, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for i := len(m.records) - 1; i >= 0; i-- {
		rec := m.records[i]
		if rec.StoreID != storeID {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns every record, oldest first.
func (m *InMemory) All() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}
