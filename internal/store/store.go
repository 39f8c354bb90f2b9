package store

import (
	"context"
	"sync"

	"camera-fleet-engine/internal/types"
)

// Store is the pluggable persistence boundary. The engine is memory-resident;
// implementations durably record alerts and audit entries as they are written.
type Store interface {
	// SaveAuditEntry persists one immutable audit entry
	SaveAuditEntry(ctx context.Context, entry types.AccessLogEntry) error

	// AuditEntries returns persisted entries for a subject in append order
	AuditEntries(ctx context.Context, subjectID string, limit, offset int) ([]types.AccessLogEntry, error)

	// SaveAlert persists a newly raised alert
	SaveAlert(ctx context.Context, alert types.Alert) error

	// MarkAlertAcknowledged records that an alert was acknowledged
	MarkAlertAcknowledged(ctx context.Context, alertID string) error

	// Close releases underlying resources
	Close() error
}

// MemoryStore is the in-process Store used by default and in tests
type MemoryStore struct {
	mu      sync.RWMutex
	audit   map[string][]types.AccessLogEntry
	alerts  map[string]types.Alert
	ordered []string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		audit:  make(map[string][]types.AccessLogEntry),
		alerts: make(map[string]types.Alert),
	}
}

// SaveAuditEntry persists one audit entry
func (m *MemoryStore) SaveAuditEntry(_ context.Context, entry types.AccessLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit[entry.SubjectID] = append(m.audit[entry.SubjectID], entry)
	return nil
}

// AuditEntries returns persisted entries for a subject
func (m *MemoryStore) AuditEntries(_ context.Context, subjectID string, limit, offset int) ([]types.AccessLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trail := m.audit[subjectID]
	if offset < 0 {
		offset = 0
	}
	if offset >= len(trail) {
		return nil, nil
	}
	end := len(trail)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]types.AccessLogEntry, end-offset)
	copy(out, trail[offset:end])
	return out, nil
}

// SaveAlert persists a raised alert
func (m *MemoryStore) SaveAlert(_ context.Context, alert types.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.alerts[alert.ID]; !exists {
		m.ordered = append(m.ordered, alert.ID)
	}
	m.alerts[alert.ID] = alert
	return nil
}

// MarkAlertAcknowledged records an acknowledgement
func (m *MemoryStore) MarkAlertAcknowledged(_ context.Context, alertID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if alert, ok := m.alerts[alertID]; ok {
		alert.Acknowledged = true
		m.alerts[alertID] = alert
	}
	return nil
}

// Close is a no-op for the memory store
func (m *MemoryStore) Close() error {
	return nil
}
