package storage

import (
	"fmt"
	"sort"
	"sync"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu     sync.Mutex
	audits map[string]*AuditRecord
	order  []string

	// Hooks for test assertions
	SaveAuditCalls int
	LastSavedAudit *AuditRecord

	// Error injection for testing error paths
	SaveAuditErr  error
	GetAuditErr   error
	ListAuditsErr error
	GetStatsErr   error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		audits: make(map[string]*AuditRecord),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// SaveAudit stores a copy of the record
func (m *MockRepository) SaveAudit(record *AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveAuditCalls++
	m.LastSavedAudit = record
	if m.SaveAuditErr != nil {
		return m.SaveAuditErr
	}

	prepareRecord(record)
	if _, exists := m.audits[record.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAudit, record.ID)
	}

	copied := *record
	m.audits[record.ID] = &copied
	m.order = append(m.order, record.ID)
	return nil
}

// GetAudit retrieves a record from the in-memory map
func (m *MockRepository) GetAudit(id string) (*AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetAuditErr != nil {
		return nil, m.GetAuditErr
	}
	record, ok := m.audits[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	copied := *record
	return &copied, nil
}

// ListAudits filters and pages records, newest first
func (m *MockRepository) ListAudits(filters AuditFilters) (*AuditListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListAuditsErr != nil {
		return nil, m.ListAuditsErr
	}
	filters = filters.normalized()

	matched := make([]*AuditRecord, 0)
	for _, id := range m.order {
		r := m.audits[id]
		if filters.Decision != "" && r.Decision != filters.Decision {
			continue
		}
		if filters.SupplierID != "" && r.SupplierID != filters.SupplierID {
			continue
		}
		if filters.InvoiceID != "" && r.InvoiceID != filters.InvoiceID {
			continue
		}
		if !filters.Since.IsZero() && r.CreatedAt.Before(filters.Since) {
			continue
		}
		copied := *r
		matched = append(matched, &copied)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(filters.Offset, total)
	end := min(start+filters.Limit, total)

	return &AuditListResult{
		Audits:     matched[start:end],
		TotalCount: total,
		Limit:      filters.Limit,
		Offset:     filters.Offset,
	}, nil
}

// GetStats computes statistics over stored records
func (m *MockRepository) GetStats() (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetStatsErr != nil {
		return nil, m.GetStatsErr
	}

	stats := &Stats{ByDecision: make(map[string]int)}
	suppliers := make(map[string]bool)
	var confidenceSum float64
	var matched int

	for _, r := range m.audits {
		stats.TotalAudits++
		stats.ByDecision[r.Decision]++
		if r.Violation != "" {
			stats.ViolationCount++
		}
		if r.SupplierID != "" {
			suppliers[r.SupplierID] = true
		}
		if r.PurchaseOrderID != "" {
			confidenceSum += r.Confidence
			matched++
		}
	}

	stats.SupplierCount = len(suppliers)
	if matched > 0 {
		stats.AverageConfidence = confidenceSum / float64(matched)
	}
	return stats, nil
}
