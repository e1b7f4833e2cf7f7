package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no audit record has the requested ID.
	ErrNotFound = errors.New("audit record not found")

	// ErrDuplicateAudit indicates an audit record with the same ID exists.
	ErrDuplicateAudit = errors.New("audit record already exists")
)

// Paging limits for ListAudits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory)
// and makes testing with mocks straightforward.
type Repository interface {
	AuditRepository
	Close() error
}

// AuditRepository handles reconciliation audit records. Records are
// insert-only; there is no update or delete.
type AuditRepository interface {
	// SaveAudit inserts a record, assigning ID and CreatedAt when empty
	SaveAudit(record *AuditRecord) error

	// GetAudit retrieves a record by ID, or ErrNotFound
	GetAudit(id string) (*AuditRecord, error)

	// ListAudits returns records matching the filters, newest first
	ListAudits(filters AuditFilters) (*AuditListResult, error)

	// GetStats returns aggregate statistics
	GetStats() (*Stats, error)
}

// AuditFilters defines filters for listing audit records
type AuditFilters struct {
	Decision   string    // Filter by decision (empty = all)
	SupplierID string    // Filter by supplier (empty = all)
	InvoiceID  string    // Filter by invoice (empty = all)
	Since      time.Time // Only records created at or after (zero = all time)
	Limit      int       // Max results (0 = DefaultListLimit)
	Offset     int       // Pagination offset
}

// normalized clamps paging values.
func (f AuditFilters) normalized() AuditFilters {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// AuditListResult contains paginated audit results
type AuditListResult struct {
	Audits     []*AuditRecord `json:"audits"`
	TotalCount int            `json:"total_count"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}
