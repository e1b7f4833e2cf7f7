package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for audit records.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage opens (or creates) the database at dbPath and applies pending
// migrations.
func NewStorage(dbPath string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveAudit inserts an audit record. Existing records are never replaced.
func (s *Storage) SaveAudit(record *AuditRecord) error {
	prepareRecord(record)

	reasonsJSON, err := json.Marshal(nonNil(record.Reasons))
	if err != nil {
		return fmt.Errorf("encode reasons: %w", err)
	}
	candidatesJSON, err := json.Marshal(nonNil(record.Candidates))
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}
	rulesJSON, err := json.Marshal(nonNil(record.RuleResults))
	if err != nil {
		return fmt.Errorf("encode rule results: %w", err)
	}

	query := `
	INSERT INTO audit_records
	(id, invoice_id, invoice_number, supplier_id, supplier_name, currency,
	 invoice_total, purchase_order_id, confidence, decision, violation,
	 reasons_json, candidates_json, rule_results_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		record.ID,
		record.InvoiceID,
		record.InvoiceNumber,
		record.SupplierID,
		record.SupplierName,
		record.Currency,
		record.InvoiceTotal,
		record.PurchaseOrderID,
		record.Confidence,
		record.Decision,
		record.Violation,
		string(reasonsJSON),
		string(candidatesJSON),
		string(rulesJSON),
		record.CreatedAt,
	)

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
		return fmt.Errorf("%w: %s", ErrDuplicateAudit, record.ID)
	}
	return err
}

const auditColumns = `
	id, invoice_id, invoice_number, supplier_id, supplier_name, currency,
	invoice_total, purchase_order_id, confidence, decision, violation,
	reasons_json, candidates_json, rule_results_json, created_at`

// GetAudit retrieves an audit record by ID
func (s *Storage) GetAudit(id string) (*AuditRecord, error) {
	row := s.db.QueryRow(`SELECT `+auditColumns+` FROM audit_records WHERE id = ?`, id)

	record, err := scanAudit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListAudits returns audit records matching the filters, newest first
func (s *Storage) ListAudits(filters AuditFilters) (*AuditListResult, error) {
	filters = filters.normalized()

	var where []string
	var args []any
	if filters.Decision != "" {
		where = append(where, "decision = ?")
		args = append(args, filters.Decision)
	}
	if filters.SupplierID != "" {
		where = append(where, "supplier_id = ?")
		args = append(args, filters.SupplierID)
	}
	if filters.InvoiceID != "" {
		where = append(where, "invoice_id = ?")
		args = append(args, filters.InvoiceID)
	}
	if !filters.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filters.Since.UTC())
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM audit_records`+whereClause, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audits: %w", err)
	}

	query := `SELECT ` + auditColumns + ` FROM audit_records` + whereClause +
		` ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`
	rows, err := s.db.Query(query, append(args, filters.Limit, filters.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	audits := make([]*AuditRecord, 0)
	for rows.Next() {
		record, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &AuditListResult{
		Audits:     audits,
		TotalCount: total,
		Limit:      filters.Limit,
		Offset:     filters.Offset,
	}, nil
}

// GetStats returns aggregate statistics
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{ByDecision: make(map[string]int)}

	var avg sql.NullFloat64
	err := s.db.QueryRow(`
	SELECT COUNT(*),
	       AVG(CASE WHEN purchase_order_id != '' THEN confidence END),
	       COUNT(CASE WHEN violation != '' THEN 1 END),
	       COUNT(DISTINCT CASE WHEN supplier_id != '' THEN supplier_id END)
	FROM audit_records
	`).Scan(&stats.TotalAudits, &avg, &stats.ViolationCount, &stats.SupplierCount)
	if err != nil {
		return nil, fmt.Errorf("aggregate audits: %w", err)
	}
	stats.AverageConfidence = avg.Float64

	rows, err := s.db.Query(`SELECT decision, COUNT(*) FROM audit_records GROUP BY decision`)
	if err != nil {
		return nil, fmt.Errorf("count decisions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var decision string
		var count int
		if err := rows.Scan(&decision, &count); err != nil {
			return nil, err
		}
		stats.ByDecision[decision] = count
	}

	return stats, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAudit(row scanner) (*AuditRecord, error) {
	record := &AuditRecord{}
	var reasonsJSON, candidatesJSON, rulesJSON string

	err := row.Scan(
		&record.ID,
		&record.InvoiceID,
		&record.InvoiceNumber,
		&record.SupplierID,
		&record.SupplierName,
		&record.Currency,
		&record.InvoiceTotal,
		&record.PurchaseOrderID,
		&record.Confidence,
		&record.Decision,
		&record.Violation,
		&reasonsJSON,
		&candidatesJSON,
		&rulesJSON,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(reasonsJSON), &record.Reasons); err != nil {
		return nil, fmt.Errorf("decode reasons for %s: %w", record.ID, err)
	}
	if err := json.Unmarshal([]byte(candidatesJSON), &record.Candidates); err != nil {
		return nil, fmt.Errorf("decode candidates for %s: %w", record.ID, err)
	}
	if err := json.Unmarshal([]byte(rulesJSON), &record.RuleResults); err != nil {
		return nil, fmt.Errorf("decode rule results for %s: %w", record.ID, err)
	}

	return record, nil
}

// prepareRecord fills in ID and CreatedAt when the caller left them empty.
func prepareRecord(record *AuditRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.CreatedAt = record.CreatedAt.UTC()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
