package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"camera-fleet-engine/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	subject_id TEXT NOT NULL,
	actor_id TEXT NOT NULL,
	actor_name TEXT,
	actor_role TEXT,
	action TEXT NOT NULL,
	result TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	source_ip TEXT,
	source_device TEXT,
	detail TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_log(subject_id, timestamp);

CREATE TABLE IF NOT EXISTS alerts (
	id TEXT PRIMARY KEY,
	device_id TEXT NOT NULL,
	type TEXT NOT NULL,
	severity TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	acknowledged INTEGER NOT NULL DEFAULT 0,
	message TEXT
);
CREATE INDEX IF NOT EXISTS idx_alerts_device ON alerts(device_id, timestamp);
`

// SQLiteStore persists alerts and audit entries to an embedded SQLite file
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens (and migrates) a SQLite-backed store at the given path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on", path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate store schema: %w", err)
	}

	return &SQLiteStore{conn: conn}, nil
}

// SaveAuditEntry persists one audit entry
func (s *SQLiteStore) SaveAuditEntry(ctx context.Context, entry types.AccessLogEntry) error {
	query := `
		INSERT INTO audit_log (id, subject_id, actor_id, actor_name, actor_role, action, result, timestamp, source_ip, source_device, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.conn.ExecContext(ctx, query,
		entry.ID,
		entry.SubjectID,
		entry.Actor.ID,
		entry.Actor.Name,
		entry.Actor.Role,
		string(entry.Action),
		entry.Result,
		entry.Timestamp,
		entry.SourceIP,
		entry.SourceDev,
		entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// AuditEntries returns persisted entries for a subject in append order
func (s *SQLiteStore) AuditEntries(ctx context.Context, subjectID string, limit, offset int) ([]types.AccessLogEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT id, subject_id, actor_id, actor_name, actor_role, action, result, timestamp, source_ip, source_device, detail
		FROM audit_log
		WHERE subject_id = ?
		ORDER BY timestamp ASC, id ASC
		LIMIT ? OFFSET ?
	`
	rows, err := s.conn.QueryContext(ctx, query, subjectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

// SaveAlert persists a raised alert
func (s *SQLiteStore) SaveAlert(ctx context.Context, alert types.Alert) error {
	query := `
		INSERT INTO alerts (id, device_id, type, severity, timestamp, acknowledged, message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.conn.ExecContext(ctx, query,
		alert.ID,
		alert.DeviceID,
		string(alert.Type),
		string(alert.Severity),
		alert.Timestamp,
		alert.Acknowledged,
		alert.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// MarkAlertAcknowledged records an acknowledgement
func (s *SQLiteStore) MarkAlertAcknowledged(ctx context.Context, alertID string) error {
	_, err := s.conn.ExecContext(ctx, `UPDATE alerts SET acknowledged = 1 WHERE id = ?`, alertID)
	if err != nil {
		return fmt.Errorf("failed to mark alert acknowledged: %w", err)
	}
	return nil
}

// Close closes the underlying connection
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func scanAuditRows(rows *sql.Rows) ([]types.AccessLogEntry, error) {
	var entries []types.AccessLogEntry
	for rows.Next() {
		var entry types.AccessLogEntry
		var action string
		err := rows.Scan(
			&entry.ID,
			&entry.SubjectID,
			&entry.Actor.ID,
			&entry.Actor.Name,
			&entry.Actor.Role,
			&action,
			&entry.Result,
			&entry.Timestamp,
			&entry.SourceIP,
			&entry.SourceDev,
			&entry.Detail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		entry.Action = types.AuditAction(action)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return entries, nil
}
