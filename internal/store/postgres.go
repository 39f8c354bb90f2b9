package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"camera-fleet-engine/internal/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	subject_id TEXT NOT NULL,
	actor_id TEXT NOT NULL,
	actor_name TEXT,
	actor_role TEXT,
	action TEXT NOT NULL,
	result TEXT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL,
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
	timestamp TIMESTAMPTZ NOT NULL,
	acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
	message TEXT
);
CREATE INDEX IF NOT EXISTS idx_alerts_device ON alerts(device_id, timestamp);
`

// PostgresStore persists alerts and audit entries to PostgreSQL for
// server-grade deployments sharing one durable trail across engines.
type PostgresStore struct {
	conn *sql.DB
}

// NewPostgresStore opens (and migrates) a PostgreSQL-backed store
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store connection: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	if _, err := conn.Exec(postgresSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate store schema: %w", err)
	}

	return &PostgresStore{conn: conn}, nil
}

// SaveAuditEntry persists one audit entry
func (s *PostgresStore) SaveAuditEntry(ctx context.Context, entry types.AccessLogEntry) error {
	query := `
		INSERT INTO audit_log (id, subject_id, actor_id, actor_name, actor_role, action, result, timestamp, source_ip, source_device, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
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
func (s *PostgresStore) AuditEntries(ctx context.Context, subjectID string, limit, offset int) ([]types.AccessLogEntry, error) {
	query := `
		SELECT id, subject_id, actor_id, actor_name, actor_role, action, result, timestamp, source_ip, source_device, detail
		FROM audit_log
		WHERE subject_id = $1
		ORDER BY timestamp ASC, id ASC
		OFFSET $2
	`
	args := []interface{}{subjectID, offset}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

// SaveAlert persists a raised alert
func (s *PostgresStore) SaveAlert(ctx context.Context, alert types.Alert) error {
	query := `
		INSERT INTO alerts (id, device_id, type, severity, timestamp, acknowledged, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
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
func (s *PostgresStore) MarkAlertAcknowledged(ctx context.Context, alertID string) error {
	_, err := s.conn.ExecContext(ctx, `UPDATE alerts SET acknowledged = TRUE WHERE id = $1`, alertID)
	if err != nil {
		return fmt.Errorf("failed to mark alert acknowledged: %w", err)
	}
	return nil
}

// Close closes the underlying connection
func (s *PostgresStore) Close() error {
	return s.conn.Close()
}
