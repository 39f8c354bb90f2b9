package audit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"camera-fleet-engine/internal/store"
	"camera-fleet-engine/internal/types"
)

// Logger keeps the append-only audit trail, keyed by subject (a device id or
// a recording id). Writes are best-effort-never-fail: a missing actor
// identity degrades to the anonymous sentinel and a persistence error is
// logged rather than surfaced, because losing an audit fact is worse than
// accepting a degraded one.
type Logger struct {
	mu      sync.RWMutex
	entries map[string][]types.AccessLogEntry
	store   store.Store
	logger  *logrus.Entry
}

// Option is a functional option for configuring the Logger
type Option func(*Logger)

// WithStore sets the write-through persistence store
func WithStore(s store.Store) Option {
	return func(l *Logger) {
		l.store = s
	}
}

// WithLogger sets the structured logger audit entries are mirrored to
func WithLogger(logger *logrus.Entry) Option {
	return func(l *Logger) {
		l.logger = logger
	}
}

// NewLogger creates a new audit logger
func NewLogger(opts ...Option) *Logger {
	l := &Logger{
		entries: make(map[string][]types.AccessLogEntry),
		logger:  logrus.NewEntry(logrus.New()),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends an immutable entry with a server-assigned timestamp. It
// implements the registry's audit sink and never fails on valid input.
func (l *Logger) Record(subjectID string, actor types.Actor, action types.AuditAction, result string, detail string, origin types.Origin) {
	entry := types.AccessLogEntry{
		ID:        uuid.NewString(),
		SubjectID: subjectID,
		Actor:     sanitizeActor(actor),
		Action:    action,
		Result:    result,
		Timestamp: time.Now().UTC(),
		SourceIP:  origin.IP,
		SourceDev: origin.Device,
		Detail:    detail,
	}

	l.mu.Lock()
	l.entries[subjectID] = append(l.entries[subjectID], entry)
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.SaveAuditEntry(context.Background(), entry); err != nil {
			l.logger.WithError(err).WithField("audit_id", entry.ID).Error("Failed to persist audit entry")
		}
	}

	l.logger.WithFields(logrus.Fields{
		"audit_id":   entry.ID,
		"subject_id": subjectID,
		"actor_id":   entry.Actor.ID,
		"action":     action,
		"result":     result,
		"source_ip":  origin.IP,
	}).Info("Audit entry recorded")
}

// Entries returns a copy of the full trail for a subject in append order
func (l *Logger) Entries(subjectID string) []types.AccessLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	trail := l.entries[subjectID]
	out := make([]types.AccessLogEntry, len(trail))
	copy(out, trail)
	return out
}

// Count returns the number of entries recorded for a subject
func (l *Logger) Count(subjectID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries[subjectID])
}

// sanitizeActor coerces a missing identity to the anonymous sentinel
func sanitizeActor(actor types.Actor) types.Actor {
	if strings.TrimSpace(actor.ID) == "" {
		return types.AnonymousActor
	}
	return actor
}
