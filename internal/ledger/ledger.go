// Package ledger provides an append-only history of pattern activations and
// failures.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/eventbus"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64              `json:"id"`
	EventType eventbus.EventType `json:"event_type"`
	Timestamp time.Time          `json:"timestamp"`
	RunID     string             `json:"run_id"`
	Pattern   string             `json:"pattern"`
	Reason    string             `json:"reason,omitempty"`
	Payload   map[string]any     `json:"payload,omitempty"`
}

// Ledger provides append-only event logging
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append adds a new event to the ledger. A zero Timestamp means now.
func (l *Ledger) Append(e Entry) error {
	var payloadJSON []byte
	if e.Payload != nil {
		var err error
		payloadJSON, err = json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := l.db.Exec(`
		INSERT INTO pattern_ledger (event_type, timestamp, run_id, pattern, reason, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(e.EventType), ts.UTC().UnixMilli(), e.RunID, e.Pattern, e.Reason, string(payloadJSON))
	return err
}

// Record appends a bus event.
func (l *Ledger) Record(e eventbus.Event) {
	err := l.Append(Entry{
		EventType: e.Type,
		Timestamp: e.Time,
		RunID:     e.RunID,
		Pattern:   e.Pattern,
		Reason:    e.Reason,
		Payload:   e.Data,
	})
	if err != nil {
		log.Error().Err(err).
			Str("event_type", string(e.Type)).
			Str("run_id", e.RunID).
			Msg("Failed to append ledger entry")
	}
}

// Subscribe records every pattern lifecycle event published on bus.
func (l *Ledger) Subscribe(bus *eventbus.Bus) {
	for _, t := range []eventbus.EventType{
		eventbus.EventPatternStarted,
		eventbus.EventPatternResumed,
		eventbus.EventPatternFailed,
	} {
		bus.Subscribe(t, l.Record)
	}
}

// Recent returns the newest entries first
func (l *Ledger) Recent(limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, run_id, pattern, reason, payload
		FROM pattern_ledger
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ByRun returns the entries of one activation in order
func (l *Ledger) ByRun(runID string) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, run_id, pattern, reason, payload
		FROM pattern_ledger
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().UnixMilli()
	result, err := l.db.Exec(`DELETE FROM pattern_ledger WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RunCleanup applies the retention policy every interval until ctx is done.
func (l *Ledger) RunCleanup(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := l.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Ledger cleanup failed")
				continue
			}
			if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Ledger cleanup")
			}
		}
	}
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var eventType string
		var reason, payloadStr sql.NullString
		var timestamp int64

		err := rows.Scan(&entry.ID, &eventType, &timestamp, &entry.RunID, &entry.Pattern, &reason, &payloadStr)
		if err != nil {
			return nil, err
		}

		entry.EventType = eventbus.EventType(eventType)
		entry.Timestamp = time.UnixMilli(timestamp).UTC()
		entry.Reason = reason.String

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
