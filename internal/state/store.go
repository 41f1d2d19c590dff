// Package state persists small JSON documents that must survive a restart,
// such as the default pattern set through the control API.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Record is one stored document.
type Record struct {
	Payload   []byte
	Version   int64
	UpdatedAt time.Time
}

// Store keeps records in the resource_state table keyed by (kind, id).
// Every write bumps the record version. SQLite serializes writers.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an open database that already has the resource_state table.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Load returns the record for (kind, id). ok is false when there is none.
func (s *Store) Load(kind, id string) (rec Record, ok bool, err error) {
	var (
		payload   string
		updatedAt int64
	)
	err = s.db.QueryRow(
		`SELECT payload, version, updated_at FROM resource_state WHERE kind = ? AND id = ?`,
		kind, id,
	).Scan(&payload, &rec.Version, &updatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Record{}, false, nil
	case err != nil:
		return Record{}, false, fmt.Errorf("load %s/%s: %w", kind, id, err)
	}

	rec.Payload = []byte(payload)
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return rec, true, nil
}

// Save writes payload and returns the new version, starting at 1.
func (s *Store) Save(kind, id string, payload []byte) (int64, error) {
	var version int64
	err := s.db.QueryRow(`
		INSERT INTO resource_state (kind, id, payload, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			payload = excluded.payload,
			version = resource_state.version + 1,
			updated_at = excluded.updated_at
		RETURNING version
	`, kind, id, string(payload), s.now().UTC().Unix()).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("save %s/%s: %w", kind, id, err)
	}

	log.Debug().Str("kind", kind).Str("id", id).Int64("version", version).Msg("State saved")
	return version, nil
}

// Delete drops one record. Deleting a missing record is not an error.
func (s *Store) Delete(kind, id string) error {
	if _, err := s.db.Exec(`DELETE FROM resource_state WHERE kind = ? AND id = ?`, kind, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", kind, id, err)
	}
	return nil
}

// Reset drops every record of the given kinds, or everything when none are
// given. It returns how many records were removed.
func (s *Store) Reset(kinds ...string) (int64, error) {
	if len(kinds) == 0 {
		res, err := s.db.Exec(`DELETE FROM resource_state`)
		if err != nil {
			return 0, fmt.Errorf("reset state: %w", err)
		}
		return res.RowsAffected()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	for _, kind := range kinds {
		res, err := tx.Exec(`DELETE FROM resource_state WHERE kind = ?`, kind)
		if err != nil {
			return 0, fmt.Errorf("reset %s: %w", kind, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, tx.Commit()
}
