package state

import (
	"encoding/json"
	"fmt"
	"time"
)

// KindPattern holds persisted pattern definitions; id "default" is the
// default pattern set through the control API.
const (
	KindPattern      = "pattern"
	IDDefaultPattern = "default"
)

// Versioned is a decoded record.
type Versioned[T any] struct {
	Value     T
	Version   int64
	UpdatedAt time.Time
}

// TypedStore stores values of one Go type as JSON under a single kind.
type TypedStore[T any] struct {
	store *Store
	kind  string
}

// NewTypedStore binds store to kind.
func NewTypedStore[T any](store *Store, kind string) *TypedStore[T] {
	return &TypedStore[T]{store: store, kind: kind}
}

// Kind returns the resource kind this store handles.
func (s *TypedStore[T]) Kind() string {
	return s.kind
}

// Load decodes the record for id together with its version.
func (s *TypedStore[T]) Load(id string) (v Versioned[T], ok bool, err error) {
	rec, ok, err := s.store.Load(s.kind, id)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(rec.Payload, &v.Value); err != nil {
		return v, false, fmt.Errorf("decode %s/%s: %w", s.kind, id, err)
	}
	v.Version = rec.Version
	v.UpdatedAt = rec.UpdatedAt
	return v, true, nil
}

// Get is Load without the metadata.
func (s *TypedStore[T]) Get(id string) (value T, ok bool, err error) {
	v, ok, err := s.Load(id)
	return v.Value, ok, err
}

// Set encodes and saves value.
func (s *TypedStore[T]) Set(id string, value T) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", s.kind, id, err)
	}
	_, err = s.store.Save(s.kind, id, payload)
	return err
}

// Delete removes the value for id.
func (s *TypedStore[T]) Delete(id string) error {
	return s.store.Delete(s.kind, id)
}

// Clear removes every value of this kind.
func (s *TypedStore[T]) Clear() error {
	_, err := s.store.Reset(s.kind)
	return err
}
