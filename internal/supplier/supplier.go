// Package supplier provides zero-argument capabilities that patterns poll once
// per tick for live external state (a remote color, a compass heading).
package supplier

import (
	"errors"
	"sync/atomic"
)

// ErrNoValue is returned by suppliers that have not received a value yet.
var ErrNoValue = errors.New("supplier has no value")

// Supplier yields the current value of some externally owned state.
// Supply must be fast; it is called on the scheduling goroutine.
type Supplier[T any] interface {
	Supply() (T, error)
}

// Func adapts a plain function to Supplier.
type Func[T any] func() (T, error)

// Supply calls f.
func (f Func[T]) Supply() (T, error) {
	return f()
}

// Value is a Supplier backed by an atomically swapped value. It is written by
// controllers (HTTP API, tests) and read by patterns.
type Value[T any] struct {
	v atomic.Pointer[T]
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	v := &Value[T]{}
	v.Set(initial)
	return v
}

// Set replaces the held value.
func (v *Value[T]) Set(value T) {
	v.v.Store(&value)
}

// Supply returns the held value or ErrNoValue if none was set.
func (v *Value[T]) Supply() (T, error) {
	p := v.v.Load()
	if p == nil {
		var zero T
		return zero, ErrNoValue
	}
	return *p, nil
}
