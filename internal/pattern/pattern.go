// Package pattern defines the per-pattern state machine driven by the
// scheduler and the concrete pattern variants.
package pattern

import (
	"errors"
	"fmt"
	"time"

	"github.com/dokzlo13/stripd/internal/strip"
)

var (
	// ErrNotImplemented is returned by Base.Update. Reaching it means a pattern
	// type forgot to implement Update; the scheduler treats it as fatal.
	ErrNotImplemented = errors.New("pattern capability not implemented")

	// ErrInvalidParameter is returned by constructors for out-of-range arguments.
	ErrInvalidParameter = errors.New("invalid pattern parameter")

	// ErrUnbound is returned when Update runs before Bind.
	ErrUnbound = errors.New("pattern is not bound to a strip")
)

// Pattern is a state machine producing colors over time.
//
// Lifecycle: Unbound -> Bound (Bind) -> Running (Init) -> Finished (IsFinished).
// Init may be called many times; each call re-arms per-run state.
type Pattern interface {
	Bind(target strip.Target)
	Init() error
	Update() error
	IsFinished() bool
	Name() string
}

// Clock abstracts time for patterns so tests can drive them deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock (with its monotonic reading).
var SystemClock Clock = systemClock{}

// Option configures a pattern's Base.
type Option func(*Base)

// WithClock overrides the clock. Used in tests.
func WithClock(c Clock) Option {
	return func(b *Base) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithName sets the name reported by Name().
func WithName(name string) Option {
	return func(b *Base) {
		if name != "" {
			b.name = name
		}
	}
}

// Base holds the state shared by all patterns and implements the default
// completion policy: a pattern is finished once duration has elapsed since Init.
// Variants embed Base and provide Update.
type Base struct {
	name      string
	length    int
	duration  time.Duration
	clock     Clock
	target    strip.Target
	startedAt time.Time
}

// NewBase validates the common parameters.
func NewBase(kind string, length int, duration time.Duration, opts ...Option) (*Base, error) {
	b := &Base{}
	if err := b.setup(kind, length, duration, opts); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Base) setup(kind string, length int, duration time.Duration, opts []Option) error {
	if length <= 0 {
		return fmt.Errorf("%w: strip length must be positive, got %d", ErrInvalidParameter, length)
	}
	if duration < 0 {
		return fmt.Errorf("%w: duration must not be negative, got %s", ErrInvalidParameter, duration)
	}

	b.name = kind
	b.length = length
	b.duration = duration
	b.clock = SystemClock
	for _, opt := range opts {
		opt(b)
	}
	b.startedAt = b.clock.Now()
	return nil
}

// Bind attaches the output sink. Calling it again replaces the sink.
func (b *Base) Bind(target strip.Target) {
	b.target = target
}

// Init resets the run clock to now.
func (b *Base) Init() error {
	b.startedAt = b.clock.Now()
	return nil
}

// Update has no behavior of its own.
func (b *Base) Update() error {
	return ErrNotImplemented
}

// IsFinished reports whether duration has elapsed since Init.
func (b *Base) IsFinished() bool {
	return b.Elapsed() >= b.duration
}

func (b *Base) Name() string            { return b.name }
func (b *Base) Length() int             { return b.length }
func (b *Base) Duration() time.Duration { return b.duration }

// Now reads the pattern clock.
func (b *Base) Now() time.Time {
	return b.clock.Now()
}

// Elapsed returns the time since the last Init.
func (b *Base) Elapsed() time.Duration {
	return b.clock.Now().Sub(b.startedAt)
}

// Target returns the bound strip or ErrUnbound.
func (b *Base) Target() (strip.Target, error) {
	if b.target == nil {
		return nil, fmt.Errorf("%s: %w", b.name, ErrUnbound)
	}
	return b.target, nil
}
