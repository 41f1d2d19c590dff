package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/eventbus"
	"github.com/dokzlo13/stripd/internal/metrics"
	"github.com/dokzlo13/stripd/internal/pattern"
	"github.com/dokzlo13/stripd/internal/strip"
)

// DefaultTickInterval is used when New is given a non-positive interval.
const DefaultTickInterval = 30 * time.Millisecond

// ErrPatternPanic wraps a panic recovered from a pattern.
var ErrPatternPanic = errors.New("pattern panicked")

// Publisher receives pattern lifecycle events. *eventbus.Bus satisfies it.
type Publisher interface {
	Publish(eventbus.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(eventbus.Event) {}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPublisher sends lifecycle events to p.
func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithErrorSampler replaces the sampler applied to pattern error logs.
func WithErrorSampler(sampler zerolog.Sampler) Option {
	return func(s *Scheduler) {
		s.errLog = log.Sample(sampler)
	}
}

// run is one activation of a pattern as current.
type run struct {
	pattern pattern.Pattern
	id      string
	failed  bool // only touched by the tick loop
}

func newRun(p pattern.Pattern) *run {
	return &run{pattern: p, id: uuid.NewString()}
}

// Status is a snapshot of the scheduler slots.
type Status struct {
	Current string `json:"current,omitempty"`
	RunID   string `json:"run_id,omitempty"`
	Default string `json:"default,omitempty"`
}

// Scheduler drives a strip on a fixed tick. It updates the current pattern,
// falls back to the default pattern once the current one finishes, and
// flushes the strip every tick.
//
// SetPattern and SetDefaultPattern may be called from any goroutine. All
// pixel writes happen on the goroutine running Run.
type Scheduler struct {
	target    strip.Target
	interval  time.Duration
	publisher Publisher
	errLog    zerolog.Logger

	mu      sync.Mutex
	current *run
	def     pattern.Pattern

	stop     chan struct{}
	stopOnce sync.Once

	runMu  sync.Mutex
	done   chan struct{}
	runErr error
}

// New creates a scheduler writing to target every tickInterval.
func New(target strip.Target, tickInterval time.Duration, opts ...Option) *Scheduler {
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}

	s := &Scheduler{
		target:    target,
		interval:  tickInterval,
		publisher: nopPublisher{},
		errLog:    log.Sample(&zerolog.BurstSampler{Burst: 5, Period: time.Second}),
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TickInterval returns the configured tick interval.
func (s *Scheduler) TickInterval() time.Duration {
	return s.interval
}

// SetPattern binds and initializes p, then makes it current. The default
// pattern is left untouched. If Init fails, p is not installed.
func (s *Scheduler) SetPattern(p pattern.Pattern) error {
	p.Bind(s.target)
	if err := s.call(p, p.Init); err != nil {
		return fmt.Errorf("init %s: %w", p.Name(), err)
	}

	r := newRun(p)
	s.mu.Lock()
	s.current = r
	s.mu.Unlock()

	s.announce(eventbus.EventPatternStarted, r, metrics.ReasonStarted)
	return nil
}

// SetDefaultPattern binds and initializes p and stores it as the fallback.
// p also becomes current if nothing is current yet.
func (s *Scheduler) SetDefaultPattern(p pattern.Pattern) error {
	return s.installDefault(p, false)
}

// ReplaceDefault binds and initializes p and stores it as the fallback. If the
// previous default is current, or nothing is, p also becomes current. The
// check and the swap happen under one lock, so the loop never resumes p while
// it is being installed.
func (s *Scheduler) ReplaceDefault(p pattern.Pattern) error {
	return s.installDefault(p, true)
}

func (s *Scheduler) installDefault(p pattern.Pattern, promote bool) error {
	p.Bind(s.target)
	if err := s.call(p, p.Init); err != nil {
		return fmt.Errorf("init default %s: %w", p.Name(), err)
	}

	var r *run
	s.mu.Lock()
	old := s.def
	s.def = p
	if s.current == nil || (promote && old != nil && s.current.pattern == old) {
		r = newRun(p)
		s.current = r
	}
	s.mu.Unlock()

	if r != nil {
		s.announce(eventbus.EventPatternStarted, r, metrics.ReasonStarted)
	}
	return nil
}

// Current returns the current pattern or nil.
func (s *Scheduler) Current() pattern.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.pattern
}

// Default returns the default pattern or nil.
func (s *Scheduler) Default() pattern.Pattern {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.def
}

// Status returns the names of the current and default patterns.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Status
	if s.current != nil {
		st.Current = s.current.pattern.Name()
		st.RunID = s.current.id
	}
	if s.def != nil {
		st.Default = s.def.Name()
	}
	return st
}

// Run executes the tick loop until ctx is cancelled or Stop is called.
// It returns an error only for pattern.ErrNotImplemented.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().
		Dur("tick_interval", s.interval).
		Int("pixels", s.target.Len()).
		Msg("Pattern scheduler started")

	timer := time.NewTimer(s.interval)
	timer.Stop()
	defer timer.Stop()

	for {
		start := time.Now()
		if err := s.tick(); err != nil {
			log.Error().Err(err).Msg("Pattern scheduler stopped on fatal pattern error")
			return err
		}

		work := time.Since(start)
		metrics.ObserveTick(work, s.interval)

		// No catch-up: an overrun tick just starts the next one immediately.
		timer.Reset(max(0, s.interval-work))

		select {
		case <-ctx.Done():
			log.Info().Msg("Pattern scheduler stopping")
			return nil
		case <-s.stop:
			log.Info().Msg("Pattern scheduler stopped")
			return nil
		case <-timer.C:
		}
	}
}

// Start runs the loop on a new goroutine. Use Wait to join it.
func (s *Scheduler) Start(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.done != nil {
		return
	}

	done := make(chan struct{})
	s.done = done
	go func() {
		err := s.Run(ctx)
		s.runMu.Lock()
		s.runErr = err
		s.runMu.Unlock()
		close(done)
	}()
}

// Stop asks the loop to exit after the current tick.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Wait blocks until a loop started with Start returns, and returns its error.
func (s *Scheduler) Wait() error {
	s.runMu.Lock()
	done := s.done
	s.runMu.Unlock()
	if done == nil {
		return nil
	}

	<-done
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.runErr
}

// tick runs one iteration of the state machine and flushes the strip.
func (s *Scheduler) tick() error {
	s.mu.Lock()
	cur, def := s.current, s.def
	s.mu.Unlock()

	switch {
	case cur == nil:
		s.suppress()

	case !s.finished(cur):
		if err := s.call(cur.pattern, cur.pattern.Update); err != nil {
			if fatal := s.fail(cur, "update", err); fatal != nil {
				return fatal
			}
		}

	case def != nil:
		next := newRun(def)
		s.mu.Lock()
		swapped := s.current == cur
		if swapped {
			s.current = next
		}
		s.mu.Unlock()

		// A concurrent SetPattern won; its pattern runs next tick.
		if !swapped {
			break
		}

		// Update is skipped on the resumption tick.
		if err := s.call(def, def.Init); err != nil {
			if fatal := s.fail(next, "init", err); fatal != nil {
				return fatal
			}
		}
		s.announce(eventbus.EventPatternResumed, next, metrics.ReasonResumed)

	default:
		s.suppress()
	}

	if err := s.target.Flush(); err != nil {
		metrics.IncFlushError()
		s.errLog.Warn().Err(err).Msg("Strip flush failed")
	}
	return nil
}

// finished reports IsFinished, treating a panic as finished.
func (s *Scheduler) finished(r *run) (done bool) {
	defer func() {
		if rec := recover(); rec != nil {
			_ = s.fail(r, "is_finished", fmt.Errorf("%w: %v", ErrPatternPanic, rec))
			done = true
		}
	}()
	return r.pattern.IsFinished()
}

// call invokes a pattern method, converting a panic into an error.
func (s *Scheduler) call(p pattern.Pattern, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %s: %v", ErrPatternPanic, p.Name(), rec)
		}
	}()
	return fn()
}

// fail handles an error from the running pattern. It returns the error back
// only when it is fatal; otherwise the strip is blanked for this tick.
func (s *Scheduler) fail(r *run, op string, err error) error {
	if errors.Is(err, pattern.ErrNotImplemented) {
		return fmt.Errorf("%s %s: %w", r.pattern.Name(), op, err)
	}

	metrics.IncPatternError(r.pattern.Name())
	s.errLog.Error().
		Err(err).
		Str("pattern", r.pattern.Name()).
		Str("run_id", r.id).
		Str("op", op).
		Msg("Pattern failed, suppressing strip")

	if !r.failed {
		r.failed = true
		s.publisher.Publish(eventbus.Event{
			Type:    eventbus.EventPatternFailed,
			RunID:   r.id,
			Pattern: r.pattern.Name(),
			Reason:  err.Error(),
			Data:    map[string]any{"op": op},
		})
	}

	s.suppress()
	return nil
}

func (s *Scheduler) suppress() {
	if err := s.target.Suppress(); err != nil {
		metrics.IncFlushError()
		s.errLog.Warn().Err(err).Msg("Strip suppress failed")
	}
}

func (s *Scheduler) announce(t eventbus.EventType, r *run, reason string) {
	metrics.IncPatternSwitch(reason)
	log.Info().
		Str("pattern", r.pattern.Name()).
		Str("run_id", r.id).
		Str("reason", reason).
		Msg("Pattern is now current")

	s.publisher.Publish(eventbus.Event{
		Type:    t,
		RunID:   r.id,
		Pattern: r.pattern.Name(),
		Reason:  reason,
	})
}
