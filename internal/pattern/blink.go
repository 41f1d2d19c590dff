package pattern

import (
	"fmt"
	"time"

	"github.com/dokzlo13/stripd/internal/color"
)

// Blink alternates the whole strip between a color and black. Each cycle shows
// the color for interval, then black for interval.
type Blink struct {
	Base

	interval   time.Duration
	color      color.Color
	cycleStart time.Time
}

// NewBlink creates a blink pattern.
func NewBlink(length int, duration, interval time.Duration, c color.Color, opts ...Option) (*Blink, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: blink interval must be positive, got %s", ErrInvalidParameter, interval)
	}

	p := &Blink{interval: interval, color: c}
	if err := p.setup("blink", length, duration, opts); err != nil {
		return nil, err
	}
	p.cycleStart = p.startedAt
	return p, nil
}

// Init restarts the run and the blink cycle.
func (p *Blink) Init() error {
	if err := p.Base.Init(); err != nil {
		return err
	}
	p.cycleStart = p.startedAt
	return nil
}

// Update paints the phase of the current cycle.
func (p *Blink) Update() error {
	target, err := p.Target()
	if err != nil {
		return err
	}

	now := p.Now()
	since := now.Sub(p.cycleStart)
	if since >= 2*p.interval {
		p.cycleStart = now
		since = 0
	}

	if since < p.interval {
		target.SetAll(p.color)
	} else {
		target.SetAll(color.Black)
	}
	return nil
}
