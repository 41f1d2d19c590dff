package pattern

import (
	"fmt"
	"time"

	"github.com/dokzlo13/stripd/internal/color"
)

// Breathing fades the whole strip from exhale to inhale over the first half of
// breathTime, back to exhale over the second half, then holds exhale for
// interval before the next breath.
type Breathing struct {
	Base

	inhale     color.Color
	exhale     color.Color
	breathTime time.Duration
	interval   time.Duration
	cycleStart time.Time
}

// NewBreathing creates a breathing pattern. Both colors must share a
// representation; the fade is computed in that space.
func NewBreathing(
	length int,
	duration time.Duration,
	inhale, exhale color.Color,
	breathTime, interval time.Duration,
	opts ...Option,
) (*Breathing, error) {
	if breathTime <= 0 {
		return nil, fmt.Errorf("%w: breath time must be positive, got %s", ErrInvalidParameter, breathTime)
	}
	if interval < 0 {
		return nil, fmt.Errorf("%w: interval must not be negative, got %s", ErrInvalidParameter, interval)
	}
	if inhale.Representation() != exhale.Representation() {
		return nil, fmt.Errorf("%w: inhale is %s but exhale is %s: %w",
			ErrInvalidParameter, inhale.Representation(), exhale.Representation(), color.ErrRepresentationMismatch)
	}

	p := &Breathing{
		inhale:     inhale,
		exhale:     exhale,
		breathTime: breathTime,
		interval:   interval,
	}
	if err := p.setup("breathing", length, duration, opts); err != nil {
		return nil, err
	}
	p.cycleStart = p.startedAt
	return p, nil
}

// Init restarts the run and the breath cycle.
func (p *Breathing) Init() error {
	if err := p.Base.Init(); err != nil {
		return err
	}
	p.cycleStart = p.startedAt
	return nil
}

// Update paints the color for the current point of the breath.
func (p *Breathing) Update() error {
	target, err := p.Target()
	if err != nil {
		return err
	}

	now := p.Now()
	since := now.Sub(p.cycleStart)
	if since >= p.breathTime+p.interval {
		p.cycleStart = now
		since = 0
	}

	c, err := p.colorAt(since)
	if err != nil {
		return err
	}
	target.SetAll(c)
	return nil
}

func (p *Breathing) colorAt(since time.Duration) (color.Color, error) {
	half := p.breathTime / 2
	switch {
	case since < half:
		return color.Lerp(p.exhale, p.inhale, float64(since)/float64(half))
	case since < p.breathTime:
		return color.Lerp(p.inhale, p.exhale, float64(since-half)/float64(half))
	default:
		return p.exhale, nil
	}
}
