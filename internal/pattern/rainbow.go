package pattern

import (
	"fmt"
	"math"
	"time"

	"github.com/dokzlo13/stripd/internal/color"
)

// Rainbow spreads the full hue circle across the strip and rotates it,
// completing lapses full rotations over duration.
type Rainbow struct {
	Base

	lapses float64
	period time.Duration
}

// NewRainbow creates a rainbow pattern. duration and lapses must be positive.
func NewRainbow(length int, duration time.Duration, lapses float64, opts ...Option) (*Rainbow, error) {
	if !(lapses > 0) || math.IsInf(lapses, 0) {
		return nil, fmt.Errorf("%w: lapses must be positive, got %v", ErrInvalidParameter, lapses)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: rainbow duration must be positive, got %s", ErrInvalidParameter, duration)
	}

	p := &Rainbow{lapses: lapses}
	if err := p.setup("rainbow", length, duration, opts); err != nil {
		return nil, err
	}
	p.period = time.Duration(float64(duration) / lapses)
	if p.period <= 0 {
		return nil, fmt.Errorf("%w: %v lapses over %s leaves no time per lap", ErrInvalidParameter, lapses, duration)
	}
	return p, nil
}

// Update paints every pixel.
func (p *Rainbow) Update() error {
	target, err := p.Target()
	if err != nil {
		return err
	}

	rotation := 360 * p.Elapsed().Seconds() / p.period.Seconds()
	for i := 0; i < p.length; i++ {
		c, err := color.FromHSV(p.hueAt(rotation, i), 1, 1)
		if err != nil {
			return err
		}
		if err := target.SetColor(i, c); err != nil {
			return err
		}
	}
	return nil
}

func (p *Rainbow) hueAt(rotation float64, i int) float64 {
	h := math.Mod(rotation+360*float64(i)/float64(p.length), 360)
	if h < 0 {
		h += 360
	}
	return h
}
