package pattern

import (
	"fmt"
	"math"
	"time"

	"github.com/dokzlo13/stripd/internal/color"
	"github.com/dokzlo13/stripd/internal/supplier"
)

// Compass lights the pixel pointing at a heading polled from a supplier each
// tick. Up to width neighbours on either side fade toward black; every other
// pixel is black. The strip is treated as a ring covering 360 degrees.
type Compass struct {
	Base

	heading supplier.Supplier[float64]
	color   color.Color
	width   int
}

// NewCompass creates a compass pattern. A zero duration never finishes.
func NewCompass(
	length int,
	duration time.Duration,
	heading supplier.Supplier[float64],
	c color.Color,
	width int,
	opts ...Option,
) (*Compass, error) {
	if heading == nil {
		return nil, fmt.Errorf("%w: compass needs a heading supplier", ErrInvalidParameter)
	}
	if width < 0 {
		return nil, fmt.Errorf("%w: width must not be negative, got %d", ErrInvalidParameter, width)
	}

	p := &Compass{heading: heading, color: c.ToRGB(), width: width}
	if err := p.setup("compass", length, duration, opts); err != nil {
		return nil, err
	}
	return p, nil
}

// IsFinished never reports true for a zero duration.
func (p *Compass) IsFinished() bool {
	return p.duration > 0 && p.Base.IsFinished()
}

// Update polls the heading and repaints the ring.
func (p *Compass) Update() error {
	target, err := p.Target()
	if err != nil {
		return err
	}

	heading, err := p.heading.Supply()
	if err != nil {
		return fmt.Errorf("compass heading: %w", err)
	}
	if math.IsNaN(heading) || math.IsInf(heading, 0) {
		return fmt.Errorf("%w: heading %v", ErrInvalidParameter, heading)
	}

	center := p.pixelFor(heading)
	for i := 0; i < p.length; i++ {
		c, err := p.colorAt(ringDistance(i, center, p.length))
		if err != nil {
			return err
		}
		if err := target.SetColor(i, c); err != nil {
			return err
		}
	}
	return nil
}

func (p *Compass) pixelFor(heading float64) int {
	h := math.Mod(heading, 360)
	if h < 0 {
		h += 360
	}
	return int(math.Round(h/360*float64(p.length))) % p.length
}

func (p *Compass) colorAt(distance int) (color.Color, error) {
	switch {
	case distance == 0:
		return p.color, nil
	case distance <= p.width:
		return color.Lerp(color.Black, p.color, 1-float64(distance)/float64(p.width+1))
	default:
		return color.Black, nil
	}
}

func ringDistance(a, b, n int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if n-d < d {
		return n - d
	}
	return d
}
