package pattern

import (
	"fmt"
	"time"

	"github.com/dokzlo13/stripd/internal/color"
	"github.com/dokzlo13/stripd/internal/supplier"
)

// RemoteRainbow fills the strip with a color polled from a supplier each tick.
type RemoteRainbow struct {
	Base

	source supplier.Supplier[color.Color]
}

// NewRemoteRainbow creates a remote color pattern. A zero duration never finishes.
func NewRemoteRainbow(length int, duration time.Duration, source supplier.Supplier[color.Color], opts ...Option) (*RemoteRainbow, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: remote rainbow needs a color supplier", ErrInvalidParameter)
	}

	p := &RemoteRainbow{source: source}
	if err := p.setup("remote_rainbow", length, duration, opts); err != nil {
		return nil, err
	}
	return p, nil
}

// IsFinished never reports true for a zero duration.
func (p *RemoteRainbow) IsFinished() bool {
	return p.duration > 0 && p.Base.IsFinished()
}

// Update polls the supplier and fills the strip.
func (p *RemoteRainbow) Update() error {
	target, err := p.Target()
	if err != nil {
		return err
	}

	c, err := p.source.Supply()
	if err != nil {
		return fmt.Errorf("remote color: %w", err)
	}
	target.SetAll(c)
	return nil
}
