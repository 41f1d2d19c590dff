// Package strip defines the sink patterns and the scheduler write to, and a
// framebuffer implementation that pushes flushed frames to pluggable outputs.
package strip

import (
	"errors"

	"github.com/dokzlo13/stripd/internal/color"
)

// ErrIndexOutOfRange is returned when a pixel index is outside [0, Len()).
var ErrIndexOutOfRange = errors.New("pixel index out of range")

// Target is the capability set consumed by the scheduler and pattern variants.
type Target interface {
	// Len returns the number of pixels.
	Len() int

	// SetColor sets a single pixel. Fails with ErrIndexOutOfRange for a bad index.
	SetColor(index int, c color.Color) error

	// SetAll sets every pixel to c.
	SetAll(c color.Color)

	// Flush pushes buffered colors to the output. Safe to call with no pending changes.
	Flush() error

	// Suppress sets every pixel to black and flushes.
	Suppress() error
}

// Output consumes flushed frames. Frames are passed as RGB colors and must
// not be retained after Show returns.
type Output interface {
	Show(frame []color.Color) error
	Close() error
}
