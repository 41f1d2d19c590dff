package strip

import (
	"fmt"
	"sync"

	"github.com/dokzlo13/stripd/internal/color"
)

// Buffer is an in-memory framebuffer implementing Target.
// Pixels are stored in RGB; Flush hands a copy of the frame to the output.
type Buffer struct {
	mu     sync.RWMutex
	pixels []color.Color
	frame  []color.Color // reused flush copy, guarded by flushMu
	out    Output

	flushMu sync.Mutex
	flushes uint64
}

// NewBuffer creates a buffer of the given length, initially black.
// A nil output discards frames.
func NewBuffer(length int, out Output) *Buffer {
	if out == nil {
		out = Discard
	}
	pixels := make([]color.Color, length)
	for i := range pixels {
		pixels[i] = color.Black
	}
	return &Buffer{
		pixels: pixels,
		frame:  make([]color.Color, length),
		out:    out,
	}
}

// Len returns the number of pixels.
func (b *Buffer) Len() int {
	return len(b.pixels)
}

// SetColor sets a single pixel.
func (b *Buffer) SetColor(index int, c color.Color) error {
	if index < 0 || index >= len(b.pixels) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, index, len(b.pixels))
	}
	rgb := c.ToRGB()

	b.mu.Lock()
	b.pixels[index] = rgb
	b.mu.Unlock()
	return nil
}

// SetAll sets every pixel.
func (b *Buffer) SetAll(c color.Color) {
	rgb := c.ToRGB()

	b.mu.Lock()
	for i := range b.pixels {
		b.pixels[i] = rgb
	}
	b.mu.Unlock()
}

// Flush pushes the current frame to the output.
func (b *Buffer) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.RLock()
	copy(b.frame, b.pixels)
	b.mu.RUnlock()

	b.flushes++
	return b.out.Show(b.frame)
}

// Suppress blanks the strip and flushes.
func (b *Buffer) Suppress() error {
	b.SetAll(color.Black)
	return b.Flush()
}

// Snapshot returns a copy of the buffered pixels.
func (b *Buffer) Snapshot() []color.Color {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]color.Color, len(b.pixels))
	copy(out, b.pixels)
	return out
}

// Flushes returns the number of Flush calls so far.
func (b *Buffer) Flushes() uint64 {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	return b.flushes
}

// Close closes the underlying output.
func (b *Buffer) Close() error {
	return b.out.Close()
}
