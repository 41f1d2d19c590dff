// Package color provides representation-aware color values for LED rendering.
//
// A Color is an immutable value tagged with the space its components are
// expressed in (RGB or HSV). Conversions always produce new values.
package color

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidComponent is returned when a constructor receives an out-of-range component.
	ErrInvalidComponent = errors.New("invalid color component")

	// ErrRepresentationMismatch is returned when interpolating colors of different representations.
	ErrRepresentationMismatch = errors.New("colors must be of same representation")
)

// Representation identifies the color space of a Color.
type Representation int

const (
	RGB Representation = iota
	HSV
)

// String returns the representation name.
func (r Representation) String() string {
	switch r {
	case RGB:
		return "RGB"
	case HSV:
		return "HSV"
	default:
		return "unknown"
	}
}

// Color is an immutable color value.
//
// RGB components are integers in [0,255]. HSV components are hue in [0,360],
// saturation and value in [0,1].
type Color struct {
	rep    Representation
	values [3]float64
}

// Common colors.
var (
	Black = Color{rep: RGB}
	White = Color{rep: RGB, values: [3]float64{255, 255, 255}}
	Red   = Color{rep: RGB, values: [3]float64{255, 0, 0}}
	Green = Color{rep: RGB, values: [3]float64{0, 255, 0}}
	Blue  = Color{rep: RGB, values: [3]float64{0, 0, 255}}
)

// FromRGB creates an RGB color. Each channel must be in [0,255].
func FromRGB(r, g, b int) (Color, error) {
	for _, ch := range []struct {
		name  string
		value int
	}{{"red", r}, {"green", g}, {"blue", b}} {
		if ch.value < 0 || ch.value > 255 {
			return Color{}, fmt.Errorf("%w: %s must be between 0 and 255, got %d", ErrInvalidComponent, ch.name, ch.value)
		}
	}
	return Color{rep: RGB, values: [3]float64{float64(r), float64(g), float64(b)}}, nil
}

// FromHSV creates an HSV color. Hue must be in [0,360], saturation and value in [0,1].
func FromHSV(h, s, v float64) (Color, error) {
	if !(h >= 0 && h <= 360) {
		return Color{}, fmt.Errorf("%w: hue must be between 0 and 360, got %v", ErrInvalidComponent, h)
	}
	if !(s >= 0 && s <= 1) {
		return Color{}, fmt.Errorf("%w: saturation must be between 0 and 1, got %v", ErrInvalidComponent, s)
	}
	if !(v >= 0 && v <= 1) {
		return Color{}, fmt.Errorf("%w: value must be between 0 and 1, got %v", ErrInvalidComponent, v)
	}
	return Color{rep: HSV, values: [3]float64{h, s, v}}, nil
}

// MustRGB is like FromRGB but panics on invalid input.
func MustRGB(r, g, b int) Color {
	c, err := FromRGB(r, g, b)
	if err != nil {
		panic(err)
	}
	return c
}

// MustHSV is like FromHSV but panics on invalid input.
func MustHSV(h, s, v float64) Color {
	c, err := FromHSV(h, s, v)
	if err != nil {
		panic(err)
	}
	return c
}

// Representation returns the color space the components are expressed in.
func (c Color) Representation() Representation {
	return c.rep
}

// Values returns the three raw components.
func (c Color) Values() (float64, float64, float64) {
	return c.values[0], c.values[1], c.values[2]
}

// ToRGB returns the color in RGB representation.
func (c Color) ToRGB() Color {
	if c.rep == RGB {
		return c
	}
	return hsvToRGB(c)
}

// ToHSV returns the color in HSV representation.
func (c Color) ToHSV() Color {
	if c.rep == HSV {
		return c
	}
	return rgbToHSV(c)
}

// RGB returns the 8-bit channels, converting from HSV if needed.
func (c Color) RGB() (r, g, b uint8) {
	rgb := c.ToRGB()
	return uint8(rgb.values[0]), uint8(rgb.values[1]), uint8(rgb.values[2])
}

// Uint32 returns the color packed as 0x00RRGGBB.
func (c Color) Uint32() uint32 {
	r, g, b := c.RGB()
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// Equal reports whether both colors have the same representation and components.
func (c Color) Equal(other Color) bool {
	return c.rep == other.rep && c.values == other.values
}

// String formats the color as "RGB(r, g, b)" or "HSV(h, s, v)".
func (c Color) String() string {
	if c.rep == RGB {
		return fmt.Sprintf("RGB(%d, %d, %d)", int(c.values[0]), int(c.values[1]), int(c.values[2]))
	}
	return fmt.Sprintf("HSV(%g, %g, %g)", c.values[0], c.values[1], c.values[2])
}

// Lerp linearly interpolates each component from c1 towards c2 by t.
//
// RGB components are truncated to integers. t is not range-checked; values
// outside [0,1] extrapolate and the result is clamped to the valid component ranges.
func Lerp(c1, c2 Color, t float64) (Color, error) {
	if c1.rep != c2.rep {
		return Color{}, fmt.Errorf("%w: %s and %s", ErrRepresentationMismatch, c1.rep, c2.rep)
	}

	out := Color{rep: c1.rep}
	for i := range out.values {
		out.values[i] = c1.values[i] + t*(c2.values[i]-c1.values[i])
	}

	switch out.rep {
	case RGB:
		for i := range out.values {
			out.values[i] = clamp(math.Trunc(out.values[i]), 0, 255)
		}
	case HSV:
		out.values[0] = clamp(out.values[0], 0, 360)
		out.values[1] = clamp(out.values[1], 0, 1)
		out.values[2] = clamp(out.values[2], 0, 1)
	}

	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
