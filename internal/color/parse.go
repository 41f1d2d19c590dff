package color

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Parse reads a color from its textual form.
//
// Supported forms:
//
//	#rrggbb          hex, parsed as RGB
//	rgb(r, g, b)     integer channels in [0,255]
//	hsv(h, s, v)     hue in [0,360], saturation and value in [0,1]
func Parse(s string) (Color, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)

	switch {
	case strings.HasPrefix(lower, "#"):
		hex, err := colorful.Hex(lower)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q is not a hex color", ErrInvalidComponent, s)
		}
		r, g, b := hex.RGB255()
		return FromRGB(int(r), int(g), int(b))

	case strings.HasPrefix(lower, "rgb(") && strings.HasSuffix(lower, ")"):
		parts, err := parseArgs(lower[len("rgb(") : len(lower)-1])
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q: %v", ErrInvalidComponent, s, err)
		}
		for _, p := range parts {
			if p != float64(int(p)) {
				return Color{}, fmt.Errorf("%w: %q: rgb channels must be integers", ErrInvalidComponent, s)
			}
		}
		return FromRGB(int(parts[0]), int(parts[1]), int(parts[2]))

	case strings.HasPrefix(lower, "hsv(") && strings.HasSuffix(lower, ")"):
		parts, err := parseArgs(lower[len("hsv(") : len(lower)-1])
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q: %v", ErrInvalidComponent, s, err)
		}
		return FromHSV(parts[0], parts[1], parts[2])
	}

	return Color{}, fmt.Errorf("%w: unrecognized color %q", ErrInvalidComponent, s)
}

func parseArgs(s string) ([3]float64, error) {
	var out [3]float64
	fields := strings.Split(s, ",")
	if len(fields) != 3 {
		return out, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}
