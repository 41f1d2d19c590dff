package color

import "math"

// hsvToRGB converts using the 60° sector algorithm. Channels are scaled to
// [0,255] and rounded to the nearest integer.
func hsvToRGB(c Color) Color {
	h, s, v := c.values[0], c.values[1], c.values[2]

	var r, g, b float64
	if s == 0 {
		r, g, b = v, v, v
	} else {
		h /= 60
		sector := math.Floor(h)
		f := h - sector

		p := v * (1 - s)
		q := v * (1 - s*f)
		t := v * (1 - s*(1-f))

		switch int(sector) % 6 {
		case 0:
			r, g, b = v, t, p
		case 1:
			r, g, b = q, v, p
		case 2:
			r, g, b = p, v, t
		case 3:
			r, g, b = p, q, v
		case 4:
			r, g, b = t, p, v
		default:
			r, g, b = v, p, q
		}
	}

	return Color{rep: RGB, values: [3]float64{to8bit(r), to8bit(g), to8bit(b)}}
}

// rgbToHSV converts normalized channels to hue/saturation/value. Hue is
// rounded to two decimal places.
func rgbToHSV(c Color) Color {
	r, g, b := c.values[0]/255, c.values[1]/255, c.values[2]/255

	maxVal := math.Max(r, math.Max(g, b))
	minVal := math.Min(r, math.Min(g, b))

	v := maxVal

	var s float64
	if v != 0 {
		s = (maxVal - minVal) / maxVal
	}

	var h float64
	if s != 0 {
		delta := maxVal - minVal
		switch maxVal {
		case r:
			h = 60 * floorMod((g-b)/delta, 6)
		case g:
			h = 60 * ((b-r)/delta + 2)
		default:
			h = 60 * ((r-g)/delta + 4)
		}
		h = math.Round(floorMod(h, 360)*100) / 100
	}

	return Color{rep: HSV, values: [3]float64{h, s, v}}
}

// floorMod returns x mod m with the sign of m.
func floorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}

func to8bit(x float64) float64 {
	return clamp(math.Round(255*x), 0, 255)
}
