package color

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRGB_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b int
		wantErr bool
	}{
		{name: "black", r: 0, g: 0, b: 0},
		{name: "white", r: 255, g: 255, b: 255},
		{name: "mixed", r: 12, g: 200, b: 255},
		{name: "red_negative", r: -1, g: 0, b: 0, wantErr: true},
		{name: "green_too_big", r: 0, g: 256, b: 0, wantErr: true},
		{name: "blue_too_big", r: 0, g: 0, b: 1000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := FromRGB(tt.r, tt.g, tt.b)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidComponent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, RGB, c.Representation())
			r, g, b := c.Values()
			assert.Equal(t, []float64{float64(tt.r), float64(tt.g), float64(tt.b)}, []float64{r, g, b})
		})
	}
}

func TestFromHSV_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		h, s, v float64
		wantErr bool
	}{
		{name: "zero", h: 0, s: 0, v: 0},
		{name: "upper_bounds", h: 360, s: 1, v: 1},
		{name: "middle", h: 180, s: 0.5, v: 0.25},
		{name: "hue_negative", h: -0.01, s: 1, v: 1, wantErr: true},
		{name: "hue_too_big", h: 360.01, s: 1, v: 1, wantErr: true},
		{name: "saturation_too_big", h: 10, s: 1.5, v: 1, wantErr: true},
		{name: "saturation_negative", h: 10, s: -0.1, v: 1, wantErr: true},
		{name: "value_too_big", h: 10, s: 1, v: 100, wantErr: true},
		{name: "value_nan", h: 10, s: 1, v: math.NaN(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := FromHSV(tt.h, tt.s, tt.v)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidComponent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, HSV, c.Representation())
		})
	}
}

func TestConversionIdentity(t *testing.T) {
	rgb := MustRGB(1, 2, 3)
	assert.True(t, rgb.ToRGB().Equal(rgb))

	hsv := MustHSV(120, 0.5, 0.5)
	assert.True(t, hsv.ToHSV().Equal(hsv))
}

func TestHSVToRGB_Sectors(t *testing.T) {
	tests := []struct {
		h       float64
		r, g, b uint8
	}{
		{h: 0, r: 255, g: 0, b: 0},
		{h: 60, r: 255, g: 255, b: 0},
		{h: 120, r: 0, g: 255, b: 0},
		{h: 180, r: 0, g: 255, b: 255},
		{h: 240, r: 0, g: 0, b: 255},
		{h: 300, r: 255, g: 0, b: 255},
		{h: 360, r: 255, g: 0, b: 0},
		{h: 30, r: 255, g: 128, b: 0},
	}

	for _, tt := range tests {
		r, g, b := MustHSV(tt.h, 1, 1).RGB()
		assert.Equal(t, [3]uint8{tt.r, tt.g, tt.b}, [3]uint8{r, g, b}, "hue %v", tt.h)
	}
}

func TestHSVToRGB_Achromatic(t *testing.T) {
	for _, h := range []float64{0, 45, 90, 200, 359.99, 360} {
		for _, v := range []float64{0, 0.1, 0.25, 0.5, 0.75, 1} {
			want := uint8(math.Round(255 * v))
			r, g, b := MustHSV(h, 0, v).RGB()
			assert.Equal(t, [3]uint8{want, want, want}, [3]uint8{r, g, b}, "h=%v v=%v", h, v)
		}
	}
}

func TestRGBToHSV_Known(t *testing.T) {
	tests := []struct {
		name    string
		rgb     Color
		h, s, v float64
	}{
		{name: "black", rgb: Black, h: 0, s: 0, v: 0},
		{name: "white", rgb: White, h: 0, s: 0, v: 1},
		{name: "red", rgb: Red, h: 0, s: 1, v: 1},
		{name: "green", rgb: Green, h: 120, s: 1, v: 1},
		{name: "blue", rgb: Blue, h: 240, s: 1, v: 1},
		{name: "magenta_ish", rgb: MustRGB(255, 0, 128), h: 329.88, s: 1, v: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s, v := tt.rgb.ToHSV().Values()
			assert.InDelta(t, tt.h, h, 1e-9)
			assert.InDelta(t, tt.s, s, 1e-9)
			assert.InDelta(t, tt.v, v, 1e-9)
		})
	}
}

func TestRoundTripWithinOne(t *testing.T) {
	check := func(r, g, b int) {
		c := MustRGB(r, g, b)
		back := c.ToHSV().ToRGB()
		br, bg, bb := back.Values()
		if math.Abs(br-float64(r)) > 1 || math.Abs(bg-float64(g)) > 1 || math.Abs(bb-float64(b)) > 1 {
			t.Fatalf("round trip of (%d,%d,%d) gave %s", r, g, b, back)
		}
	}

	for r := 0; r <= 255; r += 3 {
		for g := 0; g <= 255; g += 3 {
			for b := 0; b <= 255; b += 3 {
				check(r, g, b)
			}
		}
	}
	for i := 0; i <= 255; i++ {
		check(i, 255-i, 255)
		check(255, i, 0)
		check(i, i, i)
	}
}

func TestLerp(t *testing.T) {
	c1 := MustRGB(0, 100, 255)
	c2 := MustRGB(255, 0, 55)

	t.Run("same_color_any_t", func(t *testing.T) {
		for _, tt := range []float64{-1, 0, 0.3, 1, 2.5} {
			got, err := Lerp(c1, c1, tt)
			require.NoError(t, err)
			assert.True(t, got.Equal(c1), "t=%v got %s", tt, got)
		}
	})

	t.Run("endpoints", func(t *testing.T) {
		got, err := Lerp(c1, c2, 0)
		require.NoError(t, err)
		assert.True(t, got.Equal(c1))

		got, err = Lerp(c1, c2, 1)
		require.NoError(t, err)
		assert.True(t, got.Equal(c2))
	})

	t.Run("truncates", func(t *testing.T) {
		got, err := Lerp(MustRGB(0, 0, 0), MustRGB(255, 255, 255), 0.5)
		require.NoError(t, err)
		assert.True(t, got.Equal(MustRGB(127, 127, 127)), "got %s", got)
	})

	t.Run("hsv_keeps_fractions", func(t *testing.T) {
		a := MustHSV(0, 0.2, 0.4)
		b := MustHSV(100, 0.6, 0.8)
		got, err := Lerp(a, b, 0.5)
		require.NoError(t, err)
		h, s, v := got.Values()
		assert.InDelta(t, 50, h, 1e-9)
		assert.InDelta(t, 0.4, s, 1e-9)
		assert.InDelta(t, 0.6, v, 1e-9)

		got, err = Lerp(a, b, 1)
		require.NoError(t, err)
		h, s, v = got.Values()
		assert.InDelta(t, 100, h, 1e-9)
		assert.InDelta(t, 0.6, s, 1e-9)
		assert.InDelta(t, 0.8, v, 1e-9)
	})

	t.Run("extrapolation_is_not_an_error", func(t *testing.T) {
		got, err := Lerp(MustRGB(100, 100, 100), MustRGB(200, 200, 200), 2)
		require.NoError(t, err)
		assert.True(t, got.Equal(MustRGB(255, 255, 255)), "got %s", got)
	})

	t.Run("representation_mismatch", func(t *testing.T) {
		_, err := Lerp(c1, MustHSV(0, 1, 1), 0.5)
		assert.ErrorIs(t, err, ErrRepresentationMismatch)
	})
}

func TestUint32(t *testing.T) {
	assert.Equal(t, uint32(0xFF8000), MustRGB(255, 128, 0).Uint32())
	assert.Equal(t, uint32(0x0000FF), MustHSV(240, 1, 1).Uint32())
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Color
		wantErr bool
	}{
		{in: "#ff0000", want: Red},
		{in: "  #00FF00 ", want: Green},
		{in: "rgb(1, 2, 3)", want: MustRGB(1, 2, 3)},
		{in: "hsv(180, 0.5, 1)", want: MustHSV(180, 0.5, 1)},
		{in: "rgb(1, 2)", wantErr: true},
		{in: "rgb(1.5, 2, 3)", wantErr: true},
		{in: "rgb(300, 2, 3)", wantErr: true},
		{in: "hsv(400, 1, 1)", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
		{in: "purple", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidComponent)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}
