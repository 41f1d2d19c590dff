// Package catalog turns declarative pattern definitions into patterns.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dokzlo13/stripd/internal/color"
	"github.com/dokzlo13/stripd/internal/config"
	"github.com/dokzlo13/stripd/internal/pattern"
	"github.com/dokzlo13/stripd/internal/supplier"
)

// ErrInvalidDefinition is returned for definitions that cannot be built.
var ErrInvalidDefinition = errors.New("invalid pattern definition")

// Pattern kinds.
const (
	KindBlink         = "blink"
	KindBreathing     = "breathing"
	KindRainbow       = "rainbow"
	KindCompass       = "compass"
	KindRemoteRainbow = "remote_rainbow"
	KindScript        = "script"
)

// Kinds lists every buildable kind.
var Kinds = []string{KindBlink, KindBreathing, KindRainbow, KindCompass, KindRemoteRainbow, KindScript}

// Catalog builds patterns for a strip of Length pixels. Colors and Headings
// hold the named suppliers that supplier-driven kinds refer to via Source.
type Catalog struct {
	Length   int
	Colors   map[string]supplier.Supplier[color.Color]
	Headings map[string]supplier.Supplier[float64]

	// ScriptTimeout bounds each call into a script pattern.
	ScriptTimeout time.Duration

	// Options are passed to every constructed pattern.
	Options []pattern.Option
}

// RunsScript reports whether def would execute Lua. Script definitions are
// only trusted from the config file.
func RunsScript(def config.PatternConfig) bool {
	return strings.EqualFold(def.Kind, KindScript) || def.Script != "" || def.ScriptFile != ""
}

// Build constructs the pattern described by def.
func (c *Catalog) Build(def config.PatternConfig) (pattern.Pattern, error) {
	p, err := c.build(def)
	if err != nil {
		if errors.Is(err, ErrInvalidDefinition) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDefinition, def.DisplayName(), err)
	}
	return p, nil
}

func (c *Catalog) build(def config.PatternConfig) (pattern.Pattern, error) {
	opts := append(append([]pattern.Option(nil), c.Options...), pattern.WithName(def.Name))
	duration := def.Duration.Duration()

	switch strings.ToLower(def.Kind) {
	case KindBlink:
		col, err := parseColor("color", def.Color)
		if err != nil {
			return nil, err
		}
		return pattern.NewBlink(c.Length, duration, def.Interval.Duration(), col, opts...)

	case KindBreathing:
		inhale, err := parseColor("inhale_color", def.InhaleColor)
		if err != nil {
			return nil, err
		}
		exhale, err := parseColor("exhale_color", orDefault(def.ExhaleColor, "#000000"))
		if err != nil {
			return nil, err
		}
		// Mixed notations fade in RGB.
		if inhale.Representation() != exhale.Representation() {
			inhale, exhale = inhale.ToRGB(), exhale.ToRGB()
		}
		return pattern.NewBreathing(c.Length, duration, inhale, exhale, def.BreathTime.Duration(), def.Interval.Duration(), opts...)

	case KindRainbow:
		lapses := def.Lapses
		if lapses == 0 {
			lapses = 1
		}
		return pattern.NewRainbow(c.Length, duration, lapses, opts...)

	case KindCompass:
		heading, ok := c.Headings[def.Source]
		if !ok {
			return nil, fmt.Errorf("%w: unknown heading source %q", ErrInvalidDefinition, def.Source)
		}
		col, err := parseColor("color", orDefault(def.Color, "#ffffff"))
		if err != nil {
			return nil, err
		}
		return pattern.NewCompass(c.Length, duration, heading, col, def.Width, opts...)

	case KindRemoteRainbow:
		source, ok := c.Colors[def.Source]
		if !ok {
			return nil, fmt.Errorf("%w: unknown color source %q", ErrInvalidDefinition, def.Source)
		}
		return pattern.NewRemoteRainbow(c.Length, duration, source, opts...)

	case KindScript:
		src, err := scriptSource(def)
		if err != nil {
			return nil, err
		}
		return pattern.NewScript(c.Length, duration, src, c.ScriptTimeout, opts...)

	case "":
		return nil, fmt.Errorf("%w: kind is required", ErrInvalidDefinition)

	default:
		return nil, fmt.Errorf("%w: unknown kind %q (want one of %s)", ErrInvalidDefinition, def.Kind, strings.Join(Kinds, ", "))
	}
}

func parseColor(field, s string) (color.Color, error) {
	if s == "" {
		return color.Color{}, fmt.Errorf("%w: %s is required", ErrInvalidDefinition, field)
	}
	c, err := color.Parse(s)
	if err != nil {
		return color.Color{}, fmt.Errorf("%w: %s: %w", ErrInvalidDefinition, field, err)
	}
	return c, nil
}

func scriptSource(def config.PatternConfig) (string, error) {
	switch {
	case def.Script != "" && def.ScriptFile != "":
		return "", fmt.Errorf("%w: set either script or script_file, not both", ErrInvalidDefinition)
	case def.Script != "":
		return def.Script, nil
	case def.ScriptFile != "":
		data, err := os.ReadFile(def.ScriptFile)
		if err != nil {
			return "", fmt.Errorf("%w: script_file: %w", ErrInvalidDefinition, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: script or script_file is required", ErrInvalidDefinition)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
