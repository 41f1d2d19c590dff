package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/stripd/internal/color"
	"github.com/dokzlo13/stripd/internal/config"
	"github.com/dokzlo13/stripd/internal/pattern"
	"github.com/dokzlo13/stripd/internal/supplier"
)

func newCatalog() *Catalog {
	return &Catalog{
		Length: 16,
		Colors: map[string]supplier.Supplier[color.Color]{
			"door": supplier.NewValue(color.Red),
		},
		Headings: map[string]supplier.Supplier[float64]{
			"car": supplier.NewValue(45.0),
		},
	}
}

func seconds(n float64) config.Duration {
	return config.Duration(n * float64(time.Second))
}

func TestBuild_AllKinds(t *testing.T) {
	scriptFile := filepath.Join(t.TempDir(), "chase.lua")
	require.NoError(t, os.WriteFile(scriptFile, []byte(`function update(elapsed) end`), 0o644))

	tests := []struct {
		def  config.PatternConfig
		want any
	}{
		{config.PatternConfig{Kind: "blink", Duration: seconds(10), Interval: seconds(0.5), Color: "#ff0000"}, &pattern.Blink{}},
		{config.PatternConfig{Kind: "breathing", Duration: seconds(10), InhaleColor: "rgb(0,0,255)", BreathTime: seconds(8), Interval: seconds(2)}, &pattern.Breathing{}},
		{config.PatternConfig{Kind: "breathing", InhaleColor: "hsv(240,1,1)", ExhaleColor: "#000000", BreathTime: seconds(4)}, &pattern.Breathing{}},
		{config.PatternConfig{Kind: "rainbow", Duration: seconds(10), Lapses: 2}, &pattern.Rainbow{}},
		{config.PatternConfig{Kind: "compass", Source: "car", Width: 2}, &pattern.Compass{}},
		{config.PatternConfig{Kind: "remote_rainbow", Source: "door"}, &pattern.RemoteRainbow{}},
		{config.PatternConfig{Kind: "script", Script: `function update(elapsed) end`}, &pattern.Script{}},
		{config.PatternConfig{Kind: "script", ScriptFile: scriptFile}, &pattern.Script{}},
	}

	c := newCatalog()
	for _, tt := range tests {
		t.Run(tt.def.Kind, func(t *testing.T) {
			p, err := c.Build(tt.def)
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
			assert.Equal(t, tt.def.Kind, p.Name())
		})
	}
}

func TestBuild_Name(t *testing.T) {
	p, err := newCatalog().Build(config.PatternConfig{Kind: "rainbow", Name: "party", Duration: seconds(5)})
	require.NoError(t, err)
	assert.Equal(t, "party", p.Name())
}

func TestBuild_Invalid(t *testing.T) {
	tests := []struct {
		name string
		def  config.PatternConfig
	}{
		{"missing kind", config.PatternConfig{}},
		{"unknown kind", config.PatternConfig{Kind: "strobe"}},
		{"missing color", config.PatternConfig{Kind: "blink", Duration: seconds(1), Interval: seconds(1)}},
		{"bad color", config.PatternConfig{Kind: "blink", Duration: seconds(1), Interval: seconds(1), Color: "rgb(300,0,0)"}},
		{"zero interval", config.PatternConfig{Kind: "blink", Duration: seconds(1), Color: "#ffffff"}},
		{"unknown heading source", config.PatternConfig{Kind: "compass", Source: "boat"}},
		{"unknown color source", config.PatternConfig{Kind: "remote_rainbow", Source: "window"}},
		{"rainbow without duration", config.PatternConfig{Kind: "rainbow"}},
		{"script without source", config.PatternConfig{Kind: "script"}},
		{"script with both sources", config.PatternConfig{Kind: "script", Script: "x", ScriptFile: "y"}},
		{"missing script file", config.PatternConfig{Kind: "script", ScriptFile: "/nonexistent/stripd.lua"}},
		{"broken script", config.PatternConfig{Kind: "script", Script: "function update("}},
	}

	c := newCatalog()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Build(tt.def)
			assert.ErrorIs(t, err, ErrInvalidDefinition)
		})
	}
}

func TestBuild_WrapsPatternErrors(t *testing.T) {
	_, err := newCatalog().Build(config.PatternConfig{Kind: "blink", Duration: seconds(1), Color: "#ffffff"})
	assert.ErrorIs(t, err, ErrInvalidDefinition)
	assert.ErrorIs(t, err, pattern.ErrInvalidParameter)
}

func TestRunsScript(t *testing.T) {
	tests := []struct {
		name string
		def  config.PatternConfig
		want bool
	}{
		{"script kind", config.PatternConfig{Kind: "Script"}, true},
		{"inline source on another kind", config.PatternConfig{Kind: "rainbow", Script: "function update() end"}, true},
		{"script file", config.PatternConfig{ScriptFile: "/etc/passwd"}, true},
		{"plain pattern", config.PatternConfig{Kind: "blink", Color: "#ff0000"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RunsScript(tt.def))
		})
	}
}
