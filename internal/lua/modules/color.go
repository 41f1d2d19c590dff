package modules

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/stripd/internal/color"
)

// ColorModule provides color conversions to Lua. Every function returns
// r, g, b so results can be passed straight to strip.set or strip.fill.
//
//	local color = require("color")
//	strip.fill(color.mix("#ff0000", "#0000ff", 0.5))
type ColorModule struct{}

// NewColorModule creates a new color module
func NewColorModule() *ColorModule {
	return &ColorModule{}
}

// Loader is the module loader for Lua
func (m *ColorModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "parse", L.NewFunction(m.parse))
	L.SetField(mod, "hsv", L.NewFunction(m.hsv))
	L.SetField(mod, "mix", L.NewFunction(m.mix))

	L.Push(mod)
	return 1
}

// color.parse("#rrggbb" | "rgb(r,g,b)" | "hsv(h,s,v)") -> r, g, b
func (m *ColorModule) parse(L *lua.LState) int {
	c, err := color.Parse(L.CheckString(1))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	return pushRGB(L, c)
}

// color.hsv(h, s, v) -> r, g, b
func (m *ColorModule) hsv(L *lua.LState) int {
	c, err := color.FromHSV(float64(L.CheckNumber(1)), float64(L.CheckNumber(2)), float64(L.CheckNumber(3)))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	return pushRGB(L, c)
}

// color.mix(a, b, t) -> r, g, b; a and b are color strings, t in [0, 1]
func (m *ColorModule) mix(L *lua.LState) int {
	a, err := color.Parse(L.CheckString(1))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	b, err := color.Parse(L.CheckString(2))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}

	c, err := color.Lerp(a.ToRGB(), b.ToRGB(), float64(L.CheckNumber(3)))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	return pushRGB(L, c)
}

func pushRGB(L *lua.LState, c color.Color) int {
	r, g, b := c.RGB()
	L.Push(lua.LNumber(r))
	L.Push(lua.LNumber(g))
	L.Push(lua.LNumber(b))
	return 3
}
