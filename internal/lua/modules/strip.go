package modules

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/stripd/internal/color"
	"github.com/dokzlo13/stripd/internal/strip"
)

// StripModule exposes the bound strip to Lua. Pixel indexes are zero-based,
// matching the strip itself.
//
//	local strip = require("strip")
//	for i = 0, strip.len() - 1 do
//	    strip.set_hsv(i, (i * 10) % 360, 1, 1)
//	end
type StripModule struct {
	length int
	target func() strip.Target
}

// NewStripModule creates a strip module. target is resolved on every call so
// the module follows later re-binds.
func NewStripModule(length int, target func() strip.Target) *StripModule {
	return &StripModule{length: length, target: target}
}

// Loader is the module loader for Lua
func (m *StripModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "len", L.NewFunction(m.len))
	L.SetField(mod, "set", L.NewFunction(m.set))
	L.SetField(mod, "set_hsv", L.NewFunction(m.setHSV))
	L.SetField(mod, "fill", L.NewFunction(m.fill))
	L.SetField(mod, "fill_hsv", L.NewFunction(m.fillHSV))

	L.Push(mod)
	return 1
}

func (m *StripModule) len(L *lua.LState) int {
	L.Push(lua.LNumber(m.length))
	return 1
}

// strip.set(index, r, g, b)
func (m *StripModule) set(L *lua.LState) int {
	idx := L.CheckInt(1)
	c, err := color.FromRGB(L.CheckInt(2), L.CheckInt(3), L.CheckInt(4))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	m.setColor(L, idx, c)
	return 0
}

// strip.set_hsv(index, h, s, v)
func (m *StripModule) setHSV(L *lua.LState) int {
	idx := L.CheckInt(1)
	c, err := color.FromHSV(float64(L.CheckNumber(2)), float64(L.CheckNumber(3)), float64(L.CheckNumber(4)))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	m.setColor(L, idx, c)
	return 0
}

// strip.fill(r, g, b)
func (m *StripModule) fill(L *lua.LState) int {
	c, err := color.FromRGB(L.CheckInt(1), L.CheckInt(2), L.CheckInt(3))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	m.fillColor(L, c)
	return 0
}

// strip.fill_hsv(h, s, v)
func (m *StripModule) fillHSV(L *lua.LState) int {
	c, err := color.FromHSV(float64(L.CheckNumber(1)), float64(L.CheckNumber(2)), float64(L.CheckNumber(3)))
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	m.fillColor(L, c)
	return 0
}

func (m *StripModule) setColor(L *lua.LState, idx int, c color.Color) {
	target := m.target()
	if target == nil {
		L.RaiseError("strip is not bound")
		return
	}
	if err := target.SetColor(idx, c); err != nil {
		L.RaiseError("%s", err.Error())
	}
}

func (m *StripModule) fillColor(L *lua.LState, c color.Color) {
	target := m.target()
	if target == nil {
		L.RaiseError("strip is not bound")
		return
	}
	target.SetAll(c)
}
