package modules

import (
	lua "github.com/yuin/gopher-lua"
)

// LuaToGo converts a Lua value to a Go value. Tables with only positive integer
// keys become slices, other tables become maps.
func LuaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		return float64(val)
	case lua.LBool:
		return bool(val)
	case *lua.LTable:
		return tableToGo(val)
	case *lua.LNilType:
		return nil
	default:
		return v.String()
	}
}

func tableToGo(tbl *lua.LTable) any {
	maxIdx := 0
	isArray := true
	tbl.ForEach(func(k, _ lua.LValue) {
		num, ok := k.(lua.LNumber)
		if !ok || num < 1 {
			isArray = false
			return
		}
		if int(num) > maxIdx {
			maxIdx = int(num)
		}
	})

	if isArray && maxIdx > 0 {
		arr := make([]any, maxIdx)
		tbl.ForEach(func(k, v lua.LValue) {
			arr[int(k.(lua.LNumber))-1] = LuaToGo(v)
		})
		return arr
	}

	obj := make(map[string]any)
	tbl.ForEach(func(k, v lua.LValue) {
		obj[lua.LVAsString(k)] = LuaToGo(v)
	})
	return obj
}
