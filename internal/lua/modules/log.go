package modules

import (
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

// LogModule routes Lua log calls to a zerolog logger.
//
//	local log = require("log")
//	log.info("frame", {pixel = 3})
type LogModule struct {
	logger zerolog.Logger
}

// NewLogModule creates a log module writing to logger.
func NewLogModule(logger zerolog.Logger) *LogModule {
	return &LogModule{logger: logger.With().Str("source", "lua").Logger()}
}

// Loader is the module loader for Lua
func (m *LogModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "debug", L.NewFunction(m.at(zerolog.DebugLevel)))
	L.SetField(mod, "info", L.NewFunction(m.at(zerolog.InfoLevel)))
	L.SetField(mod, "warn", L.NewFunction(m.at(zerolog.WarnLevel)))
	L.SetField(mod, "error", L.NewFunction(m.at(zerolog.ErrorLevel)))

	L.Push(mod)
	return 1
}

func (m *LogModule) at(level zerolog.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)

		event := m.logger.WithLevel(level)
		for k, v := range tableFields(L.Get(2)) {
			event = event.Interface(k, v)
		}
		event.Msg(msg)
		return 0
	}
}

func tableFields(arg lua.LValue) map[string]any {
	fields := make(map[string]any)
	tbl, ok := arg.(*lua.LTable)
	if !ok {
		return fields
	}
	tbl.ForEach(func(key, value lua.LValue) {
		fields[lua.LVAsString(key)] = LuaToGo(value)
	})
	return fields
}
