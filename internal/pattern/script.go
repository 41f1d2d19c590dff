package pattern

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/stripd/internal/lua/modules"
	"github.com/dokzlo13/stripd/internal/strip"
)

// Script is a pattern driven by Lua source. The script must define a global
// update(elapsed) function and may define init() and finished(elapsed).
// elapsed is in seconds since Init. When finished is defined it replaces the
// duration policy.
//
// The "strip", "color" and "log" modules are available through require.
// Only the base, table, string and math libraries are opened; nothing can
// touch the filesystem or the process.
//
// Every call into the script runs under a deadline. A hook that overruns it
// fails with an error instead of blocking the caller.
//
// A Script owns a Lua VM that is not safe for concurrent use; the scheduler
// only touches a pattern from one goroutine at a time.
type Script struct {
	Base

	L           *lua.LState
	hasInit     bool
	hasFinished bool
	timeout     time.Duration
	logger      zerolog.Logger
}

// DefaultScriptTimeout bounds a single call into a script when no timeout is
// given.
const DefaultScriptTimeout = 100 * time.Millisecond

var scriptLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.LoadLibName, lua.OpenPackage},
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// Base functions that load code from disk or from strings.
var scriptBlockedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "module"}

// newScriptState opens a VM with the restricted library set. require only
// resolves preloaded modules.
func newScriptState() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range scriptLibs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("open lua library %q: %w", lib.name, err)
		}
	}
	for _, name := range scriptBlockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	// Drop the package.path file searcher, keep package.preload.
	if loaders, ok := L.GetField(L.Get(lua.RegistryIndex), "_LOADERS").(*lua.LTable); ok {
		for i := loaders.Len(); i > 1; i-- {
			loaders.RawSetInt(i, lua.LNil)
		}
	}
	if pkg, ok := L.GetGlobal(lua.LoadLibName).(*lua.LTable); ok {
		L.SetField(pkg, "path", lua.LString(""))
		L.SetField(pkg, "loadlib", lua.LNil)
	}
	return L, nil
}

// NewScript compiles and runs source once to collect its hooks.
// timeout bounds every call into the script, including this first run;
// a non-positive timeout means DefaultScriptTimeout.
func NewScript(length int, duration time.Duration, source string, timeout time.Duration, opts ...Option) (*Script, error) {
	p := &Script{timeout: timeout}
	if p.timeout <= 0 {
		p.timeout = DefaultScriptTimeout
	}
	if err := p.setup("script", length, duration, opts); err != nil {
		return nil, err
	}
	p.logger = log.With().Str("pattern", p.name).Logger()

	L, err := newScriptState()
	if err != nil {
		return nil, err
	}
	L.PreloadModule("strip", modules.NewStripModule(length, func() strip.Target { return p.target }).Loader)
	L.PreloadModule("log", modules.NewLogModule(p.logger).Loader)
	L.PreloadModule("color", modules.NewColorModule().Loader)

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	L.SetContext(ctx)
	err = L.DoString(source)
	L.RemoveContext()
	cancel()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("%w: script: %v", ErrInvalidParameter, err)
	}
	if L.GetGlobal("update").Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("%w: script must define update(elapsed)", ErrInvalidParameter)
	}
	p.hasInit = L.GetGlobal("init").Type() == lua.LTFunction
	p.hasFinished = L.GetGlobal("finished").Type() == lua.LTFunction
	p.L = L
	return p, nil
}

// Init restarts the run and calls the script's init hook.
func (p *Script) Init() error {
	if err := p.Base.Init(); err != nil {
		return err
	}
	if !p.hasInit {
		return nil
	}
	return p.call("init", 0)
}

// Update calls update(elapsed).
func (p *Script) Update() error {
	if _, err := p.Target(); err != nil {
		return err
	}
	return p.call("update", 0, lua.LNumber(p.Elapsed().Seconds()))
}

// IsFinished asks the script's finished hook, falling back to the duration
// policy when there is none or it fails.
func (p *Script) IsFinished() bool {
	if !p.hasFinished {
		return p.Base.IsFinished()
	}
	if err := p.call("finished", 1, lua.LNumber(p.Elapsed().Seconds())); err != nil {
		p.logger.Warn().Err(err).Msg("finished hook failed, using duration")
		return p.Base.IsFinished()
	}
	ret := p.L.Get(-1)
	p.L.Pop(1)
	return lua.LVAsBool(ret)
}

// Close releases the Lua VM.
func (p *Script) Close() {
	p.L.Close()
}

// call runs a global hook under the script deadline.
func (p *Script) call(fn string, nret int, args ...lua.LValue) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	p.L.SetContext(ctx)
	defer p.L.RemoveContext()

	err := p.L.CallByParam(lua.P{
		Fn:      p.L.GetGlobal(fn),
		NRet:    nret,
		Protect: true,
	}, args...)
	if err != nil {
		return fmt.Errorf("lua %s: %w", fn, err)
	}
	return nil
}
