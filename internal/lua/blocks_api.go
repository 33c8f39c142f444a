package lua

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aarzilli/golua/lua"
	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/extension"
)

// BlocksAPI exposes every extension of a runtime to Lua. Each extension becomes
// a global table named by its ID with one function per block opcode:
//
//	aicobot.motor{RIGHTLEFT = "right", TEXT = 50}
//	aicobot.motor("right", 50)
//	local d = aicobot.getultrasonic()
//
// The botlink table carries the helpers: wait, stop_all, connected and
// extensions.
type BlocksAPI struct {
	LuaEngine *LuaEngine
	runtime   *extension.Runtime
	logger    *logrus.Logger
}

// NewBlocksAPI creates a Lua engine with the blocks of rt registered.
func NewBlocksAPI(rt *extension.Runtime, logger *logrus.Logger) *BlocksAPI {
	api := &BlocksAPI{
		LuaEngine: NewLuaEngine(logger),
		runtime:   rt,
		logger:    logger,
	}
	api.registerBlocksAPI()
	return api
}

// SafePushGoFunction pushes a panic-safe Go function onto the stack.
// Follow it with L.SetField(-2, name) to store it in the table below.
func (api *BlocksAPI) SafePushGoFunction(L *lua.State, name string, fn func(*lua.State) int) {
	L.PushGoFunction(api.LuaEngine.SafeWrapGoFunction(name+"()", fn))
}

func (api *BlocksAPI) ExecuteScript(ctx context.Context, script string) error {
	return api.LuaEngine.ExecuteScript(ctx, script)
}

func (api *BlocksAPI) LoadScriptFile(filename string) error {
	return api.LuaEngine.LoadScriptFile(filename)
}

func (api *BlocksAPI) LoadScript(script, name string) error {
	return api.LuaEngine.LoadScript(script, name)
}

func (api *BlocksAPI) OutputChannel() <-chan LuaOutputRecord {
	return api.LuaEngine.OutputChannel()
}

// Reset recreates the Lua state and registers the blocks again.
func (api *BlocksAPI) Reset() {
	api.LuaEngine.Reset()
	api.registerBlocksAPI()
}

func (api *BlocksAPI) registerBlocksAPI() {
	api.LuaEngine.DoWithState(func(L *lua.State) interface{} {
		for _, ext := range api.runtime.Extensions() {
			api.registerExtension(L, ext)
		}
		api.registerHelpers(L)
		return nil
	})
}

func (api *BlocksAPI) registerExtension(L *lua.State, ext extension.Extension) {
	info := ext.Info()

	L.NewTable()
	for _, block := range info.BlockList() {
		api.SafePushGoFunction(L, info.ID+"."+block.Opcode, api.blockFunction(ext, block))
		L.SetField(-2, block.Opcode)
	}
	L.PushString(info.Name)
	L.SetField(-2, "name")
	L.SetGlobal(info.ID)

	api.logger.WithFields(logrus.Fields{
		"extension": info.ID,
		"blocks":    info.Blocks.Len(),
	}).Debug("Registered Lua blocks")
}

func (api *BlocksAPI) blockFunction(ext extension.Extension, block extension.Block) func(*lua.State) int {
	return func(L *lua.State) int {
		args := readArgs(L, block)

		result, err := ext.Call(api.LuaEngine.Context(), block.Opcode, args)
		if err != nil {
			L.RaiseError(fmt.Sprintf("%s.%s: %v", ext.Info().ID, block.Opcode, err))
			return 0
		}

		switch v := result.(type) {
		case nil:
			return 0
		case bool:
			L.PushBoolean(v)
		case float64:
			L.PushNumber(v)
		case string:
			L.PushString(v)
		default:
			L.PushString(fmt.Sprint(v))
		}
		return 1
	}
}

// readArgs maps the Lua call arguments onto the declared block arguments.
// A single table argument is read by name, falling back to its array part;
// anything else is positional. Nil leaves the declared default in place.
func readArgs(L *lua.State, block extension.Block) extension.Args {
	args := extension.Args{}
	if len(block.Args) == 0 {
		return args
	}

	if L.GetTop() == 1 && L.IsTable(1) {
		for i, a := range block.Args {
			L.GetField(1, a.Name)
			if L.IsNil(-1) {
				L.Pop(1)
				L.RawGeti(1, i+1)
			}
			if v, ok := toValue(L, -1); ok {
				args[a.Name] = v
			}
			L.Pop(1)
		}
		return args
	}

	for i, a := range block.Args {
		if i+1 > L.GetTop() {
			break
		}
		if v, ok := toValue(L, i+1); ok {
			args[a.Name] = v
		}
	}
	return args
}

func toValue(L *lua.State, idx int) (any, bool) {
	switch L.Type(idx) {
	case lua.LUA_TNUMBER:
		return L.ToNumber(idx), true
	case lua.LUA_TSTRING:
		return L.ToString(idx), true
	case lua.LUA_TBOOLEAN:
		return L.ToBoolean(idx), true
	default:
		return nil, false
	}
}

func (api *BlocksAPI) registerHelpers(L *lua.State) {
	L.NewTable()

	// botlink.wait(seconds)
	api.SafePushGoFunction(L, "botlink.wait", func(L *lua.State) int {
		if !L.IsNumber(1) {
			L.RaiseError("wait(seconds) expects a number argument")
			return 0
		}
		secs := L.ToNumber(1)
		if secs < 0 {
			L.RaiseError("wait(seconds) expects a non-negative number")
			return 0
		}

		ctx := api.LuaEngine.Context()
		timer := time.NewTimer(time.Duration(secs * float64(time.Second)))
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			L.RaiseError("wait cancelled: " + context.Cause(ctx).Error())
		}
		return 0
	})
	L.SetField(-2, "wait")

	// botlink.stop_all()
	api.SafePushGoFunction(L, "botlink.stop_all", func(L *lua.State) int {
		api.runtime.StopAll()
		return 0
	})
	L.SetField(-2, "stop_all")

	// botlink.connected(id)
	api.SafePushGoFunction(L, "botlink.connected", func(L *lua.State) int {
		id := L.CheckString(1)
		ext, ok := api.runtime.Extension(id)
		if !ok {
			L.RaiseError(fmt.Sprintf("connected(%q): %v", id, extension.ErrUnknownExtension))
			return 0
		}
		L.PushBoolean(ext.Session().IsConnected())
		return 1
	})
	L.SetField(-2, "connected")

	// botlink.extensions() -> {"aicobot", ...}
	api.SafePushGoFunction(L, "botlink.extensions", func(L *lua.State) int {
		L.NewTable()
		for i, ext := range api.runtime.Extensions() {
			L.PushString(ext.Info().ID)
			L.RawSeti(-2, i+1)
		}
		return 1
	})
	L.SetField(-2, "extensions")

	L.SetGlobal("botlink")
}

// Close cleans up the API resources
func (api *BlocksAPI) Close() {
	api.LuaEngine.Close()
	api.logger.Debug("Lua blocks api closed")
}

// IsCancelled reports whether err comes from a cancelled script.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
