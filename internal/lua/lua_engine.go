package lua

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aarzilli/golua/lua"
	"github.com/sirupsen/logrus"
	"github.com/srg/botlink/internal/ringchan"
)

const (
	// DefaultOutputCapacity is how many output records the engine keeps before
	// overwriting the oldest.
	DefaultOutputCapacity = 256

	// cancellation is checked every hookInstructions VM instructions
	hookInstructions = 1000
)

// blockedFunctions are removed from the sandbox. Scripts drive robots; they
// have no business touching the host.
var blockedFunctions = []string{
	"os.execute", "os.exit", "os.remove", "os.rename", "os.tmpname", "os.getenv",
	"io.read", "io.lines", "io.open", "io.popen", "io.input", "io.output",
	"dofile", "loadfile",
}

// LuaOutputRecord is one chunk of script output.
type LuaOutputRecord struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // "stdout" or "stderr"
}

// LuaError represents detailed Lua execution errors
type LuaError struct {
	Type       string // "syntax", "runtime", "api"
	Message    string
	Line       int
	Source     string
	Underlying error
}

func (e *LuaError) Error() string {
	parts := []string{}
	if e.Source != "" {
		parts = append(parts, fmt.Sprintf("in %s", e.Source))
	}
	if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", e.Line))
	}

	prefix := "Lua error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("Lua %s error (%s)", e.Type, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *LuaError) Unwrap() error {
	return e.Underlying
}

// Is matches another *LuaError of the same Type.
func (e *LuaError) Is(target error) bool {
	var luaErr *LuaError
	if errors.As(target, &luaErr) {
		return e.Type == luaErr.Type
	}
	return false
}

// newLuaError splits a Lua message of the form `[string "..."]:12: boom` into
// its line and message.
func newLuaError(errType, source, raw string, underlying error) *LuaError {
	line := 0
	message := strings.TrimSpace(raw)
	if first := strings.SplitN(message, "\n", 2); len(first) > 0 {
		parts := strings.SplitN(first[0], ":", 3)
		if len(parts) == 3 {
			if n, err := fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &line); err == nil && n == 1 {
				message = strings.TrimSpace(parts[2])
			} else {
				line = 0
			}
		}
	}
	return &LuaError{Type: errType, Message: message, Line: line, Source: source, Underlying: underlying}
}

// LuaEngine owns one sandboxed Lua state. All access goes through the state
// mutex; script output is captured into a ring channel.
type LuaEngine struct {
	state      *lua.State
	stateMutex sync.Mutex
	logger     *logrus.Logger
	scriptCode string
	scriptName string
	outputChan *ringchan.RingChannel[LuaOutputRecord]

	// execCtx is the context of the script currently running. Only read while
	// stateMutex is held.
	execCtx context.Context
}

// NewLuaEngine creates an engine with print and io.write captured.
func NewLuaEngine(logger *logrus.Logger) *LuaEngine {
	engine := &LuaEngine{
		logger:     logger,
		outputChan: ringchan.New[LuaOutputRecord](DefaultOutputCapacity),
		execCtx:    context.Background(),
	}
	engine.Reset()

	logger.Debug("Lua engine initialized")
	return engine
}

// DoWithState runs callback with exclusive access to the Lua state. It returns
// nil once the engine is closed.
func (e *LuaEngine) DoWithState(callback func(*lua.State) interface{}) interface{} {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	if e.state == nil {
		return nil
	}
	return callback(e.state)
}

// Context returns the context of the running script. Go functions called
// from Lua use it for blocking work.
func (e *LuaEngine) Context() context.Context {
	return e.execCtx
}

// OutputChannel returns the output channel
func (e *LuaEngine) OutputChannel() <-chan LuaOutputRecord {
	return e.outputChan.C()
}

func (e *LuaEngine) emit(source, content string) {
	if e.outputChan.Send(LuaOutputRecord{Content: content, Timestamp: time.Now(), Source: source}) {
		e.logger.WithField("source", source).Debug("Lua output overflow, oldest record dropped")
	}
}

// SafeWrapGoFunction wraps fn so a Go panic becomes a Lua error instead of
// unwinding through the C stack. Errors raised on purpose pass through.
func (e *LuaEngine) SafeWrapGoFunction(name string, fn func(*lua.State) int) lua.LuaGoFunction {
	return func(L *lua.State) (ret int) {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(*lua.LuaError); ok {
					panic(r)
				}
				e.logger.WithFields(logrus.Fields{
					"function": name,
					"panic":    r,
				}).Error("Go function panicked inside Lua call")
				L.RaiseError(fmt.Sprintf("%s: internal error: %v", name, r))
			}
		}()
		return fn(L)
	}
}

// tostring renders the value at idx the way Lua's print does.
func tostring(L *lua.State, idx int) string {
	switch {
	case L.IsNil(idx):
		return "nil"
	case L.IsBoolean(idx):
		if L.ToBoolean(idx) {
			return "true"
		}
		return "false"
	case L.Type(idx) == lua.LUA_TNUMBER:
		return fmt.Sprintf("%v", L.ToNumber(idx))
	case L.Type(idx) == lua.LUA_TSTRING:
		return L.ToString(idx)
	default:
		L.GetGlobal("tostring")
		L.PushValue(idx)
		L.Call(1, 1)
		s := L.ToString(-1)
		L.Pop(1)
		return s
	}
}

func (e *LuaEngine) registerOutputCaptureInternal(L *lua.State) {
	L.PushGoFunction(func(L *lua.State) int {
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, tostring(L, i))
		}
		e.emit("stdout", strings.Join(parts, "\t")+"\n")
		return 0
	})
	L.SetGlobal("print")

	// io.write does not add separators or a newline
	L.GetGlobal("io")
	L.PushGoFunction(func(L *lua.State) int {
		var b strings.Builder
		for i := 1; i <= L.GetTop(); i++ {
			b.WriteString(tostring(L, i))
		}
		if b.Len() > 0 {
			e.emit("stdout", b.String())
		}
		return 0
	})
	L.SetField(-2, "write")
	L.Pop(1)
}

func (e *LuaEngine) sandboxInternal(L *lua.State) {
	for _, name := range blockedFunctions {
		msg := name + " is blocked"
		blocked := func(L *lua.State) int {
			L.RaiseError(msg)
			return 0
		}
		if lib, fn, ok := strings.Cut(name, "."); ok {
			L.GetGlobal(lib)
			if L.IsTable(-1) {
				L.PushGoFunction(blocked)
				L.SetField(-2, fn)
			}
			L.Pop(1)
			continue
		}
		L.PushGoFunction(blocked)
		L.SetGlobal(name)
	}
}

// cancelHook aborts the running chunk once its context is done.
func (e *LuaEngine) cancelHook(L *lua.State) {
	if err := e.execCtx.Err(); err != nil {
		L.RaiseError("script cancelled: " + err.Error())
	}
}

// LoadScriptFile loads a Lua script from a file
func (e *LuaEngine) LoadScriptFile(filename string) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read script %s: %w", filename, err)
	}
	return e.LoadScript(string(content), filename)
}

// LoadScript compiles script without running it and keeps it for ExecuteScript.
func (e *LuaEngine) LoadScript(script, name string) error {
	if script == "" {
		return &LuaError{Type: "api", Message: "empty script", Source: name}
	}

	var loadErr error
	e.DoWithState(func(L *lua.State) interface{} {
		status := L.LoadString(script)
		msg := ""
		if status != 0 {
			msg = L.ToString(-1)
		}
		L.Pop(1)
		if status != 0 {
			luaErr := newLuaError("syntax", name, msg, nil)
			e.emit("stderr", fmt.Sprintf("Lua syntax error: %s\n", luaErr.Message))
			loadErr = luaErr
		}
		return nil
	})
	if loadErr != nil {
		return loadErr
	}

	e.scriptCode = script
	e.scriptName = name
	return nil
}

// ExecuteScript runs script, or the loaded script when script is empty. A
// done ctx aborts the script and its error is returned.
func (e *LuaEngine) ExecuteScript(ctx context.Context, script string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if script != "" {
		if err := e.LoadScript(script, "ad-hoc script"); err != nil {
			return err
		}
	}
	if e.scriptCode == "" {
		return &LuaError{Type: "api", Message: "no script loaded"}
	}

	var execErr error
	res := e.DoWithState(func(L *lua.State) interface{} {
		e.execCtx = ctx
		defer func() { e.execCtx = context.Background() }()

		if err := L.DoString(e.scriptCode); err != nil {
			if ctx.Err() != nil {
				execErr = ctx.Err()
				return nil
			}
			luaErr := newLuaError("runtime", e.scriptName, err.Error(), err)
			e.emit("stderr", fmt.Sprintf("Lua runtime error: %s\n", luaErr.Message))
			execErr = luaErr
		}
		return true
	})
	if res == nil && execErr == nil {
		return errors.New("lua state not initialized")
	}
	return execErr
}

// CallFunction calls a global Lua function without arguments.
func (e *LuaEngine) CallFunction(ctx context.Context, functionName string) error {
	var funcErr error
	res := e.DoWithState(func(L *lua.State) interface{} {
		L.GetGlobal(functionName)
		if !L.IsFunction(-1) {
			L.Pop(1)
			funcErr = fmt.Errorf("function %s not found or not a function", functionName)
			return nil
		}

		e.execCtx = ctx
		defer func() { e.execCtx = context.Background() }()
		if err := L.Call(0, 0); err != nil {
			if ctx.Err() != nil {
				funcErr = ctx.Err()
				return nil
			}
			funcErr = newLuaError("runtime", functionName, err.Error(), err)
		}
		return nil
	})
	if res == nil && funcErr == nil && e.closed() {
		return errors.New("lua state not initialized")
	}
	return funcErr
}

func (e *LuaEngine) closed() bool {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()
	return e.state == nil
}

// SetGlobal sets a global variable in the Lua state
func (e *LuaEngine) SetGlobal(name string, value interface{}) error {
	res := e.DoWithState(func(state *lua.State) any {
		switch v := value.(type) {
		case string:
			state.PushString(v)
		case int:
			state.PushInteger(int64(v))
		case int64:
			state.PushInteger(v)
		case float64:
			state.PushNumber(v)
		case bool:
			state.PushBoolean(v)
		case map[string]string:
			state.NewTable()
			for k, s := range v {
				state.PushString(s)
				state.SetField(-2, k)
			}
		default:
			return fmt.Errorf("unsupported type for global variable %s", name)
		}

		state.SetGlobal(name)
		return nil
	})

	if err, ok := res.(error); ok {
		return err
	}
	return nil
}

// GetGlobal reads a string, number or boolean global. Anything else is nil.
func (e *LuaEngine) GetGlobal(name string) interface{} {
	return e.DoWithState(func(state *lua.State) any {
		state.GetGlobal(name)
		defer state.Pop(1)

		switch state.Type(-1) {
		case lua.LUA_TSTRING:
			return state.ToString(-1)
		case lua.LUA_TNUMBER:
			return state.ToNumber(-1)
		case lua.LUA_TBOOLEAN:
			return state.ToBoolean(-1)
		default:
			return nil
		}
	})
}

func (e *LuaEngine) resetInternal() {
	if e.state != nil {
		e.state.Close()
	}

	e.state = lua.NewState()
	e.state.OpenLibs()

	e.registerOutputCaptureInternal(e.state)
	e.sandboxInternal(e.state)
	e.state.SetHook(e.cancelHook, hookInstructions)
	e.scriptCode = ""
	e.scriptName = ""
}

// Reset recreates the Lua state. Globals registered by APIs are gone afterwards.
func (e *LuaEngine) Reset() {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()
	e.resetInternal()
}

// Close releases the Lua state. Calls after Close are no-ops.
func (e *LuaEngine) Close() {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	if e.state != nil {
		e.state.Close()
		e.state = nil
	}
}
