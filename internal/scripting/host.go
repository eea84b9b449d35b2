package scripting

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Shopify/go-lua"
	"github.com/aretw0/fable/internal/logging"
	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/registry"
	"github.com/mitchellh/mapstructure"
)

// DefaultCheckpoint is the number of VM instructions between cancellation checks.
const DefaultCheckpoint = 1000

// Env carries the per-run environment supplied by the caller.
type Env struct {
	SessionID string
	Services  ServiceProvider
	// Unsafe lets the script reach services that are not script-accessible.
	Unsafe bool
}

// Host compiles and runs Lua scripts against session services.
// A Host is safe for concurrent use; every run gets its own Lua state.
type Host struct {
	capabilities *registry.Registry[Capability]
	checkpoint   int
	hooks        domain.LifecycleHooks
	logger       *slog.Logger

	mu    sync.Mutex
	cache map[string]*Script
}

// Option configures the Host.
type Option func(*Host)

// WithLogger configures a logger for the Host. Script log calls go to it too.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithLifecycleHooks configures observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(h *Host) {
		h.hooks = hooks
	}
}

// WithCheckpoint sets how many instructions run between cancellation checks.
func WithCheckpoint(n int) Option {
	return func(h *Host) {
		if n > 0 {
			h.checkpoint = n
		}
	}
}

// WithCapabilities replaces the default capability table.
func WithCapabilities(capabilities *registry.Registry[Capability]) Option {
	return func(h *Host) {
		h.capabilities = capabilities
	}
}

// NewHost creates a script host with the default capability table.
func NewHost(opts ...Option) *Host {
	h := &Host{
		capabilities: DefaultCapabilities(),
		checkpoint:   DefaultCheckpoint,
		logger:       logging.NewNop(),
		cache:        make(map[string]*Script),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Capabilities returns the capability table used by new resolvers.
func (h *Host) Capabilities() *registry.Registry[Capability] {
	return h.capabilities
}

// CreateScript compiles src into a script bound to shape.
func (h *Host) CreateScript(name, src string, shape Shape) (*Script, error) {
	if name == "" {
		return nil, domain.ErrEmptyScriptName
	}
	bytecode, err := compileLua(name, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrScriptCompile, name, err)
	}
	return &Script{name: name, shape: shape, bytecode: bytecode}, nil
}

// CompileCached is CreateScript with a cache keyed by name, shape and source digest.
func (h *Host) CompileCached(name, src string, shape Shape) (*Script, error) {
	sum := sha256.Sum256([]byte(src))
	key := fmt.Sprintf("%s|%d|%s", name, shape, hex.EncodeToString(sum[:]))

	h.mu.Lock()
	script, ok := h.cache[key]
	h.mu.Unlock()
	if ok {
		return script, nil
	}

	script, err := h.CreateScript(name, src, shape)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.cache[key] = script
	h.mu.Unlock()
	return script, nil
}

// Run executes a bare script.
func (h *Host) Run(ctx context.Context, script *Script, env Env) error {
	if err := checkShape(script, ShapeBare); err != nil {
		return err
	}
	_, err := h.run(ctx, script, env, nil, nil)
	return err
}

// RunWithInput executes a script that receives input as context.input.
func (h *Host) RunWithInput(ctx context.Context, script *Script, env Env, input any) error {
	if err := checkShape(script, ShapeInput); err != nil {
		return err
	}
	if input == nil {
		return fmt.Errorf("%w: %s requires input", domain.ErrUnexpectedScriptContextType, script.name)
	}
	_, err := h.run(ctx, script, env, input, nil)
	return err
}

// RunWithOutput executes a script that receives input and fills the global "output".
// The output starts as the zero value of Out.
func RunWithOutput[Out any](ctx context.Context, h *Host, script *Script, env Env, input any) (Out, error) {
	var out Out
	if err := checkShape(script, ShapeInputOutput); err != nil {
		return out, err
	}
	if input == nil {
		return out, fmt.Errorf("%w: %s requires input", domain.ErrUnexpectedScriptContextType, script.name)
	}

	raw, err := h.run(ctx, script, env, input, out)
	if err != nil {
		return out, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(raw); err != nil {
		return out, &domain.RuntimeScriptError{Script: script.name, Err: fmt.Errorf("bad output: %w", err)}
	}
	return out, nil
}

func checkShape(script *Script, want Shape) error {
	if script == nil {
		return fmt.Errorf("%w: nil script", domain.ErrUnexpectedScriptContextType)
	}
	if script.shape != want {
		return fmt.Errorf("%w: %s was created for %s, run as %s",
			domain.ErrUnexpectedScriptContextType, script.name, script.shape, want)
	}
	return nil
}

// run executes the script and returns the final value of the "output" global
// when output is non-nil.
func (h *Host) run(ctx context.Context, script *Script, env Env, input, output any) (result any, err error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.RuntimeScriptError{Script: script.name, Err: err}
	}

	var plainInput, plainOutput any
	if input != nil {
		if plainInput, err = toPlain(input); err != nil {
			return nil, err
		}
	}
	if script.shape != ShapeBare && plainInput == nil {
		return nil, fmt.Errorf("%w: %s requires input", domain.ErrUnexpectedScriptContextType, script.name)
	}
	if script.shape == ShapeInputOutput {
		if plainOutput, err = toPlain(output); err != nil {
			return nil, err
		}
	}

	var resolver *Resolver
	if env.Unsafe {
		resolver, err = NewUnsafeResolver(env.Services, h.capabilities)
	} else {
		resolver, err = NewResolver(env.Services, h.capabilities)
	}
	if err != nil {
		return nil, err
	}
	defer resolver.Release()

	sc := newContext(script, env, resolver)
	sc.Input = plainInput
	sc.Output = plainOutput

	start := time.Now()
	defer func() {
		h.finish(ctx, sc, time.Since(start), err)
	}()

	L := lua.NewState()
	setupSandbox(L)
	guardProtectedCalls(ctx, L)
	binder := &Binder{L: L, ctx: ctx}
	sc.push(L, script.shape)
	h.installLog(ctx, L, sc)
	installServices(binder, resolver, h.capabilities)

	lua.SetDebugHook(L, func(L *lua.State, _ lua.Debug) {
		if ctx.Err() != nil {
			lua.Errorf(L, "script cancelled: %s", ctx.Err().Error())
		}
	}, lua.MaskCount, h.checkpoint)

	if err := h.call(L, script); err != nil {
		joined := append([]error{err}, binder.errs...)
		if ctxErr := ctx.Err(); ctxErr != nil {
			joined = append(joined, ctxErr)
		}
		return nil, &domain.RuntimeScriptError{Script: script.name, Err: errors.Join(joined...)}
	}

	if script.shape != ShapeInputOutput {
		return nil, nil
	}
	L.Global("output")
	result = luaToGo(L, -1)
	L.Pop(1)
	return result, nil
}

// call loads and runs the bytecode, converting Go panics into errors.
func (h *Host) call(L *lua.State, script *Script) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := L.Load(bytes.NewReader(script.bytecode), script.name, "b"); err != nil {
		return err
	}
	return L.ProtectedCall(0, 0, 0)
}

func (h *Host) finish(ctx context.Context, sc *Context, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("script failed", "script", sc.ScriptName, "run_id", sc.RunID, "duration", d, "error", err)
	} else {
		h.logger.Debug("script finished", "script", sc.ScriptName, "run_id", sc.RunID, "duration", d)
	}
	if h.hooks.OnScriptRun != nil {
		h.hooks.OnScriptRun(ctx, &domain.ScriptEvent{
			EventBase: domain.EventBase{
				Timestamp: time.Now(),
				Type:      domain.EventScriptRun,
				SessionID: sc.SessionID,
			},
			Script:   sc.ScriptName,
			Duration: d,
			IsError:  err != nil,
		})
	}
}

func (h *Host) installLog(ctx context.Context, L *lua.State, sc *Context) {
	logger := h.logger.With("script", sc.ScriptName, "run_id", sc.RunID)
	if sc.SessionID != "" {
		logger = logger.With("session_id", sc.SessionID)
	}

	level := func(lvl slog.Level) lua.Function {
		return func(L *lua.State) int {
			msg := lua.CheckString(L, 1)
			var args []any
			if L.TypeOf(2) == lua.TypeTable {
				attrs, _ := luaToGo(L, 2).(map[string]any)
				keys := make([]string, 0, len(attrs))
				for k := range attrs {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					args = append(args, k, attrs[k])
				}
			}
			logger.Log(ctx, lvl, msg, args...)
			return 0
		}
	}

	L.NewTable()
	lua.SetFunctions(L, []lua.RegistryFunction{
		{Name: "debug", Function: level(slog.LevelDebug)},
		{Name: "info", Function: level(slog.LevelInfo)},
		{Name: "warn", Function: level(slog.LevelWarn)},
		{Name: "error", Function: level(slog.LevelError)},
	}, 0)
	L.SetGlobal("log")

	L.Register("print", func(L *lua.State) int {
		n := L.Top()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, fmt.Sprint(luaToGo(L, i)))
		}
		logger.InfoContext(ctx, strings.Join(parts, "\t"))
		return 0
	})
}

func installServices(b *Binder, resolver *Resolver, capabilities *registry.Registry[Capability]) {
	L := b.L
	L.NewTable()
	lua.SetFunctions(L, []lua.RegistryFunction{
		{Name: "get", Function: func(L *lua.State) int {
			name := lua.CheckString(L, 1)
			svc, err := resolver.GetService(name)
			if err != nil {
				return b.Fail(err)
			}
			capability, _ := capabilities.Get(name)
			if capability.Bind == nil {
				return b.Fail(fmt.Errorf("%w: %s has no script binding", domain.ErrServiceNotFound, name))
			}
			if err := capability.Bind(b, svc); err != nil {
				return b.Fail(err)
			}
			return 1
		}},
	}, 0)
	L.SetGlobal("services")
}
