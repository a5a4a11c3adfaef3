// Package bridge exposes native objects described by an rtti.System to Lua.
//
// Every native instance is wrapped in a Proxy userdata. Attribute access on
// the proxy resolves, in order, native properties, fields stored by scripts,
// and native functions. Resolved functions are returned as Lua closures that
// build an argument frame, run the native implementation and hand back its
// return value followed by its out parameters.
package bridge

import (
	"log/slog"
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/daimatz/rttiproxy/pkg/arena"
	"github.com/daimatz/rttiproxy/pkg/rtti"
)

// Arenas shared by every Bridge that does not ask for its own sizes.
var (
	propertyArenas = arena.NewPool(arena.PropertySize)
	callArenas     = arena.NewPool(arena.CallSize)
)

// Bridge binds one Lua state to a reflection catalog.
type Bridge struct {
	L        *lua.LState
	sys      *rtti.System
	logger   *slog.Logger
	resolver *Resolver

	scriptableName string
	propArenas     *arena.Pool
	callArenas     *arena.Pool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the sink for lookup failures and call errors.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithScriptableBase sets the base class whose descendants expose their
// properties. Defaults to rtti.ScriptableName.
func WithScriptableBase(name string) Option {
	return func(b *Bridge) {
		b.scriptableName = name
	}
}

// WithArenaSizes gives the bridge its own scratch arenas for property writes
// and function calls.
func WithArenaSizes(property, call int) Option {
	return func(b *Bridge) {
		b.propArenas = arena.NewPool(property)
		b.callArenas = arena.NewPool(call)
	}
}

// New creates a Bridge and registers the proxy metatable in L.
func New(L *lua.LState, sys *rtti.System, options ...Option) *Bridge {
	b := &Bridge{
		L:              L,
		sys:            sys,
		scriptableName: rtti.ScriptableName,
		propArenas:     propertyArenas,
		callArenas:     callArenas,
	}
	for _, opt := range options {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	b.resolver = NewResolver(b.logger)
	b.registerMetatable()
	return b
}

// System returns the catalog the bridge reads from.
func (b *Bridge) System() *rtti.System {
	return b.sys
}

// Logger returns the bridge's logger.
func (b *Bridge) Logger() *slog.Logger {
	return b.logger
}

// Resolver returns the member resolver.
func (b *Bridge) Resolver() *Resolver {
	return b.resolver
}

func (b *Bridge) scriptable() *rtti.Class {
	return b.sys.Class(b.scriptableName)
}
