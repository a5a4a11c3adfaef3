package bridge

import (
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/daimatz/rttiproxy/pkg/rtti"
)

const proxyTypeName = "rttiproxy.Proxy"

// Proxy is the script-side view of one native instance of one class. The
// class and the instance are borrowed; a nil handle stands for calls that
// have no receiver of their own.
type Proxy struct {
	b      *Bridge
	class  *rtti.Class
	handle *rtti.Instance
	fields map[string]lua.LValue
}

// NewProxy creates a proxy of class for handle. handle may be nil.
func (b *Bridge) NewProxy(class *rtti.Class, handle *rtti.Instance) *Proxy {
	return &Proxy{
		b:      b,
		class:  class,
		handle: handle,
		fields: make(map[string]lua.LValue),
	}
}

// Wrap returns a userdata proxy for handle, or nil for a nil handle.
func (b *Bridge) Wrap(handle *rtti.Instance) lua.LValue {
	if handle == nil {
		return lua.LNil
	}
	return b.NewProxy(handle.Class, handle).UserData()
}

// Class returns the proxied class.
func (p *Proxy) Class() *rtti.Class {
	return p.class
}

// Handle returns the proxied instance, or nil.
func (p *Proxy) Handle() *rtti.Instance {
	return p.handle
}

// Name returns the class name, or "" when there is no class.
func (p *Proxy) Name() string {
	if p.class == nil || p.class.Name.IsEmpty() {
		return ""
	}
	return p.class.Name.Str
}

// UserData wraps p for the Lua state of its bridge.
func (p *Proxy) UserData() *lua.LUserData {
	ud := p.b.L.NewUserData()
	ud.Value = p
	p.b.L.SetMetatable(ud, p.b.L.GetTypeMetatable(proxyTypeName))
	return ud
}

func (p *Proxy) exposesProperties() bool {
	return p.handle != nil && p.class != nil && p.class.IsA(p.b.scriptable())
}

// Index resolves name: a native property, then a field stored on the proxy,
// then a native function, which is returned as a closure and stored on the
// proxy for the next lookup. It returns LNil when nothing matches.
func (p *Proxy) Index(name string) lua.LValue {
	if p.exposesProperties() {
		if prop := p.b.resolver.Property(p.class, name); prop != nil {
			return p.b.ToLua(prop.Get(p.handle))
		}
	}

	if v, ok := p.fields[name]; ok {
		return v
	}

	return p.indexFunction(name)
}

func (p *Proxy) indexFunction(name string) lua.LValue {
	if p.class == nil {
		return lua.LNil
	}
	fn := p.b.resolver.Function(p.class, name)
	if fn == nil {
		return lua.LNil
	}
	return p.NewIndex(name, p.b.L.NewFunction(p.b.methodClosure(fn, name)))
}

// NewIndex stores value under name. When name is a native property of the
// instance the value is converted and written to the instance; otherwise it
// becomes a field of the proxy.
func (p *Proxy) NewIndex(name string, value lua.LValue) lua.LValue {
	if p.exposesProperties() {
		if prop := p.b.resolver.Property(p.class, name); prop != nil {
			if err := p.setProperty(prop, value); err != nil {
				p.b.logger.Error("Error: "+err.Error(), slog.String("class", p.Name()), slog.String("property", name))
			}
			return value
		}
	}

	p.fields[name] = value
	return value
}

func (p *Proxy) setProperty(prop *rtti.Property, value lua.LValue) error {
	scratch, release := p.b.propArenas.Scoped()
	defer release()

	v := p.b.FromLua(value, prop.Type, scratch)
	if !v.IsValid() {
		return &PropertyError{Class: p.Name(), Property: prop.Name.Str, Type: prop.Type.GetName()}
	}
	return prop.Set(p.handle, v)
}

// methodClosure returns the Lua function bound to fn. Its first argument is
// the receiving proxy; the rest are the call arguments.
func (b *Bridge) methodClosure(fn *rtti.Function, name string) lua.LGFunction {
	return func(L *lua.LState) int {
		self, ok := toProxy(L.Get(1))
		if !ok {
			b.logger.Error("Error: Function '"+name+"' called without its object, use ':' to call it.", slog.String("function", name))
			return 0
		}
		top := L.GetTop()
		args := make([]lua.LValue, 0, max(top-1, 0))
		for i := 2; i <= top; i++ {
			args = append(args, L.Get(i))
		}

		results, err := self.Execute(fn, name, args)
		if err != nil {
			b.logger.Error("Error: "+err.Error(), slog.String("class", self.Name()), slog.String("function", name))
		}
		for _, r := range results {
			L.Push(r)
		}
		return len(results)
	}
}

func toProxy(lv lua.LValue) (*Proxy, bool) {
	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	p, ok := ud.Value.(*Proxy)
	return p, ok
}

func checkProxy(L *lua.LState, n int) *Proxy {
	p, ok := toProxy(L.Get(n))
	if !ok {
		L.ArgError(n, "object expected")
	}
	return p
}

func (b *Bridge) registerMetatable() {
	mt := b.L.NewTypeMetatable(proxyTypeName)
	b.L.SetField(mt, "__index", b.L.NewFunction(func(L *lua.LState) int {
		p := checkProxy(L, 1)
		L.Push(p.Index(L.CheckString(2)))
		return 1
	}))
	b.L.SetField(mt, "__newindex", b.L.NewFunction(func(L *lua.LState) int {
		p := checkProxy(L, 1)
		p.NewIndex(L.CheckString(2), L.Get(3))
		return 0
	}))
	b.L.SetField(mt, "__tostring", b.L.NewFunction(func(L *lua.LState) int {
		p := checkProxy(L, 1)
		state := "null"
		if p.handle != nil {
			state = "instance"
		}
		L.Push(lua.LString(p.Name() + " (" + state + ")"))
		return 1
	}))
	b.L.SetField(mt, "__eq", b.L.NewFunction(func(L *lua.LState) int {
		a, aok := toProxy(L.Get(1))
		c, cok := toProxy(L.Get(2))
		L.Push(lua.LBool(aok && cok && a.class == c.class && a.handle == c.handle))
		return 1
	}))
}
