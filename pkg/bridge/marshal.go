package bridge

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/daimatz/rttiproxy/pkg/rtti"
)

// ToLua converts a native value. Empty values and null handles become nil;
// handles become proxies of the instance's own class.
func (b *Bridge) ToLua(v rtti.Value) lua.LValue {
	if !v.IsValid() || v.Type == nil {
		return lua.LNil
	}
	t := v.Type
	switch {
	case t.Kind == rtti.KindBool:
		return lua.LBool(v.Bool())
	case t.IsSigned():
		return lua.LNumber(v.Int())
	case t.IsUnsigned():
		return lua.LNumber(v.Uint())
	}
	switch t.Kind {
	case rtti.KindFloat, rtti.KindDouble:
		return lua.LNumber(v.Float())
	case rtti.KindString:
		return lua.LString(v.Text())
	case rtti.KindCName:
		return lua.LString(v.Name().Str)
	case rtti.KindHandle:
		return b.Wrap(v.Handle())
	case rtti.KindArray:
		tbl := b.L.NewTable()
		if arr := v.Array(); arr != nil {
			for _, item := range arr.Items {
				tbl.Append(b.ToLua(item))
			}
		}
		return tbl
	}
	return lua.LNil
}

// FromLua converts lv to a value of type t with storage from alloc. The
// result is empty when lv does not fit t or alloc is exhausted.
func (b *Bridge) FromLua(lv lua.LValue, t *rtti.Type, alloc rtti.Allocator) rtti.Value {
	if t == nil || lv == nil {
		return rtti.Value{}
	}

	switch {
	case t.Kind == rtti.KindBool:
		bv, ok := lv.(lua.LBool)
		if !ok {
			return rtti.Value{}
		}
		return fill(t, alloc, func(v *rtti.Value) { v.SetBool(bool(bv)) })
	case t.IsSigned():
		n, ok := lv.(lua.LNumber)
		if !ok || !fitsInteger(float64(n), t) {
			return rtti.Value{}
		}
		return fill(t, alloc, func(v *rtti.Value) { v.SetInt(int64(n)) })
	case t.IsUnsigned():
		n, ok := lv.(lua.LNumber)
		if !ok || !fitsInteger(float64(n), t) {
			return rtti.Value{}
		}
		return fill(t, alloc, func(v *rtti.Value) { v.SetUint(uint64(n)) })
	}

	switch t.Kind {
	case rtti.KindFloat, rtti.KindDouble:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return rtti.Value{}
		}
		return fill(t, alloc, func(v *rtti.Value) { v.SetFloat(float64(n)) })
	case rtti.KindString:
		s, ok := lv.(lua.LString)
		if !ok {
			return rtti.Value{}
		}
		return fill(t, alloc, func(v *rtti.Value) { v.SetText(string(s)) })
	case rtti.KindCName:
		s, ok := lv.(lua.LString)
		if !ok {
			return rtti.Value{}
		}
		return fill(t, alloc, func(v *rtti.Value) { v.SetName(rtti.NewCName(string(s))) })
	case rtti.KindHandle:
		return b.handleFromLua(lv, t, alloc)
	case rtti.KindArray:
		return b.arrayFromLua(lv, t, alloc)
	}
	return rtti.Value{}
}

func (b *Bridge) handleFromLua(lv lua.LValue, t *rtti.Type, alloc rtti.Allocator) rtti.Value {
	if lv == lua.LNil {
		return rtti.NewValue(t, alloc)
	}
	p, ok := toProxy(lv)
	if !ok || p.handle == nil || !p.handle.Class.IsA(t.Class) {
		return rtti.Value{}
	}
	return fill(t, alloc, func(v *rtti.Value) { v.SetHandle(p.handle) })
}

func (b *Bridge) arrayFromLua(lv lua.LValue, t *rtti.Type, alloc rtti.Allocator) rtti.Value {
	tbl, ok := lv.(*lua.LTable)
	if !ok {
		return rtti.Value{}
	}
	n := tbl.Len()
	arr := &rtti.Array{Elem: t.Elem, Items: make([]rtti.Value, n)}
	for i := 1; i <= n; i++ {
		item := b.FromLua(tbl.RawGetInt(i), t.Elem, alloc)
		if !item.IsValid() {
			return rtti.Value{}
		}
		arr.Items[i-1] = item
	}
	return fill(t, alloc, func(v *rtti.Value) { v.SetArray(arr) })
}

// fitsInteger reports whether n truncates to a value representable by the
// integer type t. NaN and infinities never fit.
func fitsInteger(n float64, t *rtti.Type) bool {
	bits := t.Size * 8
	n = math.Trunc(n)
	if t.IsSigned() {
		limit := math.Ldexp(1, bits-1)
		return n >= -limit && n < limit
	}
	return n >= 0 && n < math.Ldexp(1, bits)
}

func fill(t *rtti.Type, alloc rtti.Allocator, set func(*rtti.Value)) rtti.Value {
	v := rtti.NewValue(t, alloc)
	if !v.IsValid() {
		return v
	}
	set(&v)
	return v
}
