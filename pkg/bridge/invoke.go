package bridge

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/daimatz/rttiproxy/pkg/rtti"
)

// returnBufferSize bounds the size of a return value.
const returnBufferSize = 1000

// returnBuffer backs the return slot of one call.
type returnBuffer [returnBufferSize]byte

func (rb *returnBuffer) Alloc(size, _ int) []byte {
	if size < 0 || size > len(rb) {
		return nil
	}
	return rb[:size:size]
}

// Execute calls fn with the script arguments args on p's instance.
//
// Out parameters get a zeroed slot, supplied arguments are converted to the
// declared type, missing optional parameters stay empty. A missing or
// unconvertible required parameter aborts the call with a *BindingError.
// If the native call itself fails, Execute returns no results and no error.
// Otherwise the results are the return value, if any, followed by every out
// parameter in declaration order.
func (p *Proxy) Execute(fn *rtti.Function, name string, args []lua.LValue) ([]lua.LValue, error) {
	scratch, release := p.b.callArenas.Scoped()
	defer release()

	frameArgs := make([]rtti.Value, len(fn.Params))
	for i, param := range fn.Params {
		switch {
		case param.IsOut:
			frameArgs[i] = rtti.NewValue(param.Type, scratch)
		case i < len(args):
			frameArgs[i] = p.b.FromLua(args[i], param.Type, scratch)
		case param.IsOptional:
			frameArgs[i] = rtti.Value{}
		}

		if !frameArgs[i].IsValid() && !param.IsOptional {
			return nil, &BindingError{Function: name, Index: i, Type: param.Type.GetName()}
		}
	}

	var (
		buf    returnBuffer
		result *rtti.Value
	)
	if fn.HasReturn() {
		ret := rtti.NewValue(fn.ReturnType, &buf)
		if !ret.IsValid() {
			return nil, fmt.Errorf("function '%s' returns %s: %w", name, fn.ReturnType.GetName(), ErrReturnTooLarge)
		}
		result = &ret
	}

	// Functions that do not touch their receiver can still be reached
	// through a proxy without an instance; they run on the global one.
	handle := p.handle
	if handle == nil {
		handle = p.b.sys.GlobalInstance()
	}

	frame := rtti.NewFrame(handle, frameArgs, result)
	if !fn.Execute(frame) {
		return nil, nil
	}

	results := make([]lua.LValue, 0, len(fn.Params)+1)
	if result != nil {
		results = append(results, p.b.ToLua(*result))
	}
	for i, param := range fn.Params {
		if !param.IsOut {
			continue
		}
		results = append(results, p.b.ToLua(frameArgs[i]))
	}
	return results, nil
}
