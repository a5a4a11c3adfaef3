package rtti

import "fmt"

// Frame is the argument frame of one native call: the receiver, one slot per
// declared parameter and, when the function returns a value, the return
// slot. Its storage is owned by the caller and is only valid during the call.
type Frame struct {
	Instance *Instance
	Args     []Value
	Result   *Value
}

// NewFrame creates a Frame. result is nil for functions without a return
// type.
func NewFrame(inst *Instance, args []Value, result *Value) *Frame {
	return &Frame{
		Instance: inst,
		Args:     args,
		Result:   result,
	}
}

// Arg returns the slot of parameter i. Out parameters are written through it.
func (f *Frame) Arg(i int) *Value {
	if i < 0 || i >= len(f.Args) {
		panic(fmt.Sprintf("argument index out of range: index=%d, max=%d", i, len(f.Args)))
	}
	return &f.Args[i]
}

// Has reports whether parameter i received a value. Optional parameters
// left out by the caller have no storage.
func (f *Frame) Has(i int) bool {
	return i >= 0 && i < len(f.Args) && f.Args[i].IsValid()
}

// ExpectsResult reports whether the caller provided a return slot.
func (f *Frame) ExpectsResult() bool {
	return f.Result != nil && f.Result.IsValid()
}
