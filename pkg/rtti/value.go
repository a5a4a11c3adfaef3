package rtti

import (
	"encoding/binary"
	"math"
)

// Allocator hands out zeroed, aligned memory for native values. It returns
// nil when it cannot serve the request.
type Allocator interface {
	Alloc(size, align int) []byte
}

// Heap allocates from the Go heap. It never fails.
var Heap Allocator = heap{}

type heap struct{}

func (heap) Alloc(size, _ int) []byte {
	return make([]byte, size)
}

// Value is a typed native value: the fixed-size slot of its type in Data and,
// for reference kinds, the referenced payload in Ref. A Value without Data
// is empty.
type Value struct {
	Type *Type
	Data []byte
	Ref  any
}

// Array is the payload of an array value.
type Array struct {
	Elem  *Type
	Items []Value
}

// Len returns the number of items.
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.Items)
}

// Clone deep-copies the array onto the heap.
func (a *Array) Clone() *Array {
	if a == nil {
		return nil
	}
	out := &Array{Elem: a.Elem, Items: make([]Value, len(a.Items))}
	for i, item := range a.Items {
		out.Items[i] = item.Clone()
	}
	return out
}

// NewValue allocates a zero value of t from alloc. The result is empty if
// alloc is exhausted.
func NewValue(t *Type, alloc Allocator) Value {
	if t == nil {
		return Value{}
	}
	data := alloc.Alloc(t.Size, t.Align)
	if data == nil {
		return Value{}
	}
	v := Value{Type: t, Data: data}
	switch t.Kind {
	case KindString:
		v.Ref = ""
	case KindArray:
		v.Ref = &Array{Elem: t.Elem}
	}
	return v
}

// IsValid reports whether the value has storage.
func (v Value) IsValid() bool {
	return v.Data != nil
}

// Clone copies the value onto the heap so it outlives the allocator it came
// from.
func (v Value) Clone() Value {
	if !v.IsValid() {
		return v
	}
	out := Value{Type: v.Type, Data: append([]byte(nil), v.Data...), Ref: v.Ref}
	if arr, ok := v.Ref.(*Array); ok {
		out.Ref = arr.Clone()
	}
	return out
}

// Bool returns the value of a Bool.
func (v Value) Bool() bool {
	return len(v.Data) > 0 && v.Data[0] != 0
}

// Int returns the value of any integer kind as int64.
func (v Value) Int() int64 {
	switch v.Type.Kind {
	case KindInt8:
		return int64(int8(v.Data[0]))
	case KindInt16:
		return int64(int16(binary.LittleEndian.Uint16(v.Data)))
	case KindInt32:
		return int64(int32(binary.LittleEndian.Uint32(v.Data)))
	case KindInt64:
		return int64(binary.LittleEndian.Uint64(v.Data))
	}
	return int64(v.Uint())
}

// Uint returns the value of any integer kind as uint64.
func (v Value) Uint() uint64 {
	switch v.Type.Kind {
	case KindUint8, KindInt8, KindBool:
		return uint64(v.Data[0])
	case KindUint16, KindInt16:
		return uint64(binary.LittleEndian.Uint16(v.Data))
	case KindUint32, KindInt32:
		return uint64(binary.LittleEndian.Uint32(v.Data))
	case KindUint64, KindInt64, KindCName:
		return binary.LittleEndian.Uint64(v.Data)
	}
	return 0
}

// Float returns the value of a Float or Double. Integer kinds convert.
func (v Value) Float() float64 {
	switch v.Type.Kind {
	case KindFloat:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(v.Data)))
	case KindDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(v.Data))
	}
	if v.Type.IsUnsigned() {
		return float64(v.Uint())
	}
	return float64(v.Int())
}

// Text returns the value of a String.
func (v Value) Text() string {
	s, _ := v.Ref.(string)
	return s
}

// Name returns the value of a CName.
func (v Value) Name() CName {
	return NameFromHash(v.Uint())
}

// Handle returns the instance referenced by a Handle, or nil.
func (v Value) Handle() *Instance {
	inst, _ := v.Ref.(*Instance)
	return inst
}

// Array returns the payload of an Array.
func (v Value) Array() *Array {
	arr, _ := v.Ref.(*Array)
	return arr
}

// SetBool stores b.
func (v *Value) SetBool(b bool) {
	if b {
		v.Data[0] = 1
	} else {
		v.Data[0] = 0
	}
}

// SetInt stores n truncated to the width of the value's integer kind.
func (v *Value) SetInt(n int64) {
	v.SetUint(uint64(n))
}

// SetUint stores n truncated to the width of the value's integer kind.
func (v *Value) SetUint(n uint64) {
	switch v.Type.Size {
	case 1:
		v.Data[0] = byte(n)
	case 2:
		binary.LittleEndian.PutUint16(v.Data, uint16(n))
	case 4:
		binary.LittleEndian.PutUint32(v.Data, uint32(n))
	case 8:
		binary.LittleEndian.PutUint64(v.Data, n)
	}
}

// SetFloat stores f in a Float or Double.
func (v *Value) SetFloat(f float64) {
	switch v.Type.Kind {
	case KindFloat:
		binary.LittleEndian.PutUint32(v.Data, math.Float32bits(float32(f)))
	case KindDouble:
		binary.LittleEndian.PutUint64(v.Data, math.Float64bits(f))
	}
}

// SetText stores s in a String.
func (v *Value) SetText(s string) {
	v.Ref = s
}

// SetName stores n in a CName.
func (v *Value) SetName(n CName) {
	binary.LittleEndian.PutUint64(v.Data, n.Hash)
}

// SetHandle stores a reference to inst in a Handle.
func (v *Value) SetHandle(inst *Instance) {
	if inst == nil {
		v.Ref = nil
		return
	}
	v.Ref = inst
}

// SetArray stores arr in an Array.
func (v *Value) SetArray(arr *Array) {
	v.Ref = arr
}
