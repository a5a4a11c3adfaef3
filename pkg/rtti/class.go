package rtti

import (
	"fmt"
	"strings"
)

// Class describes a reflected class: its own members and a link to its
// parent.
type Class struct {
	Name        CName
	Kind        Kind
	Parent      *Class
	Funcs       []*Function
	StaticFuncs []*Function
	Props       []*Property

	end    int
	align  int
	handle *Type
}

// ParentClass returns the parent if it is part of the reflected class
// hierarchy, nil otherwise.
func (c *Class) ParentClass() *Class {
	if c.Parent != nil && c.Parent.Kind == KindClass {
		return c.Parent
	}
	return nil
}

// Chain returns c followed by its reflected ancestors, most derived first.
func (c *Class) Chain() []*Class {
	var chain []*Class
	for cur := c; cur != nil; cur = cur.ParentClass() {
		chain = append(chain, cur)
	}
	return chain
}

// IsA reports whether c is other or derives from it.
func (c *Class) IsA(other *Class) bool {
	if other == nil {
		return false
	}
	for cur := c; cur != nil; cur = cur.Parent {
		if cur == other {
			return true
		}
	}
	return false
}

// HandleType returns the handle type referencing instances of c.
func (c *Class) HandleType() *Type {
	return c.handle
}

// Size returns the instance size in bytes, fields of ancestors included.
func (c *Class) Size() int {
	if c.Parent != nil {
		return max(c.end, c.Parent.Size())
	}
	return c.end
}

// Align returns the instance alignment.
func (c *Class) Align() int {
	a := max(c.align, 1)
	if c.Parent != nil {
		a = max(a, c.Parent.Align())
	}
	return a
}

// AddProperty appends a property of type t, laid out after every field
// already present in c and its ancestors. Ancestors must be complete before
// their descendants gain properties.
func (c *Class) AddProperty(name string, t *Type) *Property {
	align := max(t.Align, 1)
	offset := (c.Size() + align - 1) &^ (align - 1)
	p := &Property{Name: NewCName(name), Type: t, Offset: offset, Owner: c}
	c.Props = append(c.Props, p)
	c.end = offset + t.Size
	c.align = max(c.align, align)
	return p
}

// AddFunction appends an instance function.
func (c *Class) AddFunction(fn *Function) *Function {
	fn.Owner = c
	fn.Static = false
	c.Funcs = append(c.Funcs, fn)
	return fn
}

// AddStaticFunction appends a static function.
func (c *Class) AddStaticFunction(fn *Function) *Function {
	fn.Owner = c
	fn.Static = true
	c.StaticFuncs = append(c.StaticFuncs, fn)
	return fn
}

// OwnProperty returns the property declared on c itself.
func (c *Class) OwnProperty(hash uint64) *Property {
	for _, p := range c.Props {
		if p.Name.Hash == hash {
			return p
		}
	}
	return nil
}

// DebugString renders inst with every property of its class chain.
func (c *Class) DebugString(inst *Instance) string {
	var b strings.Builder
	b.WriteString(c.Name.Str)
	b.WriteString(" {\n")
	for _, cls := range c.Chain() {
		for _, p := range cls.Props {
			fmt.Fprintf(&b, "  %s: %s = %s\n", p.Name, p.Type.GetName(), formatValue(p.Get(inst)))
		}
	}
	b.WriteString("}")
	return b.String()
}

func formatValue(v Value) string {
	if !v.IsValid() {
		return "<invalid>"
	}
	switch v.Type.Kind {
	case KindBool:
		return fmt.Sprint(v.Bool())
	case KindFloat, KindDouble:
		return fmt.Sprint(v.Float())
	case KindString:
		return fmt.Sprintf("%q", v.Text())
	case KindCName:
		return v.Name().Str
	case KindHandle:
		if inst := v.Handle(); inst != nil {
			return "handle:" + inst.Class.Name.Str
		}
		return "null"
	case KindArray:
		arr := v.Array()
		items := make([]string, 0, arr.Len())
		if arr != nil {
			for _, item := range arr.Items {
				items = append(items, formatValue(item))
			}
		}
		return "[" + strings.Join(items, ", ") + "]"
	}
	if v.Type.IsUnsigned() {
		return fmt.Sprint(v.Uint())
	}
	return fmt.Sprint(v.Int())
}

// Param is a declared function parameter.
type Param struct {
	Name       CName
	Type       *Type
	IsOut      bool
	IsOptional bool
}

// NativeFunc implements a function. It reports false when execution failed.
type NativeFunc func(f *Frame) bool

// Function describes a reflected function. ShortName is shared between
// overloads; FullName is the decorated name and unique per class.
type Function struct {
	ShortName  CName
	FullName   CName
	Params     []*Param
	ReturnType *Type
	Static     bool
	Owner      *Class
	Native     NativeFunc
}

// NewFunction creates a function whose full name is derived from the short
// name and the parameter types, e.g. "Teleport;FloatFloat".
func NewFunction(shortName string, returnType *Type, params ...*Param) *Function {
	var full strings.Builder
	full.WriteString(shortName)
	full.WriteByte(';')
	for _, p := range params {
		full.WriteString(p.Type.GetName())
	}
	return &Function{
		ShortName:  NewCName(shortName),
		FullName:   NewCName(full.String()),
		Params:     params,
		ReturnType: returnType,
	}
}

// WithFullName overrides the derived full name.
func (fn *Function) WithFullName(full string) *Function {
	fn.FullName = NewCName(full)
	return fn
}

// Bind sets the implementation.
func (fn *Function) Bind(native NativeFunc) *Function {
	fn.Native = native
	return fn
}

// HasReturn reports whether the function declares a return type.
func (fn *Function) HasReturn() bool {
	return fn.ReturnType != nil
}

// Execute runs the implementation against f.
func (fn *Function) Execute(f *Frame) bool {
	if fn.Native == nil {
		return false
	}
	return fn.Native(f)
}

// Property is a field of a class instance.
type Property struct {
	Name   CName
	Type   *Type
	Offset int
	Owner  *Class
}

// Get returns the value stored in inst. The returned Data aliases the
// instance memory.
func (p *Property) Get(inst *Instance) Value {
	if inst == nil || p.Offset+p.Type.Size > len(inst.mem) {
		return Value{}
	}
	v := Value{Type: p.Type, Data: inst.mem[p.Offset : p.Offset+p.Type.Size : p.Offset+p.Type.Size]}
	if p.Type.IsReference() {
		v.Ref = inst.refs[p.Offset]
		if p.Type.Kind == KindString && v.Ref == nil {
			v.Ref = ""
		}
	}
	return v
}

// Set copies v into inst. Reference payloads are cloned so v's storage may
// be released afterwards.
func (p *Property) Set(inst *Instance, v Value) error {
	if inst == nil {
		return fmt.Errorf("property %s: nil instance", p.Name)
	}
	if !v.IsValid() {
		return fmt.Errorf("property %s: empty value", p.Name)
	}
	if v.Type != p.Type {
		return fmt.Errorf("property %s: got %s, want %s", p.Name, v.Type.GetName(), p.Type.GetName())
	}
	if p.Offset+p.Type.Size > len(inst.mem) {
		return fmt.Errorf("property %s: offset %d outside %s instance", p.Name, p.Offset, inst.Class.Name)
	}
	copy(inst.mem[p.Offset:p.Offset+p.Type.Size], v.Data)
	if p.Type.IsReference() {
		ref := v.Ref
		if arr, ok := ref.(*Array); ok {
			ref = arr.Clone()
		}
		inst.refs[p.Offset] = ref
	}
	return nil
}
