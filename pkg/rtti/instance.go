package rtti

import "fmt"

// Instance is a live native object: its class and the memory backing its
// properties. Reference-typed properties keep their payload in refs, keyed
// by offset.
type Instance struct {
	Class *Class
	mem   []byte
	refs  map[int]any
}

// NewInstance allocates a zeroed instance of c.
func NewInstance(c *Class) *Instance {
	return &Instance{
		Class: c,
		mem:   make([]byte, c.Size()),
		refs:  make(map[int]any),
	}
}

// Size returns the size of the instance memory in bytes.
func (inst *Instance) Size() int {
	return len(inst.mem)
}

// Property returns the property called name of the instance's class chain.
func (inst *Instance) Property(name string) *Property {
	hash := FNV1a(name)
	for _, c := range inst.Class.Chain() {
		if p := c.OwnProperty(hash); p != nil {
			return p
		}
	}
	return nil
}

// Field returns the value of the named property. Scalar Data aliases the
// instance memory, so setters on the result write through. The result is
// empty when there is no such property.
func (inst *Instance) Field(name string) Value {
	p := inst.Property(name)
	if p == nil {
		return Value{}
	}
	return p.Get(inst)
}

// SetField stores v in the named property.
func (inst *Instance) SetField(name string, v Value) error {
	p := inst.Property(name)
	if p == nil {
		return fmt.Errorf("class %s has no property %s", inst.Class.Name, name)
	}
	return p.Set(inst, v)
}
