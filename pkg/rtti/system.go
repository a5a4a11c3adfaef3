package rtti

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownType is returned when a type name cannot be resolved.
	ErrUnknownType = errors.New("unknown type")
	// ErrUnknownClass is returned when a class name cannot be resolved.
	ErrUnknownClass = errors.New("unknown class")
)

// ScriptableName is the base class whose descendants expose their properties
// to scripts.
const ScriptableName = "IScriptable"

// System is the reflection catalog: every known type and class, plus the
// global instance used as receiver when a call has none.
type System struct {
	mu      sync.RWMutex
	types   map[uint64]*Type
	classes map[uint64]*Class
	order   []*Class
	global  *Instance
}

// NewSystem creates a catalog holding the fundamental types.
func NewSystem() *System {
	s := &System{
		types:   make(map[uint64]*Type),
		classes: make(map[uint64]*Class),
	}
	for _, t := range builtinTypes() {
		s.types[t.Name.Hash] = t
	}
	return s
}

// NewClass registers a class. parent may be nil. Registering a name twice
// returns an error.
func (s *System) NewClass(name string, parent *Class) (*Class, error) {
	return s.define(name, KindClass, parent)
}

// NewOpaqueClass registers a native base outside the reflected hierarchy.
func (s *System) NewOpaqueClass(name string) (*Class, error) {
	return s.define(name, KindOpaque, nil)
}

// MustNewClass is like NewClass but panics on error.
func (s *System) MustNewClass(name string, parent *Class) *Class {
	c, err := s.NewClass(name, parent)
	if err != nil {
		panic(err)
	}
	return c
}

func (s *System) define(name string, kind Kind, parent *Class) (*Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cname := NewCName(name)
	if _, exists := s.classes[cname.Hash]; exists {
		return nil, fmt.Errorf("rtti: class %s already defined", name)
	}
	c := &Class{Name: cname, Kind: kind, Parent: parent}
	c.handle = handleType(c)
	s.classes[cname.Hash] = c
	s.types[c.handle.Name.Hash] = c.handle
	s.order = append(s.order, c)
	return c, nil
}

// Class returns the class registered under name, or nil.
func (s *System) Class(name string) *Class {
	return s.ClassByHash(FNV1a(name))
}

// ClassByHash returns the class registered under hash, or nil.
func (s *System) ClassByHash(hash uint64) *Class {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classes[hash]
}

// Classes returns every class in registration order.
func (s *System) Classes() []*Class {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Class(nil), s.order...)
}

// Scriptable returns the base scriptable class, or nil if not registered.
func (s *System) Scriptable() *Class {
	return s.Class(ScriptableName)
}

// Type resolves a type name. Composite names ("array:Int32",
// "handle:Entity") are created on first use.
func (s *System) Type(name string) (*Type, error) {
	hash := FNV1a(name)
	s.mu.RLock()
	t, ok := s.types[hash]
	s.mu.RUnlock()
	if ok {
		return t, nil
	}

	prefix, inner := splitComposite(name)
	switch prefix {
	case arrayPrefix:
		elem, err := s.Type(inner)
		if err != nil {
			return nil, fmt.Errorf("rtti: array element of %s: %w", name, err)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if t, ok := s.types[hash]; ok {
			return t, nil
		}
		t = arrayType(elem)
		s.types[hash] = t
		return t, nil
	case handlePrefix:
		if c := s.Class(inner); c != nil {
			return c.HandleType(), nil
		}
		return nil, fmt.Errorf("rtti: %s: %w %q", name, ErrUnknownClass, inner)
	}
	return nil, fmt.Errorf("rtti: %w %q", ErrUnknownType, name)
}

// MustType is like Type but panics on error.
func (s *System) MustType(name string) *Type {
	t, err := s.Type(name)
	if err != nil {
		panic(err)
	}
	return t
}

// SetGlobalInstance sets the instance used as receiver by calls that have
// none of their own.
func (s *System) SetGlobalInstance(inst *Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = inst
}

// GlobalInstance returns the global instance, or nil.
func (s *System) GlobalInstance() *Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global
}

// NewInstance allocates an instance of the named class.
func (s *System) NewInstance(name string) (*Instance, error) {
	c := s.Class(name)
	if c == nil {
		return nil, fmt.Errorf("rtti: %w %q", ErrUnknownClass, name)
	}
	if c.Kind != KindClass {
		return nil, fmt.Errorf("rtti: class %s cannot be instantiated", name)
	}
	return NewInstance(c), nil
}
