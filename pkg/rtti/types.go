package rtti

import (
	"strconv"
	"strings"
)

// Kind identifies the native representation of a type.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat
	KindDouble
	KindString
	KindCName
	KindHandle
	KindArray
	KindClass
	// KindOpaque marks a native base that is not part of the reflected
	// class hierarchy. Chain walks stop there.
	KindOpaque
)

var kindNames = map[Kind]string{
	KindInvalid: "Invalid",
	KindBool:    "Bool",
	KindInt8:    "Int8",
	KindInt16:   "Int16",
	KindInt32:   "Int32",
	KindInt64:   "Int64",
	KindUint8:   "Uint8",
	KindUint16:  "Uint16",
	KindUint32:  "Uint32",
	KindUint64:  "Uint64",
	KindFloat:   "Float",
	KindDouble:  "Double",
	KindString:  "String",
	KindCName:   "CName",
	KindHandle:  "Handle",
	KindArray:   "Array",
	KindClass:   "Class",
	KindOpaque:  "Opaque",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Type prefixes used in composite type names.
const (
	handlePrefix = "handle:"
	arrayPrefix  = "array:"
)

// Type describes a native value type.
type Type struct {
	Name  CName
	Kind  Kind
	Size  int
	Align int
	Elem  *Type  // KindArray
	Class *Class // KindHandle
}

// GetName returns the display name of the type.
func (t *Type) GetName() string {
	if t == nil {
		return ""
	}
	return t.Name.Str
}

// IsReference reports whether values of t carry their payload outside the
// fixed-size slot.
func (t *Type) IsReference() bool {
	switch t.Kind {
	case KindString, KindHandle, KindArray:
		return true
	}
	return false
}

// IsInteger reports whether t is a signed or unsigned integer type.
func (t *Type) IsInteger() bool {
	return t.IsSigned() || t.IsUnsigned()
}

// IsSigned reports whether t is a signed integer type.
func (t *Type) IsSigned() bool {
	switch t.Kind {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

// IsUnsigned reports whether t is an unsigned integer type.
func (t *Type) IsUnsigned() bool {
	switch t.Kind {
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return true
	}
	return false
}

func fundamental(kind Kind, size int) *Type {
	return &Type{Name: NewCName(kind.String()), Kind: kind, Size: size, Align: size}
}

func builtinTypes() []*Type {
	return []*Type{
		fundamental(KindBool, 1),
		fundamental(KindInt8, 1),
		fundamental(KindInt16, 2),
		fundamental(KindInt32, 4),
		fundamental(KindInt64, 8),
		fundamental(KindUint8, 1),
		fundamental(KindUint16, 2),
		fundamental(KindUint32, 4),
		fundamental(KindUint64, 8),
		fundamental(KindFloat, 4),
		fundamental(KindDouble, 8),
		fundamental(KindString, 8),
		fundamental(KindCName, 8),
	}
}

func handleType(c *Class) *Type {
	return &Type{Name: NewCName(handlePrefix + c.Name.Str), Kind: KindHandle, Size: 8, Align: 8, Class: c}
}

func arrayType(elem *Type) *Type {
	return &Type{Name: NewCName(arrayPrefix + elem.Name.Str), Kind: KindArray, Size: 8, Align: 8, Elem: elem}
}

func splitComposite(name string) (prefix, inner string) {
	for _, p := range []string{handlePrefix, arrayPrefix} {
		if rest, ok := strings.CutPrefix(name, p); ok {
			return p, rest
		}
	}
	return "", name
}
