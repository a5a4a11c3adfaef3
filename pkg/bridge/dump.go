package bridge

import (
	"fmt"
	"strings"

	"github.com/daimatz/rttiproxy/pkg/rtti"
)

// Descriptor is the member surface of a class and its ancestors.
type Descriptor struct {
	Name            string
	Functions       []string
	StaticFunctions []string
	Properties      []string
}

func (d Descriptor) String() string {
	var b strings.Builder
	b.WriteString("{\n\tname: " + d.Name + ",\n\tfunctions: {\n")
	for _, fn := range d.Functions {
		b.WriteString("\t\t" + fn + ",\n")
	}
	b.WriteString("\t},\n\tstaticFunctions: {\n")
	for _, fn := range d.StaticFunctions {
		b.WriteString("\t\t" + fn + ",\n")
	}
	b.WriteString("\t},\n\tproperties: {\n")
	for _, prop := range d.Properties {
		b.WriteString("\t\t" + prop + ",\n")
	}
	b.WriteString("\t}\n}")
	return b.String()
}

// Dump lists every function, static function and property of c and its
// ancestors, most derived class first. Members are listed once per declaring
// class.
func Dump(c *rtti.Class, withHashes bool) Descriptor {
	var d Descriptor
	if c == nil {
		return d
	}
	d.Name = c.Name.Str
	for _, cls := range c.Chain() {
		for _, fn := range cls.Funcs {
			d.Functions = append(d.Functions, FunctionDescriptor(fn, withHashes))
		}
		for _, fn := range cls.StaticFuncs {
			d.StaticFunctions = append(d.StaticFunctions, FunctionDescriptor(fn, withHashes))
		}
		for _, prop := range cls.Props {
			d.Properties = append(d.Properties, prop.Name.Str+": "+prop.Type.GetName())
		}
	}
	return d
}

// FunctionDescriptor renders fn as "Name(in: Type, ...) => (Return, out: Type, ...)".
// Out parameters are listed with the results, not the inputs. With hashes,
// the full-name and short-name hashes are appended.
func FunctionDescriptor(fn *rtti.Function, withHashes bool) string {
	var b strings.Builder
	b.WriteString(fn.ShortName.Str)

	var inputs, outputs []string
	if fn.HasReturn() {
		outputs = append(outputs, fn.ReturnType.GetName())
	}
	for _, param := range fn.Params {
		desc := param.Name.Str + ": " + param.Type.GetName()
		if param.IsOut {
			outputs = append(outputs, desc)
		} else {
			inputs = append(inputs, desc)
		}
	}

	b.WriteString("(" + strings.Join(inputs, ", ") + ")")
	if len(outputs) > 0 {
		b.WriteString(" => (" + strings.Join(outputs, ", ") + ")")
	}

	if withHashes {
		fmt.Fprintf(&b, " # Hash:(%016x) / ShortName:(%s) Hash:(%016x)",
			fn.FullName.Hash, fn.ShortName.Str, fn.ShortName.Hash)
	}
	return b.String()
}

// Dump describes the proxied class.
func (p *Proxy) Dump(withHashes bool) Descriptor {
	return Dump(p.class, withHashes)
}

// GameDump renders the proxied instance with its property values.
func (p *Proxy) GameDump() string {
	if p.class == nil || p.handle == nil {
		return ""
	}
	return p.class.DebugString(p.handle)
}
