package bridge

import (
	"log/slog"

	"github.com/daimatz/rttiproxy/pkg/rtti"
)

// Resolver finds members of a class across its inheritance chain.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver creates a Resolver that reports misses to logger.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Property returns the property called name declared on c or an ancestor,
// most derived first.
func (r *Resolver) Property(c *rtti.Class, name string) *rtti.Property {
	if c == nil {
		return nil
	}
	hash := rtti.FNV1a(name)
	for _, cls := range c.Chain() {
		if p := cls.OwnProperty(hash); p != nil {
			return p
		}
	}
	return nil
}

// Function resolves name to a function of c or an ancestor.
//
// name is first matched against short names. Overloads share a short name;
// the first one declared, starting at the most derived class and looking at
// instance functions before static ones, wins. When no short name matches,
// name is matched against full names, which is how a specific overload is
// picked ("Teleport;FloatFloat"). A miss is logged and returns nil.
func (r *Resolver) Function(c *rtti.Class, name string) *rtti.Function {
	if c == nil {
		return nil
	}
	hash := rtti.FNV1a(name)
	chain := c.Chain()

	for _, cls := range chain {
		if fn := findFunction(cls, func(fn *rtti.Function) bool { return fn.ShortName.Hash == hash }); fn != nil {
			r.resolved(c, name, fn)
			return fn
		}
	}

	// Short names do not tell overloads apart.
	for _, cls := range chain {
		if fn := findFunction(cls, func(fn *rtti.Function) bool { return fn.FullName.Hash == hash }); fn != nil {
			r.resolved(c, name, fn)
			return fn
		}
	}

	r.logger.Warn("Function '"+name+"' not found in system '"+c.Name.Str+"'.",
		slog.String("function", name), slog.String("class", c.Name.Str))
	return nil
}

// Overloads returns every function of c's chain sharing the short name, in
// resolution order.
func (r *Resolver) Overloads(c *rtti.Class, shortName string) []*rtti.Function {
	if c == nil {
		return nil
	}
	hash := rtti.FNV1a(shortName)
	var out []*rtti.Function
	for _, cls := range c.Chain() {
		for _, table := range [][]*rtti.Function{cls.Funcs, cls.StaticFuncs} {
			for _, fn := range table {
				if fn.ShortName.Hash == hash {
					out = append(out, fn)
				}
			}
		}
	}
	return out
}

func (r *Resolver) resolved(c *rtti.Class, name string, fn *rtti.Function) {
	r.logger.Debug("resolved function",
		slog.String("class", c.Name.Str),
		slog.String("function", name),
		slog.String("full", fn.FullName.Str),
		slog.String("owner", fn.Owner.Name.Str))
}

func findFunction(c *rtti.Class, match func(*rtti.Function) bool) *rtti.Function {
	for _, fn := range c.Funcs {
		if match(fn) {
			return fn
		}
	}
	for _, fn := range c.StaticFuncs {
		if match(fn) {
			return fn
		}
	}
	return nil
}
