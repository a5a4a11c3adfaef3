package rtti

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the on-disk description of a set of classes.
type Catalog struct {
	Name    string     `yaml:"name"`
	Imports []string   `yaml:"imports"`
	Global  string     `yaml:"global"`
	Classes []ClassDef `yaml:"classes"`
}

// ClassDef describes one class. Parents must be defined earlier in the same
// catalog or in an imported one.
type ClassDef struct {
	Name   string        `yaml:"name"`
	Parent string        `yaml:"parent"`
	Opaque bool          `yaml:"opaque"`
	Props  []PropertyDef `yaml:"props"`
	Funcs  []FunctionDef `yaml:"funcs"`
	Static []FunctionDef `yaml:"static"`
}

// PropertyDef describes a property.
type PropertyDef struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// FunctionDef describes a function. Full defaults to the name derived from
// Name and the parameter types.
type FunctionDef struct {
	Name   string     `yaml:"name"`
	Full   string     `yaml:"full"`
	Return string     `yaml:"return"`
	Params []ParamDef `yaml:"params"`
}

// ParamDef describes a parameter.
type ParamDef struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Out      bool   `yaml:"out"`
	Optional bool   `yaml:"optional"`
}

// Natives maps "Class::FullName" to the implementation of that function.
type Natives map[string]NativeFunc

// NativeKey returns the Natives key of a function declared on class.
func NativeKey(class, fullName string) string {
	return class + "::" + fullName
}

// Parse reads a catalog from r.
func Parse(r io.Reader) (*Catalog, error) {
	var cat Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	return &cat, nil
}

// ParseFile opens and parses a catalog file.
func ParseFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Loader loads catalogs by name.
type Loader interface {
	LoadCatalog(name string) (*Catalog, error)
}

// FSLoader loads "<name>.yaml" from a file system, delegating to Parent
// first when one is set.
type FSLoader struct {
	FS     fs.FS
	Parent Loader
	Cache  map[string]*Catalog
}

// NewFSLoader creates an FSLoader. parent may be nil.
func NewFSLoader(fsys fs.FS, parent Loader) *FSLoader {
	return &FSLoader{
		FS:     fsys,
		Parent: parent,
		Cache:  make(map[string]*Catalog),
	}
}

// NewDirLoader creates an FSLoader rooted at dir.
func NewDirLoader(dir string, parent Loader) *FSLoader {
	return NewFSLoader(os.DirFS(dir), parent)
}

func (l *FSLoader) LoadCatalog(name string) (*Catalog, error) {
	if cat, ok := l.Cache[name]; ok {
		return cat, nil
	}
	if l.Parent != nil {
		if cat, err := l.Parent.LoadCatalog(name); err == nil {
			return cat, nil
		}
	}
	file := path.Clean(strings.TrimSuffix(name, ".yaml") + ".yaml")
	f, err := l.FS.Open(file)
	if err != nil {
		return nil, fmt.Errorf("catalog %s not found: %w", name, err)
	}
	defer f.Close()
	cat, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", name, err)
	}
	if cat.Name == "" {
		cat.Name = name
	}
	l.Cache[name] = cat
	return cat, nil
}

// LoadFrom loads the named catalog and, before it, everything it imports.
func (s *System) LoadFrom(l Loader, name string, natives Natives) error {
	return s.loadFrom(l, name, natives, make(map[string]bool))
}

func (s *System) loadFrom(l Loader, name string, natives Natives, seen map[string]bool) error {
	if seen[name] {
		return nil
	}
	seen[name] = true

	cat, err := l.LoadCatalog(name)
	if err != nil {
		return err
	}
	for _, imp := range cat.Imports {
		if err := s.loadFrom(l, imp, natives, seen); err != nil {
			return fmt.Errorf("catalog %s: import: %w", name, err)
		}
	}
	return s.Load(cat, natives)
}

// Load registers every class of cat. Functions are bound to the matching
// entry in natives; functions without one fail when executed.
func (s *System) Load(cat *Catalog, natives Natives) error {
	classes := make([]*Class, len(cat.Classes))
	for i, def := range cat.Classes {
		var parent *Class
		if def.Parent != "" {
			parent = s.Class(def.Parent)
			if parent == nil {
				return fmt.Errorf("class %s: parent: %w %q", def.Name, ErrUnknownClass, def.Parent)
			}
		}
		var (
			c   *Class
			err error
		)
		if def.Opaque {
			c, err = s.NewOpaqueClass(def.Name)
		} else {
			c, err = s.NewClass(def.Name, parent)
		}
		if err != nil {
			return err
		}
		classes[i] = c
	}

	for i, def := range cat.Classes {
		c := classes[i]
		for _, pd := range def.Props {
			t, err := s.Type(pd.Type)
			if err != nil {
				return fmt.Errorf("class %s: property %s: %w", def.Name, pd.Name, err)
			}
			c.AddProperty(pd.Name, t)
		}
		for _, fd := range def.Funcs {
			fn, err := s.buildFunction(fd)
			if err != nil {
				return fmt.Errorf("class %s: %w", def.Name, err)
			}
			c.AddFunction(fn.Bind(natives[NativeKey(def.Name, fn.FullName.Str)]))
		}
		for _, fd := range def.Static {
			fn, err := s.buildFunction(fd)
			if err != nil {
				return fmt.Errorf("class %s: %w", def.Name, err)
			}
			c.AddStaticFunction(fn.Bind(natives[NativeKey(def.Name, fn.FullName.Str)]))
		}
	}

	if cat.Global != "" {
		inst, err := s.NewInstance(cat.Global)
		if err != nil {
			return fmt.Errorf("global instance: %w", err)
		}
		s.SetGlobalInstance(inst)
	}
	return nil
}

func (s *System) buildFunction(fd FunctionDef) (*Function, error) {
	params := make([]*Param, len(fd.Params))
	for i, pd := range fd.Params {
		t, err := s.Type(pd.Type)
		if err != nil {
			return nil, fmt.Errorf("function %s: parameter %d: %w", fd.Name, i, err)
		}
		params[i] = &Param{Name: NewCName(pd.Name), Type: t, IsOut: pd.Out, IsOptional: pd.Optional}
	}
	var ret *Type
	if fd.Return != "" {
		t, err := s.Type(fd.Return)
		if err != nil {
			return nil, fmt.Errorf("function %s: return: %w", fd.Name, err)
		}
		ret = t
	}
	fn := NewFunction(fd.Name, ret, params...)
	if fd.Full != "" {
		fn.WithFullName(fd.Full)
	}
	return fn, nil
}
