// Package native is a small engine library: an embedded catalog of classes
// and the Go implementations of their functions.
package native

import (
	"embed"
	"fmt"
	"io"
	"io/fs"

	"github.com/daimatz/rttiproxy/pkg/rtti"
)

//go:embed catalog/*.yaml
var catalogFS embed.FS

// DefaultCatalog is the catalog that pulls in every embedded class.
const DefaultCatalog = "game"

// Catalogs returns the embedded catalog files.
func Catalogs() fs.FS {
	sub, err := fs.Sub(catalogFS, "catalog")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewLoader returns a loader over the embedded catalogs. parent may be nil.
func NewLoader(parent rtti.Loader) *rtti.FSLoader {
	return rtti.NewFSLoader(Catalogs(), parent)
}

// Library holds the state shared by the native implementations.
type Library struct {
	Stdout io.Writer
	sys    *rtti.System
}

// New creates a Library writing console output to stdout.
func New(sys *rtti.System, stdout io.Writer) *Library {
	return &Library{Stdout: stdout, sys: sys}
}

// Load loads the default embedded catalog into sys.
func Load(sys *rtti.System, stdout io.Writer) error {
	return LoadFrom(sys, NewLoader(nil), DefaultCatalog, stdout)
}

// LoadFrom loads the named catalog through l into sys with this package's
// implementations bound.
func LoadFrom(sys *rtti.System, l rtti.Loader, name string, stdout io.Writer) error {
	lib := New(sys, stdout)
	if err := sys.LoadFrom(l, name, lib.Natives()); err != nil {
		return fmt.Errorf("native: loading %s: %w", name, err)
	}
	return nil
}

// Natives returns every implementation keyed by class and full name.
func (lib *Library) Natives() rtti.Natives {
	natives := rtti.Natives{}
	for class, funcs := range map[string]map[string]rtti.NativeFunc{
		"GameInstance": lib.gameInstanceNatives(),
		"Console":      lib.consoleNatives(),
		"Entity":       lib.entityNatives(),
		"GameObject":   lib.gameObjectNatives(),
		"PlayerPuppet": lib.playerNatives(),
	} {
		for full, fn := range funcs {
			natives[rtti.NativeKey(class, full)] = fn
		}
	}
	return natives
}

// receiver returns the frame's instance if it is a className.
func (lib *Library) receiver(f *rtti.Frame, className string) *rtti.Instance {
	if f.Instance == nil {
		return nil
	}
	if !f.Instance.Class.IsA(lib.sys.Class(className)) {
		return nil
	}
	return f.Instance
}
