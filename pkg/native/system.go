package native

import (
	"fmt"

	"github.com/daimatz/rttiproxy/pkg/rtti"
)

func (lib *Library) gameInstanceNatives() map[string]rtti.NativeFunc {
	return map[string]rtti.NativeFunc{
		"GetTick;": func(f *rtti.Frame) bool {
			gi := lib.receiver(f, "GameInstance")
			if gi == nil {
				return false
			}
			f.Result.SetUint(gi.Field("tick").Uint())
			return true
		},
		"Advance;Uint32": func(f *rtti.Frame) bool {
			gi := lib.receiver(f, "GameInstance")
			if gi == nil {
				return false
			}
			frames := uint64(1)
			if f.Has(0) {
				frames = f.Arg(0).Uint()
			}
			tick := gi.Field("tick")
			tick.SetUint(tick.Uint() + frames)
			f.Result.SetUint(tick.Uint())
			return true
		},
	}
}

func (lib *Library) consoleNatives() map[string]rtti.NativeFunc {
	return map[string]rtti.NativeFunc{
		"Log;String": func(f *rtti.Frame) bool {
			fmt.Fprintln(lib.Stdout, f.Arg(0).Text())
			return true
		},
		"Format;StringDouble": func(f *rtti.Frame) bool {
			format := f.Arg(0).Text()
			if f.Has(1) {
				f.Result.SetText(fmt.Sprintf(format, f.Arg(1).Float()))
			} else {
				f.Result.SetText(format)
			}
			return true
		},
	}
}
