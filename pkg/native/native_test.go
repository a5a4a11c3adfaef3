package native

import (
	"bytes"
	"io"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/daimatz/rttiproxy/pkg/rtti"
)

func loadGame(t *testing.T) (*rtti.System, *bytes.Buffer) {
	t.Helper()
	sys := rtti.NewSystem()
	var out bytes.Buffer
	if err := Load(sys, &out); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return sys, &out
}

// call runs the named function of className on inst with args and returns
// the result slot.
func call(t *testing.T, sys *rtti.System, inst *rtti.Instance, className, fullName string, args ...rtti.Value) (rtti.Value, bool) {
	t.Helper()
	c := sys.Class(className)
	var fn *rtti.Function
	for _, table := range [][]*rtti.Function{c.Funcs, c.StaticFuncs} {
		for _, f := range table {
			if f.FullName.Str == fullName {
				fn = f
			}
		}
	}
	if fn == nil {
		t.Fatalf("%s has no function %s", className, fullName)
	}
	var result *rtti.Value
	if fn.HasReturn() {
		v := rtti.NewValue(fn.ReturnType, rtti.Heap)
		result = &v
	}
	ok := fn.Execute(rtti.NewFrame(inst, args, result))
	if result == nil {
		return rtti.Value{}, ok
	}
	return *result, ok
}

func value(t *testing.T, sys *rtti.System, typ string, set func(v *rtti.Value)) rtti.Value {
	t.Helper()
	v := rtti.NewValue(sys.MustType(typ), rtti.Heap)
	if set != nil {
		set(&v)
	}
	return v
}

func TestLoad(t *testing.T) {
	sys, _ := loadGame(t)

	t.Run("every class", func(t *testing.T) {
		var got []string
		for _, c := range sys.Classes() {
			got = append(got, c.Name.Str)
		}
		want := []string{"ISerializable", "IScriptable", "GameInstance", "Console", "Entity", "GameObject", "PlayerPuppet"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("classes mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("every function is bound", func(t *testing.T) {
		for _, c := range sys.Classes() {
			for _, table := range [][]*rtti.Function{c.Funcs, c.StaticFuncs} {
				for _, fn := range table {
					if fn.Native == nil {
						t.Errorf("%s.%s has no implementation", c.Name, fn.FullName)
					}
				}
			}
		}
	})

	t.Run("global instance", func(t *testing.T) {
		if g := sys.GlobalInstance(); g == nil || g.Class.Name.Str != "GameInstance" {
			t.Errorf("GlobalInstance: got %v", g)
		}
	})

	t.Run("override from a directory", func(t *testing.T) {
		dir := rtti.NewFSLoader(fstest.MapFS{
			"mod.yaml": {Data: []byte("imports: [base]\nclasses:\n  - { name: Drone, parent: IScriptable }\n")},
		}, NewLoader(nil))
		sys := rtti.NewSystem()
		if err := LoadFrom(sys, dir, "mod", io.Discard); err != nil {
			t.Fatalf("LoadFrom: %v", err)
		}
		if sys.Class("Drone") == nil || sys.Class("Console") == nil {
			t.Error("mod catalog or its import is missing")
		}
	})

	t.Run("missing catalog", func(t *testing.T) {
		if err := LoadFrom(rtti.NewSystem(), NewLoader(nil), "nope", io.Discard); err == nil {
			t.Error("LoadFrom(nope): got nil error")
		}
	})
}

func TestGameInstanceNatives(t *testing.T) {
	sys, out := loadGame(t)
	gi := sys.GlobalInstance()

	t.Run("advance by default one frame", func(t *testing.T) {
		got, ok := call(t, sys, gi, "GameInstance", "Advance;Uint32", rtti.Value{})
		if !ok || got.Uint() != 1 {
			t.Errorf("Advance(): got %d ok=%v, want 1", got.Uint(), ok)
		}
	})

	t.Run("advance", func(t *testing.T) {
		frames := value(t, sys, "Uint32", func(v *rtti.Value) { v.SetUint(9) })
		call(t, sys, gi, "GameInstance", "Advance;Uint32", frames)
		got, _ := call(t, sys, gi, "GameInstance", "GetTick;")
		if got.Uint() != 10 {
			t.Errorf("GetTick: got %d, want 10", got.Uint())
		}
	})

	t.Run("wrong receiver", func(t *testing.T) {
		obj, _ := sys.NewInstance("GameObject")
		if _, ok := call(t, sys, obj, "GameInstance", "GetTick;"); ok {
			t.Error("GetTick on a GameObject reported success")
		}
	})

	t.Run("console", func(t *testing.T) {
		msg := value(t, sys, "String", func(v *rtti.Value) { v.SetText("boot") })
		if _, ok := call(t, sys, nil, "Console", "Log;String", msg); !ok {
			t.Fatal("Log failed")
		}
		if out.String() != "boot\n" {
			t.Errorf("stdout: got %q, want %q", out.String(), "boot\n")
		}

		format := value(t, sys, "String", func(v *rtti.Value) { v.SetText("hp=%.0f") })
		got, _ := call(t, sys, nil, "Console", "Format;StringDouble", format, rtti.Value{})
		if got.Text() != "hp=%.0f" {
			t.Errorf("Format without value: got %q", got.Text())
		}
		hp := value(t, sys, "Double", func(v *rtti.Value) { v.SetFloat(75) })
		got, _ = call(t, sys, nil, "Console", "Format;StringDouble", format, hp)
		if got.Text() != "hp=75" {
			t.Errorf("Format: got %q, want %q", got.Text(), "hp=75")
		}
	})
}

func TestGameObjectNatives(t *testing.T) {
	sys, _ := loadGame(t)
	player, _ := sys.NewInstance("PlayerPuppet")
	float := func(f float64) rtti.Value {
		return value(t, sys, "Float", func(v *rtti.Value) { v.SetFloat(f) })
	}

	t.Run("heal with cap", func(t *testing.T) {
		hp := player.Field("health")
		hp.SetFloat(90)
		got, _ := call(t, sys, player, "GameObject", "Heal;FloatFloat", float(20), float(100))
		if got.Float() != 100 || player.Field("health").Float() != 100 {
			t.Errorf("Heal: got %v, health %v, want 100", got.Float(), player.Field("health").Float())
		}
	})

	t.Run("teleport and position", func(t *testing.T) {
		call(t, sys, player, "GameObject", "Teleport;FloatFloat", float(1.5), float(-2))
		x, y := value(t, sys, "Float", nil), value(t, sys, "Float", nil)
		args := []rtti.Value{x, y}
		fn := sys.Class("GameObject").Funcs[4]
		if !fn.Execute(rtti.NewFrame(player, args, nil)) {
			t.Fatal("GetPosition failed")
		}
		if args[0].Float() != 1.5 || args[1].Float() != -2 {
			t.Errorf("GetPosition: got (%v, %v), want (1.5, -2)", args[0].Float(), args[1].Float())
		}
	})

	t.Run("teleport to a null handle fails", func(t *testing.T) {
		dest := value(t, sys, "handle:GameObject", nil)
		if _, ok := call(t, sys, player, "GameObject", "Teleport;handle:GameObject", dest); ok {
			t.Error("Teleport(null) reported success")
		}
	})

	t.Run("tags", func(t *testing.T) {
		tags := value(t, sys, "array:CName", func(v *rtti.Value) {
			for _, name := range []string{"Street", "Kid"} {
				item := rtti.NewValue(v.Type.Elem, rtti.Heap)
				item.SetName(rtti.NewCName(name))
				v.Array().Items = append(v.Array().Items, item)
			}
		})
		if err := player.SetField("tags", tags); err != nil {
			t.Fatalf("SetField(tags): %v", err)
		}

		kid := value(t, sys, "CName", func(v *rtti.Value) { v.SetName(rtti.NewCName("Kid")) })
		got, _ := call(t, sys, player, "Entity", "HasTag;CName", kid)
		if !got.Bool() {
			t.Error("HasTag(Kid): got false")
		}

		items, count := value(t, sys, "array:CName", nil), value(t, sys, "Int32", nil)
		args := []rtti.Value{items, count}
		result := value(t, sys, "Bool", nil)
		fn := sys.Class("PlayerPuppet").Funcs[1]
		if !fn.Execute(rtti.NewFrame(player, args, &result)) {
			t.Fatal("GetInventory failed")
		}
		if !result.Bool() || args[1].Int() != 2 || args[0].Array().Len() != 2 {
			t.Errorf("GetInventory: got ok=%v count=%d len=%d", result.Bool(), args[1].Int(), args[0].Array().Len())
		}
		args[0].Array().Items[0].SetName(rtti.NewCName("Corpo"))
		if player.Field("tags").Array().Items[0].Name().Str != "Street" {
			t.Error("GetInventory returned the instance's own tags")
		}
	})

	t.Run("money", func(t *testing.T) {
		amount := value(t, sys, "Int64", func(v *rtti.Value) { v.SetInt(-250) })
		got, _ := call(t, sys, player, "PlayerPuppet", "AddMoney;Int64", amount)
		if got.Int() != -250 {
			t.Errorf("AddMoney: got %d, want -250", got.Int())
		}
	})

	t.Run("default level", func(t *testing.T) {
		got, ok := call(t, sys, nil, "GameObject", "GetDefaultLevel;")
		if !ok || got.Int() != DefaultLevel {
			t.Errorf("GetDefaultLevel: got %d, want %d", got.Int(), DefaultLevel)
		}
	})
}
