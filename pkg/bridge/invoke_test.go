package bridge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	lua "github.com/yuin/gopher-lua"
	"golang.org/x/sync/errgroup"

	"github.com/daimatz/rttiproxy/pkg/native"
	"github.com/daimatz/rttiproxy/pkg/rtti"
)

func TestExecuteResults(t *testing.T) {
	env := newTestEnv(t)
	player := env.instance(t, "player", "PlayerPuppet")
	env.instance(t, "spot", "GameObject")

	tests := []struct {
		name  string
		chunk string
		want  []lua.LValue
	}{
		{
			name:  "return value",
			chunk: "player.money = 10; return player:AddMoney(5)",
			want:  []lua.LValue{lua.LNumber(15)},
		},
		{
			name:  "no return and no outs",
			chunk: "return select('#', player:Teleport(1, 2))",
			want:  []lua.LValue{lua.LNumber(0)},
		},
		{
			name:  "out parameters only",
			chunk: "player:Teleport(3.5, -4); return player:GetPosition()",
			want:  []lua.LValue{lua.LNumber(3.5), lua.LNumber(-4)},
		},
		{
			name:  "return value before out parameters",
			chunk: "player.tags = {'Corpo'}; local ok, items, n = player:GetInventory(); return ok, items[1], n",
			want:  []lua.LValue{lua.LTrue, lua.LString("Corpo"), lua.LNumber(1)},
		},
		{
			name:  "empty out array",
			chunk: "player.tags = {}; local ok, items, n = player:GetInventory(); return ok, #items, n",
			want:  []lua.LValue{lua.LFalse, lua.LNumber(0), lua.LNumber(0)},
		},
		{
			name:  "inherited function",
			chunk: "player.entityID = 9; return player:GetEntityID()",
			want:  []lua.LValue{lua.LNumber(9)},
		},
		{
			name:  "cname argument",
			chunk: "player.tags = {'Nomad'}; return player:HasTag('Nomad'), player:HasTag('Corpo')",
			want:  []lua.LValue{lua.LTrue, lua.LFalse},
		},
		{
			name:  "optional argument missing",
			chunk: "player.health = 50; return player:Heal(70)",
			want:  []lua.LValue{lua.LNumber(120)},
		},
		{
			name:  "optional argument supplied",
			chunk: "player.health = 50; return player:Heal(70, 100)",
			want:  []lua.LValue{lua.LNumber(100)},
		},
		{
			name:  "optional argument of the wrong type is dropped",
			chunk: "player.health = 50; return player:Heal(10, 'cap')",
			want:  []lua.LValue{lua.LNumber(60)},
		},
		{
			name:  "overload by full name",
			chunk: "spot.posX = 7; spot.posY = 8; player['Teleport;handle:GameObject'](player, spot); return player.posX, player.posY",
			want:  []lua.LValue{lua.LNumber(7), lua.LNumber(8)},
		},
		{
			name:  "static function",
			chunk: "return player:GetDefaultLevel()",
			want:  []lua.LValue{lua.LNumber(native.DefaultLevel)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := env.eval(t, tt.chunk)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("%s mismatch (-want +got):\n%s", tt.chunk, diff)
			}
		})
	}

	t.Run("returned handle", func(t *testing.T) {
		got := env.eval(t, "return player:GetGameInstance()")
		p, ok := toProxy(got[0])
		if !ok || p.Handle() != env.sys.GlobalInstance() {
			t.Errorf("GetGameInstance: got %v, want the global instance", got[0])
		}
		if player.Field("money").Int() != 15 {
			t.Errorf("money: got %d, want 15", player.Field("money").Int())
		}
	})
}

func TestExecuteBindingErrors(t *testing.T) {
	env := newTestEnv(t)
	env.instance(t, "player", "PlayerPuppet")

	tests := []struct {
		name    string
		chunk   string
		wantLog string
	}{
		{
			name:    "missing required argument",
			chunk:   "return player:AddMoney()",
			wantLog: "Error: Function 'AddMoney' parameter 0 must be Int64.",
		},
		{
			name:    "argument of the wrong type",
			chunk:   "return player:AddMoney('lots')",
			wantLog: "Error: Function 'AddMoney' parameter 0 must be Int64.",
		},
		{
			name:    "second argument missing",
			chunk:   "return player:Teleport(1)",
			wantLog: "Error: Function 'Teleport' parameter 1 must be Float.",
		},
		{
			name:    "overload chosen by short name",
			chunk:   "return player:Teleport(NewObject('GameObject'))",
			wantLog: "Error: Function 'Teleport' parameter 0 must be Float.",
		},
		{
			name:    "handle of the wrong class",
			chunk:   "return player['Teleport;handle:GameObject'](player, player:GetGameInstance())",
			wantLog: "Error: Function 'Teleport;handle:GameObject' parameter 0 must be handle:GameObject.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.logs.Reset()
			got := env.eval(t, tt.chunk)
			if len(got) != 0 {
				t.Errorf("got %d results, want none", len(got))
			}
			if !strings.Contains(env.logs.String(), tt.wantLog) {
				t.Errorf("log: got %q, want it to contain %q", env.logs.String(), tt.wantLog)
			}
		})
	}

	t.Run("error value", func(t *testing.T) {
		p, _ := toProxy(env.L.GetGlobal("player"))
		fn := env.b.Resolver().Function(p.Class(), "AddMoney")
		_, err := p.Execute(fn, "AddMoney", nil)
		var be *BindingError
		if !errors.As(err, &be) {
			t.Fatalf("Execute: got %v, want a *BindingError", err)
		}
		want := BindingError{Function: "AddMoney", Index: 0, Type: "Int64"}
		if diff := cmp.Diff(want, *be); diff != "" {
			t.Errorf("BindingError mismatch (-want +got):\n%s", diff)
		}
		if !errors.Is(err, ErrBinding) {
			t.Error("BindingError should match ErrBinding")
		}
	})
}

func TestExecuteReceiver(t *testing.T) {
	env := newTestEnv(t)

	t.Run("falls back to the global instance", func(t *testing.T) {
		got := env.eval(t, "local g = GetSingleton('GameInstance'); g:Advance(4); return g:GetTick()")
		if diff := cmp.Diff([]lua.LValue{lua.LNumber(4)}, got); diff != "" {
			t.Errorf("tick mismatch (-want +got):\n%s", diff)
		}
		if tick := env.sys.GlobalInstance().Field("tick").Uint(); tick != 4 {
			t.Errorf("global tick: got %d, want 4", tick)
		}
	})

	t.Run("static call without instance", func(t *testing.T) {
		got := env.eval(t, "local c = GetSingleton('Console'); c:Log('hello'); return c:Format('%.2f', 2.25)")
		if diff := cmp.Diff([]lua.LValue{lua.LString("2.25")}, got); diff != "" {
			t.Errorf("Format mismatch (-want +got):\n%s", diff)
		}
		if env.stdout.String() != "hello\n" {
			t.Errorf("stdout: got %q, want %q", env.stdout.String(), "hello\n")
		}
	})

	t.Run("native failure returns nothing", func(t *testing.T) {
		env.logs.Reset()
		got := env.eval(t, "return select('#', GetSingleton('GameObject'):GetDisplayName())")
		if diff := cmp.Diff([]lua.LValue{lua.LNumber(0)}, got); diff != "" {
			t.Errorf("result count mismatch (-want +got):\n%s", diff)
		}
		if env.logs.Len() != 0 {
			t.Errorf("native failure should not log, got %q", env.logs.String())
		}
	})

	t.Run("unbound function", func(t *testing.T) {
		c := env.sys.MustNewClass("Unbound", env.sys.Scriptable())
		fn := c.AddFunction(rtti.NewFunction("Nothing", nil))
		_, err := env.b.NewProxy(c, rtti.NewInstance(c)).Execute(fn, "Nothing", nil)
		if err != nil {
			t.Errorf("Execute: got %v, want nil", err)
		}
	})
}

func TestExecuteStorage(t *testing.T) {
	t.Run("return type larger than the buffer", func(t *testing.T) {
		env := newTestEnv(t)
		huge := &rtti.Type{Name: rtti.NewCName("Blob"), Kind: rtti.KindClass, Size: returnBufferSize + 1, Align: 8}
		c := env.sys.MustNewClass("Archive", env.sys.Scriptable())
		fn := c.AddFunction(rtti.NewFunction("Read", huge).Bind(func(*rtti.Frame) bool { return true }))

		_, err := env.b.NewProxy(c, rtti.NewInstance(c)).Execute(fn, "Read", nil)
		if !errors.Is(err, ErrReturnTooLarge) {
			t.Errorf("Execute: got %v, want ErrReturnTooLarge", err)
		}
	})

	t.Run("exhausted call arena", func(t *testing.T) {
		env := newTestEnv(t, WithArenaSizes(8, 4))
		env.instance(t, "player", "PlayerPuppet")
		got := env.eval(t, "return player:AddMoney(1)")
		if len(got) != 0 {
			t.Errorf("got %d results, want none", len(got))
		}
		if !strings.Contains(env.logs.String(), "Function 'AddMoney' parameter 0 must be Int64.") {
			t.Errorf("log: got %q", env.logs.String())
		}
	})

	t.Run("exhausted property arena", func(t *testing.T) {
		env := newTestEnv(t, WithArenaSizes(4, 64))
		player := env.instance(t, "player", "PlayerPuppet")
		env.eval(t, "player.money = 12")
		if got := player.Field("money").Int(); got != 0 {
			t.Errorf("money: got %d, want 0", got)
		}
		env.eval(t, "player.level = 12")
		if got := player.Field("level").Int(); got != 12 {
			t.Errorf("level: got %d, want 12", got)
		}
	})

	t.Run("arena is released after a binding error", func(t *testing.T) {
		env := newTestEnv(t, WithArenaSizes(16, 16))
		env.instance(t, "player", "PlayerPuppet")
		env.eval(t, "for i = 1, 20 do player:Teleport(1, 'x') end")
		if !strings.Contains(env.logs.String(), "parameter 1 must be Float.") {
			t.Fatalf("log: got %q", env.logs.String())
		}
		got := env.eval(t, "return player:AddMoney(3)")
		if diff := cmp.Diff([]lua.LValue{lua.LNumber(3)}, got); diff != "" {
			t.Errorf("AddMoney mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("arena is released after a failed property write", func(t *testing.T) {
		env := newTestEnv(t, WithArenaSizes(16, 16))
		env.instance(t, "player", "PlayerPuppet")
		env.eval(t, "for i = 1, 20 do player.tags = {'Solo', 1} end")
		if !strings.Contains(env.logs.String(), "Error: Property 'tags' of 'PlayerPuppet' must be array:CName.") {
			t.Fatalf("log: got %q", env.logs.String())
		}
		got := env.eval(t, "player.tags = {'Nomad'}; return #player.tags, player.tags[1]")
		if diff := cmp.Diff([]lua.LValue{lua.LNumber(1), lua.LString("Nomad")}, got); diff != "" {
			t.Errorf("tags mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("arena is reused after each call", func(t *testing.T) {
		env := newTestEnv(t, WithArenaSizes(8, 16))
		env.instance(t, "player", "PlayerPuppet")
		got := env.eval(t, "local n = 0; for i = 1, 100 do n = player:AddMoney(1) end; return n")
		if diff := cmp.Diff([]lua.LValue{lua.LNumber(100)}, got); diff != "" {
			t.Errorf("money mismatch (-want +got):\n%s", diff)
		}
	})
}

// Each goroutine owns a Lua state and a bridge; the catalog and the arena
// pools are shared.
func TestExecuteConcurrent(t *testing.T) {
	sys := rtti.NewSystem()
	if err := native.Load(sys, io.Discard); err != nil {
		t.Fatalf("native.Load: %v", err)
	}

	const workers, calls = 8, 200
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			L := lua.NewState()
			defer L.Close()
			b := New(L, sys, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
			b.Register()

			script := fmt.Sprintf(`
				local p = NewObject('PlayerPuppet')
				for i = 1, %[2]d do
					local money = p:AddMoney(%[1]d)
					if money ~= i * %[1]d then
						error('money ' .. money .. ' at call ' .. i)
					end
					p:Teleport(%[1]d, i)
					local x, y = p:GetPosition()
					if x ~= %[1]d or y ~= i then
						error('position ' .. x .. ',' .. y .. ' at call ' .. i)
					end
				end`, w+1, calls)
			if err := L.DoString(script); err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}
