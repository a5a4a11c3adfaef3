package bridge

import (
	"log/slog"

	lua "github.com/yuin/gopher-lua"
)

// Register installs the global helper functions in the Lua state:
//
//	NewObject(className)          -> proxy of a new instance
//	GetSingleton(className)       -> proxy without an instance
//	Dump(obj [, withHashes])      -> descriptor table
//	DumpType(className [, withHashes]) -> descriptor table
//	GameDump(obj)                 -> property values as a string
func (b *Bridge) Register() {
	b.L.SetGlobal("NewObject", b.L.NewFunction(b.luaNewObject))
	b.L.SetGlobal("GetSingleton", b.L.NewFunction(b.luaGetSingleton))
	b.L.SetGlobal("Dump", b.L.NewFunction(b.luaDump))
	b.L.SetGlobal("DumpType", b.L.NewFunction(b.luaDumpType))
	b.L.SetGlobal("GameDump", b.L.NewFunction(b.luaGameDump))
}

func (b *Bridge) luaNewObject(L *lua.LState) int {
	name := L.CheckString(1)
	inst, err := b.sys.NewInstance(name)
	if err != nil {
		b.logger.Warn(err.Error(), slog.String("class", name))
		L.Push(lua.LNil)
		return 1
	}
	L.Push(b.Wrap(inst))
	return 1
}

func (b *Bridge) luaGetSingleton(L *lua.LState) int {
	name := L.CheckString(1)
	c := b.sys.Class(name)
	if c == nil {
		b.logger.Warn("Class '"+name+"' not found.", slog.String("class", name))
		L.Push(lua.LNil)
		return 1
	}
	L.Push(b.NewProxy(c, nil).UserData())
	return 1
}

func (b *Bridge) luaDump(L *lua.LState) int {
	p := checkProxy(L, 1)
	L.Push(b.descriptorTable(p.Dump(L.OptBool(2, false))))
	return 1
}

func (b *Bridge) luaDumpType(L *lua.LState) int {
	name := L.CheckString(1)
	c := b.sys.Class(name)
	if c == nil {
		b.logger.Warn("Class '"+name+"' not found.", slog.String("class", name))
		L.Push(lua.LNil)
		return 1
	}
	L.Push(b.descriptorTable(Dump(c, L.OptBool(2, false))))
	return 1
}

func (b *Bridge) luaGameDump(L *lua.LState) int {
	p := checkProxy(L, 1)
	L.Push(lua.LString(p.GameDump()))
	return 1
}

// descriptorTable converts d to a table whose tostring is the text rendering.
func (b *Bridge) descriptorTable(d Descriptor) *lua.LTable {
	list := func(items []string) *lua.LTable {
		tbl := b.L.NewTable()
		for _, item := range items {
			tbl.Append(lua.LString(item))
		}
		return tbl
	}
	tbl := b.L.NewTable()
	tbl.RawSetString("name", lua.LString(d.Name))
	tbl.RawSetString("functions", list(d.Functions))
	tbl.RawSetString("staticFunctions", list(d.StaticFunctions))
	tbl.RawSetString("properties", list(d.Properties))

	mt := b.L.NewTable()
	text := d.String()
	mt.RawSetString("__tostring", b.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(text))
		return 1
	}))
	b.L.SetMetatable(tbl, mt)
	return tbl
}
