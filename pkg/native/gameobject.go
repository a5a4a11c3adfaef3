package native

import (
	"github.com/daimatz/rttiproxy/pkg/rtti"
)

// DefaultLevel is returned by GameObject.GetDefaultLevel.
const DefaultLevel = 1

func (lib *Library) entityNatives() map[string]rtti.NativeFunc {
	return map[string]rtti.NativeFunc{
		"GetEntityID;": func(f *rtti.Frame) bool {
			e := lib.receiver(f, "Entity")
			if e == nil {
				return false
			}
			f.Result.SetUint(e.Field("entityID").Uint())
			return true
		},
		"HasTag;CName": func(f *rtti.Frame) bool {
			e := lib.receiver(f, "Entity")
			if e == nil {
				return false
			}
			want := f.Arg(0).Name().Hash
			found := false
			if tags := e.Field("tags").Array(); tags != nil {
				for _, tag := range tags.Items {
					if tag.Name().Hash == want {
						found = true
						break
					}
				}
			}
			f.Result.SetBool(found)
			return true
		},
	}
}

func (lib *Library) gameObjectNatives() map[string]rtti.NativeFunc {
	return map[string]rtti.NativeFunc{
		"GetDisplayName;": func(f *rtti.Frame) bool {
			obj := lib.receiver(f, "GameObject")
			if obj == nil {
				return false
			}
			f.Result.SetText(obj.Field("displayName").Text())
			return true
		},
		"Heal;FloatFloat": func(f *rtti.Frame) bool {
			obj := lib.receiver(f, "GameObject")
			if obj == nil {
				return false
			}
			health := obj.Field("health")
			healed := health.Float() + f.Arg(0).Float()
			if f.Has(1) && healed > f.Arg(1).Float() {
				healed = f.Arg(1).Float()
			}
			health.SetFloat(healed)
			f.Result.SetFloat(healed)
			return true
		},
		"Teleport;FloatFloat": func(f *rtti.Frame) bool {
			obj := lib.receiver(f, "GameObject")
			if obj == nil {
				return false
			}
			x, y := obj.Field("posX"), obj.Field("posY")
			x.SetFloat(f.Arg(0).Float())
			y.SetFloat(f.Arg(1).Float())
			return true
		},
		"Teleport;handle:GameObject": func(f *rtti.Frame) bool {
			obj := lib.receiver(f, "GameObject")
			dest := f.Arg(0).Handle()
			if obj == nil || dest == nil {
				return false
			}
			x, y := obj.Field("posX"), obj.Field("posY")
			x.SetFloat(dest.Field("posX").Float())
			y.SetFloat(dest.Field("posY").Float())
			return true
		},
		"GetPosition;FloatFloat": func(f *rtti.Frame) bool {
			obj := lib.receiver(f, "GameObject")
			if obj == nil {
				return false
			}
			f.Arg(0).SetFloat(obj.Field("posX").Float())
			f.Arg(1).SetFloat(obj.Field("posY").Float())
			return true
		},
		"GetDefaultLevel;": func(f *rtti.Frame) bool {
			f.Result.SetInt(DefaultLevel)
			return true
		},
	}
}

func (lib *Library) playerNatives() map[string]rtti.NativeFunc {
	return map[string]rtti.NativeFunc{
		"AddMoney;Int64": func(f *rtti.Frame) bool {
			player := lib.receiver(f, "PlayerPuppet")
			if player == nil {
				return false
			}
			money := player.Field("money")
			money.SetInt(money.Int() + f.Arg(0).Int())
			f.Result.SetInt(money.Int())
			return true
		},
		"GetInventory;array:CNameInt32": func(f *rtti.Frame) bool {
			player := lib.receiver(f, "PlayerPuppet")
			if player == nil {
				return false
			}
			items := f.Arg(0)
			inventory := &rtti.Array{Elem: items.Type.Elem}
			if tags := player.Field("tags").Array(); tags != nil {
				inventory = tags.Clone()
			}
			items.SetArray(inventory)
			f.Arg(1).SetInt(int64(inventory.Len()))
			f.Result.SetBool(inventory.Len() > 0)
			return true
		},
		"GetGameInstance;": func(f *rtti.Frame) bool {
			f.Result.SetHandle(lib.sys.GlobalInstance())
			return true
		},
	}
}
