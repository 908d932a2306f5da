package symbols

import (
	"fmt"

	"github.com/chazu/graphc/types"
)

// Construction runs in three phases so that properties are assigned before
// the object is published: begin_construct allocates, set_property assigns
// one property, finish_construct seals.
const (
	BeginConstruct  = "begin_construct"
	SetProperty     = "set_property"
	FinishConstruct = "finish_construct"
)

// An object under construction is a KindObject value whose Str is the class
// name, Keys the property names and Items the property values. A sealed
// object has Bool set.

func registerConstruction(r *Registry) {
	r.MustRegister(
		&Function{
			Name:    BeginConstruct,
			Params:  []types.Type{types.Name},
			Results: []types.Type{anyObject},
			Impl: func(args []types.Value) ([]types.Value, error) {
				if args[0].Str == "" {
					return nil, fmt.Errorf("symbols: %s: empty class name", BeginConstruct)
				}
				return []types.Value{types.MakeString(types.KindObject, args[0].Str)}, nil
			},
		},
		&Function{
			Name:    SetProperty,
			Params:  []types.Type{anyObject, types.Name, wild},
			Results: []types.Type{anyObject},
			Impl: func(args []types.Value) ([]types.Value, error) {
				obj, key, val := args[0], args[1], args[2]
				if obj.Bool {
					return nil, fmt.Errorf("symbols: %s: object %s is already constructed", SetProperty, obj.Str)
				}
				out := obj
				out.Keys = append([]types.Value(nil), obj.Keys...)
				out.Items = append([]types.Value(nil), obj.Items...)
				for i, k := range out.Keys {
					if k.Str == key.Str {
						out.Items[i] = val
						return []types.Value{out}, nil
					}
				}
				out.Keys = append(out.Keys, types.MakeString(types.KindName, key.Str))
				out.Items = append(out.Items, val)
				return []types.Value{out}, nil
			},
		},
		&Function{
			Name:    FinishConstruct,
			Params:  []types.Type{anyObject},
			Results: []types.Type{anyObject},
			Impl: func(args []types.Value) ([]types.Value, error) {
				out := args[0]
				out.Bool = true
				return []types.Value{out}, nil
			},
		},
	)
}

// Property returns the value of a property on a constructed object.
func Property(obj types.Value, name string) (types.Value, bool) {
	for i, k := range obj.Keys {
		if k.Str == name && i < len(obj.Items) {
			return obj.Items[i], true
		}
	}
	return types.Value{}, false
}
