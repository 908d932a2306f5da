package symbols

import (
	"errors"
	"fmt"
	"io"

	"github.com/chazu/graphc/types"
)

var (
	wild      = types.Wildcard
	wildArray = types.ArrayOf(types.Wildcard)
	anyObject = types.ObjectOf("")
)

// ErrDivideByZero is returned by integer division by zero.
var ErrDivideByZero = errors.New("symbols: integer division by zero")

// Builtins returns a registry holding the standard library. print writes
// to out; a nil out discards output.
func Builtins(out io.Writer) *Registry {
	if out == nil {
		out = io.Discard
	}
	r := NewRegistry()
	r.MustRegister(
		arith("add", func(a, b float64) float64 { return a + b }, func(a, b int64) (int64, error) { return a + b, nil }),
		arith("subtract", func(a, b float64) float64 { return a - b }, func(a, b int64) (int64, error) { return a - b, nil }),
		arith("multiply", func(a, b float64) float64 { return a * b }, func(a, b int64) (int64, error) { return a * b, nil }),
		arith("divide", func(a, b float64) float64 { return a / b }, func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, ErrDivideByZero
			}
			return a / b, nil
		}),
		compare("less", func(c int) bool { return c < 0 }),
		compare("less_equal", func(c int) bool { return c <= 0 }),
		compare("greater", func(c int) bool { return c > 0 }),
		compare("greater_equal", func(c int) bool { return c >= 0 }),
		&Function{
			Name:    "equal",
			Params:  []types.Type{wild, wild},
			Results: []types.Type{types.Bool},
			Impl: func(args []types.Value) ([]types.Value, error) {
				return []types.Value{types.MakeBool(args[0].Equal(args[1]))}, nil
			},
		},
		&Function{
			Name:    "not",
			Params:  []types.Type{types.Bool},
			Results: []types.Type{types.Bool},
			Impl: func(args []types.Value) ([]types.Value, error) {
				return []types.Value{types.MakeBool(!args[0].Truthy())}, nil
			},
		},
		&Function{
			Name:    "and",
			Params:  []types.Type{types.Bool, types.Bool},
			Results: []types.Type{types.Bool},
			Impl: func(args []types.Value) ([]types.Value, error) {
				return []types.Value{types.MakeBool(args[0].Truthy() && args[1].Truthy())}, nil
			},
		},
		&Function{
			Name:    "or",
			Params:  []types.Type{types.Bool, types.Bool},
			Results: []types.Type{types.Bool},
			Impl: func(args []types.Value) ([]types.Value, error) {
				return []types.Value{types.MakeBool(args[0].Truthy() || args[1].Truthy())}, nil
			},
		},
		&Function{
			Name:    "array_length",
			Params:  []types.Type{wildArray},
			Results: []types.Type{types.Int32},
			Impl: func(args []types.Value) ([]types.Value, error) {
				return []types.Value{types.MakeInt(types.KindInt32, int64(len(args[0].Items)))}, nil
			},
		},
		&Function{
			Name:    "array_get",
			Params:  []types.Type{wildArray, types.Int32},
			Results: []types.Type{wild},
			Impl: func(args []types.Value) ([]types.Value, error) {
				items, i := args[0].Items, args[1].AsInt()
				if i < 0 || i >= int64(len(items)) {
					return nil, fmt.Errorf("symbols: array_get: index %d out of range [0, %d)", i, len(items))
				}
				return []types.Value{items[i]}, nil
			},
		},
		&Function{
			Name:    "array_add",
			Params:  []types.Type{wildArray, wild},
			Results: []types.Type{wildArray},
			Impl: func(args []types.Value) ([]types.Value, error) {
				items := append(append([]types.Value(nil), args[0].Items...), args[1])
				return []types.Value{types.MakeArray(items...)}, nil
			},
		},
		&Function{
			Name:   "print",
			Params: []types.Type{types.String},
			Impl: func(args []types.Value) ([]types.Value, error) {
				_, err := fmt.Fprintln(out, args[0].Str)
				return nil, err
			},
		},
		&Function{
			Name:    "to_string",
			Params:  []types.Type{wild},
			Results: []types.Type{types.String},
			Impl: func(args []types.Value) ([]types.Value, error) {
				return []types.Value{types.MakeString(types.KindString, types.FormatLiteral(args[0]))}, nil
			},
		},
	)
	registerConstruction(r)
	return r
}

// arith builds a wildcard arithmetic function. Integers stay integers;
// vectors combine componentwise.
func arith(name string, fop func(a, b float64) float64, iop func(a, b int64) (int64, error)) *Function {
	return &Function{
		Name:    name,
		Params:  []types.Type{wild, wild},
		Results: []types.Type{wild},
		Impl: func(args []types.Value) ([]types.Value, error) {
			a, b := args[0], args[1]
			switch {
			case a.Kind.IsInteger():
				v, err := iop(a.AsInt(), b.AsInt())
				if err != nil {
					return nil, err
				}
				return []types.Value{types.MakeInt(a.Kind, v)}, nil
			case a.Kind.IsFloat():
				return []types.Value{types.MakeFloat(a.Kind, fop(a.AsFloat(), b.AsFloat()))}, nil
			case a.Kind == types.KindVector || a.Kind == types.KindVector2:
				if len(a.Vec) != len(b.Vec) {
					return nil, fmt.Errorf("symbols: %s: vector size mismatch", name)
				}
				comps := make([]float64, len(a.Vec))
				for i := range comps {
					comps[i] = fop(a.Vec[i], b.Vec[i])
				}
				return []types.Value{types.MakeVector(a.Kind, comps...)}, nil
			case a.Kind == types.KindString && name == "add":
				return []types.Value{types.MakeString(types.KindString, a.Str+b.Str)}, nil
			}
			return nil, fmt.Errorf("symbols: %s: unsupported operand kind %s", name, a.Kind)
		},
	}
}

func compare(name string, test func(c int) bool) *Function {
	return &Function{
		Name:    name,
		Params:  []types.Type{wild, wild},
		Results: []types.Type{types.Bool},
		Impl: func(args []types.Value) ([]types.Value, error) {
			a, b := args[0], args[1]
			var c int
			switch {
			case a.Kind.IsInteger():
				c = cmpOrdered(a.AsInt(), b.AsInt())
			case a.Kind.IsFloat():
				c = cmpOrdered(a.AsFloat(), b.AsFloat())
			case a.Kind == types.KindString || a.Kind == types.KindName:
				c = cmpOrdered(a.Str, b.Str)
			default:
				return nil, fmt.Errorf("symbols: %s: unordered operand kind %s", name, a.Kind)
			}
			return []types.Value{types.MakeBool(test(c))}, nil
		},
	}
}

func cmpOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
