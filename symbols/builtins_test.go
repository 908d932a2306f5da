package symbols

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chazu/graphc/types"
)

func call(t *testing.T, r *Registry, name string, args ...types.Value) []types.Value {
	t.Helper()
	f, ok := r.Lookup(name)
	if !ok {
		t.Fatalf("Lookup(%q) failed", name)
	}
	out, err := f.Impl(args)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return out
}

func TestArithmetic(t *testing.T) {
	r := Builtins(nil)
	tests := []struct {
		name string
		a, b types.Value
		want types.Value
	}{
		{"add", types.MakeInt(types.KindInt32, 2), types.MakeInt(types.KindInt32, 3), types.MakeInt(types.KindInt32, 5)},
		{"add", types.MakeFloat(types.KindFloat, 4), types.MakeFloat(types.KindFloat, 2.5), types.MakeFloat(types.KindFloat, 6.5)},
		{"subtract", types.MakeInt(types.KindInt64, 10), types.MakeInt(types.KindInt64, 4), types.MakeInt(types.KindInt64, 6)},
		{"multiply", types.MakeFloat(types.KindDouble, 1.5), types.MakeFloat(types.KindDouble, 2), types.MakeFloat(types.KindDouble, 3)},
		{"divide", types.MakeInt(types.KindInt32, 7), types.MakeInt(types.KindInt32, 2), types.MakeInt(types.KindInt32, 3)},
		{"add", types.MakeVector(types.KindVector, 1, 2, 3), types.MakeVector(types.KindVector, 1, 1, 1), types.MakeVector(types.KindVector, 2, 3, 4)},
		{"add", types.MakeString(types.KindString, "ab"), types.MakeString(types.KindString, "cd"), types.MakeString(types.KindString, "abcd")},
	}
	for _, tt := range tests {
		got := call(t, r, tt.name, tt.a, tt.b)
		if len(got) != 1 || !got[0].Equal(tt.want) {
			t.Errorf("%s(%v, %v) = %v, want %v", tt.name, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDivideByZero(t *testing.T) {
	f, _ := Builtins(nil).Lookup("divide")
	_, err := f.Impl([]types.Value{types.MakeInt(types.KindInt32, 1), types.MakeInt(types.KindInt32, 0)})
	if !errors.Is(err, ErrDivideByZero) {
		t.Errorf("divide by zero error = %v, want ErrDivideByZero", err)
	}
}

func TestComparisons(t *testing.T) {
	r := Builtins(nil)
	one, two := types.MakeInt(types.KindInt32, 1), types.MakeInt(types.KindInt32, 2)
	tests := []struct {
		name string
		a, b types.Value
		want bool
	}{
		{"less", one, two, true},
		{"less", two, one, false},
		{"less_equal", two, two, true},
		{"greater", two, one, true},
		{"greater_equal", one, two, false},
		{"equal", one, one, true},
		{"equal", one, two, false},
	}
	for _, tt := range tests {
		got := call(t, r, tt.name, tt.a, tt.b)
		if got[0].Bool != tt.want {
			t.Errorf("%s(%v, %v) = %v, want %v", tt.name, tt.a, tt.b, got[0].Bool, tt.want)
		}
	}
}

func TestArrays(t *testing.T) {
	r := Builtins(nil)
	arr := types.MakeArray(types.MakeInt(types.KindInt32, 10), types.MakeInt(types.KindInt32, 20))
	if got := call(t, r, "array_length", arr); got[0].Int != 2 {
		t.Errorf("array_length = %v, want 2", got[0])
	}
	if got := call(t, r, "array_get", arr, types.MakeInt(types.KindInt32, 1)); got[0].Int != 20 {
		t.Errorf("array_get(1) = %v, want 20", got[0])
	}
	f, _ := r.Lookup("array_get")
	if _, err := f.Impl([]types.Value{arr, types.MakeInt(types.KindInt32, 2)}); err == nil {
		t.Error("array_get out of range should fail")
	}
	grown := call(t, r, "array_add", arr, types.MakeInt(types.KindInt32, 30))
	if len(grown[0].Items) != 3 || len(arr.Items) != 2 {
		t.Errorf("array_add must copy: got %d items, source %d", len(grown[0].Items), len(arr.Items))
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	r := Builtins(&buf)
	call(t, r, "print", types.MakeString(types.KindString, "hello"))
	if buf.String() != "hello\n" {
		t.Errorf("print wrote %q, want %q", buf.String(), "hello\n")
	}
}

func TestConstruction(t *testing.T) {
	r := Builtins(nil)
	obj := call(t, r, BeginConstruct, types.MakeString(types.KindName, "Actor"))[0]
	obj = call(t, r, SetProperty, obj, types.MakeString(types.KindName, "health"), types.MakeInt(types.KindInt32, 100))[0]
	obj = call(t, r, SetProperty, obj, types.MakeString(types.KindName, "health"), types.MakeInt(types.KindInt32, 90))[0]
	obj = call(t, r, FinishConstruct, obj)[0]

	if obj.Kind != types.KindObject || obj.Str != "Actor" {
		t.Errorf("object = %v, want an Actor", obj)
	}
	v, ok := Property(obj, "health")
	if !ok || v.Int != 90 {
		t.Errorf("Property(health) = %v, %v, want 90", v, ok)
	}
	f, _ := r.Lookup(SetProperty)
	if _, err := f.Impl([]types.Value{obj, types.MakeString(types.KindName, "x"), types.MakeBool(true)}); err == nil {
		t.Error("set_property after finish_construct should fail")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&Function{Name: "nop"}); err == nil {
		t.Error("Register without Impl should fail")
	}
	if err := r.Register(&Function{Impl: func([]types.Value) ([]types.Value, error) { return nil, nil }}); err == nil {
		t.Error("Register without name should fail")
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup(missing) succeeded")
	}
	names := Builtins(nil).Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("Names() not sorted: %v", names)
		}
	}
}

func TestCounter(t *testing.T) {
	f, _ := Builtins(nil).Lookup("add")
	counted, n := Counter(f)
	if counted.Name != "add" {
		t.Errorf("Name = %q, want add", counted.Name)
	}
	two := types.MakeInt(types.KindInt32, 2)
	for i := 0; i < 3; i++ {
		if _, err := counted.Impl([]types.Value{two, two}); err != nil {
			t.Fatal(err)
		}
	}
	if n.Load() != 3 {
		t.Errorf("count = %d, want 3", n.Load())
	}
}

func TestSignature(t *testing.T) {
	f, _ := Builtins(nil).Lookup("array_length")
	if got, want := f.Signature(), "array_length(array<*>) -> (int32)"; got != want {
		t.Errorf("Signature() = %q, want %q", got, want)
	}
}
