// Package symbols is the function registry consulted by the compiler and
// linked by the reference machine: each entry names a callable, its
// signature and a native implementation.
package symbols

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/chazu/graphc/types"
)

// NativeFunc implements a function. Arguments arrive already converted to
// the parameter types the call site resolved.
type NativeFunc func(args []types.Value) ([]types.Value, error)

// Function describes a callable. Params and Results may contain wildcards;
// the call site resolves them.
type Function struct {
	Name    string
	Params  []types.Type
	Results []types.Type
	Impl    NativeFunc
}

// Signature renders the function as "name(p1, p2) -> (r1)".
func (f *Function) Signature() string {
	return fmt.Sprintf("%s%s -> %s", f.Name, typeList(f.Params), typeList(f.Results))
}

func typeList(ts []types.Type) string {
	s := "("
	for i, t := range ts {
		if i > 0 {
			s += ", "
		}
		s += t.String()
	}
	return s + ")"
}

// Registry maps function names to functions. It is safe for concurrent
// lookups; registration is expected to finish before compilation starts.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*Function
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Function)}
}

// Register adds f. A function with the same name is replaced.
func (r *Registry) Register(f *Function) error {
	if f == nil || f.Name == "" {
		return fmt.Errorf("symbols: function needs a name")
	}
	if f.Impl == nil {
		return fmt.Errorf("symbols: function %q has no implementation", f.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[f.Name] = f
	return nil
}

// MustRegister is Register for built-in tables known to be valid.
func (r *Registry) MustRegister(fs ...*Function) {
	for _, f := range fs {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the function called name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[name]
	return f, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Counter wraps f so every invocation increments the returned counter. The
// wrapped function keeps f's name and signature.
func Counter(f *Function) (*Function, *atomic.Int64) {
	n := new(atomic.Int64)
	inner := f.Impl
	wrapped := *f
	wrapped.Impl = func(args []types.Value) ([]types.Value, error) {
		n.Add(1)
		return inner(args)
	}
	return &wrapped, n
}
