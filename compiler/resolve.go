package compiler

import (
	"errors"
	"fmt"

	"github.com/chazu/graphc/diag"
	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/symbols"
	"github.com/chazu/graphc/types"
)

// unionFind groups keys: pin ids, plus one synthetic key per named
// variable.
type unionFind struct {
	parent map[string]string
	order  []string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) add(k string) {
	if _, ok := u.parent[k]; !ok {
		u.parent[k] = k
		u.order = append(u.order, k)
	}
}

func (u *unionFind) has(k string) bool {
	_, ok := u.parent[k]
	return ok
}

func (u *unionFind) find(k string) string {
	for u.parent[k] != k {
		u.parent[k] = u.parent[u.parent[k]]
		k = u.parent[k]
	}
	return k
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}

func varKey(name string) string { return "var:" + name }

// wildGroup is one set of wildcard pins that must resolve to the same hole.
type wildGroup struct {
	pins       []*graph.Pin
	candidates []types.Type
	// defaults are fallback candidates from default text authored for a
	// concrete type, used only when no connection constrains the group.
	defaults []types.Type
}

type resolver struct {
	g     *graph.Graph
	reg   *types.Registry
	fns   *symbols.Registry
	diags *diag.List
}

// resolveTypes substitutes a concrete type into every wildcard-bearing pin
// and then fixes up links between mismatched concrete types.
func resolveTypes(g *graph.Graph, reg *types.Registry, fns *symbols.Registry, diags *diag.List) {
	r := &resolver{g: g, reg: reg, fns: fns, diags: diags}
	r.resolveWildcards()
	r.checkLinks()
}

func (r *resolver) resolveWildcards() {
	uf := newUnionFind()
	varShape := make(map[string]types.Type)

	for _, n := range r.g.Nodes() {
		var first string
		for _, p := range r.g.PinsOf(n, graph.Input, graph.Data) {
			first = r.addWild(uf, n, p, first, varShape)
		}
		for _, p := range r.g.PinsOf(n, graph.Output, graph.Data) {
			first = r.addWild(uf, n, p, first, varShape)
		}
	}
	for _, k := range uf.order {
		p := r.g.Pin(graph.PinID(k))
		if p == nil {
			continue
		}
		for _, q := range r.g.Linked(p) {
			if q.Type.HasWildcard() {
				uf.union(k, string(q.ID))
			}
		}
	}

	groups := make(map[string]*wildGroup)
	var roots []string
	group := func(k string) *wildGroup {
		root := uf.find(k)
		wg, ok := groups[root]
		if !ok {
			wg = &wildGroup{}
			groups[root] = wg
			roots = append(roots, root)
		}
		return wg
	}
	for _, k := range uf.order {
		p := r.g.Pin(graph.PinID(k))
		if p == nil {
			continue
		}
		wg := group(k)
		wg.pins = append(wg.pins, p)
		r.collect(wg, p)
	}

	// Concrete variable pins constrain the wildcard pins of the same
	// variable.
	for _, n := range r.g.Nodes() {
		name, ok := varName(n)
		if !ok || !uf.has(varKey(name)) {
			continue
		}
		for _, p := range r.g.Pins(n) {
			if p.Kind != graph.Data || p.Type.HasWildcard() {
				continue
			}
			if hole, ok := types.Match(varShape[name], p.Type); ok {
				wg := group(varKey(name))
				wg.candidates = append(wg.candidates, hole)
			}
		}
	}

	for _, root := range roots {
		wg := groups[root]
		if len(wg.pins) == 0 {
			continue
		}
		hole := r.resolveGroup(wg)
		for _, p := range wg.pins {
			p.Type = types.Substitute(p.Type, hole)
		}
	}
}

// addWild registers p when its type has a wildcard. All wildcard pins of
// one node share a hole, as do the pins of one named variable.
func (r *resolver) addWild(uf *unionFind, n *graph.Node, p *graph.Pin, first string, varShape map[string]types.Type) string {
	if !p.Type.HasWildcard() {
		return first
	}
	k := string(p.ID)
	uf.add(k)
	if first == "" {
		first = k
	} else {
		uf.union(first, k)
	}
	if name, ok := varName(n); ok {
		vk := varKey(name)
		uf.add(vk)
		uf.union(k, vk)
		if _, seen := varShape[name]; !seen {
			varShape[name] = p.Type
		}
	}
	return first
}

func varName(n *graph.Node) (string, bool) {
	if n.Kind != graph.KindGetVar && n.Kind != graph.KindSetVar {
		return "", false
	}
	name := n.Config[graph.ConfigVar]
	return name, name != ""
}

// collect gathers the hole types implied for p by its concrete neighbours,
// by the signature of the function it belongs to, and by its default text.
func (r *resolver) collect(wg *wildGroup, p *graph.Pin) {
	for _, q := range r.g.Linked(p) {
		if q.Type.HasWildcard() {
			continue
		}
		if hole, ok := types.Match(p.Type, q.Type); ok {
			wg.candidates = append(wg.candidates, hole)
		}
	}
	if t, ok := r.signatureType(p); ok {
		if hole, ok := types.Match(p.Type, t); ok {
			wg.candidates = append(wg.candidates, hole)
		}
	}
	if p.HasDefault && len(p.Links) == 0 && !p.DefaultType.HasWildcard() {
		if hole, ok := types.Match(p.Type, p.DefaultType); ok {
			wg.defaults = append(wg.defaults, hole)
		}
	}
}

// signatureType returns the declared type of the call parameter or result
// that p binds to, when it is concrete.
func (r *resolver) signatureType(p *graph.Pin) (types.Type, bool) {
	n := r.g.Node(p.Node)
	if n == nil || n.Kind != graph.KindCall || r.fns == nil {
		return types.Type{}, false
	}
	f, ok := r.fns.Lookup(n.Config[graph.ConfigFunction])
	if !ok {
		return types.Type{}, false
	}
	sig := f.Params
	if p.Dir == graph.Output {
		sig = f.Results
	}
	for i, q := range r.g.PinsOf(n, p.Dir, graph.Data) {
		if q.ID == p.ID && i < len(sig) && !sig[i].HasWildcard() {
			return sig[i], true
		}
	}
	return types.Type{}, false
}

func (r *resolver) resolveGroup(wg *wildGroup) types.Type {
	node := string(wg.pins[0].Node)
	candidates := wg.candidates
	if len(candidates) == 0 {
		candidates = wg.defaults
	}
	t, err := r.reg.Resolve(candidates)
	if err == nil {
		return t
	}
	fallback := r.reg.Fallback()
	var ce *types.ConflictError
	switch {
	case errors.As(err, &ce):
		r.diags.Errorf(node, "%v; using %s", err, fallback)
	case errors.Is(err, types.ErrNoCandidates):
		r.diags.Errorf(node, "cannot infer type of wildcard pin %s; using %s", wg.pins[0].Name, fallback)
	default:
		r.diags.Errorf(node, "%v", err)
	}
	return fallback
}

// checkLinks visits every data link whose endpoints disagree. A promotable
// link gets a convert node; a link from a literal node is left for the
// terminal allocator to convert; anything else is cut.
func (r *resolver) checkLinks() {
	type mismatch struct{ src, dst *graph.Pin }
	var todo []mismatch
	for _, n := range r.g.Nodes() {
		for _, dst := range r.g.PinsOf(n, graph.Input, graph.Data) {
			for _, src := range r.g.Linked(dst) {
				if !src.Type.Equal(dst.Type) {
					todo = append(todo, mismatch{src, dst})
				}
			}
		}
	}
	for _, m := range todo {
		srcNode := r.g.Node(m.src.Node)
		if srcNode.Kind == graph.KindLiteral {
			continue
		}
		if r.reg.PromotesTo(m.src.Type, m.dst.Type) {
			if err := r.insertConvert(m.src, m.dst); err != nil {
				r.diags.Errorf(string(m.dst.Node), "%v", err)
			}
			continue
		}
		r.diags.Errorf(string(m.dst.Node), "cannot use %s value from %s as %s input %s",
			m.src.Type, m.src.ID, m.dst.Type, m.dst.Name)
		r.g.Disconnect(m.src.ID, m.dst.ID)
		m.dst.HasDefault = false
	}
}

func (r *resolver) insertConvert(src, dst *graph.Pin) error {
	id := fmt.Sprintf("%s/convert", dst.ID)
	if err := graph.Extend(r.g).Node(id, graph.KindConvert, nil,
		graph.In(graph.PinValue, src.Type), graph.Out(graph.PinResult, dst.Type)).Err(); err != nil {
		return err
	}
	cv := graph.NodeID(id)
	if err := r.g.ReplaceLink(src.ID, dst.ID, graph.PinRef(cv, graph.PinValue)); err != nil {
		return err
	}
	return r.g.Connect(graph.PinRef(cv, graph.PinResult), dst.ID)
}
