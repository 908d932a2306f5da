package expand

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/graph/hash"
)

// MacroLibrary holds named macro graphs. A macro graph marks its boundary
// with at most one macro_input node, whose outputs are the macro's inputs,
// and at most one macro_output node, whose inputs are the macro's outputs.
// Pins are matched to the macro node's pins by name.
type MacroLibrary struct {
	mu     sync.RWMutex
	macros map[string]*graph.Graph
}

// NewMacroLibrary creates an empty library.
func NewMacroLibrary() *MacroLibrary {
	return &MacroLibrary{macros: make(map[string]*graph.Graph)}
}

// Add validates and stores g under name.
func (l *MacroLibrary) Add(name string, g *graph.Graph) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("macro %s: %w", name, err)
	}
	var inputs, outputs int
	for _, n := range g.Nodes() {
		switch n.Kind {
		case graph.KindMacroInput:
			inputs++
		case graph.KindMacroOutput:
			outputs++
		}
	}
	if inputs > 1 || outputs > 1 {
		return fmt.Errorf("macro %s: want at most one macro_input and one macro_output node, got %d and %d", name, inputs, outputs)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.macros[name] = g
	return nil
}

// LoadFile reads a macro graph document and adds it under its graph name.
func (l *MacroLibrary) LoadFile(path string) error {
	g, err := graph.LoadFile(path)
	if err != nil {
		return err
	}
	return l.Add(g.Name(), g)
}

// Lookup returns the macro called name.
func (l *MacroLibrary) Lookup(name string) (*graph.Graph, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	g, ok := l.macros[name]
	return g, ok
}

// Names returns the macro names in sorted order.
func (l *MacroLibrary) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.macros))
	for n := range l.macros {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// macro inlines a copy of the named macro graph. Tunnel nodes are not
// copied; the pins they connect to become the boundary.
func (e *Expander) macro(x *Expansion, n *graph.Node) (Boundary, error) {
	name := n.Config[graph.ConfigMacro]
	if name == "" {
		return nil, fmt.Errorf("macro node has no %q config", graph.ConfigMacro)
	}
	m, ok := e.opts.Macros.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown macro %q", name)
	}

	tunnel := func(id graph.NodeID) bool {
		k := m.Node(id).Kind
		return k == graph.KindMacroInput || k == graph.KindMacroOutput
	}
	clones := make(map[graph.PinID]graph.PinID)
	clonePin := func(id graph.PinID) graph.PinID { return clones[id] }

	for _, mn := range m.Nodes() {
		if tunnel(mn.ID) {
			continue
		}
		cfg := make(map[string]string, len(mn.Config))
		for k, v := range mn.Config {
			cfg[k] = v
		}
		id := graph.NodeID(x.ID(string(mn.ID)))
		specs := make([]graph.PinSpec, 0, len(mn.Pins))
		for _, p := range m.Pins(mn) {
			specs = append(specs, graph.PinSpec{
				Name: p.Name, Dir: p.Dir, Kind: p.Kind, Type: p.Type,
				Default: p.Default, HasDefault: p.HasDefault, DefaultType: p.DefaultType,
			})
			clones[p.ID] = graph.PinRef(id, p.Name)
		}
		x.Build().Node(string(id), mn.Kind, cfg, specs...)
		if err := x.Build().Err(); err != nil {
			return nil, err
		}
	}

	g := x.Graph
	boundary := make(Boundary)
	for _, mn := range m.Nodes() {
		for _, p := range m.Pins(mn) {
			for _, q := range m.Linked(p) {
				switch {
				case tunnel(mn.ID) && tunnel(q.Node):
					return nil, fmt.Errorf("macro %s passes %s straight through", name, p.Name)
				case tunnel(mn.ID):
					// The far side replaces this tunnel pin.
					boundary[p.Name] = append(boundary[p.Name], clonePin(q.ID))
				case tunnel(q.Node):
					// Handled from the tunnel's side.
				case p.Dir == graph.Output:
					if err := g.Connect(clonePin(p.ID), clonePin(q.ID)); err != nil {
						return nil, err
					}
				}
			}
		}
	}
	return boundary, nil
}

// Fingerprint digests the library's names and macro graph contents.
func (l *MacroLibrary) Fingerprint() string {
	h := sha256.New()
	for _, name := range l.Names() {
		g, _ := l.Lookup(name)
		sum := hash.Graph(g)
		fmt.Fprintf(h, "%s=%x\n", name, sum)
	}
	return hex.EncodeToString(h.Sum(nil))
}
