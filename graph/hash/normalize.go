package hash

import (
	"sort"

	"github.com/chazu/graphc/graph"
)

// HGraph is the frozen hashing form of a graph. Fields that cannot change
// the compiled program are dropped: the default text of a connected data
// input and the link order of input pins, which is derived from outputs.
type HGraph struct {
	Name  string
	Nodes []HNode
}

// HNode is a node with its config sorted by key.
type HNode struct {
	ID     string
	Kind   string
	Config [][2]string
	Pins   []HPin
}

// HPin is a pin as it affects compilation.
type HPin struct {
	ID          string
	Name        string
	Dir         byte
	Kind        byte
	Type        string
	Default     string
	HasDefault  bool
	DefaultType string
	Role        byte
	Links       []string
}

// Normalize converts g to its hashing form. Node and pin order follow the
// graph so that schedules, which depend on that order, hash differently.
func Normalize(g *graph.Graph) *HGraph {
	hg := &HGraph{Name: g.Name()}
	for _, n := range g.Nodes() {
		hn := HNode{ID: string(n.ID), Kind: string(n.Kind)}
		keys := make([]string, 0, len(n.Config))
		for k := range n.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			hn.Config = append(hn.Config, [2]string{k, n.Config[k]})
		}
		for _, p := range g.Pins(n) {
			hn.Pins = append(hn.Pins, normalizePin(p))
		}
		hg.Nodes = append(hg.Nodes, hn)
	}
	return hg
}

func normalizePin(p *graph.Pin) HPin {
	hp := HPin{
		ID:   string(p.ID),
		Name: p.Name,
		Dir:  byte(p.Dir),
		Kind: byte(p.Kind),
		Role: byte(p.Role),
	}
	if p.Kind == graph.Data {
		hp.Type = p.Type.String()
	}
	connectedInput := p.Dir == graph.Input && p.Kind == graph.Data && len(p.Links) > 0
	if p.HasDefault && !connectedInput {
		hp.Default, hp.HasDefault = p.Default, true
		if !p.DefaultType.HasWildcard() {
			hp.DefaultType = p.DefaultType.String()
		}
	}
	for _, l := range p.Links {
		hp.Links = append(hp.Links, string(l))
	}
	if p.Dir == graph.Input {
		// Input link order carries no meaning.
		sort.Strings(hp.Links)
	}
	return hp
}
