package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/graphc/types"
)

// Document is the serialized form of a graph as supplied by the editor or
// asset store. Pins carry their connection lists verbatim so that
// asymmetric input is detected by Validate rather than repaired.
type Document struct {
	Name  string       `json:"name" cbor:"1,keyasint"`
	Nodes []NodeRecord `json:"nodes" cbor:"2,keyasint"`
	Pins  []PinRecord  `json:"pins" cbor:"3,keyasint"`
}

// NodeRecord is a serialized node.
type NodeRecord struct {
	ID     string            `json:"id" cbor:"1,keyasint"`
	Kind   string            `json:"kind" cbor:"2,keyasint"`
	Config map[string]string `json:"config,omitempty" cbor:"3,keyasint,omitempty"`
	Pins   []string          `json:"pins" cbor:"4,keyasint"`
}

// PinRecord is a serialized pin. Direction is "in" or "out", Kind is
// "exec" or "data", Type uses the types.Parse syntax.
type PinRecord struct {
	ID          string   `json:"id" cbor:"1,keyasint"`
	Name        string   `json:"name" cbor:"2,keyasint"`
	Direction   string   `json:"direction" cbor:"3,keyasint"`
	Kind        string   `json:"kind" cbor:"4,keyasint"`
	Type        string   `json:"type,omitempty" cbor:"5,keyasint,omitempty"`
	Default     *string  `json:"default,omitempty" cbor:"6,keyasint,omitempty"`
	DefaultType string   `json:"defaultType,omitempty" cbor:"7,keyasint,omitempty"`
	Role        string   `json:"role,omitempty" cbor:"8,keyasint,omitempty"`
	Links       []string `json:"links,omitempty" cbor:"9,keyasint,omitempty"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("graph: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// EncodeCBOR serializes a document in canonical CBOR.
func (d *Document) EncodeCBOR() ([]byte, error) {
	return cborEncMode.Marshal(d)
}

// EncodeJSON serializes a document as indented JSON.
func (d *Document) EncodeJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// DecodeCBOR reads a CBOR document.
func DecodeCBOR(data []byte) (*Document, error) {
	var d Document
	if err := cbor.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("graph: unmarshal cbor document: %w", err)
	}
	return &d, nil
}

// DecodeJSON reads a JSON document.
func DecodeJSON(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("graph: unmarshal json document: %w", err)
	}
	return &d, nil
}

// LoadFile reads a graph document, choosing the codec by extension:
// ".json" is JSON, anything else is CBOR.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var doc *Document
	if strings.EqualFold(filepath.Ext(path), ".json") {
		doc, err = DecodeJSON(data)
	} else {
		doc, err = DecodeCBOR(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return FromDocument(doc)
}

// FromDocument materializes a document. Connection lists are copied as
// recorded; call Validate to check them.
func FromDocument(d *Document) (*Graph, error) {
	g := New(d.Name)
	owner := make(map[string]NodeID)
	for _, nr := range d.Nodes {
		if _, err := g.AddNode(NodeID(nr.ID), Kind(nr.Kind), copyConfig(nr.Config)); err != nil {
			return nil, err
		}
		for _, pid := range nr.Pins {
			if prev, dup := owner[pid]; dup {
				return nil, fmt.Errorf("graph: pin %q listed by nodes %q and %q", pid, prev, nr.ID)
			}
			owner[pid] = NodeID(nr.ID)
		}
	}

	records := make(map[string]PinRecord, len(d.Pins))
	for _, pr := range d.Pins {
		records[pr.ID] = pr
	}
	for _, nr := range d.Nodes {
		for _, pid := range nr.Pins {
			pr, ok := records[pid]
			if !ok {
				return nil, &StructuralError{Node: NodeID(nr.ID), Pin: PinID(pid), Message: "pin record missing"}
			}
			pin, err := pinFromRecord(pr)
			if err != nil {
				return nil, err
			}
			if _, err := g.AddPin(NodeID(nr.ID), pin); err != nil {
				return nil, err
			}
		}
	}
	for _, pr := range d.Pins {
		p := g.Pin(PinID(pr.ID))
		if p == nil {
			return nil, &StructuralError{Pin: PinID(pr.ID), Message: "pin is not owned by any node"}
		}
		for _, l := range pr.Links {
			p.Links = append(p.Links, PinID(l))
		}
	}
	return g, nil
}

func pinFromRecord(pr PinRecord) (Pin, error) {
	p := Pin{ID: PinID(pr.ID), Name: pr.Name}
	switch pr.Direction {
	case "in", "input":
		p.Dir = Input
	case "out", "output":
		p.Dir = Output
	default:
		return Pin{}, fmt.Errorf("graph: pin %q: unknown direction %q", pr.ID, pr.Direction)
	}
	switch pr.Kind {
	case "exec":
		p.Kind = Exec
	case "data", "":
		p.Kind = Data
	default:
		return Pin{}, fmt.Errorf("graph: pin %q: unknown kind %q", pr.ID, pr.Kind)
	}
	if p.Kind == Data {
		t, err := types.Parse(pr.Type)
		if err != nil {
			return Pin{}, fmt.Errorf("graph: pin %q: %w", pr.ID, err)
		}
		p.Type = t
	}
	if pr.Default != nil {
		p.Default, p.HasDefault = *pr.Default, true
	}
	if pr.DefaultType != "" {
		t, err := types.Parse(pr.DefaultType)
		if err != nil {
			return Pin{}, fmt.Errorf("graph: pin %q default type: %w", pr.ID, err)
		}
		p.DefaultType = t
	}
	switch pr.Role {
	case "":
	case "param":
		p.Role = RoleParam
	case "result":
		p.Role = RoleResult
	default:
		return Pin{}, fmt.Errorf("graph: pin %q: unknown role %q", pr.ID, pr.Role)
	}
	return p, nil
}

// ToDocument serializes g.
func (g *Graph) ToDocument() *Document {
	d := &Document{Name: g.name}
	for _, n := range g.Nodes() {
		nr := NodeRecord{ID: string(n.ID), Kind: string(n.Kind), Config: copyConfig(n.Config)}
		if len(nr.Config) == 0 {
			nr.Config = nil
		}
		for _, p := range g.Pins(n) {
			nr.Pins = append(nr.Pins, string(p.ID))
			pr := PinRecord{
				ID:        string(p.ID),
				Name:      p.Name,
				Direction: p.Dir.String(),
				Kind:      p.Kind.String(),
				Role:      p.Role.String(),
			}
			if p.Kind == Data {
				pr.Type = p.Type.String()
			}
			if p.HasDefault {
				text := p.Default
				pr.Default = &text
			}
			if !p.DefaultType.HasWildcard() {
				pr.DefaultType = p.DefaultType.String()
			}
			for _, l := range p.Links {
				pr.Links = append(pr.Links, string(l))
			}
			d.Pins = append(d.Pins, pr)
		}
		d.Nodes = append(d.Nodes, nr)
	}
	return d
}

func copyConfig(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
