package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal serializes a program as canonical CBOR. Equal programs produce
// identical bytes.
func (p *Program) Marshal() ([]byte, error) {
	return encMode.Marshal(p)
}

// Unmarshal decodes and checks a CBOR program.
func Unmarshal(data []byte) (*Program, error) {
	var p Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	if err := p.Check(); err != nil {
		return nil, err
	}
	return &p, nil
}
