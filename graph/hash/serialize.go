package hash

import (
	"encoding/binary"
)

// Serialize produces the canonical byte encoding of a hashing graph:
// version byte, then tag-prefixed records with length-prefixed strings.
func Serialize(hg *HGraph, salt ...string) []byte {
	s := &serializer{}
	s.writeByte(HashVersion)
	s.writeByte(TagGraph)
	s.writeString(hg.Name)
	s.writeUint32(uint32(len(hg.Nodes)))
	for i := range hg.Nodes {
		s.serializeNode(&hg.Nodes[i])
	}
	for _, v := range salt {
		s.writeByte(TagSalt)
		s.writeString(v)
	}
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) serializeNode(n *HNode) {
	s.writeByte(TagNode)
	s.writeString(n.ID)
	s.writeString(n.Kind)

	s.writeByte(TagConfig)
	s.writeUint32(uint32(len(n.Config)))
	for _, kv := range n.Config {
		s.writeString(kv[0])
		s.writeString(kv[1])
	}

	s.writeUint32(uint32(len(n.Pins)))
	for i := range n.Pins {
		s.serializePin(&n.Pins[i])
	}
}

func (s *serializer) serializePin(p *HPin) {
	s.writeByte(TagPin)
	s.writeString(p.ID)
	s.writeString(p.Name)
	s.writeByte(p.Dir)
	s.writeByte(p.Kind)
	s.writeString(p.Type)

	if p.HasDefault {
		s.writeByte(TagDefault)
		s.writeString(p.Default)
		s.writeByte(TagDefaultType)
		s.writeString(p.DefaultType)
	} else {
		s.writeByte(TagNoDefault)
	}

	s.writeByte(TagRole)
	s.writeByte(p.Role)

	s.writeByte(TagLinks)
	s.writeUint32(uint32(len(p.Links)))
	for _, l := range p.Links {
		s.writeString(l)
	}
}
