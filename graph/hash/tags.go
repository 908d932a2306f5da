package hash

// HashVersion is prepended to every serialization. Bump it whenever the
// encoding below changes so that cached programs keyed by the old format
// are never reused.
const HashVersion byte = 1

// Frozen tag bytes. Never renumber an existing tag; add new ones at the end.
const (
	TagReservedZero byte = 0x00

	// Structure
	TagGraph  byte = 0x01
	TagNode   byte = 0x02
	TagConfig byte = 0x03
	TagPin    byte = 0x04
	TagLinks  byte = 0x05

	// Pin attributes
	TagDefault     byte = 0x10
	TagDefaultType byte = 0x11
	TagRole        byte = 0x12
	TagNoDefault   byte = 0x13

	// Salt carries compile options that change the output program.
	TagSalt byte = 0x20
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagGraph, TagNode, TagConfig, TagPin, TagLinks,
	TagDefault, TagDefaultType, TagRole, TagNoDefault,
	TagSalt,
}
