// Package hash computes content hashes of node graphs. The hash keys the
// program cache and seeds the build id of every compiled program.
package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/graphc/graph"
)

// Graph computes the SHA-256 content hash of g. Salt values, typically
// compile options that alter the output, are mixed in after the graph.
func Graph(g *graph.Graph, salt ...string) [32]byte {
	return sha256.Sum256(Serialize(Normalize(g), salt...))
}

// String renders a hash as lowercase hex.
func String(h [32]byte) string {
	return hex.EncodeToString(h[:])
}
