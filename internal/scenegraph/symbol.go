package scenegraph

import (
	"fmt"
)

// NodeID uniquely identifies a node in the graph.
type NodeID uint64

// indexBits is the width of the per-prefix counter packed into a NodeID.
const indexBits = 56

const indexMask = (uint64(1) << indexBits) - 1

// NodeSymbol is a human readable NodeID: a one character key plus a
// counter, e.g. "O12".
type NodeSymbol struct {
	Key   byte
	Index uint64
}

// NewNodeSymbol creates a symbol from a key and an index.
func NewNodeSymbol(key byte, index uint64) NodeSymbol {
	return NodeSymbol{Key: key, Index: index & indexMask}
}

// SymbolFromID unpacks a NodeID.
func SymbolFromID(id NodeID) NodeSymbol {
	return NodeSymbol{Key: byte(uint64(id) >> indexBits), Index: uint64(id) & indexMask}
}

// ID packs the symbol into a NodeID.
func (s NodeSymbol) ID() NodeID {
	return NodeID(uint64(s.Key)<<indexBits | (s.Index & indexMask))
}

// Next returns the symbol with the following index.
func (s NodeSymbol) Next() NodeSymbol {
	return NewNodeSymbol(s.Key, s.Index+1)
}

// Label renders the symbol as key + index.
func (s NodeSymbol) Label() string {
	return fmt.Sprintf("%c%d", s.Key, s.Index)
}

func (s NodeSymbol) String() string {
	return s.Label()
}

// String renders the id as its symbol label.
func (id NodeID) String() string {
	return SymbolFromID(id).Label()
}
