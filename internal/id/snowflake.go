// Package id mints time-ordered unique identifiers for sessions, messages,
// reviews and suggestions.
package id

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator wraps a snowflake node. It is safe for concurrent use.
type Generator struct {
	node *snowflake.Node
}

// NewGenerator creates a generator for the given node id (0-1023). Every process
// writing to the same store needs a distinct node id.
func NewGenerator(nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node %d: %w", nodeID, err)
	}
	return &Generator{node: node}, nil
}

// Next returns a new unique int64 id.
func (g *Generator) Next() int64 {
	return g.node.Generate().Int64()
}

// NextString returns a new unique id in base58, used for minted session ids.
func (g *Generator) NextString() string {
	return g.node.Generate().Base58()
}
