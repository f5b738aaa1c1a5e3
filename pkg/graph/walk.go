package graph

import (
	"errors"
	"fmt"
	"iter"
)

// ErrCycle is returned by Chain when a node is reached twice.
var ErrCycle = errors.New("graph: cycle detected")

// Chain follows the outgoing relType edge of each node starting at start,
// yielding start itself first. The walk ends at the first node without such
// an edge. If a node has several outgoing relType edges the oldest is
// followed. A node visited twice ends the walk with ErrCycle.
func Chain(tx Tx, start NodeID, relType string) iter.Seq2[*Node, error] {
	return func(yield func(*Node, error) bool) {
		visited := make(map[NodeID]bool)
		id := start
		for {
			if visited[id] {
				yield(nil, fmt.Errorf("%w: %s via %s", ErrCycle, id, relType))
				return
			}
			visited[id] = true

			n, err := tx.Node(id)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(n, nil) {
				return
			}
			e, err := Single(tx, id, Outgoing, relType)
			if err != nil {
				yield(nil, err)
				return
			}
			if e == nil {
				return
			}
			id = e.To
		}
	}
}
