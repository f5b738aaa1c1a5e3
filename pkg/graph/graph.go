// Package graph provides a labelled property graph interface and a KV-backed
// implementation. Nodes carry an ordered list of labels and a property map;
// edges are typed, directed, carry their own property map and are indexed in
// both directions for efficient traversal.
//
// All access happens inside transactions obtained from View (read-only) or
// Update (read-write). Writes made inside one Update callback are applied
// atomically.
package graph

import (
	"context"
	"errors"
	"slices"

	"github.com/haivivi/versioner/pkg/props"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a node or edge does not exist.
	ErrNotFound = errors.New("graph: not found")

	// ErrInvalidLabel is returned when a label or relationship type is empty
	// or contains the KV separator character (default ':'), which would
	// corrupt key encoding.
	ErrInvalidLabel = errors.New("graph: invalid label")
)

// NodeID identifies a node. IDs are time-ordered: a node created later has a
// lexicographically greater ID.
type NodeID string

// EdgeID identifies an edge. IDs are time-ordered like NodeID.
type EdgeID string

// Node is a vertex of the graph.
type Node struct {
	ID NodeID `json:"id" yaml:"id"`

	// Labels in creation order. Labels[0] is the node's primary label.
	Labels []string `json:"labels" yaml:"labels"`

	Props props.Map `json:"props,omitempty" yaml:"props,omitempty"`
}

// HasLabel reports whether the node carries label.
func (n *Node) HasLabel(label string) bool {
	return slices.Contains(n.Labels, label)
}

// Edge is a typed directed relationship between two nodes.
type Edge struct {
	ID    EdgeID    `json:"id" yaml:"id"`
	Type  string    `json:"type" yaml:"type"`
	From  NodeID    `json:"from" yaml:"from"`
	To    NodeID    `json:"to" yaml:"to"`
	Props props.Map `json:"props,omitempty" yaml:"props,omitempty"`
}

// Prop returns the edge property key, if set.
func (e *Edge) Prop(key string) (props.Value, bool) {
	v, ok := e.Props[key]
	return v, ok
}

// Direction selects which edges of a node are listed.
type Direction int

const (
	// Outgoing selects edges whose From is the node.
	Outgoing Direction = iota
	// Incoming selects edges whose To is the node.
	Incoming
)

// Tx is a graph transaction. A Tx must not be used after the callback that
// received it has returned.
type Tx interface {
	// CreateNode creates a node with the given labels and properties.
	CreateNode(labels []string, p props.Map) (*Node, error)

	// Node returns the node with the given ID, or ErrNotFound.
	Node(id NodeID) (*Node, error)

	// SetNodeProp sets a single node property.
	SetNodeProp(id NodeID, key string, v props.Value) error

	// NodesByLabel returns all nodes carrying label, oldest first.
	NodesByLabel(label string) ([]*Node, error)

	// CreateEdge creates a typed edge from -> to with the given properties.
	// Both endpoints must exist.
	CreateEdge(from, to NodeID, relType string, p props.Map) (*Edge, error)

	// Edge returns the edge with the given ID, or ErrNotFound.
	Edge(id EdgeID) (*Edge, error)

	// SetEdgeProp sets a single edge property.
	SetEdgeProp(id EdgeID, key string, v props.Value) error

	// DeleteEdge removes an edge and its index entries. Deleting a missing
	// edge returns ErrNotFound.
	DeleteEdge(id EdgeID) error

	// Edges lists the edges of node id in the given direction, oldest first
	// within each type. An empty relType selects all types.
	Edges(id NodeID, dir Direction, relType string) ([]*Edge, error)
}

// Graph is the interface for a transactional property graph.
type Graph interface {
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Update runs fn in a read-write transaction. Either every write made by
	// fn is applied, or none is.
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// Single returns the only edge of node id with the given direction and type.
// It returns (nil, nil) when there is none. When several edges match, the
// oldest is returned.
func Single(tx Tx, id NodeID, dir Direction, relType string) (*Edge, error) {
	edges, err := tx.Edges(id, dir, relType)
	if err != nil || len(edges) == 0 {
		return nil, err
	}
	return edges[0], nil
}
