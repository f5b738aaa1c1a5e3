package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/versioner/pkg/kv"
	"github.com/haivivi/versioner/pkg/props"
)

// KV key layout (relative to the configured prefix):
//
//	{prefix}:n:{nodeID}                   → msgpack nodeRecord
//	{prefix}:l:{label}:{nodeID}           → empty (label index)
//	{prefix}:e:{edgeID}                   → msgpack edgeRecord
//	{prefix}:o:{from}:{relType}:{edgeID}  → empty (outgoing index)
//	{prefix}:i:{to}:{relType}:{edgeID}    → empty (incoming index)

// KVGraph is a Graph implementation backed by a kv.Store.
// All keys are scoped under a configurable prefix, allowing multiple
// independent graphs to share a single KV store.
type KVGraph struct {
	store  kv.Store
	prefix kv.Key
}

// NewKVGraph creates a new KVGraph using the given store and key prefix.
// The prefix is prepended to all keys, e.g. prefix = {"vg"} results in node
// keys like "vg:n:0190f...".
func NewKVGraph(store kv.Store, prefix kv.Key) *KVGraph {
	return &KVGraph{store: store, prefix: prefix}
}

func (g *KVGraph) View(ctx context.Context, fn func(tx Tx) error) error {
	return g.store.View(ctx, func(t kv.Txn) error {
		return fn(&kvTx{g: g, t: t})
	})
}

func (g *KVGraph) Update(ctx context.Context, fn func(tx Tx) error) error {
	return g.store.Update(ctx, func(t kv.Txn) error {
		return fn(&kvTx{g: g, t: t})
	})
}

type nodeRecord struct {
	Labels []string  `msgpack:"l"`
	Props  props.Map `msgpack:"p"`
}

type edgeRecord struct {
	Type  string    `msgpack:"t"`
	From  NodeID    `msgpack:"f"`
	To    NodeID    `msgpack:"o"`
	Props props.Map `msgpack:"p"`
}

// validateSegments checks that labels and relationship types are usable as
// kv.Key segments.
func validateSegments(segs ...string) error {
	sep := string(kv.DefaultSeparator)
	for _, s := range segs {
		if s == "" {
			return fmt.Errorf("%w: empty", ErrInvalidLabel)
		}
		if strings.Contains(s, sep) {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidLabel, s, sep)
		}
	}
	return nil
}

// --- key helpers ---

func (g *KVGraph) nodeKey(id NodeID) kv.Key {
	return g.prefix.Append("n", string(id))
}

func (g *KVGraph) labelKey(label string, id NodeID) kv.Key {
	return g.prefix.Append("l", label, string(id))
}

func (g *KVGraph) labelPrefix(label string) kv.Key {
	return g.prefix.Append("l", label)
}

func (g *KVGraph) edgeKey(id EdgeID) kv.Key {
	return g.prefix.Append("e", string(id))
}

func (g *KVGraph) indexKey(dir Direction, node NodeID, relType string, id EdgeID) kv.Key {
	return g.prefix.Append(dirSegment(dir), string(node), relType, string(id))
}

func (g *KVGraph) indexPrefix(dir Direction, node NodeID, relType string) kv.Key {
	if relType == "" {
		return g.prefix.Append(dirSegment(dir), string(node))
	}
	return g.prefix.Append(dirSegment(dir), string(node), relType)
}

func dirSegment(dir Direction) string {
	if dir == Incoming {
		return "i"
	}
	return "o"
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("graph: generate id: %w", err)
	}
	return id.String(), nil
}

// kvTx implements Tx on a kv.Txn.
type kvTx struct {
	g *KVGraph
	t kv.Txn
}

func (tx *kvTx) CreateNode(labels []string, p props.Map) (*Node, error) {
	if err := validateSegments(labels...); err != nil {
		return nil, err
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	n := &Node{ID: NodeID(id), Labels: append([]string(nil), labels...), Props: p.Clone()}
	if err := tx.putNode(n); err != nil {
		return nil, err
	}
	for _, l := range n.Labels {
		if err := tx.t.Set(tx.g.labelKey(l, n.ID), nil); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (tx *kvTx) putNode(n *Node) error {
	data, err := msgpack.Marshal(nodeRecord{Labels: n.Labels, Props: n.Props})
	if err != nil {
		return err
	}
	return tx.t.Set(tx.g.nodeKey(n.ID), data)
}

func (tx *kvTx) Node(id NodeID) (*Node, error) {
	data, err := tx.t.Get(tx.g.nodeKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, fmt.Errorf("%w: node %s", ErrNotFound, id)
		}
		return nil, err
	}
	var rec nodeRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("graph: decode node %s: %w", id, err)
	}
	if rec.Props == nil {
		rec.Props = props.Map{}
	}
	return &Node{ID: id, Labels: rec.Labels, Props: rec.Props}, nil
}

func (tx *kvTx) SetNodeProp(id NodeID, key string, v props.Value) error {
	n, err := tx.Node(id)
	if err != nil {
		return err
	}
	n.Props[key] = v
	return tx.putNode(n)
}

func (tx *kvTx) NodesByLabel(label string) ([]*Node, error) {
	if err := validateSegments(label); err != nil {
		return nil, err
	}
	// Collect IDs first: only one List may be open per transaction.
	var ids []NodeID
	for entry, err := range tx.t.List(tx.g.labelPrefix(label)) {
		if err != nil {
			return nil, err
		}
		ids = append(ids, NodeID(entry.Key[len(entry.Key)-1]))
	}
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		n, err := tx.Node(id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (tx *kvTx) CreateEdge(from, to NodeID, relType string, p props.Map) (*Edge, error) {
	if err := validateSegments(relType); err != nil {
		return nil, err
	}
	for _, id := range []NodeID{from, to} {
		if _, err := tx.t.Get(tx.g.nodeKey(id)); err != nil {
			if errors.Is(err, kv.ErrNotFound) {
				return nil, fmt.Errorf("%w: node %s", ErrNotFound, id)
			}
			return nil, err
		}
	}
	id, err := newID()
	if err != nil {
		return nil, err
	}
	e := &Edge{ID: EdgeID(id), Type: relType, From: from, To: to, Props: p.Clone()}
	if err := tx.putEdge(e); err != nil {
		return nil, err
	}
	if err := tx.t.Set(tx.g.indexKey(Outgoing, from, relType, e.ID), nil); err != nil {
		return nil, err
	}
	if err := tx.t.Set(tx.g.indexKey(Incoming, to, relType, e.ID), nil); err != nil {
		return nil, err
	}
	return e, nil
}

func (tx *kvTx) putEdge(e *Edge) error {
	data, err := msgpack.Marshal(edgeRecord{Type: e.Type, From: e.From, To: e.To, Props: e.Props})
	if err != nil {
		return err
	}
	return tx.t.Set(tx.g.edgeKey(e.ID), data)
}

func (tx *kvTx) Edge(id EdgeID) (*Edge, error) {
	data, err := tx.t.Get(tx.g.edgeKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, fmt.Errorf("%w: edge %s", ErrNotFound, id)
		}
		return nil, err
	}
	var rec edgeRecord
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("graph: decode edge %s: %w", id, err)
	}
	if rec.Props == nil {
		rec.Props = props.Map{}
	}
	return &Edge{ID: id, Type: rec.Type, From: rec.From, To: rec.To, Props: rec.Props}, nil
}

func (tx *kvTx) SetEdgeProp(id EdgeID, key string, v props.Value) error {
	e, err := tx.Edge(id)
	if err != nil {
		return err
	}
	e.Props[key] = v
	return tx.putEdge(e)
}

func (tx *kvTx) DeleteEdge(id EdgeID) error {
	e, err := tx.Edge(id)
	if err != nil {
		return err
	}
	for _, k := range []kv.Key{
		tx.g.edgeKey(id),
		tx.g.indexKey(Outgoing, e.From, e.Type, id),
		tx.g.indexKey(Incoming, e.To, e.Type, id),
	} {
		if err := tx.t.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (tx *kvTx) Edges(id NodeID, dir Direction, relType string) ([]*Edge, error) {
	if relType != "" {
		if err := validateSegments(relType); err != nil {
			return nil, err
		}
	}
	// Key: {prefix}:{o|i}:{node}:{relType}:{edgeID}
	plen := len(tx.g.prefix)
	var ids []EdgeID
	for entry, err := range tx.t.List(tx.g.indexPrefix(dir, id, relType)) {
		if err != nil {
			return nil, err
		}
		if len(entry.Key) != plen+4 {
			continue // malformed key, skip
		}
		ids = append(ids, EdgeID(entry.Key[plen+3]))
	}
	edges := make([]*Edge, 0, len(ids))
	for _, eid := range ids {
		e, err := tx.Edge(eid)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, nil
}
