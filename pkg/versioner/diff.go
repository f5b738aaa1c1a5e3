package versioner

import (
	"context"

	"github.com/haivivi/versioner/pkg/graph"
	"github.com/haivivi/versioner/pkg/props"
)

// Operation is the kind of a DiffEntry.
type Operation string

const (
	OpRemove Operation = "REMOVE"
	OpUpdate Operation = "UPDATE"
	OpAdd    Operation = "ADD"
)

// DiffEntry is one property-level difference between two property maps.
// OldValue is invalid for OpAdd and NewValue is invalid for OpRemove.
type DiffEntry struct {
	Operation Operation   `json:"operation" yaml:"operation"`
	Key       string      `json:"key" yaml:"key"`
	OldValue  props.Value `json:"oldValue,omitzero" yaml:"oldValue,omitempty"`
	NewValue  props.Value `json:"newValue,omitzero" yaml:"newValue,omitempty"`
}

// Diff compares two property maps. Entries are grouped REMOVE, UPDATE, ADD
// and sorted by key within each group. A nil map is an empty map.
func Diff(from, to props.Map) []DiffEntry {
	var removed, updated, added []DiffEntry
	for _, k := range from.Keys() {
		old := from[k]
		nv, ok := to[k]
		switch {
		case !ok:
			removed = append(removed, DiffEntry{Operation: OpRemove, Key: k, OldValue: old})
		case !old.Equal(nv):
			updated = append(updated, DiffEntry{Operation: OpUpdate, Key: k, OldValue: old, NewValue: nv})
		}
	}
	for _, k := range to.Keys() {
		if _, ok := from[k]; !ok {
			added = append(added, DiffEntry{Operation: OpAdd, Key: k, NewValue: to[k]})
		}
	}
	out := make([]DiffEntry, 0, len(removed)+len(updated)+len(added))
	out = append(out, removed...)
	out = append(out, updated...)
	return append(out, added...)
}

// nodeProps returns the properties of id, or nil if id is empty or does not
// exist.
func nodeProps(tx graph.Tx, id graph.NodeID) (props.Map, error) {
	if id == "" {
		return nil, nil
	}
	n, err := tx.Node(id)
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	return n.Props, nil
}

// DiffStates compares the properties of two States. A missing State counts
// as an empty property map.
func (v *Versioner) DiffStates(ctx context.Context, from, to graph.NodeID) ([]DiffEntry, error) {
	var out []DiffEntry
	err := v.view(ctx, func(tx graph.Tx) error {
		a, err := nodeProps(tx, from)
		if err != nil {
			return err
		}
		b, err := nodeProps(tx, to)
		if err != nil {
			return err
		}
		out = Diff(a, b)
		return nil
	})
	return out, err
}

// DiffFromPrevious compares the State preceding state with state. It
// returns an empty diff when state has no predecessor.
func (v *Versioner) DiffFromPrevious(ctx context.Context, state graph.NodeID) ([]DiffEntry, error) {
	var out []DiffEntry
	err := v.view(ctx, func(tx graph.Tx) error {
		prev, err := graph.Single(tx, state, graph.Outgoing, RelPrevious)
		if err != nil || prev == nil {
			return ignoreNotFound(err)
		}
		a, err := nodeProps(tx, prev.To)
		if err != nil {
			return err
		}
		b, err := nodeProps(tx, state)
		if err != nil {
			return err
		}
		out = Diff(a, b)
		return nil
	})
	return out, err
}

// DiffFromCurrent compares state with the current State of its Entity. It
// returns an empty diff when state is the current State or its Entity has
// none.
func (v *Versioner) DiffFromCurrent(ctx context.Context, state graph.NodeID) ([]DiffEntry, error) {
	var out []DiffEntry
	err := v.view(ctx, func(tx graph.Tx) error {
		owner, err := ownerOf(tx, state)
		if err != nil || owner == "" {
			return ignoreNotFound(err)
		}
		cur, err := currentEdge(tx, owner)
		if err != nil || cur == nil || cur.To == state {
			return err
		}
		a, err := nodeProps(tx, state)
		if err != nil {
			return err
		}
		b, err := nodeProps(tx, cur.To)
		if err != nil {
			return err
		}
		out = Diff(a, b)
		return nil
	})
	return out, err
}
