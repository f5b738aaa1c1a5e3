package versioner

import (
	"context"
	"fmt"
	"time"

	"github.com/haivivi/versioner/pkg/graph"
)

// findRollbackTarget returns the State a rollback from state restores, or ""
// when state is the oldest State. ROLLBACK edges are followed first so that
// repeated rollbacks skip over clones in one hop each; otherwise the
// PREVIOUS edge is taken.
func findRollbackTarget(tx graph.Tx, state graph.NodeID) (graph.NodeID, error) {
	visited := make(map[graph.NodeID]bool)
	for id := state; ; {
		if visited[id] {
			return "", fmt.Errorf("%w: ROLLBACK chain loops at %s", graph.ErrCycle, id)
		}
		visited[id] = true

		rb, err := graph.Single(tx, id, graph.Outgoing, RelRollback)
		if err != nil {
			return "", err
		}
		if rb != nil {
			id = rb.To
			continue
		}
		prev, err := graph.Single(tx, id, graph.Outgoing, RelPrevious)
		if err != nil || prev == nil {
			return "", err
		}
		return prev.To, nil
	}
}

// Rollback restores the State preceding the current one by making a clone of
// it the new current State. It fails with ErrNotAnEntity when entity has no
// R-node, and returns nil without changing anything when the Entity has no
// current State or the current State is the oldest one.
func (v *Versioner) Rollback(ctx context.Context, entity graph.NodeID, opts ...Option) (*graph.Node, error) {
	o := v.options(opts)
	var out *graph.Node
	err := v.update(ctx, func(tx graph.Tx) error {
		if _, err := mustBeAnchored(tx, entity); err != nil {
			return err
		}
		cur, err := currentEdge(tx, entity)
		if err != nil {
			return err
		}
		if cur == nil {
			v.skip("rollback", entity, "", "no current state")
			return nil
		}
		target, err := findRollbackTarget(tx, cur.To)
		if err != nil {
			return err
		}
		if target == "" {
			v.skip("rollback", entity, cur.To, "only one state available")
			return nil
		}
		out, err = restore(tx, entity, cur, target, o.at)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out != nil {
		v.log.Debug("versioner: entity rolled back", "entity", entity, "state", out.ID)
	}
	return out, nil
}

// RollbackTo makes a clone of target the Entity's current State. target must
// be a State of entity, otherwise ErrForeignState is returned. It returns
// nil without changing anything when target is already current or is itself
// a rollback clone.
func (v *Versioner) RollbackTo(ctx context.Context, entity, target graph.NodeID, opts ...Option) (*graph.Node, error) {
	o := v.options(opts)
	var out *graph.Node
	err := v.update(ctx, func(tx graph.Tx) error {
		if _, err := mustBeAnchored(tx, entity); err != nil {
			return err
		}
		var err error
		out, err = v.rollbackTo(tx, entity, target, o.at)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out != nil {
		v.log.Debug("versioner: entity rolled back", "entity", entity, "to", target, "state", out.ID)
	}
	return out, nil
}

func (v *Versioner) rollbackTo(tx graph.Tx, entity, target graph.NodeID, at time.Time) (*graph.Node, error) {
	if err := checkOwnership(tx, entity, target); err != nil {
		return nil, err
	}
	cur, err := currentEdge(tx, entity)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		v.skip("rollbackTo", entity, target, "no current state")
		return nil, nil
	}
	if cur.To == target {
		v.skip("rollbackTo", entity, target, "state is already current")
		return nil, nil
	}
	rb, err := graph.Single(tx, target, graph.Outgoing, RelRollback)
	if err != nil {
		return nil, err
	}
	if rb != nil {
		v.skip("rollbackTo", entity, target, "state is a rollback clone")
		return nil, nil
	}
	return restore(tx, entity, cur, target, at)
}

// RollbackNth rolls the Entity back to the State n PREVIOUS hops behind the
// current one. n = 0 names the current State, so nothing happens. It
// returns nil when the history is shorter than n.
func (v *Versioner) RollbackNth(ctx context.Context, entity graph.NodeID, n int, opts ...Option) (*graph.Node, error) {
	o := v.options(opts)
	var out *graph.Node
	err := v.update(ctx, func(tx graph.Tx) error {
		if _, err := mustBeAnchored(tx, entity); err != nil {
			return err
		}
		target, err := nthState(tx, entity, n)
		if err != nil {
			return err
		}
		if target == nil {
			v.skip("rollbackNth", entity, "", fmt.Sprintf("no state %d hops back", n))
			return nil
		}
		out, err = v.rollbackTo(tx, entity, target.ID, o.at)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out != nil {
		v.log.Debug("versioner: entity rolled back", "entity", entity, "nth", n, "state", out.ID)
	}
	return out, nil
}

// restore clones target, links the clone to it with a ROLLBACK edge and
// makes the clone current. Only labels and properties are cloned; the clone
// starts without relationships.
func restore(tx graph.Tx, entity graph.NodeID, cur *graph.Edge, target graph.NodeID, at time.Time) (*graph.Node, error) {
	src, err := tx.Node(target)
	if err != nil {
		return nil, err
	}
	clone, err := tx.CreateNode(src.Labels, src.Props)
	if err != nil {
		return nil, err
	}
	if _, err := tx.CreateEdge(clone.ID, target, RelRollback, nil); err != nil {
		return nil, err
	}
	if err := transition(tx, entity, cur, clone.ID, at); err != nil {
		return nil, err
	}
	return clone, nil
}
