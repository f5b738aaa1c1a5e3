package versioner

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/haivivi/versioner/pkg/graph"
)

// Path is an Entity with its CURRENT edge and current State. Current and
// State are nil when the Entity has no current State.
type Path struct {
	Entity  *graph.Node `json:"entity" yaml:"entity"`
	Current *graph.Edge `json:"current,omitempty" yaml:"current,omitempty"`
	State   *graph.Node `json:"state,omitempty" yaml:"state,omitempty"`
}

// StateRecord is a State with its position in the Entity's history.
type StateRecord struct {
	State *graph.Node `json:"state" yaml:"state"`

	// Start and End delimit the interval [Start, End) during which the
	// State was current. End is zero for the current State.
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end,omitzero" yaml:"end,omitempty"`

	Current bool `json:"current" yaml:"current"`

	// Previous is the State this one replaced, if any.
	Previous graph.NodeID `json:"previous,omitempty" yaml:"previous,omitempty"`

	// RollbackOf is the State this one was cloned from by a rollback.
	RollbackOf graph.NodeID `json:"rollbackOf,omitempty" yaml:"rollbackOf,omitempty"`
}

// Contains reports whether t falls within [Start, End).
func (r StateRecord) Contains(t time.Time) bool {
	if t.Before(r.Start) {
		return false
	}
	return r.End.IsZero() || t.Before(r.End)
}

// Relationship is a versioned relationship of an Entity's current State.
type Relationship struct {
	Edge *graph.Edge `json:"edge" yaml:"edge"`

	// Destination is the Entity anchored by the R-node the edge points to.
	Destination graph.NodeID `json:"destination" yaml:"destination"`
}

// GetCurrentState returns the Entity's current State, or nil.
func (v *Versioner) GetCurrentState(ctx context.Context, entity graph.NodeID) (*graph.Node, error) {
	var out *graph.Node
	err := v.view(ctx, func(tx graph.Tx) error {
		cur, err := currentEdge(tx, entity)
		if err != nil || cur == nil {
			return ignoreNotFound(err)
		}
		out, err = tx.Node(cur.To)
		return err
	})
	return out, err
}

// GetCurrentPath returns the Entity together with its CURRENT edge and
// current State. It returns nil if entity does not exist.
func (v *Versioner) GetCurrentPath(ctx context.Context, entity graph.NodeID) (*Path, error) {
	var out *Path
	err := v.view(ctx, func(tx graph.Tx) error {
		ent, err := tx.Node(entity)
		if err != nil {
			return ignoreNotFound(err)
		}
		p := &Path{Entity: ent}
		if p.Current, err = currentEdge(tx, entity); err != nil {
			return err
		}
		if p.Current != nil {
			if p.State, err = tx.Node(p.Current.To); err != nil {
				return err
			}
		}
		out = p
		return nil
	})
	return out, err
}

// GetAllStates returns every State of the Entity, newest first.
func (v *Versioner) GetAllStates(ctx context.Context, entity graph.NodeID) ([]StateRecord, error) {
	var out []StateRecord
	err := v.view(ctx, func(tx graph.Tx) error {
		var err error
		out, err = history(tx, entity)
		return err
	})
	return out, err
}

// GetByLabel returns the States of the Entity carrying label, newest first.
func (v *Versioner) GetByLabel(ctx context.Context, entity graph.NodeID, label string) ([]*graph.Node, error) {
	var out []*graph.Node
	err := v.view(ctx, func(tx graph.Tx) error {
		recs, err := history(tx, entity)
		if err != nil {
			return err
		}
		for _, r := range recs {
			if r.State.HasLabel(label) {
				out = append(out, r.State)
			}
		}
		return nil
	})
	return out, err
}

// GetByDate returns the State that was current at t, or nil.
func (v *Versioner) GetByDate(ctx context.Context, entity graph.NodeID, t time.Time) (*graph.Node, error) {
	var out *graph.Node
	err := v.view(ctx, func(tx graph.Tx) error {
		recs, err := history(tx, entity)
		if err != nil {
			return err
		}
		for _, r := range recs {
			if r.Contains(t) {
				out = r.State
				return nil
			}
		}
		return nil
	})
	return out, err
}

// GetNthState returns the State n PREVIOUS hops behind the current one, or
// nil when the history is shorter. n = 0 returns the current State.
func (v *Versioner) GetNthState(ctx context.Context, entity graph.NodeID, n int) (*graph.Node, error) {
	var out *graph.Node
	err := v.view(ctx, func(tx graph.Tx) error {
		var err error
		out, err = nthState(tx, entity, n)
		return err
	})
	return out, err
}

// ListEntities returns the Entities whose kind label is label, oldest first.
func (v *Versioner) ListEntities(ctx context.Context, label string) ([]*graph.Node, error) {
	var out []*graph.Node
	err := v.view(ctx, func(tx graph.Tx) error {
		nodes, err := tx.NodesByLabel(label)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if kindOf(n) != label {
				continue
			}
			r, err := rNode(tx, n.ID)
			if err != nil {
				return err
			}
			if r != "" {
				out = append(out, n)
			}
		}
		return nil
	})
	return out, err
}

// GetRelationships returns the versioned relationships of the Entity's
// current State.
func (v *Versioner) GetRelationships(ctx context.Context, entity graph.NodeID) ([]Relationship, error) {
	var out []Relationship
	err := v.view(ctx, func(tx graph.Tx) error {
		cur, err := currentEdge(tx, entity)
		if err != nil || cur == nil {
			return ignoreNotFound(err)
		}
		out, err = relationshipsOf(tx, cur.To)
		return err
	})
	return out, err
}

// Timeline is the complete history of an Entity read from one snapshot.
type Timeline struct {
	Entity *graph.Node
	// States is ordered newest first.
	States []StateRecord
	// Relationships holds the versioned relationships of every State that
	// has any, keyed by State id.
	Relationships map[graph.NodeID][]Relationship
}

// GetTimeline reads the Entity with all of its States and their
// relationships. It fails with ErrNotAnEntity when entity has no R-node.
func (v *Versioner) GetTimeline(ctx context.Context, entity graph.NodeID) (*Timeline, error) {
	var out *Timeline
	err := v.view(ctx, func(tx graph.Tx) error {
		ent, err := mustBeAnchored(tx, entity)
		if err != nil {
			return err
		}
		recs, err := history(tx, entity)
		if err != nil {
			return err
		}
		tl := &Timeline{Entity: ent, States: recs, Relationships: make(map[graph.NodeID][]Relationship)}
		for _, r := range recs {
			rels, err := relationshipsOf(tx, r.State.ID)
			if err != nil {
				return err
			}
			if len(rels) > 0 {
				tl.Relationships[r.State.ID] = rels
			}
		}
		out = tl
		return nil
	})
	return out, err
}

// relationshipsOf resolves the non-system edges of state to the Entities
// their R-nodes anchor. Edges to nodes that anchor nothing are skipped.
func relationshipsOf(tx graph.Tx, state graph.NodeID) ([]Relationship, error) {
	edges, err := tx.Edges(state, graph.Outgoing, "")
	if err != nil {
		return nil, err
	}
	var out []Relationship
	for _, e := range edges {
		if IsSystemType(e.Type) {
			continue
		}
		anchor, err := graph.Single(tx, e.To, graph.Outgoing, RelFor)
		if err != nil {
			return nil, err
		}
		if anchor == nil {
			continue
		}
		out = append(out, Relationship{Edge: e, Destination: anchor.To})
	}
	return out, nil
}

// history returns the StateRecords of entity, newest first.
func history(tx graph.Tx, entity graph.NodeID) ([]StateRecord, error) {
	edges, err := tx.Edges(entity, graph.Outgoing, RelHasState)
	if err != nil {
		return nil, ignoreNotFound(err)
	}
	cur, err := currentEdge(tx, entity)
	if err != nil {
		return nil, err
	}
	recs := make([]StateRecord, 0, len(edges))
	for _, hs := range edges {
		s, err := tx.Node(hs.To)
		if err != nil {
			return nil, err
		}
		r := StateRecord{State: s, Current: cur != nil && cur.To == s.ID}
		r.Start, _ = timeProp(hs, PropStartDate)
		r.End, _ = timeProp(hs, PropEndDate)
		if prev, err := graph.Single(tx, s.ID, graph.Outgoing, RelPrevious); err != nil {
			return nil, err
		} else if prev != nil {
			r.Previous = prev.To
		}
		if rb, err := graph.Single(tx, s.ID, graph.Outgoing, RelRollback); err != nil {
			return nil, err
		} else if rb != nil {
			r.RollbackOf = rb.To
		}
		recs = append(recs, r)
	}
	slices.SortFunc(recs, func(a, b StateRecord) int {
		if c := b.Start.Compare(a.Start); c != 0 {
			return c
		}
		return cmp.Compare(b.State.ID, a.State.ID)
	})
	return recs, nil
}

// nthState walks n PREVIOUS hops back from the current State.
func nthState(tx graph.Tx, entity graph.NodeID, n int) (*graph.Node, error) {
	if n < 0 {
		return nil, nil
	}
	cur, err := currentEdge(tx, entity)
	if err != nil || cur == nil {
		return nil, ignoreNotFound(err)
	}
	i := 0
	for s, err := range graph.Chain(tx, cur.To, RelPrevious) {
		if err != nil {
			return nil, err
		}
		if i == n {
			return s, nil
		}
		i++
	}
	return nil, nil
}
