package versioner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haivivi/versioner/pkg/graph"
	"github.com/haivivi/versioner/pkg/props"
)

// Init creates an Entity labelled label with entityProps and its R-node. If
// stateProps is not empty an initial State is created and made current.
func (v *Versioner) Init(ctx context.Context, label string, entityProps, stateProps props.Map, opts ...Option) (*graph.Node, error) {
	o := v.options(opts)
	if len(stateProps) > 0 {
		if err := v.validate(label, stateProps); err != nil {
			return nil, err
		}
	}
	var entity *graph.Node
	err := v.update(ctx, func(tx graph.Tx) error {
		e, err := tx.CreateNode([]string{label}, entityProps)
		if err != nil {
			return err
		}
		if len(stateProps) > 0 {
			s, err := tx.CreateNode(stateLabels(o.label), stateProps)
			if err != nil {
				return err
			}
			if err := attachCurrent(tx, e.ID, s.ID, o.at); err != nil {
				return err
			}
		}
		r, err := tx.CreateNode([]string{LabelR}, nil)
		if err != nil {
			return err
		}
		if _, err := tx.CreateEdge(r.ID, e.ID, RelFor, nil); err != nil {
			return err
		}
		entity = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	v.log.Debug("versioner: entity created", "entity", entity.ID, "label", label)
	return entity, nil
}

// Update replaces the Entity's data with a new State holding exactly
// stateProps. Relationships of the previous current State are carried over.
func (v *Versioner) Update(ctx context.Context, entity graph.NodeID, stateProps props.Map, opts ...Option) (*graph.Node, error) {
	o := v.options(opts)
	var out *graph.Node
	err := v.update(ctx, func(tx graph.Tx) error {
		ent, err := mustBeAnchored(tx, entity)
		if err != nil {
			return err
		}
		cur, err := currentEdge(tx, entity)
		if err != nil {
			return err
		}
		var rels graph.NodeID
		if cur != nil {
			rels = cur.To
		}
		out, err = v.newCurrent(tx, ent, cur, stateLabels(o.label), stateProps, rels, o.at)
		return err
	})
	if err != nil {
		return nil, err
	}
	v.log.Debug("versioner: entity updated", "entity", entity, "state", out.ID)
	return out, nil
}

// Patch creates a new State holding the current State's properties with
// delta merged on top. Without a current State it behaves like Update.
func (v *Versioner) Patch(ctx context.Context, entity graph.NodeID, delta props.Map, opts ...Option) (*graph.Node, error) {
	o := v.options(opts)
	var out *graph.Node
	err := v.update(ctx, func(tx graph.Tx) error {
		ent, err := mustBeAnchored(tx, entity)
		if err != nil {
			return err
		}
		out, err = v.patch(tx, ent, delta, o.label, o.at)
		return err
	})
	if err != nil {
		return nil, err
	}
	v.log.Debug("versioner: entity patched", "entity", entity, "state", out.ID)
	return out, nil
}

func (v *Versioner) patch(tx graph.Tx, ent *graph.Node, delta props.Map, label string, at time.Time) (*graph.Node, error) {
	cur, err := currentEdge(tx, ent.ID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return v.newCurrent(tx, ent, nil, stateLabels(label), delta, "", at)
	}
	base, err := tx.Node(cur.To)
	if err != nil {
		return nil, err
	}
	return v.newCurrent(tx, ent, cur, stateLabels(label), base.Props.Merge(delta), cur.To, at)
}

// PatchFrom creates a new State holding the current State's properties with
// the properties of source merged on top, and the labels of source. source
// must be a State of entity. If keepCurrentRels is true the new State takes
// the current State's relationships, otherwise those of source.
func (v *Versioner) PatchFrom(ctx context.Context, entity, source graph.NodeID, keepCurrentRels bool, opts ...Option) (*graph.Node, error) {
	o := v.options(opts)
	var out *graph.Node
	err := v.update(ctx, func(tx graph.Tx) error {
		ent, err := mustBeAnchored(tx, entity)
		if err != nil {
			return err
		}
		if err := checkOwnership(tx, entity, source); err != nil {
			return err
		}
		src, err := tx.Node(source)
		if err != nil {
			return err
		}
		cur, err := currentEdge(tx, entity)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: %s", ErrNoCurrentState, entity)
		}
		base, err := tx.Node(cur.To)
		if err != nil {
			return err
		}
		rels := source
		if keepCurrentRels {
			rels = cur.To
		}
		out, err = v.newCurrent(tx, ent, cur, src.Labels, base.Props.Merge(src.Props), rels, o.at)
		return err
	})
	if err != nil {
		return nil, err
	}
	v.log.Debug("versioner: entity patched", "entity", entity, "from", source, "state", out.ID)
	return out, nil
}

// newCurrent validates p, creates a State with labels and p, makes it the
// Entity's current State and copies the relationships of relsFrom onto it.
// cur is the Entity's CURRENT edge, or nil.
func (v *Versioner) newCurrent(tx graph.Tx, ent *graph.Node, cur *graph.Edge, labels []string, p props.Map, relsFrom graph.NodeID, at time.Time) (*graph.Node, error) {
	if err := v.validate(kindOf(ent), p); err != nil {
		return nil, err
	}
	s, err := tx.CreateNode(labels, p)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		err = attachCurrent(tx, ent.ID, s.ID, at)
	} else {
		err = transition(tx, ent.ID, cur, s.ID, at)
	}
	if err != nil {
		return nil, err
	}
	if relsFrom != "" {
		if err := copyRelationships(tx, relsFrom, s.ID); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// transition moves the Entity's CURRENT edge cur to newState:
//  1. PREVIOUS newState -> old State, dated with the old CURRENT date;
//  2. endDate = at on the HAS_STATE edge of the old State;
//  3. the old CURRENT edge is deleted;
//  4. CURRENT and HAS_STATE edges to newState are created.
//
// The caller's transaction makes the steps atomic.
func transition(tx graph.Tx, entity graph.NodeID, cur *graph.Edge, newState graph.NodeID, at time.Time) error {
	var prevProps props.Map
	if d, ok := cur.Prop(PropDate); ok {
		prevProps = props.Map{PropDate: d}
	}
	if _, err := tx.CreateEdge(newState, cur.To, RelPrevious, prevProps); err != nil {
		return err
	}
	hs, err := hasStateEdge(tx, entity, cur.To)
	if err != nil {
		return err
	}
	if hs != nil {
		if err := tx.SetEdgeProp(hs.ID, PropEndDate, props.Time(at)); err != nil {
			return err
		}
	}
	if err := tx.DeleteEdge(cur.ID); err != nil {
		return err
	}
	return attachCurrent(tx, entity, newState, at)
}

// attachCurrent creates the CURRENT and HAS_STATE edges entity -> state.
func attachCurrent(tx graph.Tx, entity, state graph.NodeID, at time.Time) error {
	if _, err := tx.CreateEdge(entity, state, RelCurrent, dateProps(PropDate, at)); err != nil {
		return err
	}
	_, err := tx.CreateEdge(entity, state, RelHasState, dateProps(PropStartDate, at))
	return err
}

// copyRelationships duplicates every edge from -> R-node onto to.
func copyRelationships(tx graph.Tx, from, to graph.NodeID) error {
	edges, err := tx.Edges(from, graph.Outgoing, "")
	if err != nil {
		return err
	}
	for _, e := range edges {
		if IsSystemType(e.Type) {
			continue
		}
		dst, err := tx.Node(e.To)
		if err != nil {
			return err
		}
		if !dst.HasLabel(LabelR) {
			continue
		}
		if _, err := tx.CreateEdge(to, e.To, e.Type, e.Props); err != nil {
			return err
		}
	}
	return nil
}

func kindOf(n *graph.Node) string {
	if len(n.Labels) == 0 {
		return ""
	}
	return n.Labels[0]
}

// validate checks p against the schema registered for the Entity kind.
func (v *Versioner) validate(kind string, p props.Map) error {
	rs, ok := v.schemas[kind]
	if !ok {
		return nil
	}
	// The validator works on decoded JSON values.
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	var instance map[string]any
	if err := json.Unmarshal(data, &instance); err != nil {
		return err
	}
	if err := rs.Validate(instance); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchemaViolation, kind, err)
	}
	return nil
}
