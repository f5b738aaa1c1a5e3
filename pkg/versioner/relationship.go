package versioner

import (
	"context"
	"fmt"
	"time"

	"github.com/haivivi/versioner/pkg/graph"
	"github.com/haivivi/versioner/pkg/props"
)

// CreateRelationship records a relationship of type relType from source to
// destination. The source is patched first, so the relationship starts on a
// fresh current State dated with the operation instant. The edge goes from
// that State to the destination's R-node. If the fresh State already has
// such an edge (carried over from the previous State) it is returned and no
// edge is added.
func (v *Versioner) CreateRelationship(ctx context.Context, source, destination graph.NodeID, relType string, p props.Map, opts ...Option) (*graph.Edge, error) {
	if IsSystemType(relType) {
		return nil, fmt.Errorf("%w: %s", ErrProtectedRelationship, relType)
	}
	o := v.options(opts)
	var out *graph.Edge
	err := v.update(ctx, func(tx graph.Tx) error {
		src, err := mustBeEntity(tx, source)
		if err != nil {
			return err
		}
		if _, err := mustBeEntity(tx, destination); err != nil {
			return err
		}
		state, err := v.patch(tx, src, nil, "", o.at)
		if err != nil {
			return err
		}
		r, err := rNode(tx, destination)
		if err != nil {
			return err
		}
		out, err = link(tx, state.ID, r, relType, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	v.log.Debug("versioner: relationship created",
		"source", source, "destination", destination, "type", relType, "edge", out.ID)
	return out, nil
}

// CreateRelationshipsTo records one relationship from source to each
// destination. propsList[i] holds the properties of the relationship to
// destinations[i]; its versionerLabel entry, when a string, is the
// relationship type and is not stored. The source is patched once for the
// whole batch.
func (v *Versioner) CreateRelationshipsTo(ctx context.Context, source graph.NodeID, destinations []graph.NodeID, propsList []props.Map, opts ...Option) ([]*graph.Edge, error) {
	if len(destinations) != len(propsList) {
		return nil, fmt.Errorf("%w: %d destinations, %d property maps", ErrLengthMismatch, len(destinations), len(propsList))
	}
	o := v.options(opts)
	var out []*graph.Edge
	err := v.update(ctx, func(tx graph.Tx) error {
		src, err := mustBeEntity(tx, source)
		if err != nil {
			return err
		}
		anchors := make([]graph.NodeID, len(destinations))
		for i, dst := range destinations {
			if _, err := mustBeEntity(tx, dst); err != nil {
				return err
			}
			if anchors[i], err = rNode(tx, dst); err != nil {
				return err
			}
		}
		state, err := v.patch(tx, src, nil, "", o.at)
		if err != nil {
			return err
		}
		for i, r := range anchors {
			relType, p := v.splitType(propsList[i])
			e, err := link(tx, state.ID, r, relType, p)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	v.log.Debug("versioner: relationships created", "source", source, "count", len(out))
	return out, nil
}

// CreateRelationshipsFrom records one relationship from each source to
// destination. propsList pairs with sources like in CreateRelationshipsTo.
// Each source is patched once.
func (v *Versioner) CreateRelationshipsFrom(ctx context.Context, sources []graph.NodeID, destination graph.NodeID, propsList []props.Map, opts ...Option) ([]*graph.Edge, error) {
	if len(sources) != len(propsList) {
		return nil, fmt.Errorf("%w: %d sources, %d property maps", ErrLengthMismatch, len(sources), len(propsList))
	}
	o := v.options(opts)
	var out []*graph.Edge
	err := v.update(ctx, func(tx graph.Tx) error {
		if _, err := mustBeEntity(tx, destination); err != nil {
			return err
		}
		r, err := rNode(tx, destination)
		if err != nil {
			return err
		}
		for i, source := range sources {
			src, err := mustBeEntity(tx, source)
			if err != nil {
				return err
			}
			relType, p := v.splitType(propsList[i])
			state, err := v.patch(tx, src, nil, "", o.at)
			if err != nil {
				return err
			}
			e, err := link(tx, state.ID, r, relType, p)
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	v.log.Debug("versioner: relationships created", "destination", destination, "count", len(out))
	return out, nil
}

// DeleteRelationship ends the relationship of type relType from source to
// destination. The source is patched first and the edge is removed from the
// fresh current State; older States keep theirs. It reports false when
// destination has no R-node.
func (v *Versioner) DeleteRelationship(ctx context.Context, source, destination graph.NodeID, relType string, opts ...Option) (bool, error) {
	if IsSystemType(relType) {
		return false, fmt.Errorf("%w: %s", ErrProtectedRelationship, relType)
	}
	o := v.options(opts)
	var ok bool
	err := v.update(ctx, func(tx graph.Tx) error {
		src, err := mustBeEntity(tx, source)
		if err != nil {
			return err
		}
		if _, err := mustBeEntity(tx, destination); err != nil {
			return err
		}
		done, err := v.unlinkAll(tx, src, []graph.NodeID{destination}, relType, o.at)
		ok = err == nil && done[0]
		return err
	})
	if err != nil {
		return false, err
	}
	if ok {
		v.log.Debug("versioner: relationship deleted",
			"source", source, "destination", destination, "type", relType)
	}
	return ok, nil
}

// DeleteRelationships ends the relationship of type relType from source to
// each destination. The source is patched once for the whole batch. The
// result reports, per destination, whether it resolved to an R-node.
func (v *Versioner) DeleteRelationships(ctx context.Context, source graph.NodeID, destinations []graph.NodeID, relType string, opts ...Option) ([]bool, error) {
	if IsSystemType(relType) {
		return nil, fmt.Errorf("%w: %s", ErrProtectedRelationship, relType)
	}
	o := v.options(opts)
	var out []bool
	err := v.update(ctx, func(tx graph.Tx) error {
		src, err := mustBeEntity(tx, source)
		if err != nil {
			return err
		}
		out, err = v.unlinkAll(tx, src, destinations, relType, o.at)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// unlinkAll patches src once and removes its relType edges to the R-nodes
// of destinations. Destinations without an R-node report false; when none
// resolves, src is not patched.
func (v *Versioner) unlinkAll(tx graph.Tx, src *graph.Node, destinations []graph.NodeID, relType string, at time.Time) ([]bool, error) {
	done := make([]bool, len(destinations))
	anchors := make([]graph.NodeID, len(destinations))
	resolved := false
	for i, dst := range destinations {
		r, err := rNode(tx, dst)
		if err != nil {
			return nil, err
		}
		anchors[i], done[i] = r, r != ""
		resolved = resolved || done[i]
	}
	if !resolved {
		v.skip("deleteRelationship", src.ID, "", "no destination resolved")
		return done, nil
	}
	state, err := v.patch(tx, src, nil, "", at)
	if err != nil {
		return nil, err
	}
	edges, err := tx.Edges(state.ID, graph.Outgoing, relType)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		for i, r := range anchors {
			if done[i] && e.To == r {
				if err := tx.DeleteEdge(e.ID); err != nil {
					return nil, err
				}
				break
			}
		}
	}
	return done, nil
}

// link returns the relType edge state -> r, creating it if needed.
func link(tx graph.Tx, state, r graph.NodeID, relType string, p props.Map) (*graph.Edge, error) {
	if IsSystemType(relType) {
		return nil, fmt.Errorf("%w: %s", ErrProtectedRelationship, relType)
	}
	edges, err := tx.Edges(state, graph.Outgoing, relType)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		if e.To == r {
			return e, nil
		}
	}
	return tx.CreateEdge(state, r, relType, p)
}

// splitType extracts the versionerLabel entry of p as the relationship
// type and returns the remaining properties.
func (v *Versioner) splitType(p props.Map) (string, props.Map) {
	relType := v.relType
	if lv, ok := p[PropVersionerLabel]; ok {
		if s, ok := lv.AsString(); ok && s != "" {
			relType = s
		}
	}
	rest := p.Clone()
	delete(rest, PropVersionerLabel)
	return relType, rest
}
