package versioner

import (
	"errors"
	"fmt"
	"time"

	"github.com/haivivi/versioner/pkg/graph"
	"github.com/haivivi/versioner/pkg/props"
)

// Node labels.
const (
	LabelState = "State"
	LabelR     = "R"
)

// System relationship types. These are reserved and can never be deleted
// through DeleteRelationship.
const (
	RelCurrent  = "CURRENT"
	RelHasState = "HAS_STATE"
	RelPrevious = "PREVIOUS"
	RelRollback = "ROLLBACK"
	RelFor      = "FOR"
)

// Edge property keys.
const (
	PropDate      = "date"
	PropStartDate = "startDate"
	PropEndDate   = "endDate"

	// PropVersionerLabel selects the relationship type in bulk creation.
	PropVersionerLabel = "versionerLabel"
)

// DefaultRelType is used by bulk relationship creation when a properties
// entry carries no versionerLabel.
const DefaultRelType = "LABEL_UNDEFINED"

var systemTypes = map[string]bool{
	RelCurrent:  true,
	RelHasState: true,
	RelPrevious: true,
	RelRollback: true,
	RelFor:      true,
}

// IsSystemType reports whether relType is one of the reserved relationship
// types.
func IsSystemType(relType string) bool {
	return systemTypes[relType]
}

// Errors.
var (
	ErrNotAnEntity           = errors.New("versioner: not an entity")
	ErrForeignState          = errors.New("versioner: state does not belong to entity")
	ErrProtectedRelationship = errors.New("versioner: protected relationship type")
	ErrLengthMismatch        = errors.New("versioner: length mismatch")
	ErrNoCurrentState        = errors.New("versioner: entity has no current state")
	ErrSchemaViolation       = errors.New("versioner: state violates schema")
	ErrNoGraph               = errors.New("versioner: Config.Graph is required")
)

// isEntity reports whether id has an outgoing CURRENT edge and an incoming
// FOR edge.
func isEntity(tx graph.Tx, id graph.NodeID) (bool, error) {
	cur, err := graph.Single(tx, id, graph.Outgoing, RelCurrent)
	if err != nil || cur == nil {
		return false, ignoreNotFound(err)
	}
	anchor, err := graph.Single(tx, id, graph.Incoming, RelFor)
	if err != nil {
		return false, ignoreNotFound(err)
	}
	return anchor != nil, nil
}

// mustBeEntity loads the Entity node or fails with ErrNotAnEntity.
func mustBeEntity(tx graph.Tx, id graph.NodeID) (*graph.Node, error) {
	ok, err := isEntity(tx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotAnEntity, id)
	}
	return tx.Node(id)
}

// mustBeAnchored loads the Entity node or fails with ErrNotAnEntity when it
// has no R-node. Entities created without an initial State have no CURRENT
// edge yet but are valid targets for state-creating operations.
func mustBeAnchored(tx graph.Tx, id graph.NodeID) (*graph.Node, error) {
	r, err := rNode(tx, id)
	if err != nil {
		return nil, err
	}
	if r == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotAnEntity, id)
	}
	return tx.Node(id)
}

// rNode returns the R-node anchoring entity, or "" if there is none.
func rNode(tx graph.Tx, entity graph.NodeID) (graph.NodeID, error) {
	e, err := graph.Single(tx, entity, graph.Incoming, RelFor)
	if err != nil {
		return "", ignoreNotFound(err)
	}
	if e == nil {
		return "", nil
	}
	return e.From, nil
}

// ownerOf returns the Entity owning state via HAS_STATE, or "" if none.
func ownerOf(tx graph.Tx, state graph.NodeID) (graph.NodeID, error) {
	e, err := graph.Single(tx, state, graph.Incoming, RelHasState)
	if err != nil || e == nil {
		return "", err
	}
	return e.From, nil
}

// checkOwnership fails with ErrForeignState unless entity owns state.
func checkOwnership(tx graph.Tx, entity, state graph.NodeID) error {
	owner, err := ownerOf(tx, state)
	if err != nil {
		return err
	}
	if owner != entity {
		return fmt.Errorf("%w: state %s, entity %s", ErrForeignState, state, entity)
	}
	return nil
}

// currentEdge returns the CURRENT edge of entity, or nil.
func currentEdge(tx graph.Tx, entity graph.NodeID) (*graph.Edge, error) {
	return graph.Single(tx, entity, graph.Outgoing, RelCurrent)
}

// hasStateEdge returns the HAS_STATE edge entity -> state, or nil.
func hasStateEdge(tx graph.Tx, entity, state graph.NodeID) (*graph.Edge, error) {
	edges, err := tx.Edges(state, graph.Incoming, RelHasState)
	if err != nil {
		return nil, err
	}
	for _, e := range edges {
		if e.From == entity {
			return e, nil
		}
	}
	return nil, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, graph.ErrNotFound) {
		return nil
	}
	return err
}

// stateLabels returns the labels of a new State.
func stateLabels(extra string) []string {
	if extra == "" || extra == LabelState {
		return []string{LabelState}
	}
	return []string{LabelState, extra}
}

func timeProp(e *graph.Edge, key string) (time.Time, bool) {
	v, ok := e.Prop(key)
	if !ok {
		return time.Time{}, false
	}
	return v.AsTime()
}

func dateProps(key string, t time.Time) props.Map {
	return props.Map{key: props.Time(t)}
}
