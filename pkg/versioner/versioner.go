// Package versioner keeps the history of Entities stored in a property
// graph.
//
// Every Entity points at its current State through a CURRENT edge and at
// every State it ever had through HAS_STATE edges carrying the interval the
// State was current for. States are immutable: Update, Patch and the
// rollback operations always create a new State, link it to the replaced
// one with a PREVIOUS edge and move CURRENT over to it.
//
// Relationships between Entities go from the source's current State to the
// destination's R-node, a per-Entity anchor that never changes. The source
// side is copied onto each new State, so a relationship follows the source
// through its history while old States keep the edges they had.
//
// Each operation runs in one graph transaction. Either the whole change is
// committed or nothing is.
package versioner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/haivivi/versioner/pkg/graph"
)

// Config configures a [Versioner].
type Config struct {
	// Graph is the backing property graph. Required.
	Graph graph.Graph

	// Logger receives soft outcomes (nothing to roll back, rejected
	// rollback targets) at Info and successful mutations at Debug.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// Now returns the instant used when an operation is not given one.
	// Defaults to time.Now.
	Now func() time.Time

	// DefaultRelType is the relationship type used by the bulk create
	// operations when a properties entry has no versionerLabel.
	// Defaults to DefaultRelType.
	DefaultRelType string

	// Schemas maps an Entity kind label to the JSON schema its States'
	// properties must satisfy. Optional.
	Schemas map[string]*jsonschema.Schema
}

// Versioner implements the state transition, rollback, diff and
// relationship operations on a graph.
//
// Versioner holds no mutable state and is safe for concurrent use;
// concurrent writers are serialized by the graph's transactions.
type Versioner struct {
	g       graph.Graph
	log     *slog.Logger
	now     func() time.Time
	relType string
	schemas map[string]*jsonschema.Resolved
}

// New creates a Versioner. It fails with ErrNoGraph when cfg.Graph is nil,
// or if a schema in cfg.Schemas cannot be resolved.
func New(cfg Config) (*Versioner, error) {
	if cfg.Graph == nil {
		return nil, ErrNoGraph
	}
	v := &Versioner{
		g:       cfg.Graph,
		log:     cfg.Logger,
		now:     cfg.Now,
		relType: cfg.DefaultRelType,
		schemas: make(map[string]*jsonschema.Resolved, len(cfg.Schemas)),
	}
	if v.log == nil {
		v.log = slog.Default()
	}
	if v.now == nil {
		v.now = time.Now
	}
	if v.relType == "" {
		v.relType = DefaultRelType
	}
	for label, s := range cfg.Schemas {
		rs, err := s.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("versioner: resolve schema for %q: %w", label, err)
		}
		v.schemas[label] = rs
	}
	return v, nil
}

// Option adjusts a single operation.
type Option func(*options)

type options struct {
	at    time.Time
	label string
}

// At sets the instant of a mutating operation. Without it the configured
// clock is read once when the operation starts.
func At(t time.Time) Option {
	return func(o *options) { o.at = t }
}

// WithLabel adds an extra label to the State created by Init, Update or
// Patch.
func WithLabel(label string) Option {
	return func(o *options) { o.label = label }
}

func (v *Versioner) options(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	if o.at.IsZero() {
		o.at = v.now()
	}
	return o
}

func (v *Versioner) view(ctx context.Context, fn func(tx graph.Tx) error) error {
	return v.g.View(ctx, fn)
}

func (v *Versioner) update(ctx context.Context, fn func(tx graph.Tx) error) error {
	return v.g.Update(ctx, fn)
}

// skip logs a soft outcome.
func (v *Versioner) skip(op string, entity graph.NodeID, state graph.NodeID, reason string) {
	v.log.Info("versioner: "+op+" skipped",
		"entity", entity,
		"state", state,
		"reason", reason,
	)
}
