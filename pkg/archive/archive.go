// Package archive exports the complete timeline of an Entity to a
// [storage.FileStore] and loads it back for inspection.
//
// An archive is a single document holding the Entity, every State with its
// labels, properties and validity interval, the PREVIOUS and ROLLBACK links
// between States, and the versioned relationships each State carried.
// Archives are read-only snapshots; nothing imports them into a graph.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/versioner/pkg/graph"
	"github.com/haivivi/versioner/pkg/jsontime"
	"github.com/haivivi/versioner/pkg/props"
	"github.com/haivivi/versioner/pkg/storage"
	"github.com/haivivi/versioner/pkg/versioner"
)

// DocumentVersion is written into every archive.
const DocumentVersion = 1

var (
	ErrUnknownFormat = errors.New("archive: unknown format")
	ErrExists        = errors.New("archive: file already exists")
	ErrVersion       = errors.New("archive: unsupported document version")
)

// Format is the encoding of an archive file.
type Format string

const (
	YAML    Format = "yaml"
	Msgpack Format = "msgpack"
)

// ParseFormat accepts "yaml", "yml", "msgpack" and "mp".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return YAML, nil
	case "msgpack", "mp":
		return Msgpack, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatOf infers the format from the file extension of p.
func FormatOf(p string) (Format, error) {
	ext := strings.TrimPrefix(path.Ext(p), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnknownFormat, p)
	}
	return ParseFormat(ext)
}

// Ext returns the file extension written for f, without the dot.
func (f Format) Ext() string {
	return string(f)
}

// Document is the archived timeline of one Entity.
type Document struct {
	Version    int            `json:"version" yaml:"version" msgpack:"version"`
	ExportedAt jsontime.Milli `json:"exportedAt" yaml:"exportedAt" msgpack:"exported_at"`
	Entity     Entity         `json:"entity" yaml:"entity" msgpack:"entity"`
	// States is ordered newest first.
	States []State `json:"states" yaml:"states" msgpack:"states"`
}

// Entity is the archived Entity node.
type Entity struct {
	ID     string    `json:"id" yaml:"id" msgpack:"id"`
	Labels []string  `json:"labels" yaml:"labels" msgpack:"labels"`
	Props  props.Map `json:"props,omitempty" yaml:"props,omitempty" msgpack:"props,omitempty"`
}

// State is one archived State. End is nil for the current State.
type State struct {
	ID            string          `json:"id" yaml:"id" msgpack:"id"`
	Labels        []string        `json:"labels" yaml:"labels" msgpack:"labels"`
	Props         props.Map       `json:"props,omitempty" yaml:"props,omitempty" msgpack:"props,omitempty"`
	Start         jsontime.Milli  `json:"start" yaml:"start" msgpack:"start"`
	End           *jsontime.Milli `json:"end,omitempty" yaml:"end,omitempty" msgpack:"end,omitempty"`
	Current       bool            `json:"current,omitempty" yaml:"current,omitempty" msgpack:"current,omitempty"`
	Previous      string          `json:"previous,omitempty" yaml:"previous,omitempty" msgpack:"previous,omitempty"`
	RollbackOf    string          `json:"rollbackOf,omitempty" yaml:"rollbackOf,omitempty" msgpack:"rollback_of,omitempty"`
	Relationships []Relationship  `json:"relationships,omitempty" yaml:"relationships,omitempty" msgpack:"relationships,omitempty"`
}

// Contains reports whether t falls within the State's [Start, End) interval.
func (s *State) Contains(t time.Time) bool {
	m := jsontime.Milli(t)
	if m.Before(s.Start) {
		return false
	}
	return s.End == nil || m.Before(*s.End)
}

// Relationship is a versioned relationship from a State to another Entity.
type Relationship struct {
	Type        string    `json:"type" yaml:"type" msgpack:"type"`
	Destination string    `json:"destination" yaml:"destination" msgpack:"destination"`
	Props       props.Map `json:"props,omitempty" yaml:"props,omitempty" msgpack:"props,omitempty"`
}

// Current returns the current State, or nil.
func (d *Document) Current() *State {
	for i := range d.States {
		if d.States[i].Current {
			return &d.States[i]
		}
	}
	return nil
}

// At returns the State that was current at t, or nil.
func (d *Document) At(t time.Time) *State {
	for i := range d.States {
		if d.States[i].Contains(t) {
			return &d.States[i]
		}
	}
	return nil
}

// Build converts a timeline into a Document stamped with exportedAt.
func Build(tl *versioner.Timeline, exportedAt time.Time) *Document {
	doc := &Document{
		Version:    DocumentVersion,
		ExportedAt: jsontime.Milli(exportedAt),
		Entity: Entity{
			ID:     string(tl.Entity.ID),
			Labels: tl.Entity.Labels,
			Props:  tl.Entity.Props,
		},
		States: make([]State, 0, len(tl.States)),
	}
	for _, r := range tl.States {
		s := State{
			ID:         string(r.State.ID),
			Labels:     r.State.Labels,
			Props:      r.State.Props,
			Start:      jsontime.Milli(r.Start),
			Current:    r.Current,
			Previous:   string(r.Previous),
			RollbackOf: string(r.RollbackOf),
		}
		if !r.End.IsZero() {
			end := jsontime.Milli(r.End)
			s.End = &end
		}
		for _, rel := range tl.Relationships[r.State.ID] {
			s.Relationships = append(s.Relationships, Relationship{
				Type:        rel.Edge.Type,
				Destination: string(rel.Destination),
				Props:       rel.Edge.Props,
			})
		}
		doc.States = append(doc.States, s)
	}
	return doc
}

// DefaultPath names the archive of entity: "<kind>/<id>.<ext>".
func DefaultPath(entity *graph.Node, f Format) string {
	kind := "Entity"
	if len(entity.Labels) > 0 {
		kind = entity.Labels[0]
	}
	return kind + "/" + string(entity.ID) + "." + f.Ext()
}

// Encode writes doc to w in format f.
func Encode(w io.Writer, doc *Document, f Format) error {
	switch f {
	case YAML:
		return yaml.NewEncoder(w).Encode(doc)
	case Msgpack:
		return msgpack.NewEncoder(w).Encode(doc)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Decode reads a Document in format f.
func Decode(data []byte, f Format) (*Document, error) {
	var doc Document
	var err error
	switch f {
	case YAML:
		err = yaml.Unmarshal(data, &doc)
	case Msgpack:
		err = msgpack.NewDecoder(bytes.NewReader(data)).Decode(&doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("archive: decode %s: %w", f, err)
	}
	if doc.Version != DocumentVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, doc.Version)
	}
	return &doc, nil
}

type options struct {
	overwrite bool
	now       func() time.Time
}

// Option configures Export.
type Option func(*options)

// Overwrite replaces an existing archive instead of failing with ErrExists.
func Overwrite() Option {
	return func(o *options) { o.overwrite = true }
}

// WithClock sets the clock used for the exportedAt stamp.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Export reads the timeline of entity and writes it to p in fs. A partially
// written archive is removed when encoding or upload fails.
func Export(ctx context.Context, v *versioner.Versioner, entity graph.NodeID, fs storage.FileStore, p string, f Format, opts ...Option) (*Document, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if _, err := ParseFormat(string(f)); err != nil {
		return nil, err
	}
	tl, err := v.GetTimeline(ctx, entity)
	if err != nil {
		return nil, err
	}
	if !o.overwrite {
		ok, err := fs.Exists(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
		if ok {
			return nil, fmt.Errorf("%w: %s", ErrExists, p)
		}
	}

	doc := Build(tl, o.now())
	w, err := fs.Write(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", p, err)
	}
	if err := Encode(w, doc, f); err != nil {
		w.Close()
		fs.Delete(ctx, p)
		return nil, fmt.Errorf("archive: encode %s: %w", p, err)
	}
	if err := w.Close(); err != nil {
		fs.Delete(ctx, p)
		return nil, fmt.Errorf("archive: write %s: %w", p, err)
	}
	return doc, nil
}

// Load reads the archive at p, inferring the format from its extension.
func Load(ctx context.Context, fs storage.FileStore, p string) (*Document, error) {
	f, err := FormatOf(p)
	if err != nil {
		return nil, err
	}
	r, err := fs.Read(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", p, err)
	}
	return Decode(data, f)
}

// List returns the archive paths under prefix, skipping files whose
// extension is not an archive format.
func List(ctx context.Context, fs storage.FileStore, prefix string) ([]string, error) {
	paths, err := fs.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	out := paths[:0]
	for _, p := range paths {
		if _, err := FormatOf(p); err == nil {
			out = append(out, p)
		}
	}
	return out, nil
}
