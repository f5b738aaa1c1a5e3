package versioner_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/haivivi/versioner/pkg/graph"
	"github.com/haivivi/versioner/pkg/props"
	"github.com/haivivi/versioner/pkg/versioner"
)

func rNodeOf(t *testing.T, g graph.Graph, entity graph.NodeID) graph.NodeID {
	t.Helper()
	e := edges(t, g, entity, graph.Incoming, versioner.RelFor)
	if len(e) != 1 {
		t.Fatalf("entity %s has %d FOR edges", entity, len(e))
	}
	return e[0].From
}

func TestCreateRelationship(t *testing.T) {
	ctx := context.Background()
	v, g := newVersioner(t)
	a := initEntity(t, v, m("name", "a"))
	b := initEntity(t, v, m("name", "b"))
	before, _ := v.GetCurrentState(ctx, a)

	rel, err := v.CreateRelationship(ctx, a, b, "LINK", m("weight", 2), at(1))
	if err != nil {
		t.Fatalf("CreateRelationship: %v", err)
	}
	cur, _ := v.GetCurrentState(ctx, a)
	if cur.ID == before.ID {
		t.Fatal("source was not patched")
	}
	if !cur.Props.Equal(before.Props) {
		t.Fatalf("patched props = %v, want %v", cur.Props, before.Props)
	}
	if rel.From != cur.ID || rel.To != rNodeOf(t, g, b) || rel.Type != "LINK" {
		t.Fatalf("relationship = %+v", rel)
	}
	if w, _ := rel.Prop("weight"); !w.Equal(props.Int(2)) {
		t.Fatalf("weight = %v", w)
	}
	checkInvariants(t, g, a)

	// The destination is untouched.
	if n := stateCount(t, v, b); n != 1 {
		t.Fatalf("destination has %d states, want 1", n)
	}
}

func TestCreateRelationship_SurvivesUpdate(t *testing.T) {
	ctx := context.Background()
	v, g := newVersioner(t)
	a := initEntity(t, v, m("k", 1))
	b := initEntity(t, v, m("k", 2))
	old, err := v.CreateRelationship(ctx, a, b, "LINK", nil, at(1))
	if err != nil {
		t.Fatal(err)
	}
	s, err := v.Update(ctx, a, m("k", 10), at(2))
	if err != nil {
		t.Fatal(err)
	}
	links := edges(t, g, s.ID, graph.Outgoing, "LINK")
	if len(links) != 1 || links[0].To != rNodeOf(t, g, b) {
		t.Fatalf("new State LINK edges = %+v", links)
	}
	if n := len(edges(t, g, old.From, graph.Outgoing, "LINK")); n != 1 {
		t.Fatalf("old State lost its LINK edge: %d", n)
	}
}

func TestCreateRelationship_NoDuplicate(t *testing.T) {
	ctx := context.Background()
	v, g := newVersioner(t)
	a := initEntity(t, v, m("k", 1))
	b := initEntity(t, v, m("k", 2))
	if _, err := v.CreateRelationship(ctx, a, b, "LINK", nil, at(1)); err != nil {
		t.Fatal(err)
	}
	rel, err := v.CreateRelationship(ctx, a, b, "LINK", nil, at(2))
	if err != nil {
		t.Fatal(err)
	}
	cur, _ := v.GetCurrentState(ctx, a)
	if n := len(edges(t, g, cur.ID, graph.Outgoing, "LINK")); n != 1 {
		t.Fatalf("current State has %d LINK edges, want 1", n)
	}
	if rel.From != cur.ID {
		t.Fatalf("returned edge starts at %s, want the current State", rel.From)
	}
}

func TestCreateRelationship_NotAnEntity(t *testing.T) {
	ctx := context.Background()
	v, _ := newVersioner(t)
	a := initEntity(t, v, m("k", 1))
	stateless, _ := v.Init(ctx, "Entity", nil, nil)

	if _, err := v.CreateRelationship(ctx, a, stateless.ID, "LINK", nil); !errors.Is(err, versioner.ErrNotAnEntity) {
		t.Fatalf("destination without CURRENT = %v, want ErrNotAnEntity", err)
	}
	if _, err := v.CreateRelationship(ctx, "nope", a, "LINK", nil); !errors.Is(err, versioner.ErrNotAnEntity) {
		t.Fatalf("missing source = %v, want ErrNotAnEntity", err)
	}
	if n := stateCount(t, v, a); n != 1 {
		t.Fatalf("failed call patched the source: %d states", n)
	}
}

func TestCreateRelationship_SystemType(t *testing.T) {
	ctx := context.Background()
	v, _ := newVersioner(t)
	a := initEntity(t, v, m("k", 1))
	b := initEntity(t, v, m("k", 2))
	if _, err := v.CreateRelationship(ctx, a, b, versioner.RelCurrent, nil); !errors.Is(err, versioner.ErrProtectedRelationship) {
		t.Fatalf("create CURRENT = %v, want ErrProtectedRelationship", err)
	}
}

func TestDeleteRelationship(t *testing.T) {
	ctx := context.Background()
	v, g := newVersioner(t)
	a := initEntity(t, v, m("k", 1))
	b := initEntity(t, v, m("k", 2))
	rel, err := v.CreateRelationship(ctx, a, b, "LINK", nil, at(1))
	if err != nil {
		t.Fatal(err)
	}

	ok, err := v.DeleteRelationship(ctx, a, b, "LINK", at(2))
	if err != nil || !ok {
		t.Fatalf("DeleteRelationship = %v, %v", ok, err)
	}
	cur, _ := v.GetCurrentState(ctx, a)
	if cur.ID == rel.From {
		t.Fatal("source was not patched")
	}
	if n := len(edges(t, g, cur.ID, graph.Outgoing, "LINK")); n != 0 {
		t.Fatalf("current State still has %d LINK edges", n)
	}
	if n := len(edges(t, g, rel.From, graph.Outgoing, "LINK")); n != 1 {
		t.Fatalf("historical State lost its LINK edge: %d", n)
	}
	checkInvariants(t, g, a)

	// Deleting a relationship that does not exist still patches.
	ok, err = v.DeleteRelationship(ctx, a, b, "OTHER", at(3))
	if err != nil || !ok {
		t.Fatalf("DeleteRelationship(missing) = %v, %v", ok, err)
	}
}

func TestDeleteRelationship_NotAnEntity(t *testing.T) {
	ctx := context.Background()
	v, _ := newVersioner(t)
	a := initEntity(t, v, m("k", 1))
	b := initEntity(t, v, m("k", 2))
	state, _ := v.GetCurrentState(ctx, a)

	for _, src := range []graph.NodeID{state.ID, "missing"} {
		ok, err := v.DeleteRelationship(ctx, src, b, "LINK")
		if !errors.Is(err, versioner.ErrNotAnEntity) || ok {
			t.Fatalf("DeleteRelationship(%s) = %v, %v; want ErrNotAnEntity", src, ok, err)
		}
	}
	if ok, err := v.DeleteRelationship(ctx, a, "missing", "LINK"); !errors.Is(err, versioner.ErrNotAnEntity) || ok {
		t.Fatalf("DeleteRelationship(to missing) = %v, %v; want ErrNotAnEntity", ok, err)
	}
	if n := stateCount(t, v, a); n != 1 {
		t.Fatalf("failed delete patched the source: %d states", n)
	}
}

func TestDeleteRelationship_Protected(t *testing.T) {
	ctx := context.Background()
	v, _ := newVersioner(t)
	a := initEntity(t, v, m("k", 1))
	b := initEntity(t, v, m("k", 2))
	for _, typ := range []string{"CURRENT", "HAS_STATE", "PREVIOUS", "ROLLBACK", "FOR"} {
		ok, err := v.DeleteRelationship(ctx, a, b, typ)
		if !errors.Is(err, versioner.ErrProtectedRelationship) || ok {
			t.Fatalf("delete %s = %v, %v; want ErrProtectedRelationship", typ, ok, err)
		}
	}
	if _, err := v.DeleteRelationships(ctx, a, []graph.NodeID{b}, "FOR"); !errors.Is(err, versioner.ErrProtectedRelationship) {
		t.Fatalf("bulk delete FOR = %v", err)
	}
	if n := stateCount(t, v, a); n != 1 {
		t.Fatalf("protected delete patched the source: %d states", n)
	}
}

func TestCreateRelationshipsTo(t *testing.T) {
	ctx := context.Background()
	v, g := newVersioner(t)
	a := initEntity(t, v, m("k", 1))
	b := initEntity(t, v, m("k", 2))
	c := initEntity(t, v, m("k", 3))

	rels, err := v.CreateRelationshipsTo(ctx, a, []graph.NodeID{b, c}, []props.Map{
		m("versionerLabel", "FRIEND", "since", 2020),
		m("since", 2021),
	}, at(1))
	if err != nil {
		t.Fatalf("CreateRelationshipsTo: %v", err)
	}
	if len(rels) != 2 {
		t.Fatalf("created %d relationships, want 2", len(rels))
	}
	if rels[0].Type != "FRIEND" || rels[1].Type != versioner.DefaultRelType {
		t.Fatalf("types = %s, %s", rels[0].Type, rels[1].Type)
	}
	if _, ok := rels[0].Prop("versionerLabel"); ok {
		t.Fatal("versionerLabel stored on the edge")
	}
	if rels[0].From != rels[1].From {
		t.Fatal("relationships start at different States; want one patch")
	}
	if n := stateCount(t, v, a); n != 2 {
		t.Fatalf("source has %d states, want 2", n)
	}
	if rels[1].To != rNodeOf(t, g, c) {
		t.Fatal("second relationship does not point at c's R-node")
	}
}

func TestCreateRelationshipsTo_LengthMismatch(t *testing.T) {
	ctx := context.Background()
	v, _ := newVersioner(t)
	a := initEntity(t, v, m("k", 1))
	b := initEntity(t, v, m("k", 2))
	_, err := v.CreateRelationshipsTo(ctx, a, []graph.NodeID{b}, []props.Map{nil, nil})
	if !errors.Is(err, versioner.ErrLengthMismatch) {
		t.Fatalf("CreateRelationshipsTo = %v, want ErrLengthMismatch", err)
	}
	_, err = v.CreateRelationshipsFrom(ctx, []graph.NodeID{a, b}, b, []props.Map{nil})
	if !errors.Is(err, versioner.ErrLengthMismatch) {
		t.Fatalf("CreateRelationshipsFrom = %v, want ErrLengthMismatch", err)
	}
}

func TestCreateRelationshipsFrom(t *testing.T) {
	ctx := context.Background()
	v, g := newTestVersioner(t, versioner.Config{DefaultRelType: "RELATED"})
	a := initEntity(t, v, m("k", 1))
	b := initEntity(t, v, m("k", 2))
	c := initEntity(t, v, m("k", 3))

	rels, err := v.CreateRelationshipsFrom(ctx, []graph.NodeID{a, b}, c, []props.Map{nil, m("versionerLabel", 5)}, at(1))
	if err != nil {
		t.Fatalf("CreateRelationshipsFrom: %v", err)
	}
	rc := rNodeOf(t, g, c)
	for i, src := range []graph.NodeID{a, b} {
		cur, _ := v.GetCurrentState(ctx, src)
		if rels[i].From != cur.ID || rels[i].To != rc {
			t.Fatalf("relationship %d = %+v", i, rels[i])
		}
		// A non-string versionerLabel falls back to the default type.
		if rels[i].Type != "RELATED" {
			t.Fatalf("relationship %d type = %s, want RELATED", i, rels[i].Type)
		}
	}
}

func TestDeleteRelationships(t *testing.T) {
	ctx := context.Background()
	v, g := newVersioner(t)
	a := initEntity(t, v, m("k", 1))
	b := initEntity(t, v, m("k", 2))
	c := initEntity(t, v, m("k", 3))
	if _, err := v.CreateRelationshipsTo(ctx, a, []graph.NodeID{b, c}, []props.Map{
		m("versionerLabel", "LINK"), m("versionerLabel", "LINK"),
	}, at(1)); err != nil {
		t.Fatal(err)
	}

	got, err := v.DeleteRelationships(ctx, a, []graph.NodeID{b, "ghost"}, "LINK", at(2))
	if err != nil {
		t.Fatalf("DeleteRelationships: %v", err)
	}
	if !slices.Equal(got, []bool{true, false}) {
		t.Fatalf("DeleteRelationships = %v, want [true false]", got)
	}
	rels, _ := v.GetRelationships(ctx, a)
	if len(rels) != 1 || rels[0].Destination != c {
		t.Fatalf("remaining relationships = %+v, want LINK to c", rels)
	}
	checkInvariants(t, g, a)
}
