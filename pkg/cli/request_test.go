package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/haivivi/versioner/pkg/props"
)

func TestParseAssignments(t *testing.T) {
	m, err := ParseAssignments([]string{"name=Ada", "age=36", "ok=true", "eq=a=b"})
	if err != nil {
		t.Fatal(err)
	}
	want := props.Map{
		"name": props.String("Ada"),
		"age":  props.Int(36),
		"ok":   props.Bool(true),
		"eq":   props.String("a=b"),
	}
	if !m.Equal(want) {
		t.Fatalf("ParseAssignments = %v, want %v", m, want)
	}
	for _, bad := range []string{"novalue", "=x"} {
		if _, err := ParseAssignments([]string{bad}); err == nil {
			t.Errorf("ParseAssignments(%q) succeeded", bad)
		}
	}
}

func TestLoadProps(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "p.yaml")
	os.WriteFile(yml, []byte("name: Ada\nage: 36\ntags: [a, b]\n"), 0o600)
	js := filepath.Join(dir, "p.json")
	os.WriteFile(js, []byte(`{"name":"Ada","age":36,"tags":["a","b"]}`), 0o600)

	want := props.Map{
		"name": props.String("Lovelace"),
		"age":  props.Int(36),
		"tags": props.Strings("a", "b"),
	}
	for _, f := range []string{yml, js} {
		m, err := LoadProps(f, []string{"name=Lovelace"})
		if err != nil {
			t.Fatalf("LoadProps(%s): %v", f, err)
		}
		if !m.Equal(want) {
			t.Fatalf("LoadProps(%s) = %v, want %v", f, m, want)
		}
	}

	nested := filepath.Join(dir, "n.yaml")
	os.WriteFile(nested, []byte("addr:\n  city: London\n"), 0o600)
	if _, err := LoadProps(nested, nil); err == nil {
		t.Fatal("nested map accepted")
	}

	m, err := LoadProps("", []string{"k=1"})
	if err != nil || !m.Equal(props.Map{"k": props.Int(1)}) {
		t.Fatalf("LoadProps without file = %v, %v", m, err)
	}
}
