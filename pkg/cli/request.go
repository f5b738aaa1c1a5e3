package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/haivivi/versioner/pkg/props"
)

// LoadRequest loads a YAML or JSON file into v. Use "-" for stdin.
func LoadRequest(path string, v any) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return ParseRequest(data, path, v)
}

// ParseRequest parses data based on the file extension, trying YAML then
// JSON when the extension says neither.
func ParseRequest(data []byte, filename string, v any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, v); err != nil {
			if err2 := json.Unmarshal(data, v); err2 != nil {
				return fmt.Errorf("failed to parse file (tried YAML and JSON)")
			}
		}
	}
	return nil
}

// ParseAssignments converts key=value arguments into a property map.
// Values are typed by props.Parse.
func ParseAssignments(args []string) (props.Map, error) {
	out := make(props.Map, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid property %q: want key=value", a)
		}
		out[k] = props.Parse(v)
	}
	return out, nil
}

// LoadProps builds a property map from an optional file and key=value
// assignments. Assignments override keys read from the file.
func LoadProps(file string, assigns []string) (props.Map, error) {
	out := props.Map{}
	if file != "" {
		var raw map[string]any
		if err := LoadRequest(file, &raw); err != nil {
			return nil, err
		}
		m, err := props.FromNative(normalize(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		out = m
	}
	kv, err := ParseAssignments(assigns)
	if err != nil {
		return nil, err
	}
	return out.Merge(kv), nil
}

// normalize turns integral float64 values produced by encoding/json into
// int64 so that "age": 36 stays an integer.
func normalize(raw map[string]any) map[string]any {
	for k, v := range raw {
		raw[k] = normalizeValue(v)
	}
	return raw
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
	case []any:
		for i := range x {
			x[i] = normalizeValue(x[i])
		}
	}
	return v
}
