package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// LoadSchemas reads every <EntityLabel>.json file in dir. An empty dir
// yields no schemas.
func LoadSchemas(dir string) (map[string]*jsonschema.Schema, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}
	out := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load schemas: %w", err)
		}
		var s jsonschema.Schema
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("load schemas: parse %s: %w", path, err)
		}
		out[strings.TrimSuffix(e.Name(), ".json")] = &s
	}
	return out, nil
}
