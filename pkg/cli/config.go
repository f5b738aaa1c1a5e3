package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

// ErrNoContext is returned when no context is selected.
var ErrNoContext = errors.New("no current context set; use 'ctx use <name>'")

// ConfigStore manages contexts on disk. Each operation reads and writes
// independent files, so no state is cached between calls.
type ConfigStore struct {
	dir string
}

// OpenConfigStore opens <UserConfigDir>/<app>.
func OpenConfigStore(app string) (*ConfigStore, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("cli: cannot determine config directory: %w", err)
	}
	return OpenConfigStoreAt(filepath.Join(base, app))
}

// OpenConfigStoreAt opens a configuration directory, creating it if needed.
func OpenConfigStoreAt(dir string) (*ConfigStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cli: create config dir: %w", err)
	}
	return &ConfigStore{dir: dir}, nil
}

// Dir returns the root configuration directory.
func (s *ConfigStore) Dir() string { return s.dir }

// CtxConfig is the content of ctx.yaml.
type CtxConfig struct {
	// KV selects the graph store: "badger:///path", "badger://" for the
	// context's data directory, or "memory://".
	KV string `yaml:"kv,omitempty" json:"kv,omitempty"`
	// Storage is the archive destination: a directory, "file:///dir" or
	// "s3://bucket/prefix".
	Storage    string `yaml:"storage,omitempty" json:"storage,omitempty"`
	S3Region   string `yaml:"s3_region,omitempty" json:"s3_region,omitempty"`
	S3Endpoint string `yaml:"s3_endpoint,omitempty" json:"s3_endpoint,omitempty"`
	// Schemas is a directory of <EntityLabel>.json schema files.
	Schemas string `yaml:"schemas,omitempty" json:"schemas,omitempty"`
}

// CtxInfo describes a context in list output.
type CtxInfo struct {
	Name    string `yaml:"name" json:"name"`
	Current bool   `yaml:"current" json:"current"`
}

// ConfigKeyInfo describes a supported ctx.yaml key.
type ConfigKeyInfo struct {
	Key         string `yaml:"key" json:"key"`
	Description string `yaml:"description" json:"description"`
}

var ctxConfigKeys = []ConfigKeyInfo{
	{"kv", "graph store (badger:///path, badger://, memory://)"},
	{"s3_endpoint", "S3-compatible endpoint URL"},
	{"s3_region", "S3 region"},
	{"schemas", "directory of <EntityLabel>.json state schemas"},
	{"storage", "archive destination (dir, file:///dir, s3://bucket/prefix)"},
}

func (s *ConfigStore) ctxDir(name string) string {
	return filepath.Join(s.dir, "contexts", name)
}

func (s *ConfigStore) ctxConfigPath(name string) string {
	return filepath.Join(s.ctxDir(name), "ctx.yaml")
}

func (s *ConfigStore) currentCtxPath() string {
	return filepath.Join(s.dir, "current-context")
}

// DataDir returns the default Badger directory of a context.
func (s *ConfigStore) DataDir(name string) string {
	return filepath.Join(s.ctxDir(name), "data")
}

// CtxAdd creates a context with the given configuration.
func (s *ConfigStore) CtxAdd(name string, cfg *CtxConfig) error {
	if err := validateName(name); err != nil {
		return fmt.Errorf("ctx add: %w", err)
	}
	if _, err := os.Stat(s.ctxDir(name)); err == nil {
		return fmt.Errorf("ctx add: context %q already exists", name)
	}
	if cfg == nil {
		cfg = &CtxConfig{}
	}
	return s.save(name, cfg)
}

// CtxRemove deletes a context. The current context cannot be removed.
func (s *ConfigStore) CtxRemove(name string) error {
	if err := validateName(name); err != nil {
		return fmt.Errorf("ctx remove: %w", err)
	}
	if cur, _ := s.CtxCurrent(); cur == name {
		return fmt.Errorf("ctx remove: cannot remove current context %q; switch first with 'ctx use'", name)
	}
	if !s.exists(name) {
		return fmt.Errorf("ctx remove: context %q not found", name)
	}
	return os.RemoveAll(s.ctxDir(name))
}

// CtxUse switches the current context.
func (s *ConfigStore) CtxUse(name string) error {
	if err := validateName(name); err != nil {
		return fmt.Errorf("ctx use: %w", err)
	}
	if !s.exists(name) {
		return fmt.Errorf("ctx use: context %q not found", name)
	}
	return writeFile(s.currentCtxPath(), []byte(name+"\n"))
}

// CtxCurrent returns the name of the current context.
func (s *ConfigStore) CtxCurrent() (string, error) {
	data, err := os.ReadFile(s.currentCtxPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoContext
		}
		return "", fmt.Errorf("ctx current: %w", err)
	}
	name := strings.TrimSpace(string(data))
	if name == "" {
		return "", ErrNoContext
	}
	return name, nil
}

// CtxList returns all contexts sorted by name.
func (s *ConfigStore) CtxList() ([]CtxInfo, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, "contexts"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("ctx list: %w", err)
	}
	cur, _ := s.CtxCurrent()
	var infos []CtxInfo
	for _, e := range entries {
		if e.IsDir() {
			infos = append(infos, CtxInfo{Name: e.Name(), Current: e.Name() == cur})
		}
	}
	return infos, nil
}

// CtxShow returns the configuration of name, or of the current context
// when name is empty.
func (s *ConfigStore) CtxShow(name string) (string, *CtxConfig, error) {
	if name == "" {
		var err error
		if name, err = s.CtxCurrent(); err != nil {
			return "", nil, err
		}
	}
	if !s.exists(name) {
		return "", nil, fmt.Errorf("ctx show: context %q not found", name)
	}
	path := s.ctxConfigPath(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return name, &CtxConfig{}, nil
		}
		return "", nil, fmt.Errorf("ctx show: %w", err)
	}
	var cfg CtxConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", nil, fmt.Errorf("ctx show: parse %s: %w", path, err)
	}
	return name, &cfg, nil
}

// CtxConfigSet sets one key on the current context.
func (s *ConfigStore) CtxConfigSet(key, value string) error {
	name, cfg, err := s.CtxShow("")
	if err != nil {
		return err
	}
	switch key {
	case "kv":
		cfg.KV = value
	case "storage":
		cfg.Storage = value
	case "s3_region":
		cfg.S3Region = value
	case "s3_endpoint":
		cfg.S3Endpoint = value
	case "schemas":
		cfg.Schemas = value
	default:
		return fmt.Errorf("ctx set: unknown key %q; valid keys: %s", key, ctxConfigKeyNames())
	}
	return s.save(name, cfg)
}

// CtxConfigList returns the supported ctx.yaml keys.
func (s *ConfigStore) CtxConfigList() []ConfigKeyInfo {
	return slices.Clone(ctxConfigKeys)
}

func (s *ConfigStore) exists(name string) bool {
	info, err := os.Stat(s.ctxDir(name))
	return err == nil && info.IsDir()
}

func (s *ConfigStore) save(name string, cfg *CtxConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("ctx: marshal: %w", err)
	}
	return writeFile(s.ctxConfigPath(name), data)
}

func validateName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("name %q must not contain path separators", name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("name %q must not start with '.'", name)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func ctxConfigKeyNames() string {
	names := make([]string, len(ctxConfigKeys))
	for i, k := range ctxConfigKeys {
		names[i] = k.Key
	}
	return strings.Join(names, ", ")
}
