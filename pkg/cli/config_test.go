package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *ConfigStore {
	t.Helper()
	s, err := OpenConfigStoreAt(filepath.Join(t.TempDir(), "versioner"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestConfigStore_Contexts(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CtxCurrent(); !errors.Is(err, ErrNoContext) {
		t.Fatalf("CtxCurrent on empty store = %v, want ErrNoContext", err)
	}
	if infos, err := s.CtxList(); err != nil || len(infos) != 0 {
		t.Fatalf("CtxList on empty store = %v, %v", infos, err)
	}

	if err := s.CtxAdd("dev", &CtxConfig{KV: "memory://"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CtxAdd("prod", nil); err != nil {
		t.Fatal(err)
	}
	if err := s.CtxAdd("dev", nil); err == nil {
		t.Fatal("duplicate CtxAdd succeeded")
	}
	if err := s.CtxUse("dev"); err != nil {
		t.Fatal(err)
	}
	if err := s.CtxUse("staging"); err == nil {
		t.Fatal("CtxUse of a missing context succeeded")
	}

	infos, err := s.CtxList()
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 || infos[0] != (CtxInfo{"dev", true}) || infos[1] != (CtxInfo{"prod", false}) {
		t.Fatalf("CtxList = %+v", infos)
	}

	name, cfg, err := s.CtxShow("")
	if err != nil || name != "dev" || cfg.KV != "memory://" {
		t.Fatalf("CtxShow = %q, %+v, %v", name, cfg, err)
	}

	if err := s.CtxRemove("dev"); err == nil {
		t.Fatal("removed the current context")
	}
	if err := s.CtxRemove("prod"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.CtxShow("prod"); err == nil {
		t.Fatal("CtxShow of a removed context succeeded")
	}
}

func TestConfigStore_Set(t *testing.T) {
	s := newTestStore(t)
	if err := s.CtxConfigSet("kv", "memory://"); !errors.Is(err, ErrNoContext) {
		t.Fatalf("CtxConfigSet without context = %v", err)
	}
	s.CtxAdd("dev", nil)
	s.CtxUse("dev")

	sets := map[string]string{
		"kv":          "badger:///var/lib/versioner",
		"storage":     "s3://archives/prod",
		"s3_region":   "eu-west-1",
		"s3_endpoint": "http://localhost:9000",
		"schemas":     "/etc/versioner/schemas",
	}
	for k, v := range sets {
		if err := s.CtxConfigSet(k, v); err != nil {
			t.Fatalf("CtxConfigSet(%s): %v", k, err)
		}
	}
	_, cfg, _ := s.CtxShow("dev")
	want := CtxConfig{
		KV:         "badger:///var/lib/versioner",
		Storage:    "s3://archives/prod",
		S3Region:   "eu-west-1",
		S3Endpoint: "http://localhost:9000",
		Schemas:    "/etc/versioner/schemas",
	}
	if *cfg != want {
		t.Fatalf("config = %+v, want %+v", *cfg, want)
	}

	err := s.CtxConfigSet("vecstore", "x")
	if err == nil || !strings.Contains(err.Error(), "valid keys: kv, s3_endpoint") {
		t.Fatalf("unknown key error = %v", err)
	}
	if len(s.CtxConfigList()) != len(sets) {
		t.Fatalf("CtxConfigList = %v", s.CtxConfigList())
	}

	data, err := os.ReadFile(s.ctxConfigPath("dev"))
	if err != nil || !strings.Contains(string(data), "s3_region: eu-west-1") {
		t.Fatalf("ctx.yaml = %s, %v", data, err)
	}
}

func TestValidateName(t *testing.T) {
	for _, bad := range []string{"", "a/b", `a\b`, ".hidden"} {
		if validateName(bad) == nil {
			t.Errorf("validateName(%q) accepted", bad)
		}
	}
	if err := validateName("prod-eu"); err != nil {
		t.Errorf("validateName(prod-eu) = %v", err)
	}
}

func TestDataDir(t *testing.T) {
	s := newTestStore(t)
	if got := s.DataDir("dev"); got != filepath.Join(s.Dir(), "contexts", "dev", "data") {
		t.Fatalf("DataDir = %s", got)
	}
}
