package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/haivivi/versioner/pkg/cli"
	"github.com/haivivi/versioner/pkg/graph"
	"github.com/haivivi/versioner/pkg/kv"
	"github.com/haivivi/versioner/pkg/storage"
	"github.com/haivivi/versioner/pkg/versioner"
)

// graphPrefix namespaces every graph key in the KV store.
var graphPrefix = kv.Key{"versioner"}

// testKVOverride, when set, replaces the store named by the context.
var testKVOverride kv.Store

func openConfigStore() (*cli.ConfigStore, error) {
	if dir := os.Getenv("VERSIONER_CONFIG_DIR"); dir != "" {
		return cli.OpenConfigStoreAt(dir)
	}
	return cli.OpenConfigStore("versioner")
}

// env is the runtime of one command: the selected context with its store
// and engine opened.
type env struct {
	name  string
	cfg   *cli.CtxConfig
	store kv.Store
	v     *versioner.Versioner
}

func openEnv() (*env, error) {
	cs, err := openConfigStore()
	if err != nil {
		return nil, err
	}
	name, cfg, err := cs.CtxShow(contextName)
	if err != nil {
		return nil, err
	}
	schemas, err := cli.LoadSchemas(cfg.Schemas)
	if err != nil {
		return nil, err
	}
	store, err := openKV(cs, name, cfg.KV)
	if err != nil {
		return nil, err
	}
	v, err := versioner.New(versioner.Config{
		Graph:   graph.NewKVGraph(store, graphPrefix),
		Logger:  slog.Default(),
		Schemas: schemas,
	})
	if err != nil {
		closeStore(store)
		return nil, err
	}
	return &env{name: name, cfg: cfg, store: store, v: v}, nil
}

func (e *env) Close() error {
	return closeStore(e.store)
}

// archives opens the archive destination of the context.
func (e *env) archives(ctx context.Context) (storage.FileStore, error) {
	if e.cfg.Storage == "" {
		return nil, fmt.Errorf("no 'storage' configured in context %q; use 'ctx set storage <url>'", e.name)
	}
	return storage.Open(ctx, e.cfg.Storage, storage.S3Options{
		Region:   e.cfg.S3Region,
		Endpoint: e.cfg.S3Endpoint,
	})
}

func closeStore(s kv.Store) error {
	if s == testKVOverride {
		return nil
	}
	return s.Close()
}

// openKV opens the store named by url: "badger:///path", "badger://" for
// the context's data directory (also the default), or "memory://".
func openKV(cs *cli.ConfigStore, name, url string) (kv.Store, error) {
	if testKVOverride != nil {
		return testKVOverride, nil
	}
	var dir string
	switch {
	case url == "" || url == "badger://":
		dir = cs.DataDir(name)
	case strings.HasPrefix(url, "badger://"):
		dir = strings.TrimPrefix(url, "badger://")
	case url == "memory://":
		return kv.NewMemory(nil), nil
	default:
		return nil, fmt.Errorf("unsupported KV URL scheme: %s", url)
	}
	bopts := kv.BadgerOptions{Dir: dir}
	if !verbose {
		bopts.Logger = kv.SilentLogger{}
	}
	return kv.NewBadger(bopts)
}
