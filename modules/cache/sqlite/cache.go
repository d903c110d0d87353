// Package sqlite implements the cache.sqlite module: a SQLite store of
// collaborator responses keyed by a blake3 hash of the model, the system
// prompt and the CBOR-encoded request. It uses modernc.org/sqlite (pure
// Go) in WAL mode.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/codeshift/internal/core"
)

// ServiceName is the service under which the module publishes its *Store.
const ServiceName = "cache.sqlite"

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module owns the cache database.
type Module struct {
	config Config
	store  *Store
	logger *slog.Logger
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "cache.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("cache.sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	if err := m.config.validate(); err != nil {
		return err
	}
	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	store, err := Open(context.Background(), m.config.Path, m.config)
	if err != nil {
		return err
	}
	m.store = store
	ctx.RegisterService(ServiceName, store)

	m.logger.Info("response cache opened",
		"path", m.config.Path,
		"compression", m.config.Compression,
		"wal", m.config.walEnabled(),
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if m.store == nil {
		return nil
	}
	if err := m.store.db.PingContext(context.Background()); err != nil {
		return fmt.Errorf("cache.sqlite: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.store == nil {
		return nil
	}
	st, err := m.store.Stats(context.Background())
	if err == nil {
		m.logger.Info("response cache closing", "entries", st.Entries, "hits", st.Hits)
	}
	return m.store.Close()
}

// Store returns the opened store, or nil before Provision.
func (m *Module) Store() *Store { return m.store }
