// Package sqlite implements the persistence.sqlite module: it opens the
// process store database with modernc.org/sqlite (pure Go, no CGO) and
// bootstraps the process instance and correlation schema.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flemzord/sjobs/internal/core"
	"github.com/flemzord/sjobs/internal/persistence"
	"gopkg.in/yaml.v3"

	_ "modernc.org/sqlite" // SQLite driver registration
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module owns the process store database. The open *sql.DB is registered
// as the "persistence.db" service.
type Module struct {
	config   Config
	db       *sql.DB
	logger   *slog.Logger
	settings persistence.Settings
	version  int
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "persistence.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger

	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, defaultDBFile)
	}

	db, err := Open(context.Background(), m.config.Path, m.config.walEnabled(), m.config.BusyTimeout)
	if err != nil {
		return err
	}

	m.settings = persistence.ResolveSettings(m.config.settingsValues(), m.logger)
	if m.settings.MigrationsEnabled && m.settings.MigrationsLocation != "" {
		scripts, err := loadMigrations(m.settings.MigrationsLocation)
		if err != nil {
			_ = db.Close()
			return err
		}
		if m.version, err = migrate(context.Background(), db, scripts); err != nil {
			_ = db.Close()
			return err
		}
	} else if m.version, err = schemaVersionIfAny(context.Background(), db); err != nil {
		_ = db.Close()
		return err
	}

	m.db = db
	ctx.RegisterService("persistence.db", db)

	m.logger.Info("sqlite persistence module provisioned",
		"path", m.config.Path,
		"wal", m.config.walEnabled(),
		"migrations", m.settings.MigrationsLocation,
		"schema_version", m.version,
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if err := m.config.validate(); err != nil {
		return err
	}
	if err := m.db.PingContext(context.Background()); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}
	m.logger.Info("sqlite persistence module stopping")
	return m.db.Close()
}

// DB returns the open database.
func (m *Module) DB() *sql.DB {
	return m.db
}

// SchemaVersion returns the schema version after provisioning.
func (m *Module) SchemaVersion() int {
	return m.version
}

// Open opens the SQLite database at path with a single connection, creating
// its directory if needed.
func Open(ctx context.Context, path string, wal bool, busyTimeout int) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// SQLite serialises writers; one connection keeps PRAGMAs consistent.
	db.SetMaxOpenConns(1)

	if wal {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}
	return db, nil
}

// schemaVersionIfAny reports the recorded version of a database whose
// schema is managed elsewhere, or 0 when it was never migrated.
func schemaVersionIfAny(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'").Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: inspect schema: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	return schemaVersion(ctx, db)
}
