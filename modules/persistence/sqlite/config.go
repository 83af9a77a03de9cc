package sqlite

import (
	"fmt"
	"strconv"

	"github.com/flemzord/sjobs/internal/persistence"
)

const (
	defaultBusyTimeout = 5000
	defaultDBFile      = "sjobs.db"
	defaultDBKind      = "sqlite"
)

// Config holds the SQLite persistence module configuration.
type Config struct {
	// Path is the database file path. Defaults to {DataDir}/sjobs.db.
	Path string `yaml:"path"`

	// WAL enables WAL journal mode for concurrent reads. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`

	// DBKind selects the schema flavor. Defaults to "sqlite", which uses
	// the ANSI schema.
	DBKind string `yaml:"db_kind"`

	// Migrations toggles the schema bootstrap. Unset means enabled.
	Migrations *bool `yaml:"migrations"`
}

func (c *Config) defaults() {
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
	if c.DBKind == "" {
		c.DBKind = defaultDBKind
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

// settingsValues exposes the config in the key/value form
// persistence.ResolveSettings reads.
func (c *Config) settingsValues() map[string]string {
	v := map[string]string{persistence.KeyDBKind: c.DBKind}
	if c.Migrations != nil {
		v[persistence.KeyMigrationsEnabled] = strconv.FormatBool(*c.Migrations)
	}
	return v
}

func (c *Config) validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("sqlite: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	return nil
}
