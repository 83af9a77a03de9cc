// Package persistence derives the schema bootstrap settings for the
// process store from its datasource configuration.
package persistence

import (
	"log/slog"
	"path"
)

// Keys read from and written to the settings values.
const (
	KeyMigrationsEnabled  = "migrations.enabled"
	KeyMigrationsLocation = "migrations.location"
	KeyDBKind             = "datasource.db_kind"
)

// Database kinds with a dedicated schema. Every other kind uses the ANSI
// schema.
const (
	KindPostgreSQL = "postgresql"
	KindOracle     = "oracle"
	KindANSI       = "ansi"
)

// locationRoot prefixes every migrations location.
const locationRoot = "db"

// Settings is the resolved schema bootstrap configuration.
type Settings struct {
	// MigrationsEnabled is true unless migrations.enabled holds a value
	// other than "true".
	MigrationsEnabled bool

	// MigrationsLocation is db/<schema>, or empty when migrations are
	// disabled or no database kind is configured.
	MigrationsLocation string
}

// Values returns the settings in key/value form.
func (s Settings) Values() map[string]string {
	v := map[string]string{KeyMigrationsEnabled: "false"}
	if s.MigrationsEnabled {
		v[KeyMigrationsEnabled] = "true"
	}
	if s.MigrationsLocation != "" {
		v[KeyMigrationsLocation] = s.MigrationsLocation
	}
	return v
}

// ResolveSettings derives Settings from values. An absent database kind
// leaves the location unset and logs a warning. A present kind, even an
// empty one, always resolves to a location.
func ResolveSettings(values map[string]string, logger *slog.Logger) Settings {
	if enabled, ok := values[KeyMigrationsEnabled]; ok && enabled != "true" {
		return Settings{}
	}

	s := Settings{MigrationsEnabled: true}
	kind, ok := values[KeyDBKind]
	if !ok {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("persistence: datasource.db_kind must be set to initialize the process schema")
		return s
	}
	s.MigrationsLocation = Location(kind)
	return s
}

// Location returns the migrations location for a database kind.
func Location(kind string) string {
	switch kind {
	case KindPostgreSQL, KindOracle:
		return path.Join(locationRoot, kind)
	default:
		return path.Join(locationRoot, KindANSI)
	}
}
