package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
)

//go:embed db
var migrationsFS embed.FS

// ErrNoMigrations is returned when a migrations location has no embedded
// scripts.
var ErrNoMigrations = errors.New("sqlite: no embedded migrations")

// migration is one versioned script, named V<version>__<description>.sql.
type migration struct {
	version int
	name    string
	body    string
}

// loadMigrations returns the scripts under location sorted by version.
func loadMigrations(location string) ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w for %s", ErrNoMigrations, location)
		}
		return nil, fmt.Errorf("sqlite: read migrations %s: %w", location, err)
	}

	var out []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version, err := parseVersion(e.Name())
		if err != nil {
			return nil, err
		}
		body, err := fs.ReadFile(migrationsFS, path.Join(location, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("sqlite: read migration %s: %w", e.Name(), err)
		}
		out = append(out, migration{version: version, name: e.Name(), body: string(body)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoMigrations, location)
	}

	slices.SortFunc(out, func(a, b migration) int { return a.version - b.version })
	for i := 1; i < len(out); i++ {
		if out[i].version == out[i-1].version {
			return nil, fmt.Errorf("sqlite: duplicate migration version %d (%s, %s)", out[i].version, out[i-1].name, out[i].name)
		}
	}
	return out, nil
}

func parseVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "__")
	if !ok || !strings.HasPrefix(prefix, "V") {
		return 0, fmt.Errorf("sqlite: migration %q must be named V<version>__<description>.sql", name)
	}
	v, err := strconv.Atoi(prefix[1:])
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("sqlite: migration %q has an invalid version", name)
	}
	return v, nil
}

// migrate applies every script newer than the recorded schema version, each
// in its own transaction, and returns the resulting version.
func migrate(ctx context.Context, db *sql.DB, scripts []migration) (int, error) {
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY, script TEXT NOT NULL DEFAULT '', applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')))"); err != nil {
		return 0, fmt.Errorf("sqlite: create schema_version: %w", err)
	}

	current, err := schemaVersion(ctx, db)
	if err != nil {
		return 0, err
	}

	for _, m := range scripts {
		if m.version <= current {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return current, err
		}
		current = m.version
	}
	return current, nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin migration %s: %w", m.name, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range splitStatements(m.body) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: migrate %s: %w\nstatement: %s", m.name, err, stmt)
		}
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version, script) VALUES (?, ?)", m.version, m.name); err != nil {
		return fmt.Errorf("sqlite: record schema version %d: %w", m.version, err)
	}
	return tx.Commit()
}

// splitStatements cuts a script on semicolons that sit outside quoted
// literals, quoted identifiers and comments. Trigger bodies (BEGIN ... END)
// are not recognised and must not appear in migration scripts.
func splitStatements(script string) []string {
	var (
		out   []string
		start int
		quote byte
	)
	flush := func(end int) {
		if stmt := strings.TrimSpace(script[start:end]); stmt != "" {
			out = append(out, stmt)
		}
		start = end + 1
	}
	for i := 0; i < len(script); i++ {
		c := script[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '[':
			quote = ']'
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			if nl := strings.IndexByte(script[i:], '\n'); nl >= 0 {
				i += nl
			} else {
				i = len(script)
			}
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			if end := strings.Index(script[i+2:], "*/"); end >= 0 {
				i += end + 3
			} else {
				i = len(script)
			}
		case c == ';':
			flush(i)
		}
	}
	if start < len(script) {
		flush(len(script))
	}
	return out
}

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("sqlite: read schema version: %w", err)
	}
	return v, nil
}
