package persistence

import (
	"bytes"
	"log/slog"
	"maps"
	"strings"
	"testing"
)

func TestResolveSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values map[string]string
		want   Settings
	}{
		{"postgresql", map[string]string{KeyDBKind: "postgresql"}, Settings{true, "db/postgresql"}},
		{"oracle", map[string]string{KeyDBKind: "oracle"}, Settings{true, "db/oracle"}},
		{"other kind uses ansi", map[string]string{KeyDBKind: "h2"}, Settings{true, "db/ansi"}},
		{"sqlite uses ansi", map[string]string{KeyDBKind: "sqlite"}, Settings{true, "db/ansi"}},
		{"explicitly enabled", map[string]string{KeyMigrationsEnabled: "true", KeyDBKind: "postgresql"}, Settings{true, "db/postgresql"}},
		{"disabled", map[string]string{KeyMigrationsEnabled: "false", KeyDBKind: "postgresql"}, Settings{}},
		{"any other value disables", map[string]string{KeyMigrationsEnabled: "yes", KeyDBKind: "postgresql"}, Settings{}},
		{"empty kind uses ansi", map[string]string{KeyDBKind: ""}, Settings{true, "db/ansi"}},
		{"kind is case sensitive", map[string]string{KeyDBKind: "PostgreSQL"}, Settings{true, "db/ansi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ResolveSettings(tt.values, slog.New(slog.DiscardHandler))
			if got != tt.want {
				t.Errorf("ResolveSettings(%v) = %+v, want %+v", tt.values, got, tt.want)
			}
		})
	}
}

func TestResolveSettings_MissingKindWarns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	got := ResolveSettings(nil, logger)
	if !got.MigrationsEnabled || got.MigrationsLocation != "" {
		t.Errorf("got %+v, want enabled with no location", got)
	}
	if !strings.Contains(buf.String(), "datasource.db_kind") {
		t.Errorf("expected a warning naming the missing key, got %q", buf.String())
	}
}

func TestSettings_Values(t *testing.T) {
	t.Parallel()

	got := Settings{MigrationsEnabled: true, MigrationsLocation: "db/ansi"}.Values()
	want := map[string]string{KeyMigrationsEnabled: "true", KeyMigrationsLocation: "db/ansi"}
	if !maps.Equal(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}

	if got := (Settings{}).Values(); !maps.Equal(got, map[string]string{KeyMigrationsEnabled: "false"}) {
		t.Errorf("disabled Values() = %v", got)
	}
}
