package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnresolvedVariable reports a ${VAR} reference with no value and no
// default.
var ErrUnresolvedVariable = errors.New("unresolved variable")

// variableRef matches ${VAR} and ${VAR:-default}. A default may contain
// escaped characters, including \}.
var variableRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse substitutes environment variables in raw and decodes the YAML.
func Parse(raw []byte) (*Config, error) {
	expanded, err := expandEnv(raw, os.LookupEnv)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	return &cfg, nil
}

// expandEnv substitutes every variable reference in raw using lookup. All
// unresolved names are reported together, once each.
func expandEnv(raw []byte, lookup func(string) (string, bool)) ([]byte, error) {
	var missing []string

	out := variableRef.ReplaceAllFunc(raw, func(ref []byte) []byte {
		m := variableRef.FindSubmatch(ref)
		name := string(m[1])
		if v, ok := lookup(name); ok {
			return []byte(v)
		}
		if m[2] != nil {
			return m[2]
		}
		if !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
		return ref
	})

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedVariable, strings.Join(missing, ", "))
	}
	return out, nil
}
