package config

import (
	"cmp"
	"slices"
	"strings"
)

// Load order tiers. Job service clients provision first so the
// "jobs.service" service exists before any module that consumes it.
var tierPrefixes = []string{"jobs.", "persistence."}

func tier(id string) int {
	for i, prefix := range tierPrefixes {
		if strings.HasPrefix(id, prefix) {
			return i
		}
	}
	return len(tierPrefixes)
}

// Resolve returns the configured module IDs in load order: jobs.* clients,
// then persistence.*, then everything else, alphabetically within a tier.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return cmp.Or(cmp.Compare(tier(a), tier(b)), strings.Compare(a, b))
	})
	return ids
}

// JobsModules returns the configured jobs.* client module IDs, sorted.
func JobsModules(cfg *Config) []string {
	var ids []string
	for id := range cfg.Modules {
		if tier(id) == 0 {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}
