package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	catalog   = make(map[ModuleID]ModuleInfo)
	catalogMu sync.RWMutex
)

// RegisterModule adds a module to the compiled-in catalog. It panics on an
// ID that is not of the form "<namespace>.<name>", on a nil constructor and
// on a duplicate ID. Call it from init().
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	ns, name, ok := strings.Cut(string(info.ID), ".")
	if !ok || ns == "" || name == "" {
		panic(fmt.Sprintf("core: module ID %q must be <namespace>.<name>", info.ID))
	}
	if info.New == nil {
		panic(fmt.Sprintf("core: module %s has no constructor", info.ID))
	}

	catalogMu.Lock()
	defer catalogMu.Unlock()

	if _, dup := catalog[info.ID]; dup {
		panic(fmt.Sprintf("core: module %s registered twice", info.ID))
	}
	catalog[info.ID] = info
}

// GetModule looks up a compiled-in module.
func GetModule(id string) (ModuleInfo, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	info, ok := catalog[ModuleID(id)]
	return info, ok
}

// GetModules returns every compiled-in module sorted by ID.
func GetModules() []ModuleInfo {
	return ModulesIn("")
}

// ModulesIn returns the compiled-in modules of one namespace sorted by ID.
// An empty namespace matches all modules.
func ModulesIn(namespace string) []ModuleInfo {
	catalogMu.RLock()
	defer catalogMu.RUnlock()

	var out []ModuleInfo
	for id, info := range catalog {
		if namespace == "" || id.Namespace() == namespace {
			out = append(out, info)
		}
	}
	slices.SortFunc(out, func(a, b ModuleInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func resetRegistry() {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	catalog = make(map[ModuleID]ModuleInfo)
}
