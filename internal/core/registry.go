package core

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// registry holds every module compiled into the binary. It is populated
// from init functions; lookups may run concurrently once main starts.
var registry = struct {
	sync.RWMutex
	byID map[ModuleID]ModuleInfo
}{byID: make(map[ModuleID]ModuleInfo)}

// RegisterModule adds a module to the registry, reading its ModuleInfo from
// a throwaway instance. Call it from an init function; a duplicate or
// incomplete registration is a programming error and panics.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if info.ID == "" {
		panic("RegisterModule: empty module ID")
	}
	if info.New == nil {
		panic(fmt.Sprintf("RegisterModule: module %s has no constructor", info.ID))
	}

	registry.Lock()
	defer registry.Unlock()
	if _, dup := registry.byID[info.ID]; dup {
		panic(fmt.Sprintf("RegisterModule: duplicate module %s", info.ID))
	}
	registry.byID[info.ID] = info
}

// GetModule looks up one module by ID.
func GetModule(id string) (ModuleInfo, bool) {
	registry.RLock()
	defer registry.RUnlock()
	info, ok := registry.byID[ModuleID(id)]
	return info, ok
}

// GetModules returns every registered module, ordered by ID.
func GetModules() []ModuleInfo {
	registry.RLock()
	defer registry.RUnlock()

	all := make([]ModuleInfo, 0, len(registry.byID))
	for _, info := range registry.byID {
		all = append(all, info)
	}
	return sortByID(all)
}

// GetModulesByNamespace returns the modules under a dotted namespace, so
// "channel" selects "channel.telegram" but not "channels.other".
func GetModulesByNamespace(namespace string) []ModuleInfo {
	prefix := namespace + "."

	registry.RLock()
	defer registry.RUnlock()

	var matched []ModuleInfo
	for id, info := range registry.byID {
		if strings.HasPrefix(string(id), prefix) {
			matched = append(matched, info)
		}
	}
	return sortByID(matched)
}

func sortByID(infos []ModuleInfo) []ModuleInfo {
	slices.SortFunc(infos, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return infos
}

// resetRegistry clears all registrations. Tests only.
func resetRegistry() {
	registry.Lock()
	defer registry.Unlock()
	registry.byID = make(map[ModuleID]ModuleInfo)
}
