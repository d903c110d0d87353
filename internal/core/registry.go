package core

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// The registry holds every compiled-in module: the provider.* backends,
// cache.sqlite and gateway.http. cmd/codeshift links them with blank
// imports and config.Resolve picks which ones a run loads.
var (
	modules   = make(map[string]ModuleInfo)
	modulesMu sync.RWMutex
)

// RegisterModule adds a module from its package init. Two packages
// claiming the same ID, such as two provider.openai builds, are a link
// error and panic at startup.
func RegisterModule(instance Module) {
	info := instance.ModuleInfo()
	if info.ID == "" {
		panic("module ID must not be empty")
	}
	if info.New == nil {
		panic(fmt.Sprintf("module %s: New function must not be nil", info.ID))
	}

	modulesMu.Lock()
	defer modulesMu.Unlock()

	id := string(info.ID)
	if _, exists := modules[id]; exists {
		panic(fmt.Sprintf("module already registered: %s", id))
	}
	modules[id] = info
}

// GetModule looks up a module by its full ID, e.g. "cache.sqlite".
func GetModule(id string) (ModuleInfo, bool) {
	modulesMu.RLock()
	defer modulesMu.RUnlock()
	info, ok := modules[id]
	return info, ok
}

// GetModules lists the compiled-in modules in ID order, as printed by
// `codeshift version`.
func GetModules() []ModuleInfo {
	modulesMu.RLock()
	defer modulesMu.RUnlock()

	result := make([]ModuleInfo, 0, len(modules))
	for _, info := range modules {
		result = append(result, info)
	}
	slices.SortFunc(result, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

// GetModulesByNamespace lists the modules under one namespace in ID order.
// "provider" yields the translation backends available to the chain.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	modulesMu.RLock()
	defer modulesMu.RUnlock()

	var result []ModuleInfo
	for _, info := range modules {
		if info.ID.Namespace() == namespace && info.ID.Name() != string(info.ID) {
			result = append(result, info)
		}
	}
	slices.SortFunc(result, func(a, b ModuleInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return result
}

// resetRegistry empties the registry between tests.
func resetRegistry() {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	modules = make(map[string]ModuleInfo)
}
