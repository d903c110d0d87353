package config

import "slices"

// Resolve returns the module IDs to load: every provider in the chain and
// every entry under modules, sorted and without duplicates so loading is
// deterministic.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules)+len(cfg.Providers))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	for _, p := range cfg.Providers {
		ids = append(ids, p.Module)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
