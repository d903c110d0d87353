// Package core provides the module system used to assemble codeshift:
// providers, the response cache and the HTTP gateway are modules that are
// registered at init time, configured from YAML and started by an App.
package core

import "strings"

// ModuleID identifies a module as "<namespace>.<name>", for example
// "provider.openai" or "cache.sqlite".
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// Name returns the part of the ID after the first dot, or the whole ID
// when it has no namespace.
func (id ModuleID) Name() string {
	_, name, ok := strings.Cut(string(id), ".")
	if !ok {
		return string(id)
	}
	return name
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// Module is implemented by every registrable component.
type Module interface {
	ModuleInfo() ModuleInfo
}
