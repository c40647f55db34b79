//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// BuiltinNamespace prefixes the type paths of agents shipped with the
// runtime. Everything else is classified as custom.
const BuiltinNamespace = "builtin."

// Registration maps an agent type name to its constructor and qualified
// type path.
type Registration struct {
	// Constructor builds instances of the agent type.
	Constructor Constructor
	// TypePath is the qualified type reference, e.g. "builtin.Default"
	// or "custom.Summarizer".
	TypePath string
}

// IsBuiltin reports whether the registration originates from the
// built-in namespace.
func (r Registration) IsBuiltin() bool {
	return strings.HasPrefix(r.TypePath, BuiltinNamespace)
}

// Registry maps agent type names to registrations. Lookup is
// case-insensitive; the empty type resolves to "default".
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

// NewRegistry creates an empty agent-type registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// normalize lower-cases the type name and maps empty to "default".
func normalize(agentType string) string {
	if agentType == "" {
		return DefaultAgentType
	}
	return strings.ToLower(agentType)
}

// DefaultAgentType is the agent type used for nodes with no declared type.
const DefaultAgentType = "default"

// Register adds or replaces an agent type registration.
func (r *Registry) Register(agentType, typePath string, ctor Constructor) error {
	if agentType == "" {
		return fmt.Errorf("agent type cannot be empty")
	}
	if ctor == nil {
		return fmt.Errorf("agent type %q has no constructor", agentType)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[normalize(agentType)] = Registration{Constructor: ctor, TypePath: typePath}
	return nil
}

// Lookup resolves an agent type to its registration.
func (r *Registry) Lookup(agentType string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, exists := r.entries[normalize(agentType)]
	return reg, exists
}

// Has reports whether the agent type is registered.
func (r *Registry) Has(agentType string) bool {
	_, exists := r.Lookup(agentType)
	return exists
}

// TypePath returns the qualified type path for an agent type, or empty.
func (r *Registry) TypePath(agentType string) string {
	reg, exists := r.Lookup(agentType)
	if !exists {
		return ""
	}
	return reg.TypePath
}

// List returns the registered agent type names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Probe constructs a throwaway instance of the agent type so callers can
// inspect the capability interfaces it implements.
func (r *Registry) Probe(agentType string) (Agent, bool) {
	reg, exists := r.Lookup(agentType)
	if !exists {
		return nil, false
	}
	return reg.Constructor("__probe__", "", NodeConfig{}), true
}
