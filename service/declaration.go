//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package service

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Declaration is the canonical metadata for one known service: its
// implementation path, the services it depends on and the capability
// interfaces it implements. Cross-references are by name only; providers
// are resolved at injection time.
type Declaration struct {
	// Name is the service name.
	Name string `yaml:"name" json:"service_name"`
	// ClassPath is the qualified implementation reference.
	ClassPath string `yaml:"class_path" json:"class_path"`
	// Requires lists the service names this service depends on.
	Requires []string `yaml:"requires" json:"required_dependencies"`
	// Implements lists capability interface names.
	Implements []string `yaml:"implements" json:"implements"`
}

// declarationFile is the YAML shape of a declaration config file.
type declarationFile struct {
	Services []Declaration `yaml:"services"`
}

// DeclarationRegistry is the single source of truth for "is this a real
// service?": a name is a service only when a declaration exists for it.
type DeclarationRegistry struct {
	mu           sync.RWMutex
	declarations map[string]Declaration
}

// NewDeclarationRegistry creates an empty declaration registry.
func NewDeclarationRegistry() *DeclarationRegistry {
	return &DeclarationRegistry{declarations: make(map[string]Declaration)}
}

// LoadFile merges declarations from a YAML config file.
func (r *DeclarationRegistry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read declarations %s: %w", path, err)
	}
	var file declarationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse declarations %s: %w", path, err)
	}
	for _, decl := range file.Services {
		if err := r.Add(decl); err != nil {
			return fmt.Errorf("declarations %s: %w", path, err)
		}
	}
	return nil
}

// Add registers a declaration.
func (r *DeclarationRegistry) Add(decl Declaration) error {
	if decl.Name == "" {
		return fmt.Errorf("service declaration must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.declarations[decl.Name] = decl
	return nil
}

// Declaration returns the declaration for a service name.
func (r *DeclarationRegistry) Declaration(name string) (Declaration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decl, exists := r.declarations[name]
	return decl, exists
}

// Names returns all declared service names, sorted.
func (r *DeclarationRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.declarations))
	for name := range r.declarations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveDependencies expands a seed set of service names to its
// transitive dependency closure. Unknown dependencies are included by
// name so callers can surface them; a dependency cycle is an error.
func (r *DeclarationRegistry) ResolveDependencies(seed []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	closure := make(map[string]bool)
	// visiting tracks the DFS stack for cycle detection.
	visiting := make(map[string]bool)

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		if closure[name] {
			return nil
		}
		if visiting[name] {
			cycle := append(path, name)
			return fmt.Errorf("service dependency cycle: %s", strings.Join(cycle, " -> "))
		}
		visiting[name] = true
		defer delete(visiting, name)
		if decl, exists := r.declarations[name]; exists {
			for _, dep := range decl.Requires {
				if err := visit(dep, append(path, name)); err != nil {
					return err
				}
			}
		}
		closure[name] = true
		return nil
	}
	for _, name := range seed {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	result := make([]string, 0, len(closure))
	for name := range closure {
		result = append(result, name)
	}
	sort.Strings(result)
	return result, nil
}

// LoadOrder topologically sorts the given services by their declared
// dependencies using iterative Kahn's algorithm. Ties are broken
// lexicographically for determinism. A cycle fails with the services
// involved.
func (r *DeclarationRegistry) LoadOrder(services []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inSet := make(map[string]bool, len(services))
	for _, name := range services {
		inSet[name] = true
	}
	// indegree counts dependencies within the requested set only.
	indegree := make(map[string]int, len(services))
	dependents := make(map[string][]string)
	for _, name := range services {
		indegree[name] = 0
	}
	for _, name := range services {
		decl, exists := r.declarations[name]
		if !exists {
			continue
		}
		for _, dep := range decl.Requires {
			if !inSet[dep] {
				continue
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, degree := range indegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(services))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		changed := false
		for _, dependent := range dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
				changed = true
			}
		}
		if changed {
			sort.Strings(ready)
		}
	}

	if len(order) != len(services) {
		var cycle []string
		for name, degree := range indegree {
			if degree > 0 {
				cycle = append(cycle, name)
			}
		}
		sort.Strings(cycle)
		return nil, fmt.Errorf("service dependency cycle among: %s", strings.Join(cycle, ", "))
	}
	return order, nil
}

// ProtocolImplementations maps capability interface names to the
// service that declares them. When several services declare the same
// interface, the lexicographically smallest service name wins.
func (r *DeclarationRegistry) ProtocolImplementations() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impls := make(map[string]string)
	names := make([]string, 0, len(r.declarations))
	for name := range r.declarations {
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	for _, name := range names {
		for _, protocol := range r.declarations[name].Implements {
			impls[protocol] = name
		}
	}
	return impls
}
