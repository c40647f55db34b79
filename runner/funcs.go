//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"fmt"
	"sort"
	"sync"
)

// FuncRegistry is the default FuncResolver: an in-process catalog of
// named routing functions. Workflow authors register functions before
// running graphs whose edges reference them.
type FuncRegistry struct {
	mu    sync.RWMutex
	funcs map[string]RoutingFunc
}

// NewFuncRegistry creates an empty routing-function registry.
func NewFuncRegistry() *FuncRegistry {
	return &FuncRegistry{funcs: make(map[string]RoutingFunc)}
}

// Register adds or replaces a routing function.
func (r *FuncRegistry) Register(name string, fn RoutingFunc) error {
	if name == "" {
		return fmt.Errorf("routing function name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("routing function %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
	return nil
}

// Resolve implements FuncResolver.
func (r *FuncRegistry) Resolve(name string) (RoutingFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, exists := r.funcs[name]
	if !exists {
		return nil, fmt.Errorf("routing function %q is not registered (registered: %v)",
			name, r.namesLocked())
	}
	return fn, nil
}

// Names returns the registered function names, sorted.
func (r *FuncRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *FuncRegistry) namesLocked() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
