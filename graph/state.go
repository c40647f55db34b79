//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

// Package graph provides the declarative workflow data model and a
// sequential state-machine executor for compiled graphs.
package graph

// State represents the state that flows through the graph.
type State map[string]any

// State keys recognized by the runtime.
const (
	// StateKeyLastActionSuccess is set by agents and read by
	// success/failure conditional routing.
	StateKeyLastActionSuccess = "last_action_success"
)

// Clone creates a shallow copy of the state.
func (s State) Clone() State {
	clone := make(State, len(s))
	for k, v := range s {
		clone[k] = v
	}
	return clone
}

// LastActionSuccess reports the routing flag for conditional edges.
// The second return value is false when the flag is absent or not a bool.
func (s State) LastActionSuccess() (bool, bool) {
	v, exists := s[StateKeyLastActionSuccess]
	if !exists {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
