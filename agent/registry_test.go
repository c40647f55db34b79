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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-agentmap-go/graph"
)

func builtinRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

func TestRegistryLookupNormalization(t *testing.T) {
	r := builtinRegistry(t)

	// Case-insensitive lookup; empty resolves to default.
	_, exists := r.Lookup("ECHO")
	assert.True(t, exists)
	reg, exists := r.Lookup("")
	require.True(t, exists)
	assert.Equal(t, BuiltinNamespace+"Default", reg.TypePath)
	assert.True(t, reg.IsBuiltin())

	_, exists = r.Lookup("nonexistent")
	assert.False(t, exists)
}

func TestRegistryRegisterValidation(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register("", "x", func(name, prompt string, cfg NodeConfig) Agent { return nil }))
	assert.Error(t, r.Register("x", "x", nil))
}

func TestRegistryProbe(t *testing.T) {
	r := builtinRegistry(t)
	probe, exists := r.Probe("orchestrator")
	require.True(t, exists)
	_, isOrchestration := probe.(OrchestrationCapable)
	assert.True(t, isOrchestration)

	_, exists = r.Probe("ghost")
	assert.False(t, exists)
}

func TestDefaultAgentWritesPrompt(t *testing.T) {
	r := builtinRegistry(t)
	reg, _ := r.Lookup("default")
	a := reg.Constructor("node", "the prompt", NodeConfig{OutputField: "out"})

	state, err := a.Run(context.Background(), graph.State{})
	require.NoError(t, err)
	assert.Equal(t, "the prompt", state["out"])
	success, ok := state.LastActionSuccess()
	require.True(t, ok)
	assert.True(t, success)
}

func TestEchoAgentCopiesInput(t *testing.T) {
	r := builtinRegistry(t)
	reg, _ := r.Lookup("echo")
	a := reg.Constructor("node", "", NodeConfig{InputFields: []string{"src"}, OutputField: "dst"})

	state, err := a.Run(context.Background(), graph.State{"src": 42})
	require.NoError(t, err)
	assert.Equal(t, 42, state["dst"])
}

func TestBranchingAgentTruthiness(t *testing.T) {
	r := builtinRegistry(t)
	reg, _ := r.Lookup("branching")

	tests := []struct {
		name  string
		input any
		want  bool
	}{
		{"bool true", true, true},
		{"bool false", false, false},
		{"non-empty string", "yes", true},
		{"false string", "False", false},
		{"empty string", "", false},
		{"nil", nil, false},
		{"number", 7, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := reg.Constructor("node", "", NodeConfig{InputFields: []string{"flag"}, OutputField: "out"})
			state, err := a.Run(context.Background(), graph.State{"flag": tt.input})
			require.NoError(t, err)
			success, _ := state.LastActionSuccess()
			assert.Equal(t, tt.want, success)
		})
	}
}

func TestOutcomeAgents(t *testing.T) {
	r := builtinRegistry(t)
	for _, tt := range []struct {
		agentType string
		want      bool
	}{
		{"success", true},
		{"failure", false},
	} {
		reg, _ := r.Lookup(tt.agentType)
		a := reg.Constructor("node", "", NodeConfig{})
		state, err := a.Run(context.Background(), graph.State{})
		require.NoError(t, err)
		success, _ := state.LastActionSuccess()
		assert.Equal(t, tt.want, success)
	}
}

func TestOrchestratorAgentKeywordMatch(t *testing.T) {
	a := &OrchestratorAgent{BaseAgent: NewBaseAgent("router", "", NodeConfig{
		InputFields: []string{"request"},
		OutputField: "next_node",
	})}
	a.SetNodeRegistry(map[string]NodeMetadata{
		"billing": {Description: "handles invoices and payment questions"},
		"support": {Description: "technical support and troubleshooting"},
	})

	state, err := a.Run(context.Background(), graph.State{"request": "my payment failed"})
	require.NoError(t, err)
	assert.Equal(t, "billing", state["next_node"])
}

func TestOrchestratorAgentRequiresRegistry(t *testing.T) {
	a := &OrchestratorAgent{BaseAgent: NewBaseAgent("router", "", NodeConfig{})}
	_, err := a.Run(context.Background(), graph.State{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no node registry")
}
