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
	"fmt"
	"strings"

	"trpc.group/trpc-go/trpc-agentmap-go/graph"
	"trpc.group/trpc-go/trpc-agentmap-go/interaction"
)

// RegisterBuiltins registers the fixed set of built-in agent types.
func RegisterBuiltins(r *Registry) {
	r.Register("default", BuiltinNamespace+"Default", func(name, prompt string, cfg NodeConfig) Agent {
		return &DefaultAgent{BaseAgent: NewBaseAgent(name, prompt, cfg)}
	})
	r.Register("echo", BuiltinNamespace+"Echo", func(name, prompt string, cfg NodeConfig) Agent {
		return &EchoAgent{BaseAgent: NewBaseAgent(name, prompt, cfg)}
	})
	r.Register("success", BuiltinNamespace+"Success", func(name, prompt string, cfg NodeConfig) Agent {
		return &outcomeAgent{BaseAgent: NewBaseAgent(name, prompt, cfg), success: true}
	})
	r.Register("failure", BuiltinNamespace+"Failure", func(name, prompt string, cfg NodeConfig) Agent {
		return &outcomeAgent{BaseAgent: NewBaseAgent(name, prompt, cfg), success: false}
	})
	r.Register("branching", BuiltinNamespace+"Branching", func(name, prompt string, cfg NodeConfig) Agent {
		return &BranchingAgent{BaseAgent: NewBaseAgent(name, prompt, cfg)}
	})
	r.Register("input", BuiltinNamespace+"Input", func(name, prompt string, cfg NodeConfig) Agent {
		return &InputAgent{BaseAgent: NewBaseAgent(name, prompt, cfg)}
	})
	r.Register("orchestrator", BuiltinNamespace+"Orchestrator", func(name, prompt string, cfg NodeConfig) Agent {
		return &OrchestratorAgent{BaseAgent: NewBaseAgent(name, prompt, cfg)}
	})
}

// DefaultAgent writes its prompt to the output field and marks success.
type DefaultAgent struct {
	BaseAgent
}

// Run implements Agent.
func (a *DefaultAgent) Run(ctx context.Context, state graph.State) (graph.State, error) {
	out := a.Prompt()
	if out == "" {
		out = fmt.Sprintf("[%s] executed", a.Name())
	}
	state = a.WriteOutput(state, out)
	state[graph.StateKeyLastActionSuccess] = true
	return state, nil
}

// EchoAgent copies its first input field to the output field.
type EchoAgent struct {
	BaseAgent
}

// Run implements Agent.
func (a *EchoAgent) Run(ctx context.Context, state graph.State) (graph.State, error) {
	cfg := a.Config()
	var value any
	if len(cfg.InputFields) > 0 {
		value = state[cfg.InputFields[0]]
	}
	state = a.WriteOutput(state, value)
	state[graph.StateKeyLastActionSuccess] = true
	return state, nil
}

// outcomeAgent unconditionally reports success or failure; used to
// exercise conditional routing.
type outcomeAgent struct {
	BaseAgent
	success bool
}

func (a *outcomeAgent) Run(ctx context.Context, state graph.State) (graph.State, error) {
	state = a.WriteOutput(state, a.success)
	state[graph.StateKeyLastActionSuccess] = a.success
	return state, nil
}

// BranchingAgent reports success when its first input field is truthy.
type BranchingAgent struct {
	BaseAgent
}

// Run implements Agent.
func (a *BranchingAgent) Run(ctx context.Context, state graph.State) (graph.State, error) {
	cfg := a.Config()
	success := false
	if len(cfg.InputFields) > 0 {
		switch v := state[cfg.InputFields[0]].(type) {
		case bool:
			success = v
		case string:
			success = v != "" && !strings.EqualFold(v, "false")
		case nil:
		default:
			success = true
		}
	}
	state = a.WriteOutput(state, success)
	state[graph.StateKeyLastActionSuccess] = success
	return state, nil
}

// InputAgent pauses the execution with a text-input interaction request.
// When the state already carries a response for its output field, it
// consumes the response instead of pausing again.
type InputAgent struct {
	BaseAgent
	// ThreadID correlates the pause with its resume; the runner sets it
	// per execution.
	ThreadID string
}

var _ ThreadAware = (*InputAgent)(nil)

// SetThreadID implements ThreadAware.
func (a *InputAgent) SetThreadID(threadID string) {
	a.ThreadID = threadID
}

// Run implements Agent.
func (a *InputAgent) Run(ctx context.Context, state graph.State) (graph.State, error) {
	cfg := a.Config()
	if cfg.OutputField != "" {
		if response, exists := state[cfg.OutputField]; exists && response != nil {
			state[graph.StateKeyLastActionSuccess] = true
			return state, nil
		}
	}
	req := interaction.NewRequest(a.ThreadID, a.Name(), interaction.TypeTextInput, a.Prompt())
	checkpoint := &interaction.CheckpointData{
		Inputs:   map[string]any(state.Clone()),
		NodeName: a.Name(),
	}
	return state, interaction.Interrupt(a.ThreadID, req, checkpoint)
}

// OrchestratorAgent routes to the node whose metadata best matches the
// routing input. It requires the per-graph node registry and, when
// configured, an orchestrator service.
type OrchestratorAgent struct {
	BaseAgent
	nodeRegistry map[string]NodeMetadata
	orchestrator any
}

var (
	_ OrchestrationCapable = (*OrchestratorAgent)(nil)
	_ NodeRegistryAware    = (*OrchestratorAgent)(nil)
)

// SetNodeRegistry implements NodeRegistryAware.
func (a *OrchestratorAgent) SetNodeRegistry(registry map[string]NodeMetadata) {
	a.nodeRegistry = registry
}

// ConfigureOrchestratorService implements OrchestrationCapable.
func (a *OrchestratorAgent) ConfigureOrchestratorService(service any) error {
	a.orchestrator = service
	return nil
}

// NodeSelector is the minimal contract an orchestrator service may
// implement to override the default keyword matching.
type NodeSelector interface {
	SelectNode(input string, nodes map[string]NodeMetadata) (string, error)
}

// Run implements Agent. The selected node name is written to the output
// field for a func-routed edge to consume.
func (a *OrchestratorAgent) Run(ctx context.Context, state graph.State) (graph.State, error) {
	if len(a.nodeRegistry) == 0 {
		return state, fmt.Errorf("orchestrator %s has no node registry", a.Name())
	}
	cfg := a.Config()
	input := ""
	if len(cfg.InputFields) > 0 {
		if v, ok := state[cfg.InputFields[0]].(string); ok {
			input = v
		}
	}
	var selected string
	var err error
	if selector, ok := a.orchestrator.(NodeSelector); ok && selector != nil {
		selected, err = selector.SelectNode(input, a.nodeRegistry)
		if err != nil {
			return state, fmt.Errorf("orchestrator %s selection failed: %w", a.Name(), err)
		}
	} else {
		selected = a.matchNode(input)
	}
	if selected == "" {
		state[graph.StateKeyLastActionSuccess] = false
		return state, nil
	}
	state = a.WriteOutput(state, selected)
	state[graph.StateKeyLastActionSuccess] = true
	return state, nil
}

// matchNode picks the node whose description or prompt shares the most
// words with the input, falling back to the first registered node.
func (a *OrchestratorAgent) matchNode(input string) string {
	words := strings.Fields(strings.ToLower(input))
	best := ""
	bestScore := -1
	for name, meta := range a.nodeRegistry {
		score := 0
		haystack := strings.ToLower(meta.Description + " " + meta.Prompt + " " + name)
		for _, w := range words {
			if strings.Contains(haystack, w) {
				score++
			}
		}
		if score > bestScore || (score == bestScore && (best == "" || name < best)) {
			best = name
			bestScore = score
		}
	}
	return best
}
