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
	"context"
	"fmt"

	"trpc.group/trpc-go/trpc-agentmap-go/agent"
	"trpc.group/trpc-go/trpc-agentmap-go/graph"
	"trpc.group/trpc-go/trpc-agentmap-go/log"
)

// GraphAgentType is the agent type that executes a nested graph.
const GraphAgentType = "graph"

// Context keys recognized by graph agents.
const (
	contextKeyWorkflow = "workflow"
	contextKeySubgraph = "subgraph"
)

// RegisterGraphAgentType registers the "graph" agent type, which runs a
// nested workflow as a node. The node context names the workflow file
// ("workflow") and graph ("subgraph"); the subgraph defaults to the
// node's name when unset.
func RegisterGraphAgentType(r *agent.Registry, runner *Runner) error {
	return r.Register(GraphAgentType, "runtime.Graph", func(name, prompt string, cfg agent.NodeConfig) agent.Agent {
		return &GraphAgent{BaseAgent: agent.NewBaseAgent(name, prompt, cfg), runner: runner}
	})
}

// GraphAgent executes a nested graph and folds its final state into the
// parent state.
type GraphAgent struct {
	agent.BaseAgent
	runner *Runner

	// parentTracker receives the subgraph's summary.
	parentTracker *Tracker
}

// SetExecutionTracker implements agent.TrackerAware, capturing the
// parent tracker for sub-execution reporting.
func (a *GraphAgent) SetExecutionTracker(tracker agent.ExecutionTracker) {
	a.BaseAgent.SetExecutionTracker(tracker)
	if parent, ok := tracker.(*Tracker); ok {
		a.parentTracker = parent
	}
}

// Run implements Agent. The subgraph inherits the parent state as its
// inputs; on success its output field (or final state) lands in this
// node's output field.
func (a *GraphAgent) Run(ctx context.Context, state graph.State) (graph.State, error) {
	cfg := a.Config()
	workflowPath, _ := cfg.Context[contextKeyWorkflow].(string)
	if workflowPath == "" {
		return state, fmt.Errorf("graph node %q declares no workflow in context", a.Name())
	}
	subgraph, _ := cfg.Context[contextKeySubgraph].(string)
	if subgraph == "" {
		subgraph = a.Name()
	}

	inputs := map[string]any(state.Clone())
	opts := []RunOption{}
	if a.parentTracker != nil {
		opts = append(opts, withParentTracker(a.parentTracker))
	}
	result, err := a.runner.Run(ctx, workflowPath, subgraph, inputs, opts...)
	if err != nil {
		return state, fmt.Errorf("subgraph %q: %w", subgraph, err)
	}
	if result.Interrupted {
		return state, fmt.Errorf("subgraph %q paused inside node %q; nested interruption is not resumable",
			subgraph, a.Name())
	}
	if result.Error != "" {
		log.Warnf("subgraph %q failed inside node %q: %s", subgraph, a.Name(), result.Error)
		state[graph.StateKeyLastActionSuccess] = false
		return state, nil
	}

	state = a.WriteOutput(state, a.subgraphOutput(result.FinalState))
	state[graph.StateKeyLastActionSuccess] = result.Success
	return state, nil
}

// subgraphOutput extracts the value to surface: the field named by the
// context's "output_field", otherwise the whole final state.
func (a *GraphAgent) subgraphOutput(finalState graph.State) any {
	if field, ok := a.Config().Context["output_field"].(string); ok && field != "" {
		return finalState[field]
	}
	return map[string]any(finalState)
}
