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

// RoutingFunc is a user routing function for func-labeled edges. It
// receives the state and the declared success/failure targets and
// returns the next node name (or graph.End).
type RoutingFunc func(state graph.State, successTarget, failureTarget string) string

// FuncResolver maps routing function names to callables. Function
// resolution is external to the assembler.
type FuncResolver interface {
	Resolve(name string) (RoutingFunc, error)
}

// InjectionStats counts node-registry injection during assembly.
type InjectionStats struct {
	// Orchestrators is the number of orchestration-capable agents seen.
	Orchestrators int `json:"orchestrators"`
	// Injected is how many of them received the node registry.
	Injected int `json:"injected"`
}

// Assembler translates a bundle's node declarations plus live agent
// instances into a compiled state machine. Assembly is pure with
// respect to external state: the same input yields behaviorally
// equivalent machines.
type Assembler struct {
	funcs FuncResolver
}

// NewAssembler creates an assembler. resolver may be nil when no graph
// uses function-routed edges.
func NewAssembler(resolver FuncResolver) *Assembler {
	return &Assembler{funcs: resolver}
}

// Assemble compiles the graph. agents maps node name to its constructed
// agent; nodeRegistry, when non-nil, is handed to orchestration-capable
// agents before their node is added.
func (a *Assembler) Assemble(
	graphName string,
	nodes []*graph.NodeSpec,
	agents map[string]agent.Agent,
	entryPoint string,
	nodeRegistry map[string]agent.NodeMetadata,
) (*graph.Graph, InjectionStats, error) {
	var stats InjectionStats
	if len(nodes) == 0 {
		return nil, stats, fmt.Errorf("graph %q has no nodes to assemble", graphName)
	}

	sg := graph.NewStateGraph()
	for _, node := range nodes {
		ag, exists := agents[node.Name]
		if !exists {
			return nil, stats, fmt.Errorf("graph %q: no agent instance for node %q", graphName, node.Name)
		}
		if _, ok := ag.(agent.OrchestrationCapable); ok {
			stats.Orchestrators++
			if aware, ok := ag.(agent.NodeRegistryAware); ok && nodeRegistry != nil {
				aware.SetNodeRegistry(nodeRegistry)
				stats.Injected++
			}
		}
		run := ag.Run
		sg.AddNode(node.Name, graph.NodeFunc(run),
			graph.WithName(node.Name), graph.WithDescription(node.Description))
	}

	for _, node := range nodes {
		if err := a.wireEdges(sg, node); err != nil {
			return nil, stats, fmt.Errorf("graph %q: %w", graphName, err)
		}
	}

	entry := entryPoint
	if entry == "" {
		entry = nodes[0].Name
		log.Warnf("graph %q has no entry point, using first node %q", graphName, entry)
	}
	sg.SetEntryPoint(entry)

	compiled, err := sg.Compile()
	if err != nil {
		return nil, stats, fmt.Errorf("graph %q: %w", graphName, err)
	}
	return compiled, stats, nil
}

// wireEdges translates one node's declared edges into graph edges.
func (a *Assembler) wireEdges(sg *graph.StateGraph, node *graph.NodeSpec) error {
	successTarget := node.EdgeTarget(graph.EdgeSuccess)
	failureTarget := node.EdgeTarget(graph.EdgeFailure)
	funcName := node.EdgeTarget(graph.EdgeFunc)

	switch {
	case funcName != "":
		if a.funcs == nil {
			return fmt.Errorf("node %q routes through function %q but no resolver is configured",
				node.Name, funcName)
		}
		routing, err := a.funcs.Resolve(funcName)
		if err != nil {
			return fmt.Errorf("node %q: resolve routing function %q: %w", node.Name, funcName, err)
		}
		sg.AddConditionalEdges(node.Name, func(ctx context.Context, state graph.State) (string, error) {
			return routing(state, successTarget, failureTarget), nil
		}, nil)
	case successTarget != "" || failureTarget != "":
		sg.AddConditionalEdges(node.Name, successFailureCondition(), map[string]string{
			graph.EdgeSuccess: orEnd(successTarget),
			graph.EdgeFailure: orEnd(failureTarget),
		})
	default:
		if target := node.EdgeTarget(graph.EdgeDefault); target != "" {
			sg.AddEdge(node.Name, target)
		}
		// No edges: the node is a finish point.
	}
	return nil
}

// successFailureCondition routes on the last_action_success flag. An
// absent flag counts as success.
func successFailureCondition() graph.ConditionalFunc {
	return func(ctx context.Context, state graph.State) (string, error) {
		if success, ok := state.LastActionSuccess(); ok && !success {
			return graph.EdgeFailure, nil
		}
		return graph.EdgeSuccess, nil
	}
}

// orEnd substitutes End for an undeclared target.
func orEnd(target string) string {
	if target == "" {
		return graph.End
	}
	return target
}
