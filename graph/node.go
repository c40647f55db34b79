//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package graph

// Edge labels recognized in node declarations.
const (
	// EdgeDefault is an unconditional transition.
	EdgeDefault = "default"
	// EdgeSuccess routes when the previous action succeeded.
	EdgeSuccess = "success"
	// EdgeFailure routes when the previous action failed.
	EdgeFailure = "failure"
	// EdgeFunc routes through a named user function.
	EdgeFunc = "func"
)

// DefaultAgentType is used when a node declares no agent type.
const DefaultAgentType = "default"

// NodeSpec is the unit of work as declared in a workflow file. It is
// produced by the workflow parser and read-only thereafter.
type NodeSpec struct {
	// Name is the node name, unique within its graph.
	Name string `json:"name"`
	// AgentType keys into the agent registry; empty means "default".
	AgentType string `json:"agent_type"`
	// Inputs is the ordered list of state fields the agent reads.
	Inputs []string `json:"inputs"`
	// Output is the state field the agent writes, or empty.
	Output string `json:"output"`
	// Prompt is free-form text interpreted by the agent.
	Prompt string `json:"prompt"`
	// Description documents the node.
	Description string `json:"description"`
	// Context carries a freeform key/value map, optionally including a
	// "services" list.
	Context map[string]any `json:"context,omitempty"`
	// Edges maps an edge label to one or more target node names.
	Edges map[string][]string `json:"edges,omitempty"`
}

// EffectiveAgentType returns the agent type, defaulting empty to "default".
func (n *NodeSpec) EffectiveAgentType() string {
	if n.AgentType == "" {
		return DefaultAgentType
	}
	return n.AgentType
}

// EdgeCount returns the number of edge entries declared on the node.
func (n *NodeSpec) EdgeCount() int {
	count := 0
	for _, targets := range n.Edges {
		count += len(targets)
	}
	return count
}

// HasConditionalRouting reports whether the node declares success or
// failure edges.
func (n *NodeSpec) HasConditionalRouting() bool {
	return len(n.Edges[EdgeSuccess]) > 0 || len(n.Edges[EdgeFailure]) > 0
}

// EdgeTarget returns the first target for the given label, or empty.
func (n *NodeSpec) EdgeTarget(label string) string {
	targets := n.Edges[label]
	if len(targets) == 0 {
		return ""
	}
	return targets[0]
}

// GraphSpec is the parsed form of one workflow file: an ordered mapping
// from graph name to the nodes declared for it.
type GraphSpec struct {
	// Order preserves graph declaration order.
	Order []string
	// Graphs maps graph name to its nodes in declaration order.
	Graphs map[string][]*NodeSpec
}

// Names returns the graph names in declaration order.
func (gs *GraphSpec) Names() []string {
	return gs.Order
}

// Nodes returns the node list for a graph name.
func (gs *GraphSpec) Nodes(name string) ([]*NodeSpec, bool) {
	nodes, ok := gs.Graphs[name]
	return nodes, ok
}
