//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"fmt"
	"sync"
)

// Special node names used by the state machine.
const (
	// Start is the virtual start node.
	Start = "__start__"
	// End is the virtual end node; routing to End finishes execution.
	End = "__end__"
)

// NodeFunc is the behavior attached to a node: it consumes the current
// state and returns the next state.
type NodeFunc func(ctx context.Context, state State) (State, error)

// ConditionalFunc decides a routing label from the current state. The
// label is resolved to a target node through the edge's path map.
type ConditionalFunc func(ctx context.Context, state State) (string, error)

// Node is a compiled node in an executable graph.
type Node struct {
	// ID is the unique identifier of the node.
	ID string
	// Name is the human-readable name of the node.
	Name string
	// Description is the description of the node.
	Description string
	// Function is executed when the node is visited.
	Function NodeFunc
}

// Edge represents an unconditional edge in the graph.
type Edge struct {
	// From is the source node ID.
	From string
	// To is the target node ID.
	To string
}

// ConditionalEdge routes from a node through a condition function.
type ConditionalEdge struct {
	// From is the source node ID.
	From string
	// Condition produces a routing label.
	Condition ConditionalFunc
	// PathMap resolves routing labels to target node IDs. Labels absent
	// from the map route to End.
	PathMap map[string]string
}

// Graph is a compiled, executable state machine. It is built through
// StateGraph and read-only after Compile.
type Graph struct {
	nodes            map[string]*Node
	nodeOrder        []string
	edges            map[string][]*Edge
	conditionalEdges map[string]*ConditionalEdge
	entryPoint       string
	mutex            sync.RWMutex
}

// newGraph creates a new empty graph.
func newGraph() *Graph {
	return &Graph{
		nodes:            make(map[string]*Node),
		edges:            make(map[string][]*Edge),
		conditionalEdges: make(map[string]*ConditionalEdge),
	}
}

func (g *Graph) addNode(node *Node) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if node.ID == "" {
		return fmt.Errorf("node ID cannot be empty")
	}
	if _, exists := g.nodes[node.ID]; exists {
		return fmt.Errorf("node with ID %s already exists", node.ID)
	}
	g.nodes[node.ID] = node
	g.nodeOrder = append(g.nodeOrder, node.ID)
	return nil
}

func (g *Graph) addEdge(edge *Edge) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if edge.From == "" || edge.To == "" {
		return fmt.Errorf("edge from and to cannot be empty")
	}
	if edge.From != Start {
		if _, exists := g.nodes[edge.From]; !exists {
			return fmt.Errorf("source node %s does not exist", edge.From)
		}
	}
	if edge.To != End {
		if _, exists := g.nodes[edge.To]; !exists {
			return fmt.Errorf("target node %s does not exist", edge.To)
		}
	}
	g.edges[edge.From] = append(g.edges[edge.From], edge)
	return nil
}

func (g *Graph) addConditionalEdge(edge *ConditionalEdge) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if edge.From == "" {
		return fmt.Errorf("conditional edge source cannot be empty")
	}
	if edge.Condition == nil {
		return fmt.Errorf("conditional edge from %s has no condition", edge.From)
	}
	if _, exists := g.nodes[edge.From]; !exists {
		return fmt.Errorf("source node %s does not exist", edge.From)
	}
	for label, target := range edge.PathMap {
		if target == End {
			continue
		}
		if _, exists := g.nodes[target]; !exists {
			return fmt.Errorf("conditional edge from %s routes label %q to unknown node %s",
				edge.From, label, target)
		}
	}
	g.conditionalEdges[edge.From] = edge
	return nil
}

func (g *Graph) setEntryPoint(nodeID string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if _, exists := g.nodes[nodeID]; !exists {
		return fmt.Errorf("entry point node %s does not exist", nodeID)
	}
	g.entryPoint = nodeID
	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	node, exists := g.nodes[id]
	return node, exists
}

// NodeIDs returns the node IDs in insertion order.
func (g *Graph) NodeIDs() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	ids := make([]string, len(g.nodeOrder))
	copy(ids, g.nodeOrder)
	return ids
}

// GetEdges returns all unconditional outgoing edges from a node.
func (g *Graph) GetEdges(nodeID string) []*Edge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.edges[nodeID]
}

// GetConditionalEdge returns the conditional edge from a node, if any.
func (g *Graph) GetConditionalEdge(nodeID string) (*ConditionalEdge, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	edge, exists := g.conditionalEdges[nodeID]
	return edge, exists
}

// EntryPoint returns the entry node ID.
func (g *Graph) EntryPoint() string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.entryPoint
}

// validate checks the structural invariants of the graph.
func (g *Graph) validate() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	if len(g.nodes) == 0 {
		return fmt.Errorf("graph must have at least one node")
	}
	if g.entryPoint == "" {
		return fmt.Errorf("graph must have an entry point")
	}
	if _, exists := g.nodes[g.entryPoint]; !exists {
		return fmt.Errorf("entry point %s is not a node", g.entryPoint)
	}
	return nil
}
