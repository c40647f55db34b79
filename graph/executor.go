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
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "trpc.group/trpc-go/trpc-agentmap-go/graph"

// defaultMaxSteps bounds a single execution; cyclic graphs that never
// route to End fail instead of spinning forever.
const defaultMaxSteps = 1000

// NodeCallback observes every node visit. err is nil when the node
// function succeeded; it receives the post-execution state.
type NodeCallback func(nodeID string, state State, duration time.Duration, err error)

// Executor executes a compiled graph with the given initial state.
//
// Execution is sequential: nodes are visited one at a time following
// unconditional and conditional edges until End is reached. Concurrency
// across executions is the caller's concern; an Executor itself is
// stateless and safe for concurrent use.
type Executor struct {
	graph        *Graph
	maxSteps     int
	nodeCallback NodeCallback
	tracer       trace.Tracer
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMaxSteps bounds the number of node visits in one execution.
func WithMaxSteps(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithNodeCallback registers a per-node observer.
func WithNodeCallback(cb NodeCallback) ExecutorOption {
	return func(e *Executor) {
		e.nodeCallback = cb
	}
}

// NewExecutor creates a new graph executor.
func NewExecutor(g *Graph, opts ...ExecutorOption) (*Executor, error) {
	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	e := &Executor{
		graph:    g,
		maxSteps: defaultMaxSteps,
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute runs the graph to completion and returns the final state.
// The first node or routing error aborts execution and is returned;
// interruption errors raised by node functions propagate unchanged so
// callers can recognize them with errors.As.
func (e *Executor) Execute(ctx context.Context, initialState State, invocationID string) (State, error) {
	ctx, span := e.tracer.Start(ctx, "graph.execute",
		trace.WithAttributes(attribute.String("invocation.id", invocationID)))
	defer span.End()

	state := initialState.Clone()
	currentID := e.graph.EntryPoint()
	for step := 0; ; step++ {
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		default:
		}
		if currentID == End {
			return state, nil
		}
		if step >= e.maxSteps {
			err := fmt.Errorf("execution exceeded %d steps at node %s", e.maxSteps, currentID)
			span.SetStatus(codes.Error, err.Error())
			return state, err
		}
		node, exists := e.graph.GetNode(currentID)
		if !exists {
			return state, fmt.Errorf("node %s not found", currentID)
		}
		newState, err := e.executeNode(ctx, node, state)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return state, err
		}
		state = newState
		nextID, err := e.selectNextNode(ctx, node, state)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return state, err
		}
		currentID = nextID
	}
}

// executeNode runs a single node function, tracing and reporting it.
func (e *Executor) executeNode(ctx context.Context, node *Node, state State) (State, error) {
	ctx, span := e.tracer.Start(ctx, "graph.node",
		trace.WithAttributes(attribute.String("node.id", node.ID)))
	defer span.End()

	start := time.Now()
	newState := state
	var err error
	if node.Function != nil {
		newState, err = node.Function(ctx, state)
	}
	if e.nodeCallback != nil {
		cbState := newState
		if cbState == nil {
			cbState = state
		}
		e.nodeCallback(node.ID, cbState, time.Since(start), err)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		// Preserve the error chain; interruptions must stay recognizable.
		return state, fmt.Errorf("node %s: %w", node.ID, err)
	}
	if newState == nil {
		newState = state
	}
	return newState, nil
}

// selectNextNode resolves the node's outgoing routing against the state.
func (e *Executor) selectNextNode(ctx context.Context, node *Node, state State) (string, error) {
	if condEdge, exists := e.graph.GetConditionalEdge(node.ID); exists {
		label, err := condEdge.Condition(ctx, state)
		if err != nil {
			return "", fmt.Errorf("condition evaluation failed at node %s: %w", node.ID, err)
		}
		if target, exists := condEdge.PathMap[label]; exists {
			return target, nil
		}
		// The condition may return a node ID directly, as function-routed
		// edges do.
		if _, exists := e.graph.GetNode(label); exists {
			return label, nil
		}
		return End, nil
	}
	edges := e.graph.GetEdges(node.ID)
	if len(edges) == 0 {
		// A node without outgoing edges is a finish point.
		return End, nil
	}
	return edges[0].To, nil
}
