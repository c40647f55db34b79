//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

// Package agent defines the agent contract, the capability interfaces
// used for service injection, and the agent-type registry.
package agent

import (
	"context"

	"trpc.group/trpc-go/trpc-agentmap-go/graph"
	"trpc.group/trpc-go/trpc-agentmap-go/log"
)

// Agent is the unit of work executed at a graph node. Run consumes the
// current state and returns the next state; returning an
// *interaction.ExecutionInterrupted pauses the execution instead of
// failing it.
type Agent interface {
	// Name returns the node name the agent was constructed for.
	Name() string
	// Run executes the agent against the current state.
	Run(ctx context.Context, state graph.State) (graph.State, error)
}

// ExecutionTracker records per-node outcomes during a run. The runner
// provides the concrete implementation.
type ExecutionTracker interface {
	// RecordNodeStart marks a node visit.
	RecordNodeStart(node string)
	// RecordNodeEnd records the outcome of a node visit.
	RecordNodeEnd(node string, success bool, errMsg string)
}

// TrackerAware agents receive the per-execution tracker before running.
type TrackerAware interface {
	SetExecutionTracker(tracker ExecutionTracker)
}

// ThreadAware agents receive the execution's thread ID so their
// interruptions correlate with the right resume.
type ThreadAware interface {
	SetThreadID(threadID string)
}

// NodeConfig carries the node declaration an agent is constructed with.
type NodeConfig struct {
	// InputFields are the state fields the agent reads.
	InputFields []string
	// OutputField is the state field the agent writes, or empty.
	OutputField string
	// Description documents the node.
	Description string
	// Context is the freeform declaration context.
	Context map[string]any
}

// Constructor builds an agent instance for a node. It stands in for the
// class reference of dynamically-typed runtimes.
type Constructor func(name, prompt string, cfg NodeConfig) Agent

// NodeMetadata describes one node to orchestration-capable agents.
type NodeMetadata struct {
	Description string   `json:"description"`
	Prompt      string   `json:"prompt"`
	Type        string   `json:"type"`
	InputFields []string `json:"input_fields"`
	OutputField string   `json:"output_field"`
}

// NodeRegistryAware agents receive the per-graph node catalog before
// assembly.
type NodeRegistryAware interface {
	SetNodeRegistry(registry map[string]NodeMetadata)
}

// BaseAgent provides the common plumbing shared by built-in agents:
// construction fields, logger and tracker attachment.
type BaseAgent struct {
	name    string
	prompt  string
	config  NodeConfig
	logger  log.Logger
	tracker ExecutionTracker
}

// NewBaseAgent creates the shared agent base.
func NewBaseAgent(name, prompt string, cfg NodeConfig) BaseAgent {
	return BaseAgent{
		name:   name,
		prompt: prompt,
		config: cfg,
		logger: log.Default,
	}
}

// Name returns the agent's node name.
func (a *BaseAgent) Name() string { return a.name }

// Prompt returns the agent's prompt.
func (a *BaseAgent) Prompt() string { return a.prompt }

// Config returns the node configuration.
func (a *BaseAgent) Config() NodeConfig { return a.config }

// SetLogger attaches a logger; nil restores the default.
func (a *BaseAgent) SetLogger(logger log.Logger) {
	if logger == nil {
		logger = log.Default
	}
	a.logger = logger
}

// Logger returns the attached logger.
func (a *BaseAgent) Logger() log.Logger { return a.logger }

// SetExecutionTracker attaches the per-execution tracker.
func (a *BaseAgent) SetExecutionTracker(tracker ExecutionTracker) {
	a.tracker = tracker
}

// Tracker returns the attached tracker, which may be nil.
func (a *BaseAgent) Tracker() ExecutionTracker { return a.tracker }

// WriteOutput stores value under the configured output field, if any.
func (a *BaseAgent) WriteOutput(state graph.State, value any) graph.State {
	if a.config.OutputField != "" {
		state[a.config.OutputField] = value
	}
	return state
}
