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
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-agentmap-go/agent"
	"trpc.group/trpc-go/trpc-agentmap-go/bundle"
	"trpc.group/trpc-go/trpc-agentmap-go/graph"
	"trpc.group/trpc-go/trpc-agentmap-go/interaction"
	"trpc.group/trpc-go/trpc-agentmap-go/log"
	"trpc.group/trpc-go/trpc-agentmap-go/service"
)

// ExecutionResult is the outcome of one graph run.
type ExecutionResult struct {
	GraphName string `json:"graph_name"`
	// FinalState is the state after the last executed node, also set on
	// failure and interruption.
	FinalState graph.State `json:"final_state"`
	// Success is the policy verdict; always false for interrupted or
	// failed runs.
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// Interrupted marks a paused, resumable execution. An interrupted
	// run is neither a success nor a failure.
	Interrupted   bool              `json:"interrupted"`
	ThreadID      string            `json:"thread_id,omitempty"`
	ExecutionTime time.Duration     `json:"execution_time"`
	SourceInfo    string            `json:"source_info,omitempty"`
	Summary       *ExecutionSummary `json:"summary,omitempty"`
}

// Runner resolves bundles into live graphs and executes them. A Runner
// is safe for concurrent use; per-execution state lives in trackers.
type Runner struct {
	agents       *agent.Registry
	injector     *service.Injector
	bundles      *bundle.Service
	nodeRegistry *NodeRegistryService
	assembler    *Assembler
	interactions *interaction.Handler
	policy       PolicyConfig
}

// Option configures a Runner.
type Option func(*Runner)

// WithPolicy sets the success policy, all_nodes by default.
func WithPolicy(cfg PolicyConfig) Option {
	return func(r *Runner) {
		r.policy = cfg
	}
}

// WithInteractionHandler enables pause/resume support.
func WithInteractionHandler(h *interaction.Handler) Option {
	return func(r *Runner) {
		r.interactions = h
	}
}

// WithFuncResolver sets the resolver for function-routed edges.
func WithFuncResolver(resolver FuncResolver) Option {
	return func(r *Runner) {
		r.assembler = NewAssembler(resolver)
	}
}

// New creates a Runner.
func New(agents *agent.Registry, injector *service.Injector, bundles *bundle.Service, opts ...Option) *Runner {
	r := &Runner{
		agents:       agents,
		injector:     injector,
		bundles:      bundles,
		nodeRegistry: NewNodeRegistryService(),
		assembler:    NewAssembler(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bundles exposes the bundle service, e.g. for cache diagnostics.
func (r *Runner) Bundles() *bundle.Service {
	return r.bundles
}

// runConfig carries per-run options.
type runConfig struct {
	threadID      string
	sourceInfo    string
	parentTracker *Tracker
}

// RunOption configures a single run.
type RunOption func(*runConfig)

// WithThreadID pins the execution's thread ID; a fresh one is generated
// otherwise.
func WithThreadID(threadID string) RunOption {
	return func(c *runConfig) {
		c.threadID = threadID
	}
}

// WithSourceInfo annotates the result with its workflow source.
func WithSourceInfo(info string) RunOption {
	return func(c *runConfig) {
		c.sourceInfo = info
	}
}

// withParentTracker attaches the run as a sub-execution of the parent.
func withParentTracker(parent *Tracker) RunOption {
	return func(c *runConfig) {
		c.parentTracker = parent
	}
}

// Run executes the named graph from a workflow file: bundle resolution,
// agent instantiation, service injection, assembly, execution and policy
// evaluation. Inputs seed the initial state.
func (r *Runner) Run(ctx context.Context, csvPath, graphName string, inputs map[string]any, opts ...RunOption) (*ExecutionResult, error) {
	b, created, err := r.bundles.GetOrCreateBundle(csvPath, graphName)
	if err != nil {
		return nil, err
	}
	if created {
		log.Infof("bundle created for graph %q from %s", b.GraphName, csvPath)
	}
	opts = append(opts, WithSourceInfo(csvPath))
	return r.RunBundle(ctx, b, inputs, opts...)
}

// RunBundle executes an already resolved bundle.
func (r *Runner) RunBundle(ctx context.Context, b *bundle.Bundle, inputs map[string]any, opts ...RunOption) (*ExecutionResult, error) {
	cfg := runConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.threadID == "" {
		cfg.threadID = uuid.NewString()
	}

	tracker := NewTracker(b.GraphName)
	result := &ExecutionResult{
		GraphName:  b.GraphName,
		ThreadID:   cfg.threadID,
		SourceInfo: cfg.sourceInfo,
	}
	started := time.Now()
	finish := func() {
		tracker.Finish()
		result.Summary = tracker.Summary()
		result.ExecutionTime = time.Since(started)
		if cfg.parentTracker != nil {
			cfg.parentTracker.RecordSubExecution(result.Summary)
		}
	}

	nodes := b.NodesInOrder()
	agents, err := r.instantiateAgents(nodes, tracker, cfg.threadID)
	if err != nil {
		return nil, err
	}
	if err := r.injectServices(agents); err != nil {
		return nil, err
	}

	registry := r.nodeRegistry.PrepareForAssembly(nodes, b.GraphName)
	compiled, stats, err := r.assembler.Assemble(b.GraphName, nodes, agents, b.EntryPoint, registry)
	if err != nil {
		return nil, err
	}
	r.nodeRegistry.VerifyPreCompilationInjection(stats)

	executor, err := graph.NewExecutor(compiled, graph.WithNodeCallback(
		func(nodeID string, state graph.State, duration time.Duration, nodeErr error) {
			success := nodeErr == nil
			errMsg := ""
			if nodeErr != nil {
				errMsg = nodeErr.Error()
				if interaction.IsInterrupt(nodeErr) {
					// A pause is not a node failure.
					return
				}
			}
			if flag, ok := state.LastActionSuccess(); ok && !flag {
				success = false
			}
			tracker.RecordVisit(nodeID, success, errMsg, duration)
		}))
	if err != nil {
		return nil, err
	}

	initialState := graph.State(inputs)
	if initialState == nil {
		initialState = graph.State{}
	}
	finalState, execErr := executor.Execute(ctx, initialState, cfg.threadID)
	result.FinalState = finalState

	if interrupt, ok := interaction.AsInterrupt(execErr); ok {
		finish()
		if r.interactions == nil {
			return nil, fmt.Errorf("graph %q paused but no interaction handler is configured", b.GraphName)
		}
		if interrupt.Checkpoint != nil && interrupt.Checkpoint.ExecutionTracker == nil {
			interrupt.Checkpoint.ExecutionTracker = tracker.Checkpoint()
		}
		info := &interaction.BundleInfo{
			CSVHash:    b.CSVHash,
			BundlePath: r.bundles.BundlePath(b.CSVHash, b.GraphName),
			CSVPath:    cfg.sourceInfo,
		}
		if err := r.interactions.HandleInterrupt(interrupt, b.GraphName, info); err != nil {
			return nil, err
		}
		result.Interrupted = true
		return result, nil
	}
	if execErr != nil {
		finish()
		result.Error = execErr.Error()
		return result, nil
	}

	finish()
	result.Success = EvaluateSuccess(result.Summary, r.policy)
	if r.interactions != nil {
		if err := r.interactions.MarkThreadCompleted(cfg.threadID); err == nil {
			log.Debugf("thread %s completed", cfg.threadID)
		}
	}
	return result, nil
}

// ResumeThread continues a paused execution: the response is written to
// the paused node's output field and the graph is re-run from its entry
// point; the input-style agent consumes the response instead of pausing
// again.
func (r *Runner) ResumeThread(ctx context.Context, threadID string, response any) (*ExecutionResult, error) {
	if r.interactions == nil {
		return nil, fmt.Errorf("no interaction handler is configured")
	}
	record, err := r.interactions.Store().GetThread(threadID)
	if err != nil {
		return nil, err
	}
	if record.Status != interaction.StatusPaused {
		return nil, fmt.Errorf("thread %s is %s, not paused", threadID, record.Status)
	}
	if record.Bundle == nil || record.Bundle.BundlePath == "" {
		return nil, fmt.Errorf("thread %s has no bundle reference", threadID)
	}
	b, err := r.bundles.LoadBundle(record.Bundle.BundlePath)
	if err != nil {
		return nil, fmt.Errorf("resume thread %s: %w", threadID, err)
	}

	inputs := map[string]any{}
	if record.Checkpoint != nil {
		for k, v := range record.Checkpoint.Inputs {
			inputs[k] = v
		}
	}
	node, exists := b.Nodes[record.NodeName]
	if !exists {
		return nil, fmt.Errorf("thread %s paused at unknown node %q", threadID, record.NodeName)
	}
	if node.Output == "" {
		return nil, fmt.Errorf("thread %s: paused node %q has no output field to receive the response",
			threadID, record.NodeName)
	}
	inputs[node.Output] = response

	if err := r.interactions.MarkThreadResuming(threadID); err != nil {
		return nil, err
	}
	result, err := r.RunBundle(ctx, b, inputs,
		WithThreadID(threadID), WithSourceInfo(record.Bundle.CSVPath))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// instantiateAgents constructs one agent per node and attaches the
// tracker and thread ID.
func (r *Runner) instantiateAgents(nodes []*graph.NodeSpec, tracker *Tracker, threadID string) (map[string]agent.Agent, error) {
	agents := make(map[string]agent.Agent, len(nodes))
	for _, node := range nodes {
		agentType := node.EffectiveAgentType()
		reg, exists := r.agents.Lookup(agentType)
		if !exists {
			return nil, fmt.Errorf("node %q requires unregistered agent type %q", node.Name, agentType)
		}
		instance := reg.Constructor(node.Name, node.Prompt, agent.NodeConfig{
			InputFields: node.Inputs,
			OutputField: node.Output,
			Description: node.Description,
			Context:     node.Context,
		})
		if instance == nil {
			return nil, fmt.Errorf("agent type %q returned no instance for node %q", agentType, node.Name)
		}
		if aware, ok := instance.(agent.TrackerAware); ok {
			aware.SetExecutionTracker(tracker)
		}
		if aware, ok := instance.(agent.ThreadAware); ok {
			aware.SetThreadID(threadID)
		}
		agents[node.Name] = instance
	}
	return agents, nil
}

// injectServices runs the capability passes over every agent.
func (r *Runner) injectServices(agents map[string]agent.Agent) error {
	if r.injector == nil {
		return nil
	}
	for name, instance := range agents {
		summary, err := r.injector.ConfigureAllServices(instance)
		if err != nil {
			return fmt.Errorf("service injection for node %q: %w", name, err)
		}
		if summary.TotalServicesConfigured > 0 {
			log.Debugf("node %q received %d services: %v",
				name, summary.TotalServicesConfigured, summary.Configured)
		}
	}
	return nil
}
