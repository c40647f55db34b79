//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

// Package runner resolves bundles into live graphs and executes them:
// agent instantiation, service injection, assembly, per-node tracking,
// policy evaluation and interruption handling.
package runner

import (
	"sync"
	"time"
)

// NodeResult is one node visit's outcome.
type NodeResult struct {
	Node      string        `json:"node"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// ExecutionSummary is the tracker's view of one finished (or paused)
// execution. Node visitation order is the sole source of truth for
// policy evaluation.
type ExecutionSummary struct {
	GraphName     string              `json:"graph_name"`
	Results       []NodeResult        `json:"results"`
	SubExecutions []*ExecutionSummary `json:"sub_executions,omitempty"`
	StartTime     time.Time           `json:"start_time"`
	EndTime       time.Time           `json:"end_time"`
	Duration      time.Duration       `json:"duration"`
}

// Tracker records per-node outcomes for one execution. It implements
// agent.ExecutionTracker so agents can report from inside Run.
type Tracker struct {
	mu        sync.Mutex
	graphName string
	start     time.Time
	end       time.Time

	results []NodeResult
	// pending holds start times for agent-reported visits.
	pending map[string]time.Time

	subExecutions []*ExecutionSummary
}

// NewTracker starts a tracker for the named graph.
func NewTracker(graphName string) *Tracker {
	return &Tracker{
		graphName: graphName,
		start:     time.Now().UTC(),
		pending:   make(map[string]time.Time),
	}
}

// RecordNodeStart implements agent.ExecutionTracker.
func (t *Tracker) RecordNodeStart(node string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[node] = time.Now().UTC()
}

// RecordNodeEnd implements agent.ExecutionTracker.
func (t *Tracker) RecordNodeEnd(node string, success bool, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	started, exists := t.pending[node]
	if !exists {
		started = time.Now().UTC()
	}
	delete(t.pending, node)
	t.results = append(t.results, NodeResult{
		Node:      node,
		Success:   success,
		Error:     errMsg,
		StartedAt: started,
		Duration:  time.Since(started),
	})
}

// RecordVisit records a completed node visit with a known duration.
// The executor callback uses this; it supersedes agent-reported pending
// entries for the same node.
func (t *Tracker) RecordVisit(node string, success bool, errMsg string, duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, node)
	t.results = append(t.results, NodeResult{
		Node:      node,
		Success:   success,
		Error:     errMsg,
		StartedAt: time.Now().UTC().Add(-duration),
		Duration:  duration,
	})
}

// RecordSubExecution attaches a subgraph's summary.
func (t *Tracker) RecordSubExecution(summary *ExecutionSummary) {
	if summary == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subExecutions = append(t.subExecutions, summary)
}

// Finish stamps the end time.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.end = time.Now().UTC()
}

// Summary snapshots the tracker.
func (t *Tracker) Summary() *ExecutionSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	end := t.end
	if end.IsZero() {
		end = time.Now().UTC()
	}
	results := make([]NodeResult, len(t.results))
	copy(results, t.results)
	return &ExecutionSummary{
		GraphName:     t.graphName,
		Results:       results,
		SubExecutions: append([]*ExecutionSummary(nil), t.subExecutions...),
		StartTime:     t.start,
		EndTime:       end,
		Duration:      end.Sub(t.start),
	}
}

// Checkpoint serializes the tracker for an interruption record.
func (t *Tracker) Checkpoint() map[string]any {
	summary := t.Summary()
	nodes := make([]map[string]any, 0, len(summary.Results))
	for _, result := range summary.Results {
		nodes = append(nodes, map[string]any{
			"node":    result.Node,
			"success": result.Success,
			"error":   result.Error,
		})
	}
	return map[string]any{
		"graph_name": summary.GraphName,
		"start_time": summary.StartTime.Format(time.RFC3339Nano),
		"results":    nodes,
	}
}
