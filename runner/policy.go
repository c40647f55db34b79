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
	"fmt"
	"strings"
	"sync"

	"trpc.group/trpc-go/trpc-agentmap-go/log"
)

// Success policy types.
const (
	PolicyAllNodes      = "all_nodes"
	PolicyFinalNode     = "final_node"
	PolicyCriticalNodes = "critical_nodes"
	PolicyCustom        = "custom"
)

// PolicyConfig selects how overall success is decided from per-node
// outcomes.
type PolicyConfig struct {
	// Type is one of the Policy* constants; empty means all_nodes.
	Type string `yaml:"type" json:"type"`
	// CriticalNodes is consulted by the critical_nodes policy.
	CriticalNodes []string `yaml:"critical_nodes" json:"critical_nodes,omitempty"`
	// CustomFunc names a registered custom policy, in dotted
	// "module.path.function" form.
	CustomFunc string `yaml:"custom_func" json:"custom_func,omitempty"`
}

// CustomPolicy decides success from an execution summary.
type CustomPolicy func(summary *ExecutionSummary) bool

// customPolicies is the process-wide custom policy registry. Go has no
// dynamic import, so dotted function references resolve against
// registered callables.
var (
	customPoliciesMu sync.RWMutex
	customPolicies   = make(map[string]CustomPolicy)
)

// RegisterPolicyFunc registers a custom policy under a dotted name.
func RegisterPolicyFunc(name string, policy CustomPolicy) {
	customPoliciesMu.Lock()
	defer customPoliciesMu.Unlock()
	customPolicies[name] = policy
}

// lookupPolicyFunc resolves a registered custom policy.
func lookupPolicyFunc(name string) (CustomPolicy, bool) {
	customPoliciesMu.RLock()
	defer customPoliciesMu.RUnlock()
	policy, exists := customPolicies[name]
	return policy, exists
}

// Validate returns the configuration problems, empty when valid.
func (p PolicyConfig) Validate() []string {
	var problems []string
	switch p.Type {
	case "", PolicyAllNodes, PolicyFinalNode:
	case PolicyCriticalNodes:
		if len(p.CriticalNodes) == 0 {
			problems = append(problems, "critical_nodes policy requires a non-empty node list")
		}
	case PolicyCustom:
		if p.CustomFunc == "" {
			problems = append(problems, "custom policy requires a function reference")
		} else if !strings.Contains(p.CustomFunc, ".") {
			problems = append(problems,
				fmt.Sprintf("custom policy reference %q is not in module.path.function form", p.CustomFunc))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown policy type %q", p.Type))
	}
	return problems
}

// EvaluateSuccess decides overall success per the policy. Unknown types
// fall back to all_nodes with a warning; any panic during evaluation
// yields false.
func EvaluateSuccess(summary *ExecutionSummary, cfg PolicyConfig) (success bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("policy evaluation panicked: %v", r)
			success = false
		}
	}()
	if summary == nil {
		return false
	}
	switch cfg.Type {
	case "", PolicyAllNodes:
		return allNodesSucceeded(summary)
	case PolicyFinalNode:
		if len(summary.Results) == 0 {
			return false
		}
		return summary.Results[len(summary.Results)-1].Success
	case PolicyCriticalNodes:
		return criticalNodesSucceeded(summary, cfg.CriticalNodes)
	case PolicyCustom:
		policy, exists := lookupPolicyFunc(cfg.CustomFunc)
		if !exists {
			log.Warnf("custom policy %q is not registered, treating execution as failed", cfg.CustomFunc)
			return false
		}
		return policy(summary)
	default:
		log.Warnf("unknown policy type %q, falling back to all_nodes", cfg.Type)
		return allNodesSucceeded(summary)
	}
}

func allNodesSucceeded(summary *ExecutionSummary) bool {
	for _, result := range summary.Results {
		if !result.Success {
			return false
		}
	}
	return true
}

// criticalNodesSucceeded requires every critical node to appear in the
// execution sequence and to have succeeded on every visit.
func criticalNodesSucceeded(summary *ExecutionSummary, critical []string) bool {
	visited := make(map[string]bool)
	failed := make(map[string]bool)
	for _, result := range summary.Results {
		visited[result.Node] = true
		if !result.Success {
			failed[result.Node] = true
		}
	}
	for _, node := range critical {
		if !visited[node] || failed[node] {
			return false
		}
	}
	return true
}
