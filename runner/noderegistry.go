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
	"sync"

	"trpc.group/trpc-go/trpc-agentmap-go/agent"
	"trpc.group/trpc-go/trpc-agentmap-go/graph"
	"trpc.group/trpc-go/trpc-agentmap-go/log"
)

// descriptionLimit truncates prompt-derived descriptions.
const descriptionLimit = 100

// NodeRegistryService builds the per-graph node catalog consumed by
// orchestration-capable agents at runtime. Results are memoized per
// graph name.
type NodeRegistryService struct {
	mu    sync.Mutex
	cache map[string]map[string]agent.NodeMetadata
}

// NewNodeRegistryService creates a node-registry service.
func NewNodeRegistryService() *NodeRegistryService {
	return &NodeRegistryService{cache: make(map[string]map[string]agent.NodeMetadata)}
}

// BuildRegistry derives node metadata for a graph. force bypasses and
// overwrites the memoized result.
func (s *NodeRegistryService) BuildRegistry(nodes []*graph.NodeSpec, graphName string, force bool) map[string]agent.NodeMetadata {
	if graphName != "" && !force {
		s.mu.Lock()
		cached, exists := s.cache[graphName]
		s.mu.Unlock()
		if exists {
			return cached
		}
	}
	registry := make(map[string]agent.NodeMetadata, len(nodes))
	for _, node := range nodes {
		registry[node.Name] = agent.NodeMetadata{
			Description: nodeDescription(node),
			Prompt:      node.Prompt,
			Type:        node.EffectiveAgentType(),
			InputFields: append([]string(nil), node.Inputs...),
			OutputField: node.Output,
		}
	}
	if graphName != "" {
		s.mu.Lock()
		s.cache[graphName] = registry
		s.mu.Unlock()
	}
	return registry
}

// PrepareForAssembly is the assembler's entry point: it builds (or
// reuses) the registry for the graph.
func (s *NodeRegistryService) PrepareForAssembly(nodes []*graph.NodeSpec, graphName string) map[string]agent.NodeMetadata {
	return s.BuildRegistry(nodes, graphName, false)
}

// nodeDescription picks the best node description: the context's
// description, the declared description, or the prompt's first 100
// characters.
func nodeDescription(node *graph.NodeSpec) string {
	if desc, ok := node.Context["description"].(string); ok && desc != "" {
		return desc
	}
	if node.Description != "" {
		return node.Description
	}
	if len(node.Prompt) > descriptionLimit {
		return node.Prompt[:descriptionLimit]
	}
	return node.Prompt
}

// InjectionVerification classifies an assembly's node-registry
// injection outcome.
type InjectionVerification struct {
	HasOrchestrators bool           `json:"has_orchestrators"`
	AllInjected      bool           `json:"all_injected"`
	SuccessRate      float64        `json:"success_rate"`
	Stats            InjectionStats `json:"stats"`
}

// VerifyPreCompilationInjection inspects the assembler's injection
// summary and logs the classification.
func (s *NodeRegistryService) VerifyPreCompilationInjection(stats InjectionStats) InjectionVerification {
	verification := InjectionVerification{
		HasOrchestrators: stats.Orchestrators > 0,
		Stats:            stats,
	}
	if stats.Orchestrators == 0 {
		verification.AllInjected = true
		verification.SuccessRate = 1.0
		log.Debug("no orchestration-capable agents; node registry injection not required")
		return verification
	}
	verification.SuccessRate = float64(stats.Injected) / float64(stats.Orchestrators)
	verification.AllInjected = stats.Injected == stats.Orchestrators
	if verification.AllInjected {
		log.Debugf("node registry injected into all %d orchestrators", stats.Orchestrators)
	} else {
		log.Warnf("node registry injected into %d of %d orchestrators",
			stats.Injected, stats.Orchestrators)
	}
	return verification
}
