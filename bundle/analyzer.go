//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package bundle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"trpc.group/trpc-go/trpc-agentmap-go/agent"
	"trpc.group/trpc-go/trpc-agentmap-go/graph"
	"trpc.group/trpc-go/trpc-agentmap-go/log"
	"trpc.group/trpc-go/trpc-agentmap-go/service"
)

// maxDepthCap bounds the reported max depth metric.
const maxDepthCap = 10

// Analyzer derives the resolved bundle fields from a graph's node
// declarations: required agents and services, load order, structure
// metrics and validation metadata.
type Analyzer struct {
	agents       *agent.Registry
	declarations *service.DeclarationRegistry
}

// NewAnalyzer creates a metadata analyzer.
func NewAnalyzer(agents *agent.Registry, declarations *service.DeclarationRegistry) *Analyzer {
	return &Analyzer{agents: agents, declarations: declarations}
}

// Analyze builds the bundle for one graph. Persistence fields (hashes,
// timestamps) are filled by the bundle service.
func (a *Analyzer) Analyze(graphName string, nodes []*graph.NodeSpec) (*Bundle, error) {
	if graphName == "" {
		return nil, fmt.Errorf("graph name cannot be empty")
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("graph %q has no nodes", graphName)
	}

	nodeMap := make(map[string]*graph.NodeSpec, len(nodes))
	nodeOrder := make([]string, 0, len(nodes))
	for _, node := range nodes {
		nodeMap[node.Name] = node
		nodeOrder = append(nodeOrder, node.Name)
	}

	requiredAgents := a.collectAgentTypes(nodes)
	missing := a.missingDeclarations(requiredAgents)
	services, err := a.resolveServices(graphName, nodes, requiredAgents)
	if err != nil {
		return nil, err
	}
	loadOrder, err := a.declarations.LoadOrder(services)
	if err != nil {
		return nil, fmt.Errorf("graph %q: %w", graphName, err)
	}

	builtin, custom := a.classifyAgents(requiredAgents)

	b := &Bundle{
		Format:              FormatMetadata,
		BundleFormat:        CurrentBundleFormat,
		CreatedAt:           time.Now().UTC(),
		GraphName:           graphName,
		EntryPoint:          a.detectEntryPoint(graphName, nodes),
		Nodes:               nodeMap,
		NodeOrder:           nodeOrder,
		RequiredAgents:      requiredAgents,
		RequiredServices:    services,
		ServiceLoadOrder:    loadOrder,
		AgentMappings:       a.agentMappings(requiredAgents),
		BuiltinAgents:       builtin,
		CustomAgents:        custom,
		ProtocolMappings:    a.declarations.ProtocolImplementations(),
		GraphStructure:      a.analyzeStructure(nodes, nodeMap),
		MissingDeclarations: missing,
		ValidationMetadata: ValidationMetadata{
			NodeHashes:           nodeHashes(nodes),
			CompatibilityVersion: CompatibilityVersion,
			FrameworkVersion:     FrameworkVersion,
		},
	}
	return b, nil
}

// detectEntryPoint finds the node no edge targets. Ambiguity and
// all-referenced cycles both fall back to the first declared node.
func (a *Analyzer) detectEntryPoint(graphName string, nodes []*graph.NodeSpec) string {
	referenced := make(map[string]bool)
	for _, node := range nodes {
		for label, targets := range node.Edges {
			if label == graph.EdgeFunc {
				continue
			}
			for _, target := range targets {
				referenced[target] = true
			}
		}
	}
	var candidates []string
	for _, node := range nodes {
		if !referenced[node.Name] {
			candidates = append(candidates, node.Name)
		}
	}
	switch len(candidates) {
	case 1:
		return candidates[0]
	case 0:
		log.Warnf("graph %q: every node is an edge target, using first declared node %q as entry point",
			graphName, nodes[0].Name)
		return nodes[0].Name
	default:
		log.Warnf("graph %q: %d entry point candidates %v, using first declared node %q",
			graphName, len(candidates), candidates, candidates[0])
		return candidates[0]
	}
}

// collectAgentTypes gathers the distinct agent types, sorted.
func (a *Analyzer) collectAgentTypes(nodes []*graph.NodeSpec) []string {
	set := make(map[string]bool)
	for _, node := range nodes {
		set[node.EffectiveAgentType()] = true
	}
	types := make([]string, 0, len(set))
	for t := range set {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// resolveServices derives the transitive service closure: capability
// interfaces implemented by each agent type are mapped to services via
// the declaration registry, node contexts may name services directly,
// and the declaration registry is the single source of truth for what
// counts as a real service.
func (a *Analyzer) resolveServices(graphName string, nodes []*graph.NodeSpec, agentTypes []string) ([]string, error) {
	protocolToService := a.declarations.ProtocolImplementations()
	candidates := make(map[string]bool)
	for _, agentType := range agentTypes {
		probe, exists := a.agents.Probe(agentType)
		if !exists {
			continue
		}
		for _, capability := range service.ImplementedCapabilities(probe) {
			if svc, mapped := protocolToService[capability]; mapped {
				candidates[svc] = true
			}
		}
	}
	// Context-declared services supplement capability analysis.
	for _, node := range nodes {
		services, exists := node.Context["services"]
		if !exists {
			continue
		}
		if list, ok := services.([]any); ok {
			for _, entry := range list {
				if name, ok := entry.(string); ok && name != "" {
					candidates[name] = true
				}
			}
		}
	}

	var seed []string
	for name := range candidates {
		if _, declared := a.declarations.Declaration(name); !declared {
			log.Debugf("graph %q: dropping undeclared service candidate %q", graphName, name)
			continue
		}
		seed = append(seed, name)
	}
	sort.Strings(seed)
	closure, err := a.declarations.ResolveDependencies(seed)
	if err != nil {
		return nil, fmt.Errorf("graph %q: %w", graphName, err)
	}
	// Closure may include undeclared names pulled in as dependencies;
	// filter them the same way.
	var filtered []string
	for _, name := range closure {
		if _, declared := a.declarations.Declaration(name); declared {
			filtered = append(filtered, name)
		} else {
			log.Debugf("graph %q: dropping undeclared dependency %q", graphName, name)
		}
	}
	return filtered, nil
}

// classifyAgents partitions agent types into builtin and custom by the
// namespace of their registered type path.
func (a *Analyzer) classifyAgents(agentTypes []string) (builtin, custom []string) {
	for _, agentType := range agentTypes {
		reg, exists := a.agents.Lookup(agentType)
		if exists && reg.IsBuiltin() {
			builtin = append(builtin, agentType)
		} else if exists {
			custom = append(custom, agentType)
		} else {
			// Unknown types classify as custom; they also appear in
			// missing declarations.
			custom = append(custom, agentType)
		}
	}
	sort.Strings(builtin)
	sort.Strings(custom)
	return builtin, custom
}

// agentMappings returns agent type -> qualified type path for every
// registered type.
func (a *Analyzer) agentMappings(agentTypes []string) map[string]string {
	mappings := make(map[string]string, len(agentTypes))
	for _, agentType := range agentTypes {
		if path := a.agents.TypePath(agentType); path != "" {
			mappings[agentType] = path
		}
	}
	return mappings
}

// missingDeclarations lists agent types with no registration.
func (a *Analyzer) missingDeclarations(agentTypes []string) []string {
	var missing []string
	for _, agentType := range agentTypes {
		if !a.agents.Has(agentType) {
			missing = append(missing, agentType)
		}
	}
	sort.Strings(missing)
	return missing
}

// analyzeStructure computes the graph-structure metrics.
func (a *Analyzer) analyzeStructure(nodes []*graph.NodeSpec, nodeMap map[string]*graph.NodeSpec) GraphStructure {
	structure := GraphStructure{
		NodeCount:             len(nodes),
		ParallelOpportunities: []string{},
	}
	for _, node := range nodes {
		structure.EdgeCount += node.EdgeCount()
		if node.HasConditionalRouting() {
			structure.HasConditionalRouting = true
		}
	}
	structure.MaxDepth = a.maxDepth(nodes, nodeMap)
	structure.IsDAG = a.isDAG(nodes, nodeMap)
	return structure
}

// maxDepth measures the longest simple path from the entry point via
// BFS layers, capped at maxDepthCap.
func (a *Analyzer) maxDepth(nodes []*graph.NodeSpec, nodeMap map[string]*graph.NodeSpec) int {
	if len(nodes) == 0 {
		return 0
	}
	entry := a.detectEntryPoint("", nodes)
	depth := map[string]int{entry: 1}
	queue := []string{entry}
	max := 1
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if depth[current] >= maxDepthCap {
			return maxDepthCap
		}
		node := nodeMap[current]
		if node == nil {
			continue
		}
		for label, targets := range node.Edges {
			if label == graph.EdgeFunc {
				continue
			}
			for _, target := range targets {
				if _, visited := depth[target]; visited {
					continue
				}
				depth[target] = depth[current] + 1
				if depth[target] > max {
					max = depth[target]
				}
				queue = append(queue, target)
			}
		}
	}
	return max
}

// isDAG runs an iterative three-color DFS over the declared edges.
func (a *Analyzer) isDAG(nodes []*graph.NodeSpec, nodeMap map[string]*graph.NodeSpec) bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))
	targets := func(name string) []string {
		node := nodeMap[name]
		if node == nil {
			return nil
		}
		var out []string
		for label, ts := range node.Edges {
			if label == graph.EdgeFunc {
				continue
			}
			out = append(out, ts...)
		}
		return out
	}
	for _, start := range nodes {
		if color[start.Name] != white {
			continue
		}
		type frame struct {
			name string
			next int
		}
		stack := []frame{{name: start.Name}}
		color[start.Name] = gray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			outgoing := targets(top.name)
			if top.next < len(outgoing) {
				child := outgoing[top.next]
				top.next++
				switch color[child] {
				case gray:
					return false
				case white:
					color[child] = gray
					stack = append(stack, frame{name: child})
				}
				continue
			}
			color[top.name] = black
			stack = stack[:len(stack)-1]
		}
	}
	return true
}

// nodeHashes fingerprints each node as a short hash of
// "name:agent_type:edge_count".
func nodeHashes(nodes []*graph.NodeSpec) map[string]string {
	hashes := make(map[string]string, len(nodes))
	for _, node := range nodes {
		sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d",
			node.Name, node.EffectiveAgentType(), node.EdgeCount())))
		hashes[node.Name] = hex.EncodeToString(sum[:])[:8]
	}
	return hashes
}
