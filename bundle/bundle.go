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
	"time"

	"trpc.group/trpc-go/trpc-agentmap-go/graph"
)

// Bundle format identifiers.
const (
	// FormatMetadata marks the JSON layout of persisted bundles.
	FormatMetadata = "metadata"
	// CurrentBundleFormat is bumped on incompatible layout changes;
	// loading fills defaults for fields absent in older formats.
	CurrentBundleFormat = "2.0"
	// CompatibilityVersion is the validation-metadata schema version.
	CompatibilityVersion = "1.0"
	// FrameworkVersion is recorded into validation metadata.
	FrameworkVersion = "0.2.0"
)

// GraphStructure summarizes the shape of a graph for diagnostics.
type GraphStructure struct {
	NodeCount             int      `json:"node_count"`
	EdgeCount             int      `json:"edge_count"`
	HasConditionalRouting bool     `json:"has_conditional_routing"`
	MaxDepth              int      `json:"max_depth"`
	IsDAG                 bool     `json:"is_dag"`
	ParallelOpportunities []string `json:"parallel_opportunities"`
}

// ValidationMetadata versions a bundle and fingerprints its nodes.
type ValidationMetadata struct {
	// NodeHashes maps node name to a short content hash of
	// "name:agent_type:edge_count".
	NodeHashes map[string]string `json:"node_hashes"`
	// CompatibilityVersion is the bundle schema version.
	CompatibilityVersion string `json:"compatibility_version"`
	// FrameworkVersion is the runtime version that built the bundle.
	FrameworkVersion string `json:"framework_version"`
}

// Bundle is the cached, resolved execution plan for one graph. Sets are
// persisted as lexicographically sorted arrays for determinism; the
// bundle is read-only once loaded.
type Bundle struct {
	Format       string    `json:"format"`
	BundleFormat string    `json:"bundle_format"`
	CreatedAt    time.Time `json:"created_at"`

	GraphName  string                     `json:"graph_name"`
	EntryPoint string                     `json:"entry_point"`
	Nodes      map[string]*graph.NodeSpec `json:"nodes"`
	// NodeOrder preserves declaration order, which entry-point fallback
	// and deterministic assembly rely on.
	NodeOrder []string `json:"node_order"`

	RequiredAgents   []string `json:"required_agents"`
	RequiredServices []string `json:"required_services"`
	ServiceLoadOrder []string `json:"service_load_order"`

	AgentMappings map[string]string `json:"agent_mappings"`
	BuiltinAgents []string          `json:"builtin_agents"`
	CustomAgents  []string          `json:"custom_agents"`

	ProtocolMappings map[string]string `json:"protocol_mappings"`

	GraphStructure      GraphStructure     `json:"graph_structure"`
	ValidationMetadata  ValidationMetadata `json:"validation_metadata"`
	MissingDeclarations []string           `json:"missing_declarations"`

	CSVHash     string `json:"csv_hash"`
	VersionHash string `json:"version_hash"`
}

// NodesInOrder returns the node specs in declaration order.
func (b *Bundle) NodesInOrder() []*graph.NodeSpec {
	nodes := make([]*graph.NodeSpec, 0, len(b.NodeOrder))
	for _, name := range b.NodeOrder {
		if node, exists := b.Nodes[name]; exists {
			nodes = append(nodes, node)
		}
	}
	return nodes
}
