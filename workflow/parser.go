//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

// Package workflow parses tabular workflow declarations into graph
// specs. The runtime depends only on the output shape; any alternative
// representation producing the same shape is acceptable.
package workflow

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"trpc.group/trpc-go/trpc-agentmap-go/graph"
)

// ErrInvalidWorkflow marks a workflow file that was readable but
// violates the tabular format's rules.
var ErrInvalidWorkflow = errors.New("invalid workflow")

// Recognized column headers, matched case-insensitively.
const (
	colGraphName   = "graphname"
	colNode        = "node"
	colAgentType   = "agenttype"
	colContext     = "context"
	colPrompt      = "prompt"
	colInputFields = "input_fields"
	colOutputField = "output_field"
	colDescription = "description"
	colEdge        = "edge"
	colSuccessNext = "success_next"
	colFailureNext = "failure_next"
)

// FuncPrefix marks a function-routed edge target.
const FuncPrefix = "func:"

// inputFieldDelimiter separates entries in the Input_Fields column.
const inputFieldDelimiter = "|"

// Parse reads a tabular workflow file and returns its graph spec.
func Parse(path string) (*graph.GraphSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workflow file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: file %s: %v", ErrInvalidWorkflow, path, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: file %s has no data rows", ErrInvalidWorkflow, path)
	}

	columns := make(map[string]int)
	for i, header := range records[0] {
		columns[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, required := range []string{colGraphName, colNode} {
		if _, exists := columns[required]; !exists {
			return nil, fmt.Errorf("%w: file %s missing column %q", ErrInvalidWorkflow, path, required)
		}
	}
	field := func(row []string, name string) string {
		idx, exists := columns[name]
		if !exists || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	spec := &graph.GraphSpec{Graphs: make(map[string][]*graph.NodeSpec)}
	for lineNo, row := range records[1:] {
		graphName := field(row, colGraphName)
		nodeName := field(row, colNode)
		if graphName == "" && nodeName == "" {
			continue
		}
		if graphName == "" {
			return nil, fmt.Errorf("%w: row %d: empty graph name", ErrInvalidWorkflow, lineNo+2)
		}
		if nodeName == "" {
			return nil, fmt.Errorf("%w: row %d: empty node name in graph %q",
				ErrInvalidWorkflow, lineNo+2, graphName)
		}
		node := &graph.NodeSpec{
			Name:        nodeName,
			AgentType:   field(row, colAgentType),
			Prompt:      field(row, colPrompt),
			Output:      field(row, colOutputField),
			Description: field(row, colDescription),
			Context:     ParseContext(field(row, colContext)),
			Edges:       make(map[string][]string),
		}
		if inputs := field(row, colInputFields); inputs != "" {
			for _, input := range strings.Split(inputs, inputFieldDelimiter) {
				if input = strings.TrimSpace(input); input != "" {
					node.Inputs = append(node.Inputs, input)
				}
			}
		}
		addEdge(node, graph.EdgeDefault, field(row, colEdge))
		addEdge(node, graph.EdgeSuccess, field(row, colSuccessNext))
		addEdge(node, graph.EdgeFailure, field(row, colFailureNext))
		if len(node.Edges) == 0 {
			node.Edges = nil
		}

		if _, exists := spec.Graphs[graphName]; !exists {
			spec.Order = append(spec.Order, graphName)
		}
		spec.Graphs[graphName] = append(spec.Graphs[graphName], node)
	}
	if len(spec.Order) == 0 {
		return nil, fmt.Errorf("%w: file %s declares no graphs", ErrInvalidWorkflow, path)
	}
	for _, name := range spec.Order {
		if err := validateGraph(name, spec.Graphs[name]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWorkflow, err)
		}
	}
	return spec, nil
}

// addEdge records a target under the label, routing func: prefixed
// targets to the function-edge label.
func addEdge(node *graph.NodeSpec, label, target string) {
	if target == "" {
		return
	}
	if strings.HasPrefix(target, FuncPrefix) {
		fname := strings.TrimSpace(strings.TrimPrefix(target, FuncPrefix))
		if fname != "" {
			node.Edges[graph.EdgeFunc] = append(node.Edges[graph.EdgeFunc], fname)
		}
		return
	}
	node.Edges[label] = append(node.Edges[label], target)
}

// validateGraph checks per-graph invariants: unique node names, edge
// targets that exist, and no default-edge self loop.
func validateGraph(graphName string, nodes []*graph.NodeSpec) error {
	names := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		if names[node.Name] {
			return fmt.Errorf("graph %q declares node %q twice", graphName, node.Name)
		}
		names[node.Name] = true
	}
	for _, node := range nodes {
		for label, targets := range node.Edges {
			if label == graph.EdgeFunc {
				// Function names are resolved at assembly time.
				continue
			}
			for _, target := range targets {
				if !names[target] {
					return fmt.Errorf("graph %q: node %q edge %q targets unknown node %q",
						graphName, node.Name, label, target)
				}
				if label == graph.EdgeDefault && target == node.Name {
					return fmt.Errorf("graph %q: node %q default edge loops to itself",
						graphName, node.Name)
				}
			}
		}
	}
	return nil
}

// ParseContext interprets a context cell. Accepted forms: a JSON object,
// a comma-separated sequence of key:value or key=value pairs, or free
// text (stored under "description"). Empty input yields nil.
func ParseContext(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(raw, "{") {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			return parsed
		}
		return map[string]any{"description": raw}
	}
	parsed := make(map[string]any)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		sep := strings.IndexAny(pair, ":=")
		if sep <= 0 {
			return map[string]any{"description": raw}
		}
		key := strings.TrimSpace(pair[:sep])
		value := strings.TrimSpace(pair[sep+1:])
		if key == "services" {
			var services []any
			for _, s := range strings.Split(value, "|") {
				if s = strings.TrimSpace(s); s != "" {
					services = append(services, s)
				}
			}
			parsed[key] = services
			continue
		}
		parsed[key] = value
	}
	if len(parsed) == 0 {
		return map[string]any{"description": raw}
	}
	return parsed
}
