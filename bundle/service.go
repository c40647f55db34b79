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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"trpc.group/trpc-go/trpc-agentmap-go/graph"
	"trpc.group/trpc-go/trpc-agentmap-go/internal/jsonfile"
	"trpc.group/trpc-go/trpc-agentmap-go/log"
	"trpc.group/trpc-go/trpc-agentmap-go/workflow"
)

// ErrGraphNotFound marks a requested graph name the workflow file does
// not declare.
var ErrGraphNotFound = errors.New("graph not found")

// Service orchestrates the bundle pipeline: hash the workflow file,
// look up the registry, and on miss parse, analyze, persist and
// register. The registry is updated only after a successful bundle
// write, so a write failure never corrupts it.
type Service struct {
	cacheDir string
	registry *Registry
	analyzer *Analyzer

	// missingLimit caps tolerated missing agent declarations; negative
	// means unlimited (they are recorded in the bundle and warned).
	missingLimit int
}

// ServiceOption configures a bundle Service.
type ServiceOption func(*Service)

// WithMissingDeclarationLimit fails bundle creation when more than n
// agent types lack declarations.
func WithMissingDeclarationLimit(n int) ServiceOption {
	return func(s *Service) {
		s.missingLimit = n
	}
}

// NewService creates a bundle service rooted at cacheDir.
func NewService(cacheDir string, registry *Registry, analyzer *Analyzer, opts ...ServiceOption) *Service {
	s := &Service{
		cacheDir:     cacheDir,
		registry:     registry,
		analyzer:     analyzer,
		missingLimit: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the underlying bundle registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// BundlePath is the deterministic location of a bundle on disk.
func (s *Service) BundlePath(csvHash, graphName string) string {
	return filepath.Join(s.cacheDir, "bundles", csvHash, graphName+".json")
}

// GetOrCreateBundle returns the bundle for (csvPath, graphName),
// creating and registering it on first use. The second return value
// reports whether the bundle was created by this call.
func (s *Service) GetOrCreateBundle(csvPath, graphName string) (*Bundle, bool, error) {
	csvHash, err := HashFile(csvPath)
	if err != nil {
		return nil, false, err
	}
	if path, found := s.registry.FindBundle(csvHash, graphName); found {
		b, err := s.LoadBundle(path)
		if err == nil {
			return b, false, nil
		}
		log.Warnf("cached bundle %s unreadable, rebuilding: %v", path, err)
	}

	spec, err := workflow.Parse(csvPath)
	if err != nil {
		return nil, false, err
	}
	graphName, nodes, err := selectGraph(spec, graphName)
	if err != nil {
		return nil, false, err
	}
	b, err := s.analyzer.Analyze(graphName, nodes)
	if err != nil {
		return nil, false, err
	}
	if s.missingLimit >= 0 && len(b.MissingDeclarations) > s.missingLimit {
		return nil, false, fmt.Errorf("graph %q: %d agent types lack declarations: %v",
			graphName, len(b.MissingDeclarations), b.MissingDeclarations)
	}
	if len(b.MissingDeclarations) > 0 {
		log.Warnf("graph %q: agent types without declarations: %v", graphName, b.MissingDeclarations)
	}
	b.CSVHash = csvHash
	b.VersionHash = csvHash[:16]

	path := s.BundlePath(csvHash, graphName)
	if err := jsonfile.Write(path, b); err != nil {
		return nil, false, fmt.Errorf("persist bundle: %w", err)
	}
	if err := s.registry.Register(csvHash, graphName, path, csvPath, len(b.Nodes)); err != nil {
		return nil, false, fmt.Errorf("register bundle: %w", err)
	}
	return b, true, nil
}

// selectGraph picks the target graph: the requested name, the sole
// declared graph, or the first declared graph with a warning.
func selectGraph(spec *graph.GraphSpec, requested string) (string, []*graph.NodeSpec, error) {
	if requested != "" {
		nodes, exists := spec.Nodes(requested)
		if !exists {
			return "", nil, fmt.Errorf("%w: %q; available: %v", ErrGraphNotFound, requested, spec.Names())
		}
		return requested, nodes, nil
	}
	names := spec.Names()
	if len(names) > 1 {
		log.Warnf("workflow declares %d graphs %v, using first %q", len(names), names, names[0])
	}
	nodes, _ := spec.Nodes(names[0])
	return names[0], nodes, nil
}

// LoadBundle reads a persisted bundle, filling defaults for fields
// absent in older bundle formats.
func (s *Service) LoadBundle(path string) (*Bundle, error) {
	var b Bundle
	if err := jsonfile.Read(path, &b); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("bundle file not found: %w", err)
		}
		return nil, err
	}
	if b.Format == "" {
		b.Format = FormatMetadata
	}
	if b.BundleFormat == "" {
		b.BundleFormat = "1.0"
	}
	if b.GraphStructure.ParallelOpportunities == nil {
		b.GraphStructure.ParallelOpportunities = []string{}
	}
	if len(b.NodeOrder) == 0 {
		// Older bundles lack node order; fall back to sorted names so
		// behavior stays deterministic.
		for name := range b.Nodes {
			b.NodeOrder = append(b.NodeOrder, name)
		}
		sort.Strings(b.NodeOrder)
	}
	if b.GraphName == "" {
		return nil, fmt.Errorf("bundle %s has no graph name", path)
	}
	if _, exists := b.Nodes[b.EntryPoint]; !exists {
		return nil, fmt.Errorf("bundle %s: entry point %q is not a node", path, b.EntryPoint)
	}
	return &b, nil
}
