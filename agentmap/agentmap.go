//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

// Package agentmap is the runtime façade: one entry point that wires
// the registries, bundle pipeline and runner together and exposes the
// boundary operations every adapter shares.
package agentmap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"trpc.group/trpc-go/trpc-agentmap-go/agent"
	"trpc.group/trpc-go/trpc-agentmap-go/availability"
	"trpc.group/trpc-go/trpc-agentmap-go/bundle"
	"trpc.group/trpc-go/trpc-agentmap-go/interaction"
	"trpc.group/trpc-go/trpc-agentmap-go/log"
	"trpc.group/trpc-go/trpc-agentmap-go/runner"
	"trpc.group/trpc-go/trpc-agentmap-go/service"
	"trpc.group/trpc-go/trpc-agentmap-go/workflow"
)

// AvailabilityCacheFileName is the availability cache file under the
// cache directory.
const AvailabilityCacheFileName = "availability_cache.json"

// Runtime owns the wired component graph. Construct it once and share
// it; all operations are safe for concurrent use.
type Runtime struct {
	cfg *Config

	agents       *agent.Registry
	services     *service.Registry
	declarations *service.DeclarationRegistry
	features     *availability.FeatureRegistry
	cache        *availability.Cache
	bundles      *bundle.Service
	interactions *interaction.Handler
	funcs        *runner.FuncRegistry
	runner       *runner.Runner
}

// New bootstraps a runtime from the configuration. Bootstrap is
// best-effort: unreadable caches and declaration files degrade to empty
// defaults with warnings, they never abort.
func New(cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg = cfg.withDefaults()

	cache := availability.NewCache(
		filepath.Join(cfg.CacheDir, AvailabilityCacheFileName), cfg.EnvVars)
	features := availability.NewFeatureRegistry(cache)
	for _, feature := range cfg.Features {
		features.EnableFeature(feature)
	}

	agents := agent.NewRegistry()
	agent.RegisterBuiltins(agents)

	services := service.NewRegistry()
	declarations := service.NewDeclarationRegistry()
	if cfg.DeclarationsFile != "" {
		if err := declarations.LoadFile(cfg.DeclarationsFile); err != nil {
			log.Warnf("service declarations unreadable, continuing without: %v", err)
		}
	}
	var injectorOpts []service.InjectorOption
	if cfg.LenientInjection {
		injectorOpts = append(injectorOpts, service.WithLenientMode())
	}
	injector := service.NewInjector(services, injectorOpts...)

	bundleRegistry := bundle.NewRegistry(filepath.Join(cfg.CacheDir, bundle.RegistryFileName))
	analyzer := bundle.NewAnalyzer(agents, declarations)
	bundles := bundle.NewService(cfg.CacheDir, bundleRegistry, analyzer)

	store := interaction.NewStore(cfg.CacheDir)
	interactions := interaction.NewHandler(store)

	funcs := runner.NewFuncRegistry()
	run := runner.New(agents, injector, bundles,
		runner.WithPolicy(cfg.Policy),
		runner.WithFuncResolver(funcs),
		runner.WithInteractionHandler(interactions),
	)

	rt := &Runtime{
		cfg:          cfg,
		agents:       agents,
		services:     services,
		declarations: declarations,
		features:     features,
		cache:        cache,
		bundles:      bundles,
		interactions: interactions,
		funcs:        funcs,
		runner:       run,
	}
	if err := runner.RegisterGraphAgentType(agents, run); err != nil {
		return nil, err
	}
	if cfg.ThreadMaxAgeHours > 0 {
		if purged, err := interactions.CleanupExpiredThreads(cfg.ThreadMaxAgeHours); err == nil && purged > 0 {
			log.Infof("purged %d expired paused threads", purged)
		}
	}
	return rt, nil
}

// Agents exposes the agent-type registry for custom registrations.
func (rt *Runtime) Agents() *agent.Registry { return rt.agents }

// Services exposes the host-service registry.
func (rt *Runtime) Services() *service.Registry { return rt.services }

// Declarations exposes the service declaration registry.
func (rt *Runtime) Declarations() *service.DeclarationRegistry { return rt.declarations }

// Features exposes the feature registry.
func (rt *Runtime) Features() *availability.FeatureRegistry { return rt.features }

// Funcs exposes the routing-function registry.
func (rt *Runtime) Funcs() *runner.FuncRegistry { return rt.funcs }

// Interactions exposes the interaction handler.
func (rt *Runtime) Interactions() *interaction.Handler { return rt.interactions }

// Result is the boundary shape shared by all adapters.
type Result struct {
	Success  bool           `json:"success"`
	Outputs  map[string]any `json:"outputs"`
	Metadata map[string]any `json:"metadata"`
}

// RunWorkflow executes the named graph of a workflow file. An empty
// graphName selects the file's sole (or first) graph.
func (rt *Runtime) RunWorkflow(ctx context.Context, workflowPath, graphName string, inputs map[string]any) (*Result, error) {
	if workflowPath == "" {
		return nil, InvalidInputsError("workflow path cannot be empty", nil)
	}
	res, err := rt.runner.Run(ctx, workflowPath, graphName, inputs)
	if err != nil {
		return nil, mapBoundaryError(workflowPath, err)
	}
	return boundaryResult(res), nil
}

// ResumeWorkflow continues a paused thread with the user's response.
func (rt *Runtime) ResumeWorkflow(ctx context.Context, threadID string, response any) (*Result, error) {
	if threadID == "" {
		return nil, InvalidInputsError("thread ID cannot be empty", nil)
	}
	res, err := rt.runner.ResumeThread(ctx, threadID, response)
	if err != nil {
		return nil, mapBoundaryError(threadID, err)
	}
	return boundaryResult(res), nil
}

// boundaryResult folds an execution result into the façade shape.
func boundaryResult(res *runner.ExecutionResult) *Result {
	metadata := map[string]any{
		"graph_name":     res.GraphName,
		"thread_id":      res.ThreadID,
		"execution_time": res.ExecutionTime.String(),
		"interrupted":    res.Interrupted,
	}
	if res.Error != "" {
		metadata["error"] = res.Error
	}
	if res.SourceInfo != "" {
		metadata["source_info"] = res.SourceInfo
	}
	if res.Summary != nil {
		metadata["nodes_executed"] = len(res.Summary.Results)
	}
	return &Result{
		Success:  res.Success,
		Outputs:  map[string]any(res.FinalState),
		Metadata: metadata,
	}
}

// ListGraphs returns the graph names a workflow file declares, in
// declaration order.
func (rt *Runtime) ListGraphs(workflowPath string) ([]string, error) {
	spec, err := workflow.Parse(workflowPath)
	if err != nil {
		return nil, mapBoundaryError(workflowPath, err)
	}
	return spec.Names(), nil
}

// ValidationReport is the per-graph outcome of ValidateWorkflow.
type ValidationReport struct {
	WorkflowPath string              `json:"workflow_path"`
	Valid        bool                `json:"valid"`
	// Issues maps graph name to its problems; a graph with no problems
	// has no entry.
	Issues map[string][]string `json:"issues,omitempty"`
}

// ValidateWorkflow parses and analyzes every graph of a workflow file
// without executing or persisting anything.
func (rt *Runtime) ValidateWorkflow(workflowPath string) (*ValidationReport, error) {
	spec, err := workflow.Parse(workflowPath)
	if err != nil {
		return nil, mapBoundaryError(workflowPath, err)
	}
	report := &ValidationReport{
		WorkflowPath: workflowPath,
		Valid:        true,
		Issues:       make(map[string][]string),
	}
	analyzer := bundle.NewAnalyzer(rt.agents, rt.declarations)
	for _, name := range spec.Names() {
		nodes, _ := spec.Nodes(name)
		var issues []string
		b, err := analyzer.Analyze(name, nodes)
		if err != nil {
			issues = append(issues, err.Error())
		} else {
			for _, agentType := range b.RequiredAgents {
				if !rt.agents.Has(agentType) {
					issues = append(issues, fmt.Sprintf("agent type %q is not registered", agentType))
				}
			}
			for _, missing := range b.MissingDeclarations {
				issues = append(issues, fmt.Sprintf("agent type %q has no service declaration", missing))
			}
		}
		if len(issues) > 0 {
			report.Issues[name] = issues
			report.Valid = false
		}
	}
	return report, nil
}

// EnvironmentReport is DiagnoseSystem's output.
type EnvironmentReport struct {
	Features           map[string]bool     `json:"features"`
	AvailableProviders map[string][]string `json:"available_providers"`
	MissingPackages    map[string][]string `json:"missing_packages"`
	RegisteredAgents   []string            `json:"registered_agents"`
	RegisteredServices service.Summary     `json:"registered_services"`
	CacheStats         map[string]int      `json:"cache_stats"`
}

// DiagnoseSystem reports feature, provider and registry health.
func (rt *Runtime) DiagnoseSystem() *EnvironmentReport {
	report := &EnvironmentReport{
		Features:           make(map[string]bool),
		AvailableProviders: make(map[string][]string),
		MissingPackages:    make(map[string][]string),
		RegisteredAgents:   rt.agents.List(),
		RegisteredServices: rt.services.GetRegistrySummary(),
		CacheStats:         rt.cache.Stats(),
	}
	for _, feature := range []string{availability.FeatureLLM, availability.FeatureStorage} {
		report.Features[feature] = rt.features.IsFeatureEnabled(feature)
		report.AvailableProviders[feature] = rt.features.GetAvailableProviders(feature)
		for category, missing := range rt.features.GetMissingDependencies(feature) {
			if len(missing) > 0 {
				report.MissingPackages[category] = missing
			}
		}
	}
	return report
}

// RefreshCache drops every availability cache entry so the next lookup
// re-validates against the live environment.
func (rt *Runtime) RefreshCache() {
	rt.cache.Invalidate("", "")
	log.Info("availability cache invalidated")
}

// CacheReport is ValidateCache's output.
type CacheReport struct {
	TotalEntries  int      `json:"total_entries"`
	ValidEntries  int      `json:"valid_entries"`
	BrokenBundles []string `json:"broken_bundles,omitempty"`
	// Stats is populated on request.
	Stats map[string]any `json:"stats,omitempty"`
}

// ValidateCache checks every registered bundle against the filesystem.
// With stats, registry-wide counters are included.
func (rt *Runtime) ValidateCache(stats bool) *CacheReport {
	report := &CacheReport{}
	for csvHash, entries := range rt.bundles.Registry().Entries() {
		for _, entry := range entries {
			report.TotalEntries++
			if _, err := os.Stat(entry.BundlePath); err != nil {
				report.BrokenBundles = append(report.BrokenBundles,
					fmt.Sprintf("%s/%s: %s", csvHash[:8], entry.GraphName, entry.BundlePath))
				continue
			}
			report.ValidEntries++
		}
	}
	if stats {
		total, size, modified := rt.bundles.Registry().Stats()
		report.Stats = map[string]any{
			"total_entries":     total,
			"total_bundle_size": size,
			"last_modified":     modified,
		}
	}
	return report
}
