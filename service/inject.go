//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package service

import (
	"fmt"

	"trpc.group/trpc-go/trpc-agentmap-go/agent"
	"trpc.group/trpc-go/trpc-agentmap-go/log"
)

// Well-known service names the injector resolves providers from.
const (
	// ServiceLLM is the singleton LLM service.
	ServiceLLM = "llm_service"
	// ServiceStorageManager is the storage manager.
	ServiceStorageManager = "storage_manager"
	// ServicePromptManager is the prompt manager.
	ServicePromptManager = "prompt_manager"
	// ServiceOrchestrator is the orchestrator service.
	ServiceOrchestrator = "orchestrator_service"
	// ServiceBlobStorage is the blob storage service.
	ServiceBlobStorage = "blob_storage_service"
)

// Storage kinds requested from the storage manager.
const (
	StorageKindCSV    = "csv"
	StorageKindJSON   = "json"
	StorageKindFile   = "file"
	StorageKindVector = "vector"
	StorageKindMemory = "memory"
)

// StorageManager hands out kind-specific storage services.
type StorageManager interface {
	Get(kind string) (any, error)
}

// InjectionSummary reports one agent's configuration pass.
type InjectionSummary struct {
	// AgentName is the configured agent.
	AgentName string
	// Configured lists the capability interfaces that were wired.
	Configured []string
	// TotalServicesConfigured is len(Configured).
	TotalServicesConfigured int
}

// Injector wires host services into agents through the capability
// interfaces the agents implement.
//
// In strict mode (the default) an agent implementing a capability whose
// provider is absent fails the whole configuration pass; nothing is left
// partially wired silently.
type Injector struct {
	host   *Registry
	strict bool
}

// InjectorOption configures an Injector.
type InjectorOption func(*Injector)

// WithLenientMode downgrades missing providers from errors to warnings.
func WithLenientMode() InjectorOption {
	return func(inj *Injector) {
		inj.strict = false
	}
}

// NewInjector creates an injection engine over a host-service registry.
func NewInjector(host *Registry, opts ...InjectorOption) *Injector {
	inj := &Injector{host: host, strict: true}
	for _, opt := range opts {
		opt(inj)
	}
	return inj
}

// agentName extracts a display name from the agent instance.
func agentName(a any) string {
	if named, ok := a.(interface{ Name() string }); ok && named.Name() != "" {
		return named.Name()
	}
	return fmt.Sprintf("%T", a)
}

// capabilityPass is one capability interface's detection + configuration.
type capabilityPass struct {
	// name is the capability interface name used in errors and summaries.
	name string
	// configure wires the provider when the agent implements the
	// interface. It reports whether the interface applied.
	configure func(inj *Injector, a any, name string) (bool, error)
}

// namedProvider resolves a provider by well-known service name.
func (inj *Injector) namedProvider(serviceName, capability, agentName string) (any, error) {
	provider, err := inj.host.ResolveProvider(serviceName)
	if err != nil {
		return nil, fmt.Errorf("agent %q implements %s but provider %q is unavailable: %w",
			agentName, capability, serviceName, err)
	}
	return provider, nil
}

// storageProvider resolves a kind-specific service from the storage manager.
func (inj *Injector) storageProvider(kind, capability, agentName string) (any, error) {
	managerAny, err := inj.namedProvider(ServiceStorageManager, capability, agentName)
	if err != nil {
		return nil, err
	}
	manager, ok := managerAny.(StorageManager)
	if !ok {
		return nil, fmt.Errorf("agent %q implements %s but %q is not a storage manager",
			agentName, capability, ServiceStorageManager)
	}
	provider, err := manager.Get(kind)
	if err != nil {
		return nil, fmt.Errorf("agent %q implements %s but storage kind %q is unavailable: %w",
			agentName, capability, kind, err)
	}
	return provider, nil
}

// wrapConfigure normalizes configure-call failures into capability errors.
func wrapConfigure(agentName, capability string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("agent %q: %s configuration failed: %w", agentName, capability, err)
}

// corePasses are the five core capability interfaces.
var corePasses = []capabilityPass{
	{name: "LLMCapable", configure: func(inj *Injector, a any, name string) (bool, error) {
		c, ok := a.(agent.LLMCapable)
		if !ok {
			return false, nil
		}
		provider, err := inj.namedProvider(ServiceLLM, "LLMCapable", name)
		if err != nil {
			return false, err
		}
		return true, wrapConfigure(name, "LLMCapable", c.ConfigureLLMService(provider))
	}},
	{name: "StorageCapable", configure: func(inj *Injector, a any, name string) (bool, error) {
		c, ok := a.(agent.StorageCapable)
		if !ok {
			return false, nil
		}
		provider, err := inj.namedProvider(ServiceStorageManager, "StorageCapable", name)
		if err != nil {
			return false, err
		}
		return true, wrapConfigure(name, "StorageCapable", c.ConfigureStorageService(provider))
	}},
	{name: "PromptCapable", configure: func(inj *Injector, a any, name string) (bool, error) {
		c, ok := a.(agent.PromptCapable)
		if !ok {
			return false, nil
		}
		provider, err := inj.namedProvider(ServicePromptManager, "PromptCapable", name)
		if err != nil {
			return false, err
		}
		return true, wrapConfigure(name, "PromptCapable", c.ConfigurePromptService(provider))
	}},
	{name: "OrchestrationCapable", configure: func(inj *Injector, a any, name string) (bool, error) {
		c, ok := a.(agent.OrchestrationCapable)
		if !ok {
			return false, nil
		}
		provider, err := inj.namedProvider(ServiceOrchestrator, "OrchestrationCapable", name)
		if err != nil {
			return false, err
		}
		return true, wrapConfigure(name, "OrchestrationCapable", c.ConfigureOrchestratorService(provider))
	}},
	{name: "BlobStorageCapable", configure: func(inj *Injector, a any, name string) (bool, error) {
		c, ok := a.(agent.BlobStorageCapable)
		if !ok {
			return false, nil
		}
		provider, err := inj.namedProvider(ServiceBlobStorage, "BlobStorageCapable", name)
		if err != nil {
			return false, err
		}
		return true, wrapConfigure(name, "BlobStorageCapable", c.ConfigureBlobStorageService(provider))
	}},
}

// storagePasses are the five kind-specific storage interfaces.
var storagePasses = []capabilityPass{
	{name: "CSVCapable", configure: func(inj *Injector, a any, name string) (bool, error) {
		c, ok := a.(agent.CSVCapable)
		if !ok {
			return false, nil
		}
		provider, err := inj.storageProvider(StorageKindCSV, "CSVCapable", name)
		if err != nil {
			return false, err
		}
		return true, wrapConfigure(name, "CSVCapable", c.ConfigureCSVService(provider))
	}},
	{name: "JSONCapable", configure: func(inj *Injector, a any, name string) (bool, error) {
		c, ok := a.(agent.JSONCapable)
		if !ok {
			return false, nil
		}
		provider, err := inj.storageProvider(StorageKindJSON, "JSONCapable", name)
		if err != nil {
			return false, err
		}
		return true, wrapConfigure(name, "JSONCapable", c.ConfigureJSONService(provider))
	}},
	{name: "FileCapable", configure: func(inj *Injector, a any, name string) (bool, error) {
		c, ok := a.(agent.FileCapable)
		if !ok {
			return false, nil
		}
		provider, err := inj.storageProvider(StorageKindFile, "FileCapable", name)
		if err != nil {
			return false, err
		}
		return true, wrapConfigure(name, "FileCapable", c.ConfigureFileService(provider))
	}},
	{name: "VectorCapable", configure: func(inj *Injector, a any, name string) (bool, error) {
		c, ok := a.(agent.VectorCapable)
		if !ok {
			return false, nil
		}
		provider, err := inj.storageProvider(StorageKindVector, "VectorCapable", name)
		if err != nil {
			return false, err
		}
		return true, wrapConfigure(name, "VectorCapable", c.ConfigureVectorService(provider))
	}},
	{name: "MemoryCapable", configure: func(inj *Injector, a any, name string) (bool, error) {
		c, ok := a.(agent.MemoryCapable)
		if !ok {
			return false, nil
		}
		provider, err := inj.storageProvider(StorageKindMemory, "MemoryCapable", name)
		if err != nil {
			return false, err
		}
		return true, wrapConfigure(name, "MemoryCapable", c.ConfigureMemoryService(provider))
	}},
}

// storageFallbackPass is the generic StorageCapable fallback applied in
// the storage pass.
var storageFallbackPass = corePasses[1]

// runPasses applies a capability pass list to one agent.
func (inj *Injector) runPasses(a any, passes []capabilityPass, configured map[string]bool) error {
	name := agentName(a)
	for _, pass := range passes {
		if configured[pass.name] {
			continue
		}
		applied, err := pass.configure(inj, a, name)
		if err != nil {
			if inj.strict {
				return err
			}
			log.Warnf("lenient injection: %v", err)
			continue
		}
		if applied {
			configured[pass.name] = true
		}
	}
	return nil
}

// ConfigureCoreServices wires the five core capability interfaces.
func (inj *Injector) ConfigureCoreServices(a any) (int, error) {
	configured := make(map[string]bool)
	if err := inj.runPasses(a, corePasses, configured); err != nil {
		return 0, err
	}
	return len(configured), nil
}

// ConfigureStorageServices wires the five kind-specific storage
// interfaces plus the generic StorageCapable fallback.
func (inj *Injector) ConfigureStorageServices(a any) (int, error) {
	configured := make(map[string]bool)
	passes := append(append([]capabilityPass{}, storagePasses...), storageFallbackPass)
	if err := inj.runPasses(a, passes, configured); err != nil {
		return 0, err
	}
	return len(configured), nil
}

// ConfigureAllServices wires every capability interface the agent
// implements and returns a summary. A failure on any interface fails the
// whole pass for the agent.
func (inj *Injector) ConfigureAllServices(a any) (*InjectionSummary, error) {
	configured := make(map[string]bool)
	passes := append(append([]capabilityPass{}, corePasses...), storagePasses...)
	if err := inj.runPasses(a, passes, configured); err != nil {
		return nil, err
	}
	summary := &InjectionSummary{AgentName: agentName(a)}
	for _, pass := range passes {
		if configured[pass.name] {
			summary.Configured = append(summary.Configured, pass.name)
		}
	}
	summary.TotalServicesConfigured = len(summary.Configured)
	return summary, nil
}

// ImplementedCapabilities lists the capability interface names an agent
// instance implements, without configuring anything.
func ImplementedCapabilities(a any) []string {
	var names []string
	checks := []struct {
		name string
		ok   bool
	}{
		{"LLMCapable", isLLMCapable(a)},
		{"StorageCapable", isStorageCapable(a)},
		{"PromptCapable", isPromptCapable(a)},
		{"OrchestrationCapable", isOrchestrationCapable(a)},
		{"BlobStorageCapable", isBlobStorageCapable(a)},
		{"CSVCapable", isCSVCapable(a)},
		{"JSONCapable", isJSONCapable(a)},
		{"FileCapable", isFileCapable(a)},
		{"VectorCapable", isVectorCapable(a)},
		{"MemoryCapable", isMemoryCapable(a)},
	}
	for _, check := range checks {
		if check.ok {
			names = append(names, check.name)
		}
	}
	return names
}

func isLLMCapable(a any) bool           { _, ok := a.(agent.LLMCapable); return ok }
func isStorageCapable(a any) bool       { _, ok := a.(agent.StorageCapable); return ok }
func isPromptCapable(a any) bool        { _, ok := a.(agent.PromptCapable); return ok }
func isOrchestrationCapable(a any) bool { _, ok := a.(agent.OrchestrationCapable); return ok }
func isBlobStorageCapable(a any) bool   { _, ok := a.(agent.BlobStorageCapable); return ok }
func isCSVCapable(a any) bool           { _, ok := a.(agent.CSVCapable); return ok }
func isJSONCapable(a any) bool          { _, ok := a.(agent.JSONCapable); return ok }
func isFileCapable(a any) bool          { _, ok := a.(agent.FileCapable); return ok }
func isVectorCapable(a any) bool        { _, ok := a.(agent.VectorCapable); return ok }
func isMemoryCapable(a any) bool        { _, ok := a.(agent.MemoryCapable); return ok }
