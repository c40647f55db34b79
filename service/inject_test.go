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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// llmAgent implements LLMCapable and PromptCapable.
type llmAgent struct {
	llm     any
	prompts any
}

func (a *llmAgent) Name() string                             { return "llm_node" }
func (a *llmAgent) ConfigureLLMService(service any) error    { a.llm = service; return nil }
func (a *llmAgent) ConfigurePromptService(service any) error { a.prompts = service; return nil }

// csvAgent implements the kind-specific CSV interface.
type csvAgent struct {
	csv any
}

func (a *csvAgent) Name() string                          { return "csv_node" }
func (a *csvAgent) ConfigureCSVService(service any) error { a.csv = service; return nil }

// failingAgent rejects its configuration call.
type failingAgent struct{}

func (a *failingAgent) Name() string { return "failing_node" }
func (a *failingAgent) ConfigureLLMService(service any) error {
	return errors.New("incompatible client")
}

// plainAgent implements no capability interfaces.
type plainAgent struct{}

func (a *plainAgent) Name() string { return "plain_node" }

// mapStorageManager hands out storage services by kind.
type mapStorageManager struct {
	kinds map[string]any
}

func (m *mapStorageManager) Get(kind string) (any, error) {
	service, exists := m.kinds[kind]
	if !exists {
		return nil, fmt.Errorf("no %s storage", kind)
	}
	return service, nil
}

func TestConfigureAllServicesRoundTrip(t *testing.T) {
	host := NewRegistry()
	llmService := &struct{ id string }{id: "llm"}
	promptService := &struct{ id string }{id: "prompts"}
	host.RegisterServiceProvider(ServiceLLM, llmService, nil, nil)
	host.RegisterServiceProvider(ServicePromptManager, promptService, nil, nil)

	injector := NewInjector(host)
	a := &llmAgent{}
	summary, err := injector.ConfigureAllServices(a)
	require.NoError(t, err)

	assert.Same(t, llmService, a.llm)
	assert.Same(t, promptService, a.prompts)
	assert.Equal(t, "llm_node", summary.AgentName)
	assert.Equal(t, 2, summary.TotalServicesConfigured)
	assert.ElementsMatch(t, []string{"LLMCapable", "PromptCapable"}, summary.Configured)
}

func TestConfigureStorageKindServices(t *testing.T) {
	host := NewRegistry()
	csvService := &struct{ id string }{id: "csv"}
	host.RegisterServiceProvider(ServiceStorageManager, &mapStorageManager{
		kinds: map[string]any{StorageKindCSV: csvService},
	}, nil, nil)

	injector := NewInjector(host)
	a := &csvAgent{}
	summary, err := injector.ConfigureAllServices(a)
	require.NoError(t, err)
	assert.Same(t, csvService, a.csv)
	assert.Equal(t, []string{"CSVCapable"}, summary.Configured)
}

func TestStrictModeMissingProvider(t *testing.T) {
	injector := NewInjector(NewRegistry())
	_, err := injector.ConfigureAllServices(&llmAgent{})
	require.Error(t, err)
	// The error names the agent, the capability and the missing service.
	assert.Contains(t, err.Error(), "llm_node")
	assert.Contains(t, err.Error(), "LLMCapable")
	assert.Contains(t, err.Error(), ServiceLLM)
}

func TestLenientModeSkipsMissingProvider(t *testing.T) {
	injector := NewInjector(NewRegistry(), WithLenientMode())
	summary, err := injector.ConfigureAllServices(&llmAgent{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalServicesConfigured)
}

func TestConfigureFailurePropagates(t *testing.T) {
	host := NewRegistry()
	host.RegisterServiceProvider(ServiceLLM, struct{}{}, nil, nil)
	injector := NewInjector(host)
	_, err := injector.ConfigureAllServices(&failingAgent{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing_node")
	assert.Contains(t, err.Error(), "incompatible client")
}

func TestConfigureAllServicesNoCapabilities(t *testing.T) {
	injector := NewInjector(NewRegistry())
	summary, err := injector.ConfigureAllServices(&plainAgent{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalServicesConfigured)
	assert.Empty(t, ImplementedCapabilities(&plainAgent{}))
}

func TestConfigureStorageManagerWrongType(t *testing.T) {
	host := NewRegistry()
	host.RegisterServiceProvider(ServiceStorageManager, struct{}{}, nil, nil)
	injector := NewInjector(host)
	_, err := injector.ConfigureAllServices(&csvAgent{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a storage manager")
}

func TestImplementedCapabilities(t *testing.T) {
	assert.ElementsMatch(t, []string{"LLMCapable", "PromptCapable"},
		ImplementedCapabilities(&llmAgent{}))
	assert.Equal(t, []string{"CSVCapable"}, ImplementedCapabilities(&csvAgent{}))
}
