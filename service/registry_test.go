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
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-agentmap-go/agent"
)

func TestRegisterServiceProvider(t *testing.T) {
	registry := NewRegistry()
	llm := ProtocolOf[agent.LLMCapable]()

	ok := registry.RegisterServiceProvider("llm_service", struct{}{},
		[]reflect.Type{llm}, map[string]any{"provider": "test"})
	require.True(t, ok)

	provider, exists := registry.GetServiceProvider("llm_service")
	require.True(t, exists)
	assert.NotNil(t, provider)

	name, exists := registry.GetProtocolImplementation(llm)
	require.True(t, exists)
	assert.Equal(t, "llm_service", name)

	metadata, exists := registry.Metadata("llm_service")
	require.True(t, exists)
	assert.Equal(t, "test", metadata["provider"])
}

func TestRegisterServiceProviderRejectsInvalid(t *testing.T) {
	registry := NewRegistry()
	assert.False(t, registry.RegisterServiceProvider("", struct{}{}, nil, nil))
	assert.False(t, registry.RegisterServiceProvider("svc", nil, nil, nil))

	// Non-interface protocol keys are ignored, the service still registers.
	ok := registry.RegisterServiceProvider("svc", struct{}{},
		[]reflect.Type{reflect.TypeOf("")}, nil)
	require.True(t, ok)
	summary := registry.GetRegistrySummary()
	assert.Equal(t, 1, summary.ServiceCount)
	assert.Equal(t, 0, summary.ProtocolCount)
}

func TestRegisterProtocolImplementation(t *testing.T) {
	registry := NewRegistry()
	llm := ProtocolOf[agent.LLMCapable]()

	// Protocols bind only to registered services.
	assert.False(t, registry.RegisterProtocolImplementation(llm, "ghost"))

	registry.RegisterServiceProvider("svc_a", struct{}{}, nil, nil)
	registry.RegisterServiceProvider("svc_b", struct{}{}, nil, nil)
	require.True(t, registry.RegisterProtocolImplementation(llm, "svc_a"))

	// Re-binding resolves to the newer service; discovery still sees both.
	require.True(t, registry.RegisterProtocolImplementation(llm, "svc_b"))
	name, _ := registry.GetProtocolImplementation(llm)
	assert.Equal(t, "svc_b", name)
	assert.Equal(t, []string{"svc_a", "svc_b"}, registry.DiscoverServicesByProtocol(llm))
}

func TestUnregisterServicePurgesProtocols(t *testing.T) {
	registry := NewRegistry()
	llm := ProtocolOf[agent.LLMCapable]()
	storage := ProtocolOf[agent.StorageCapable]()

	registry.RegisterServiceProvider("svc", struct{}{}, []reflect.Type{llm, storage}, nil)
	require.True(t, registry.UnregisterService("svc"))
	assert.False(t, registry.UnregisterService("svc"))

	_, exists := registry.GetProtocolImplementation(llm)
	assert.False(t, exists)
	_, exists = registry.GetProtocolImplementation(storage)
	assert.False(t, exists)
	assert.Empty(t, registry.DiscoverServicesByProtocol(llm))
}

func TestClearRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.RegisterServiceProvider("svc", struct{}{},
		[]reflect.Type{ProtocolOf[agent.LLMCapable]()}, nil)
	registry.ClearRegistry()
	summary := registry.GetRegistrySummary()
	assert.Equal(t, 0, summary.ServiceCount)
	assert.Equal(t, 0, summary.ProtocolCount)
}

func TestValidateServiceProvider(t *testing.T) {
	registry := NewRegistry()
	assert.Error(t, registry.ValidateServiceProvider("ghost"))

	registry.RegisterServiceProvider("instance", struct{}{}, nil, nil)
	assert.NoError(t, registry.ValidateServiceProvider("instance"))

	registry.RegisterServiceProvider("factory", func() any { return struct{}{} }, nil, nil)
	assert.NoError(t, registry.ValidateServiceProvider("factory"))

	registry.RegisterServiceProvider("needy", func(dep string) any { return nil }, nil, nil)
	assert.Error(t, registry.ValidateServiceProvider("needy"))
}

func TestResolveProvider(t *testing.T) {
	registry := NewRegistry()

	type widget struct{ id int }
	instance := &widget{id: 1}
	registry.RegisterServiceProvider("instance", instance, nil, nil)
	got, err := registry.ResolveProvider("instance")
	require.NoError(t, err)
	assert.Same(t, instance, got)

	registry.RegisterServiceProvider("factory", func() *widget { return &widget{id: 2} }, nil, nil)
	got, err = registry.ResolveProvider("factory")
	require.NoError(t, err)
	assert.Equal(t, 2, got.(*widget).id)

	registry.RegisterServiceProvider("failing", func() (*widget, error) {
		return nil, errors.New("unavailable")
	}, nil, nil)
	_, err = registry.ResolveProvider("failing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "factory failed")

	_, err = registry.ResolveProvider("ghost")
	assert.Error(t, err)
}
