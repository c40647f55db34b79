//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

// Package service implements the host-service registry, the service
// declaration registry and the capability-based injection engine.
package service

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-agentmap-go/log"
)

// ProtocolOf returns the reflect.Type identifying a capability
// interface, for use as a protocol key.
//
//	registry.RegisterServiceProvider("llm_service", svc,
//	    []reflect.Type{service.ProtocolOf[agent.LLMCapable]()}, nil)
func ProtocolOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// registration records one host service: its provider (class, factory or
// constructed instance), the protocols it implements and free metadata.
type registration struct {
	provider  any
	protocols []reflect.Type
	metadata  map[string]any
}

// Registry indexes host services by name and by capability interface.
// Unregistering a service purges both indexes in one critical section.
type Registry struct {
	mu        sync.Mutex
	services  map[string]*registration
	protocols map[reflect.Type]string
}

// NewRegistry creates an empty host-service registry.
func NewRegistry() *Registry {
	return &Registry{
		services:  make(map[string]*registration),
		protocols: make(map[reflect.Type]string),
	}
}

// validProtocol accepts only interface types as protocol keys.
func validProtocol(protocol reflect.Type) bool {
	return protocol != nil && protocol.Kind() == reflect.Interface
}

// RegisterServiceProvider registers a provider under a service name,
// optionally binding it to capability interfaces. Invalid input is
// logged as a warning and rejected; the return value reports acceptance.
func (r *Registry) RegisterServiceProvider(name string, provider any,
	protocols []reflect.Type, metadata map[string]any) bool {
	if name == "" {
		log.Warn("rejecting service registration with empty name")
		return false
	}
	if provider == nil {
		log.Warnf("rejecting registration of service %q with nil provider", name)
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	reg := &registration{provider: provider, metadata: metadata}
	for _, protocol := range protocols {
		if !validProtocol(protocol) {
			log.Warnf("service %q: ignoring invalid protocol %v", name, protocol)
			continue
		}
		reg.protocols = append(reg.protocols, protocol)
		r.protocols[protocol] = name
	}
	r.services[name] = reg
	return true
}

// RegisterProtocolImplementation binds a protocol to an already
// registered service. A protocol re-registered to another service
// resolves to the newer one; the older service keeps the protocol in its
// capability list until unregistered.
func (r *Registry) RegisterProtocolImplementation(protocol reflect.Type, serviceName string) bool {
	if !validProtocol(protocol) {
		log.Warnf("rejecting invalid protocol %v for service %q", protocol, serviceName)
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, exists := r.services[serviceName]
	if !exists {
		log.Warnf("rejecting protocol %s for unregistered service %q", protocol.Name(), serviceName)
		return false
	}
	hasProtocol := false
	for _, p := range reg.protocols {
		if p == protocol {
			hasProtocol = true
			break
		}
	}
	if !hasProtocol {
		reg.protocols = append(reg.protocols, protocol)
	}
	r.protocols[protocol] = serviceName
	return true
}

// GetServiceProvider returns the provider registered under name.
func (r *Registry) GetServiceProvider(name string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, exists := r.services[name]
	if !exists {
		return nil, false
	}
	return reg.provider, true
}

// GetProtocolImplementation returns the service name currently bound to
// the protocol.
func (r *Registry) GetProtocolImplementation(protocol reflect.Type) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, exists := r.protocols[protocol]
	return name, exists
}

// DiscoverServicesByProtocol returns the names of every registered
// service whose capability list includes the protocol, sorted.
func (r *Registry) DiscoverServicesByProtocol(protocol reflect.Type) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for name, reg := range r.services {
		for _, p := range reg.protocols {
			if p == protocol {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// UnregisterService removes a service and every protocol mapping that
// currently resolves to it.
func (r *Registry) UnregisterService(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.services[name]; !exists {
		return false
	}
	delete(r.services, name)
	for protocol, owner := range r.protocols {
		if owner == name {
			delete(r.protocols, protocol)
		}
	}
	return true
}

// ClearRegistry removes all services and protocol mappings.
func (r *Registry) ClearRegistry() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services = make(map[string]*registration)
	r.protocols = make(map[reflect.Type]string)
}

// Metadata returns the metadata map recorded for a service.
func (r *Registry) Metadata(name string) (map[string]any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, exists := r.services[name]
	if !exists {
		return nil, false
	}
	return reg.metadata, true
}

// Summary describes the registry contents for diagnostics.
type Summary struct {
	ServiceCount  int                 `json:"service_count"`
	ProtocolCount int                 `json:"protocol_count"`
	Services      map[string][]string `json:"services"`
}

// GetRegistrySummary reports every service and the protocol names it
// implements.
func (r *Registry) GetRegistrySummary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := Summary{
		ServiceCount:  len(r.services),
		ProtocolCount: len(r.protocols),
		Services:      make(map[string][]string, len(r.services)),
	}
	for name, reg := range r.services {
		protocols := make([]string, 0, len(reg.protocols))
		for _, p := range reg.protocols {
			protocols = append(protocols, p.Name())
		}
		sort.Strings(protocols)
		summary.Services[name] = protocols
	}
	return summary
}

// ValidateServiceProvider checks that a registered provider is usable:
// it exists and, when it is a factory function, takes no arguments.
func (r *Registry) ValidateServiceProvider(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, exists := r.services[name]
	if !exists {
		return fmt.Errorf("service %q is not registered", name)
	}
	t := reflect.TypeOf(reg.provider)
	if t.Kind() == reflect.Func && t.NumIn() > 0 {
		return fmt.Errorf("service %q factory requires arguments", name)
	}
	return nil
}

// ResolveProvider returns the usable provider instance for a service:
// factories without arguments are invoked once per call, everything else
// is returned as registered.
func (r *Registry) ResolveProvider(name string) (any, error) {
	provider, exists := r.GetServiceProvider(name)
	if !exists {
		return nil, fmt.Errorf("service %q is not registered", name)
	}
	v := reflect.ValueOf(provider)
	if v.Kind() == reflect.Func && v.Type().NumIn() == 0 && v.Type().NumOut() >= 1 {
		results := v.Call(nil)
		if len(results) == 2 && !results[1].IsNil() {
			if err, ok := results[1].Interface().(error); ok {
				return nil, fmt.Errorf("service %q factory failed: %w", name, err)
			}
		}
		return results[0].Interface(), nil
	}
	return provider, nil
}
