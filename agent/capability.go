//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package agent

// Capability interfaces declare, one configuration operation each, the
// services an agent wants injected. Detection is a runtime type
// assertion against the agent instance; providers are opaque because
// concrete backends live outside the runtime.

// LLMCapable agents receive the singleton LLM service.
type LLMCapable interface {
	ConfigureLLMService(service any) error
}

// StorageCapable agents receive the storage manager.
type StorageCapable interface {
	ConfigureStorageService(service any) error
}

// CSVCapable agents receive the CSV storage service.
type CSVCapable interface {
	ConfigureCSVService(service any) error
}

// JSONCapable agents receive the JSON storage service.
type JSONCapable interface {
	ConfigureJSONService(service any) error
}

// FileCapable agents receive the file storage service.
type FileCapable interface {
	ConfigureFileService(service any) error
}

// VectorCapable agents receive the vector storage service.
type VectorCapable interface {
	ConfigureVectorService(service any) error
}

// MemoryCapable agents receive the memory storage service.
type MemoryCapable interface {
	ConfigureMemoryService(service any) error
}

// PromptCapable agents receive the prompt manager.
type PromptCapable interface {
	ConfigurePromptService(service any) error
}

// OrchestrationCapable agents receive the orchestrator service.
type OrchestrationCapable interface {
	ConfigureOrchestratorService(service any) error
}

// BlobStorageCapable agents receive the blob storage service.
type BlobStorageCapable interface {
	ConfigureBlobStorageService(service any) error
}
