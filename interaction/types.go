//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

// Package interaction implements the human-in-the-loop interruption
// protocol: typed interruptions raised by agents, persisted interaction
// requests and resumable thread records.
package interaction

import (
	"time"

	"github.com/google/uuid"
)

// InteractionType classifies a human interaction request.
type InteractionType string

const (
	// TypeTextInput requests free-form text from the user.
	TypeTextInput InteractionType = "text_input"
	// TypeChoice requests a selection among options.
	TypeChoice InteractionType = "choice"
	// TypeApproval requests a yes/no confirmation.
	TypeApproval InteractionType = "approval"
	// TypeCustom is interpreted by the adapter surfacing the request.
	TypeCustom InteractionType = "custom"
)

// Thread statuses.
const (
	// StatusPaused marks a thread waiting for a human response.
	StatusPaused = "paused"
	// StatusResuming marks a thread whose resume has been requested.
	StatusResuming = "resuming"
	// StatusCompleted marks a thread whose execution finished.
	StatusCompleted = "completed"
)

// Request is a human-interaction request raised by an agent.
type Request struct {
	// ID uniquely identifies the request.
	ID string `json:"id"`
	// ThreadID correlates the request with its execution thread.
	ThreadID string `json:"thread_id"`
	// NodeName is the node that raised the request.
	NodeName string `json:"node_name"`
	// Type classifies the interaction.
	Type InteractionType `json:"interaction_type"`
	// Prompt is the text surfaced to the user.
	Prompt string `json:"prompt"`
	// Context carries adapter-specific data.
	Context map[string]any `json:"context,omitempty"`
	// Options lists choices for TypeChoice requests.
	Options []string `json:"options,omitempty"`
	// TimeoutSeconds is advisory; the runtime does not enforce it.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
	// CreatedAt is the request creation time.
	CreatedAt time.Time `json:"created_at"`
}

// NewRequest creates a request with a generated ID.
func NewRequest(threadID, nodeName string, typ InteractionType, prompt string) *Request {
	return &Request{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		NodeName:  nodeName,
		Type:      typ,
		Prompt:    prompt,
		CreatedAt: time.Now().UTC(),
	}
}

// CheckpointData captures the execution state needed to resume a thread.
type CheckpointData struct {
	// Inputs is the state snapshot at interruption.
	Inputs map[string]any `json:"inputs,omitempty"`
	// AgentContext is the raising agent's context.
	AgentContext map[string]any `json:"agent_context,omitempty"`
	// ExecutionTracker is a serialized tracker snapshot.
	ExecutionTracker map[string]any `json:"execution_tracker,omitempty"`
	// NodeName is the node to resume from.
	NodeName string `json:"node_name"`
}

// BundleInfo records how to re-resolve the bundle on resume.
type BundleInfo struct {
	CSVHash    string `json:"csv_hash"`
	BundlePath string `json:"bundle_path"`
	CSVPath    string `json:"csv_path"`
}

// ThreadRecord is the persistent continuation of an interrupted execution.
type ThreadRecord struct {
	ThreadID             string          `json:"thread_id"`
	GraphName            string          `json:"graph_name"`
	NodeName             string          `json:"node_name"`
	Status               string          `json:"status"`
	PendingInteractionID string          `json:"pending_interaction_id,omitempty"`
	Checkpoint           *CheckpointData `json:"checkpoint_data,omitempty"`
	Bundle               *BundleInfo     `json:"bundle_info,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	ResumedAt            *time.Time      `json:"resumed_at,omitempty"`
	CompletedAt          *time.Time      `json:"completed_at,omitempty"`
}
