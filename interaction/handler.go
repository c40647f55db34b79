//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package interaction

import (
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-agentmap-go/log"
)

// DisplayCallback lets an adapter (CLI, HTTP, ...) surface the prompt of
// a freshly persisted interaction request.
type DisplayCallback func(req *Request)

// Handler processes ExecutionInterrupted markers: it persists the
// interaction request and a paused thread record, and drives the thread
// through its resume lifecycle.
type Handler struct {
	store   *Store
	display DisplayCallback
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithDisplayCallback registers the adapter display hook.
func WithDisplayCallback(cb DisplayCallback) HandlerOption {
	return func(h *Handler) {
		h.display = cb
	}
}

// NewHandler creates an interaction handler on top of a store.
func NewHandler(store *Store, opts ...HandlerOption) *Handler {
	h := &Handler{store: store}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Store returns the underlying store.
func (h *Handler) Store() *Store {
	return h.store
}

// HandleInterrupt persists the interruption: the request under the
// interactions collection and a paused thread record with checkpoint and
// bundle info. Storage failures surface as errors naming the failed step.
func (h *Handler) HandleInterrupt(interrupt *ExecutionInterrupted, graphName string, bundle *BundleInfo) error {
	if interrupt == nil {
		return fmt.Errorf("nil interruption")
	}
	if interrupt.ThreadID == "" {
		return fmt.Errorf("interruption has no thread ID")
	}
	req := interrupt.Request
	if req == nil {
		return fmt.Errorf("interruption on thread %s has no interaction request", interrupt.ThreadID)
	}
	if err := h.store.SaveRequest(req); err != nil {
		return fmt.Errorf("persist interaction request: %w", err)
	}
	nodeName := ""
	if interrupt.Checkpoint != nil {
		nodeName = interrupt.Checkpoint.NodeName
	}
	now := time.Now().UTC()
	record := &ThreadRecord{
		ThreadID:             interrupt.ThreadID,
		GraphName:            graphName,
		NodeName:             nodeName,
		Status:               StatusPaused,
		PendingInteractionID: req.ID,
		Checkpoint:           interrupt.Checkpoint,
		Bundle:               bundle,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := h.store.SaveThread(record); err != nil {
		return fmt.Errorf("persist thread record: %w", err)
	}
	log.Infof("execution paused on thread %s at node %s awaiting interaction %s",
		interrupt.ThreadID, nodeName, req.ID)
	if h.display != nil {
		h.display(req)
	}
	return nil
}

// MarkThreadResuming transitions a paused thread to resuming.
func (h *Handler) MarkThreadResuming(threadID string) error {
	record, err := h.store.GetThread(threadID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	record.Status = StatusResuming
	record.ResumedAt = &now
	record.UpdatedAt = now
	if err := h.store.SaveThread(record); err != nil {
		return fmt.Errorf("mark thread resuming: %w", err)
	}
	return nil
}

// MarkThreadCompleted finishes a thread and clears its pending
// interaction pointer.
func (h *Handler) MarkThreadCompleted(threadID string) error {
	record, err := h.store.GetThread(threadID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	record.Status = StatusCompleted
	record.PendingInteractionID = ""
	record.CompletedAt = &now
	record.UpdatedAt = now
	if err := h.store.SaveThread(record); err != nil {
		return fmt.Errorf("mark thread completed: %w", err)
	}
	return nil
}

// CleanupExpiredThreads purges paused threads older than maxAge hours.
// Returns the number of purged records.
func (h *Handler) CleanupExpiredThreads(maxAgeHours int) (int, error) {
	records, err := h.store.ListThreads()
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().UTC().Add(-time.Duration(maxAgeHours) * time.Hour)
	purged := 0
	for _, record := range records {
		if record.Status != StatusPaused || record.UpdatedAt.After(cutoff) {
			continue
		}
		if err := h.store.DeleteThread(record.ThreadID); err != nil {
			log.Warnf("failed to purge expired thread %s: %v", record.ThreadID, err)
			continue
		}
		purged++
	}
	return purged, nil
}
