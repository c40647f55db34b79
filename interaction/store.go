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
	"os"
	"path/filepath"
	"strings"
	"sync"

	"trpc.group/trpc-go/trpc-agentmap-go/internal/jsonfile"
	"trpc.group/trpc-go/trpc-agentmap-go/log"
)

// Collection names under the base directory.
const (
	requestsCollection = "interactions"
	threadsCollection  = "interactions_threads"
)

// Store persists interaction requests and thread records as JSON files,
// one file per record, under a base directory.
type Store struct {
	baseDir string
	mu      sync.Mutex
}

// NewStore creates a file-backed interaction store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) requestPath(id string) string {
	return filepath.Join(s.baseDir, requestsCollection, sanitize(id)+".json")
}

func (s *Store) threadPath(threadID string) string {
	return filepath.Join(s.baseDir, threadsCollection, sanitize(threadID)+".json")
}

// sanitize keeps record IDs usable as file names.
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, id)
}

// SaveRequest persists an interaction request keyed by its ID.
func (s *Store) SaveRequest(req *Request) error {
	if req == nil || req.ID == "" {
		return fmt.Errorf("interaction request must have an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := jsonfile.Write(s.requestPath(req.ID), req); err != nil {
		return fmt.Errorf("save interaction request %s: %w", req.ID, err)
	}
	return nil
}

// GetRequest loads an interaction request by ID.
func (s *Store) GetRequest(id string) (*Request, error) {
	var req Request
	if err := jsonfile.Read(s.requestPath(id), &req); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("interaction request %s not found", id)
		}
		return nil, err
	}
	return &req, nil
}

// SaveThread persists a thread record keyed by its thread ID.
func (s *Store) SaveThread(record *ThreadRecord) error {
	if record == nil || record.ThreadID == "" {
		return fmt.Errorf("thread record must have a thread ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := jsonfile.Write(s.threadPath(record.ThreadID), record); err != nil {
		return fmt.Errorf("save thread record %s: %w", record.ThreadID, err)
	}
	return nil
}

// GetThread loads a thread record by thread ID.
func (s *Store) GetThread(threadID string) (*ThreadRecord, error) {
	var record ThreadRecord
	if err := jsonfile.Read(s.threadPath(threadID), &record); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("thread %s not found", threadID)
		}
		return nil, err
	}
	return &record, nil
}

// ListThreads returns all persisted thread records.
func (s *Store) ListThreads() ([]*ThreadRecord, error) {
	dir := filepath.Join(s.baseDir, threadsCollection)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list threads: %w", err)
	}
	var records []*ThreadRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var record ThreadRecord
		if err := jsonfile.Read(filepath.Join(dir, entry.Name()), &record); err != nil {
			log.Warnf("skipping unreadable thread record %s: %v", entry.Name(), err)
			continue
		}
		records = append(records, &record)
	}
	return records, nil
}

// DeleteThread removes a thread record and its pending request, if any.
func (s *Store) DeleteThread(threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, err := s.GetThread(threadID)
	if err == nil && record.PendingInteractionID != "" {
		if err := os.Remove(s.requestPath(record.PendingInteractionID)); err != nil && !os.IsNotExist(err) {
			log.Warnf("failed to remove interaction request %s: %v", record.PendingInteractionID, err)
		}
	}
	if err := os.Remove(s.threadPath(threadID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete thread %s: %w", threadID, err)
	}
	return nil
}
