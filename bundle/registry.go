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
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-agentmap-go/internal/jsonfile"
	"trpc.group/trpc-go/trpc-agentmap-go/log"
)

// registryVersion is the persisted registry schema version. A mismatch
// at load logs a warning but the entries are still consumed.
const registryVersion = "2.0"

// RegistryFileName is the registry file under the cache directory.
const RegistryFileName = "graph_registry.json"

// Entry is one registered bundle.
type Entry struct {
	GraphName    string    `json:"graph_name"`
	BundlePath   string    `json:"bundle_path"`
	CSVPath      string    `json:"csv_path"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	// AccessCount is retained for older registries; lookups do not
	// mutate the registry.
	AccessCount int   `json:"access_count"`
	BundleSize  int64 `json:"bundle_size"`
	NodeCount   int   `json:"node_count"`
}

// registryMetadata aggregates registry-wide counters.
type registryMetadata struct {
	LastModified    time.Time `json:"last_modified"`
	TotalEntries    int       `json:"total_entries"`
	TotalBundleSize int64     `json:"total_bundle_size"`
}

// registryFile is the persisted shape. Entries are kept raw per hash so
// legacy flat entries can be migrated on load.
type registryFile struct {
	Version  string                     `json:"version"`
	Entries  map[string]json.RawMessage `json:"entries"`
	Metadata registryMetadata           `json:"metadata"`
}

// Registry is the persistent index (csv_hash, graph_name) -> bundle
// path. All operations hold a process-level lock; persistence is
// atomic.
type Registry struct {
	path string

	mu       sync.Mutex
	entries  map[string]map[string]*Entry
	metadata registryMetadata
}

// NewRegistry loads (or initializes) the registry at path. Load failure
// degrades to an empty registry with a warning.
func NewRegistry(path string) *Registry {
	r := &Registry{
		path:    path,
		entries: make(map[string]map[string]*Entry),
	}
	r.load()
	return r
}

// load reads the backing file, migrating legacy flat entries in memory.
// The file itself is not rewritten until the next write.
func (r *Registry) load() {
	var file registryFile
	if err := jsonfile.Read(r.path, &file); err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("bundle registry unreadable, starting empty: %v", err)
		}
		return
	}
	if file.Version != registryVersion {
		log.Warnf("bundle registry version %q != %q", file.Version, registryVersion)
	}
	r.metadata = file.Metadata
	for csvHash, raw := range file.Entries {
		var nested map[string]*Entry
		if err := json.Unmarshal(raw, &nested); err == nil && !looksFlat(raw) {
			r.entries[csvHash] = nested
			continue
		}
		// Legacy flat form: one entry directly under the hash.
		var flat Entry
		if err := json.Unmarshal(raw, &flat); err != nil {
			log.Warnf("bundle registry: dropping unreadable entry for %s: %v", csvHash, err)
			continue
		}
		graphName := flat.GraphName
		if graphName == "" {
			graphName = "default"
		}
		r.entries[csvHash] = map[string]*Entry{graphName: &flat}
	}
}

// looksFlat detects the legacy single-entry layout by the presence of a
// bundle_path key at the top level.
func looksFlat(raw json.RawMessage) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	_, exists := probe["bundle_path"]
	return exists
}

// Register validates and inserts (or overwrites) an entry, then
// persists. Registration is idempotent on (csvHash, graphName).
func (r *Registry) Register(csvHash, graphName, bundlePath, csvPath string, nodeCount int) error {
	if !isHexHash(csvHash) {
		return fmt.Errorf("invalid csv hash %q", csvHash)
	}
	if graphName == "" {
		return fmt.Errorf("graph name cannot be empty")
	}
	info, err := os.Stat(bundlePath)
	if err != nil {
		return fmt.Errorf("bundle file %s: %w", bundlePath, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	entry := &Entry{
		GraphName:    graphName,
		BundlePath:   bundlePath,
		CSVPath:      csvPath,
		CreatedAt:    now,
		LastAccessed: now,
		BundleSize:   info.Size(),
		NodeCount:    nodeCount,
	}
	if existing, ok := r.entries[csvHash][graphName]; ok {
		entry.CreatedAt = existing.CreatedAt
		entry.AccessCount = existing.AccessCount
	}
	if r.entries[csvHash] == nil {
		r.entries[csvHash] = make(map[string]*Entry)
	}
	r.entries[csvHash][graphName] = entry
	r.refreshMetadata()
	return r.persistLocked()
}

// FindBundle resolves (csvHash, graphName) to a bundle path. With an
// empty graphName the lexicographically smallest graph name under the
// hash is used. A stored path that no longer exists resolves to absent.
func (r *Registry) FindBundle(csvHash, graphName string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	graphs, exists := r.entries[csvHash]
	if !exists || len(graphs) == 0 {
		return "", false
	}
	var entry *Entry
	if graphName != "" {
		entry = graphs[graphName]
	} else {
		names := make([]string, 0, len(graphs))
		for name := range graphs {
			names = append(names, name)
		}
		sort.Strings(names)
		entry = graphs[names[0]]
	}
	if entry == nil {
		return "", false
	}
	if _, err := os.Stat(entry.BundlePath); err != nil {
		log.Warnf("registered bundle %s missing on disk", entry.BundlePath)
		return "", false
	}
	return entry.BundlePath, true
}

// RemoveEntry removes one graph's entry, or the whole hash when
// graphName is empty. A hash left with zero graphs is removed entirely.
func (r *Registry) RemoveEntry(csvHash, graphName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	graphs, exists := r.entries[csvHash]
	if !exists {
		return false
	}
	if graphName == "" {
		delete(r.entries, csvHash)
	} else {
		if _, exists := graphs[graphName]; !exists {
			return false
		}
		delete(graphs, graphName)
		if len(graphs) == 0 {
			delete(r.entries, csvHash)
		}
	}
	r.refreshMetadata()
	if err := r.persistLocked(); err != nil {
		log.Warnf("bundle registry persist after removal failed: %v", err)
	}
	return true
}

// EntryInfo returns the registry entry for (csvHash, graphName).
func (r *Registry) EntryInfo(csvHash, graphName string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, exists := r.entries[csvHash][graphName]
	if !exists {
		return nil, false
	}
	cp := *entry
	return &cp, true
}

// Entries snapshots every registered entry keyed by csv hash.
func (r *Registry) Entries() map[string][]Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]Entry, len(r.entries))
	for csvHash, graphs := range r.entries {
		names := make([]string, 0, len(graphs))
		for name := range graphs {
			names = append(names, name)
		}
		sort.Strings(names)
		list := make([]Entry, 0, len(names))
		for _, name := range names {
			list = append(list, *graphs[name])
		}
		out[csvHash] = list
	}
	return out
}

// Stats returns registry-wide counters.
func (r *Registry) Stats() (totalEntries int, totalBundleSize int64, lastModified time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metadata.TotalEntries, r.metadata.TotalBundleSize, r.metadata.LastModified
}

// refreshMetadata recomputes registry-wide counters. Callers hold mu.
func (r *Registry) refreshMetadata() {
	r.metadata.LastModified = time.Now().UTC()
	r.metadata.TotalEntries = 0
	r.metadata.TotalBundleSize = 0
	for _, graphs := range r.entries {
		for _, entry := range graphs {
			r.metadata.TotalEntries++
			r.metadata.TotalBundleSize += entry.BundleSize
		}
	}
}

// persistLocked atomically writes the registry. Callers hold mu.
func (r *Registry) persistLocked() error {
	file := registryFile{
		Version:  registryVersion,
		Entries:  make(map[string]json.RawMessage, len(r.entries)),
		Metadata: r.metadata,
	}
	for csvHash, graphs := range r.entries {
		raw, err := json.Marshal(graphs)
		if err != nil {
			return fmt.Errorf("encode registry entry %s: %w", csvHash, err)
		}
		file.Entries[csvHash] = raw
	}
	if err := jsonfile.Write(r.path, file); err != nil {
		return fmt.Errorf("persist bundle registry: %w", err)
	}
	return nil
}
