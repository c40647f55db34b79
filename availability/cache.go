//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

// Package availability implements the unified availability cache and the
// feature/dependency registry built on top of it.
package availability

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-agentmap-go/internal/jsonfile"
	"trpc.group/trpc-go/trpc-agentmap-go/log"
)

// cacheVersion is the schema version of the cache file. A stored file
// with a different version is discarded wholesale.
const cacheVersion = "1.0"

// mtimeTolerance absorbs cross-filesystem timestamp resolution.
const mtimeTolerance = 5 * time.Second

// Well-known cache categories.
const (
	CategoryDependencyLLM     = "dependency.llm"
	CategoryDependencyStorage = "dependency.storage"
	CategoryLLMProvider       = "llm_provider"
	CategoryStorage           = "storage"
)

// Entry is one cached availability answer.
type Entry struct {
	// Value is the cached answer.
	Value any `json:"value"`
	// SourcePath, when set, ties the entry's validity to a file.
	SourcePath string `json:"source_path,omitempty"`
	// SourceMtime is the file's modification time at caching.
	SourceMtime time.Time `json:"source_mtime,omitempty"`
	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`
}

// cacheFile is the persisted shape of the cache.
type cacheFile struct {
	Version         string                      `json:"version"`
	EnvironmentHash string                      `json:"environment_hash"`
	Categories      map[string]map[string]Entry `json:"categories"`
}

// Cache is a categorized, file-backed, thread-safe availability cache.
// A single JSON file backs every category so startup costs one read.
type Cache struct {
	path    string
	envHash string

	mu         sync.RWMutex
	categories map[string]map[string]Entry

	// fileMu serializes atomic replace operations.
	fileMu sync.Mutex
}

// EnvironmentHash summarizes the given environment variables; a change
// in any of them invalidates the whole cache file.
func EnvironmentHash(names []string) string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)
	h := sha256.New()
	for _, name := range sorted {
		fmt.Fprintf(h, "%s=%s\n", name, os.Getenv(name))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NewCache opens (or initializes) the availability cache at path. A
// missing or invalid backing file degrades to an empty cache with a
// warning; startup never aborts on cache trouble.
func NewCache(path string, envVars []string) *Cache {
	c := &Cache{
		path:       path,
		envHash:    EnvironmentHash(envVars),
		categories: make(map[string]map[string]Entry),
	}
	c.load()
	return c
}

// load reads the backing file and validates version and environment.
func (c *Cache) load() {
	var file cacheFile
	if err := jsonfile.Read(c.path, &file); err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("availability cache unreadable, starting empty: %v", err)
		}
		return
	}
	if file.Version != cacheVersion {
		log.Warnf("availability cache version %q != %q, discarding", file.Version, cacheVersion)
		return
	}
	if file.EnvironmentHash != c.envHash {
		log.Debugf("availability cache environment changed, discarding")
		return
	}
	if file.Categories != nil {
		c.categories = file.Categories
	}
}

// shallowCopy protects the stored value from caller mutation.
func shallowCopy(v any) any {
	switch m := v.(type) {
	case map[string]any:
		cp := make(map[string]any, len(m))
		for k, val := range m {
			cp[k] = val
		}
		return cp
	case []any:
		cp := make([]any, len(m))
		copy(cp, m)
		return cp
	default:
		return v
	}
}

// Get returns the cached value for (category, key), or false when the
// entry is absent or no longer valid.
func (c *Cache) Get(category, key string) (any, bool) {
	c.mu.RLock()
	entry, exists := c.categories[category][key]
	c.mu.RUnlock()
	if !exists {
		return nil, false
	}
	if entry.SourcePath != "" {
		info, err := os.Stat(entry.SourcePath)
		if err != nil {
			return nil, false
		}
		diff := info.ModTime().Sub(entry.SourceMtime)
		if diff < -mtimeTolerance || diff > mtimeTolerance {
			return nil, false
		}
	}
	return shallowCopy(entry.Value), true
}

// Set stores a value under (category, key) and persists the cache.
func (c *Cache) Set(category, key string, value any) {
	c.SetWithSource(category, key, value, "")
}

// SetWithSource stores a value tied to a source file's mtime.
func (c *Cache) SetWithSource(category, key string, value any, sourcePath string) {
	entry := Entry{Value: value, CachedAt: time.Now().UTC()}
	if sourcePath != "" {
		if info, err := os.Stat(sourcePath); err == nil {
			entry.SourcePath = sourcePath
			entry.SourceMtime = info.ModTime()
		}
	}
	c.mu.Lock()
	if c.categories[category] == nil {
		c.categories[category] = make(map[string]Entry)
	}
	c.categories[category][key] = entry
	c.mu.Unlock()
	c.persist()
}

// Invalidate removes entries. Empty key widens to the whole category;
// empty category widens to everything.
func (c *Cache) Invalidate(category, key string) {
	c.mu.Lock()
	switch {
	case category == "":
		c.categories = make(map[string]map[string]Entry)
	case key == "":
		delete(c.categories, category)
	default:
		delete(c.categories[category], key)
	}
	c.mu.Unlock()
	c.persist()
}

// Stats reports entry counts per category.
func (c *Cache) Stats() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := make(map[string]int, len(c.categories))
	for category, entries := range c.categories {
		stats[category] = len(entries)
	}
	return stats
}

// persist atomically replaces the backing file. The in-memory image is
// authoritative; persistence failure only logs.
func (c *Cache) persist() {
	c.mu.RLock()
	file := cacheFile{
		Version:         cacheVersion,
		EnvironmentHash: c.envHash,
		Categories:      c.categories,
	}
	c.fileMu.Lock()
	err := jsonfile.Write(c.path, file)
	c.fileMu.Unlock()
	c.mu.RUnlock()
	if err != nil {
		log.Warnf("availability cache persist failed: %v", err)
	}
}
