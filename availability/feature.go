//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package availability

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-agentmap-go/log"
)

// Capability families tracked by the feature registry.
const (
	FeatureLLM     = "llm"
	FeatureStorage = "storage"
)

// Validator probes whether a provider is usable, returning availability
// and the names of any missing modules or credentials.
type Validator func() (available bool, missing []string)

// validationPoolSize bounds concurrent validator runs in ValidateAll.
const validationPoolSize = 8

// FeatureRegistry tracks which optional capability families are enabled
// and which providers within each are validated. Validation answers are
// cached in the availability cache under "dependency.<category>".
type FeatureRegistry struct {
	cache *Cache

	mu         sync.RWMutex
	features   map[string]bool
	validated  map[string]map[string]bool
	validators map[string]map[string]Validator
	missing    map[string][]string
}

// NewFeatureRegistry creates a feature registry backed by cache, which
// may be nil for an uncached registry.
func NewFeatureRegistry(cache *Cache) *FeatureRegistry {
	return &FeatureRegistry{
		cache:      cache,
		features:   make(map[string]bool),
		validated:  make(map[string]map[string]bool),
		validators: make(map[string]map[string]Validator),
		missing:    make(map[string][]string),
	}
}

// EnableFeature marks a capability family as enabled.
func (r *FeatureRegistry) EnableFeature(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.features[name] = true
}

// IsFeatureEnabled reports whether a capability family is enabled.
func (r *FeatureRegistry) IsFeatureEnabled(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.features[name]
}

// RegisterValidator attaches a provider validator for a category.
func (r *FeatureRegistry) RegisterValidator(category, provider string, v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.validators[category] == nil {
		r.validators[category] = make(map[string]Validator)
	}
	r.validators[category][provider] = v
}

// SetProvidersValidated records externally determined validation results.
func (r *FeatureRegistry) SetProvidersValidated(category string, results map[string]bool) {
	r.mu.Lock()
	if r.validated[category] == nil {
		r.validated[category] = make(map[string]bool)
	}
	for provider, ok := range results {
		r.validated[category][provider] = ok
	}
	r.mu.Unlock()
	if r.cache != nil {
		for provider, ok := range results {
			r.cache.Set("dependency."+category, provider, ok)
		}
	}
}

// IsProviderAvailable answers whether a provider is usable, consulting
// the cache first and falling back to the registered validator. Both
// success and failure are cached with a timestamp.
func (r *FeatureRegistry) IsProviderAvailable(category, provider string) bool {
	r.mu.RLock()
	if validated, exists := r.validated[category][provider]; exists {
		r.mu.RUnlock()
		return validated
	}
	r.mu.RUnlock()

	cacheCategory := "dependency." + category
	if r.cache != nil {
		if value, hit := r.cache.Get(cacheCategory, provider); hit {
			if available, ok := value.(bool); ok {
				return available
			}
			if m, ok := value.(map[string]any); ok {
				if available, ok := m["available"].(bool); ok {
					return available
				}
			}
		}
	}

	r.mu.RLock()
	validator := r.validators[category][provider]
	r.mu.RUnlock()
	if validator == nil {
		return false
	}
	available, missing := validator()
	r.recordValidation(category, provider, available, missing)
	return available
}

// recordValidation stores a validation outcome in memory and the cache.
func (r *FeatureRegistry) recordValidation(category, provider string, available bool, missing []string) {
	r.mu.Lock()
	if r.validated[category] == nil {
		r.validated[category] = make(map[string]bool)
	}
	r.validated[category][provider] = available
	if len(missing) > 0 {
		r.missing[category] = mergeSorted(r.missing[category], missing)
	}
	r.mu.Unlock()
	if r.cache != nil {
		r.cache.Set("dependency."+category, provider, map[string]any{
			"available":    available,
			"missing":      missing,
			"validated_at": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// mergeSorted merges b into a, deduplicated and sorted.
func mergeSorted(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		seen[s] = true
	}
	merged := make([]string, 0, len(seen))
	for s := range seen {
		merged = append(merged, s)
	}
	sort.Strings(merged)
	return merged
}

// GetAvailableProviders lists the validated providers in a category.
func (r *FeatureRegistry) GetAvailableProviders(category string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var providers []string
	for provider, ok := range r.validated[category] {
		if ok {
			providers = append(providers, provider)
		}
	}
	sort.Strings(providers)
	return providers
}

// GetMissingDependencies reports missing modules per category; an empty
// category reports all categories.
func (r *FeatureRegistry) GetMissingDependencies(category string) map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string][]string)
	if category != "" {
		if missing, exists := r.missing[category]; exists {
			result[category] = append([]string(nil), missing...)
		}
		return result
	}
	for cat, missing := range r.missing {
		result[cat] = append([]string(nil), missing...)
	}
	return result
}

// ValidateAll runs every registered validator concurrently on a worker
// pool and records the outcomes. It returns the per-category results.
func (r *FeatureRegistry) ValidateAll() (map[string]map[string]bool, error) {
	type task struct {
		category string
		provider string
		v        Validator
	}
	r.mu.RLock()
	var tasks []task
	for category, providers := range r.validators {
		for provider, v := range providers {
			tasks = append(tasks, task{category: category, provider: provider, v: v})
		}
	}
	r.mu.RUnlock()
	if len(tasks) == 0 {
		return map[string]map[string]bool{}, nil
	}

	pool, err := ants.NewPool(validationPoolSize)
	if err != nil {
		return nil, fmt.Errorf("create validation pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, t := range tasks {
		t := t
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			available, missing := t.v()
			r.recordValidation(t.category, t.provider, available, missing)
			log.Debugf("validated provider %s/%s: available=%v", t.category, t.provider, available)
		}); err != nil {
			wg.Done()
			log.Warnf("validation pool submit failed for %s/%s: %v", t.category, t.provider, err)
		}
	}
	wg.Wait()

	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make(map[string]map[string]bool, len(r.validated))
	for category, providers := range r.validated {
		results[category] = make(map[string]bool, len(providers))
		for provider, ok := range providers {
			results[category][provider] = ok
		}
	}
	return results, nil
}
