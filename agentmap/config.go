//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package agentmap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-agentmap-go/runner"
)

// Config is the runtime configuration. Every field is optional; the
// zero value yields a working runtime with an on-disk cache under
// ".agentmap".
type Config struct {
	// CacheDir roots all persisted state: graph_registry.json,
	// availability_cache.json, bundles/ and interaction records.
	CacheDir string `yaml:"cache_dir"`
	// DeclarationsFile points to the service declarations YAML.
	DeclarationsFile string `yaml:"declarations_file"`
	// Features lists feature names to enable at bootstrap, e.g. "llm".
	Features []string `yaml:"features"`
	// EnvVars are the environment variables folded into the
	// availability cache's environment hash.
	EnvVars []string `yaml:"env_vars"`
	// Policy selects how overall execution success is decided.
	Policy runner.PolicyConfig `yaml:"execution_policy"`
	// LenientInjection downgrades missing service providers from
	// errors to warnings.
	LenientInjection bool `yaml:"lenient_injection"`
	// ThreadMaxAgeHours bounds how long paused threads are retained;
	// zero disables cleanup.
	ThreadMaxAgeHours int `yaml:"thread_max_age_hours"`
}

// defaultCacheDir is used when the configuration names none.
const defaultCacheDir = ".agentmap"

// LoadConfig reads a YAML runtime configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// withDefaults fills unset fields.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.CacheDir == "" {
		out.CacheDir = defaultCacheDir
	}
	return &out
}
