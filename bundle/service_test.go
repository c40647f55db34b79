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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-agentmap-go/agent"
	"trpc.group/trpc-go/trpc-agentmap-go/internal/jsonfile"
	"trpc.group/trpc-go/trpc-agentmap-go/service"
)

const twoGraphWorkflow = `GraphName,Node,AgentType,Edge
beta,b_start,default,b_end
beta,b_end,default,
alpha,a_only,echo,
`

func testService(t *testing.T) (*Service, string) {
	t.Helper()
	cacheDir := t.TempDir()
	agents := agent.NewRegistry()
	agent.RegisterBuiltins(agents)
	analyzer := NewAnalyzer(agents, service.NewDeclarationRegistry())
	registry := NewRegistry(filepath.Join(cacheDir, RegistryFileName))
	return NewService(cacheDir, registry, analyzer), cacheDir
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGetOrCreateBundleCreatesThenReuses(t *testing.T) {
	svc, _ := testService(t)
	csvPath := writeCSV(t, twoGraphWorkflow)

	b, created, err := svc.GetOrCreateBundle(csvPath, "beta")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "beta", b.GraphName)
	assert.Equal(t, "b_start", b.EntryPoint)
	assert.Len(t, b.CSVHash, 64)
	assert.Equal(t, b.CSVHash[:16], b.VersionHash)

	// Second call hits the registry.
	again, created, err := svc.GetOrCreateBundle(csvPath, "beta")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, b.GraphName, again.GraphName)
	assert.Equal(t, b.CSVHash, again.CSVHash)
}

func TestGetOrCreateBundlePerGraph(t *testing.T) {
	svc, _ := testService(t)
	csvPath := writeCSV(t, twoGraphWorkflow)

	beta, _, err := svc.GetOrCreateBundle(csvPath, "beta")
	require.NoError(t, err)
	alpha, _, err := svc.GetOrCreateBundle(csvPath, "alpha")
	require.NoError(t, err)

	// Same file hash, independent bundles per graph.
	assert.Equal(t, beta.CSVHash, alpha.CSVHash)
	assert.Equal(t, []string{"a_only"}, alpha.NodeOrder)
	assert.Equal(t, []string{"b_start", "b_end"}, beta.NodeOrder)
}

func TestGetOrCreateBundleDefaultsToFirstGraph(t *testing.T) {
	svc, _ := testService(t)
	csvPath := writeCSV(t, twoGraphWorkflow)

	b, _, err := svc.GetOrCreateBundle(csvPath, "")
	require.NoError(t, err)
	assert.Equal(t, "beta", b.GraphName)
}

func TestGetOrCreateBundleUnknownGraph(t *testing.T) {
	svc, _ := testService(t)
	csvPath := writeCSV(t, twoGraphWorkflow)

	_, _, err := svc.GetOrCreateBundle(csvPath, "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGetOrCreateBundleMissingFile(t *testing.T) {
	svc, _ := testService(t)
	_, _, err := svc.GetOrCreateBundle(filepath.Join(t.TempDir(), "absent.csv"), "")
	require.Error(t, err)
}

func TestGetOrCreateBundleMissingDeclarationLimit(t *testing.T) {
	cacheDir := t.TempDir()
	agents := agent.NewRegistry() // no builtins registered
	analyzer := NewAnalyzer(agents, service.NewDeclarationRegistry())
	registry := NewRegistry(filepath.Join(cacheDir, RegistryFileName))
	svc := NewService(cacheDir, registry, analyzer, WithMissingDeclarationLimit(0))

	csvPath := writeCSV(t, "GraphName,Node,AgentType\nflow,start,mystery\n")
	_, _, err := svc.GetOrCreateBundle(csvPath, "flow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lack declarations")
}

func TestLoadBundleFillsDefaults(t *testing.T) {
	svc, cacheDir := testService(t)
	path := filepath.Join(cacheDir, "old.json")
	require.NoError(t, jsonfile.WriteBytes(path, []byte(`{
		"graph_name": "flow",
		"entry_point": "z",
		"nodes": {"z": {"name": "z"}, "a": {"name": "a"}}
	}`)))

	b, err := svc.LoadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, FormatMetadata, b.Format)
	assert.Equal(t, "1.0", b.BundleFormat)
	assert.NotNil(t, b.GraphStructure.ParallelOpportunities)
	assert.Equal(t, []string{"a", "z"}, b.NodeOrder)
}

func TestLoadBundleRejectsCorruptBundles(t *testing.T) {
	svc, cacheDir := testService(t)

	noName := filepath.Join(cacheDir, "noname.json")
	require.NoError(t, jsonfile.WriteBytes(noName, []byte(`{"nodes": {"a": {"name": "a"}}, "entry_point": "a"}`)))
	_, err := svc.LoadBundle(noName)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph name")

	badEntry := filepath.Join(cacheDir, "badentry.json")
	require.NoError(t, jsonfile.WriteBytes(badEntry, []byte(`{"graph_name": "flow", "nodes": {"a": {"name": "a"}}, "entry_point": "ghost"}`)))
	_, err = svc.LoadBundle(badEntry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry point")
}

func TestGetOrCreateBundleRebuildsUnreadableCache(t *testing.T) {
	svc, _ := testService(t)
	csvPath := writeCSV(t, twoGraphWorkflow)

	b, _, err := svc.GetOrCreateBundle(csvPath, "beta")
	require.NoError(t, err)

	// Corrupt the persisted bundle; the next call rebuilds it.
	bundlePath := svc.BundlePath(b.CSVHash, "beta")
	require.NoError(t, os.WriteFile(bundlePath, []byte("not json"), 0o644))

	rebuilt, created, err := svc.GetOrCreateBundle(csvPath, "beta")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "beta", rebuilt.GraphName)
}
