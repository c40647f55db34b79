//
// Tencent is pleased to support the open source community by making trpc-agentmap-go available.
//
// Copyright (C) 2026 Tencent.  All rights reserved.
//
// trpc-agentmap-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-agentmap-go/agent"
	"trpc.group/trpc-go/trpc-agentmap-go/bundle"
	"trpc.group/trpc-go/trpc-agentmap-go/graph"
	"trpc.group/trpc-go/trpc-agentmap-go/interaction"
	"trpc.group/trpc-go/trpc-agentmap-go/service"
)

type runnerFixture struct {
	runner       *Runner
	funcs        *FuncRegistry
	interactions *interaction.Handler
	cacheDir     string
}

func newFixture(t *testing.T) *runnerFixture {
	t.Helper()
	cacheDir := t.TempDir()
	agents := agent.NewRegistry()
	agent.RegisterBuiltins(agents)

	declarations := service.NewDeclarationRegistry()
	analyzer := bundle.NewAnalyzer(agents, declarations)
	registry := bundle.NewRegistry(filepath.Join(cacheDir, bundle.RegistryFileName))
	bundles := bundle.NewService(cacheDir, registry, analyzer)

	interactions := interaction.NewHandler(interaction.NewStore(cacheDir))
	funcs := NewFuncRegistry()

	r := New(agents, service.NewInjector(service.NewRegistry()), bundles,
		WithFuncResolver(funcs),
		WithInteractionHandler(interactions),
	)
	return &runnerFixture{runner: r, funcs: funcs, interactions: interactions, cacheDir: cacheDir}
}

func writeWorkflow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunLinearWorkflow(t *testing.T) {
	f := newFixture(t)
	csvPath := writeWorkflow(t, `GraphName,Node,AgentType,Prompt,Input_Fields,Output_Field,Edge
flow,start,default,hello,,greeting,finish
flow,finish,echo,,greeting,result,
`)
	result, err := f.runner.Run(context.Background(), csvPath, "flow", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Interrupted)
	assert.Equal(t, "flow", result.GraphName)
	assert.Equal(t, "hello", result.FinalState["greeting"])
	assert.Equal(t, "hello", result.FinalState["result"])

	require.NotNil(t, result.Summary)
	require.Len(t, result.Summary.Results, 2)
	assert.Equal(t, "start", result.Summary.Results[0].Node)
	assert.Equal(t, "finish", result.Summary.Results[1].Node)
	assert.True(t, result.Summary.Results[0].Success)
}

func TestRunConditionalRouting(t *testing.T) {
	f := newFixture(t)
	csvPath := writeWorkflow(t, `GraphName,Node,AgentType,Input_Fields,Output_Field,Success_Next,Failure_Next
flow,check,branching,flag,checked,happy,sad
flow,happy,default,,outcome,,
flow,sad,failure,,outcome,,
`)
	result, err := f.runner.Run(context.Background(), csvPath, "flow",
		map[string]any{"flag": true})
	require.NoError(t, err)
	assert.True(t, result.Success)
	nodes := visitedNodes(result.Summary)
	assert.Equal(t, []string{"check", "happy"}, nodes)

	result, err = f.runner.Run(context.Background(), csvPath, "flow",
		map[string]any{"flag": false})
	require.NoError(t, err)
	assert.False(t, result.Success)
	nodes = visitedNodes(result.Summary)
	assert.Equal(t, []string{"check", "sad"}, nodes)
}

func visitedNodes(summary *ExecutionSummary) []string {
	var nodes []string
	for _, result := range summary.Results {
		nodes = append(nodes, result.Node)
	}
	return nodes
}

func TestRunFuncRoutedEdge(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.funcs.Register("pick", func(state graph.State, successTarget, failureTarget string) string {
		if state["go_left"] == true {
			return "left"
		}
		return "right"
	}))
	csvPath := writeWorkflow(t, `GraphName,Node,AgentType,Output_Field,Edge
flow,route,default,routed,func:pick
flow,left,default,side,
flow,right,default,side,
`)
	result, err := f.runner.Run(context.Background(), csvPath, "flow",
		map[string]any{"go_left": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"route", "left"}, visitedNodes(result.Summary))
}

func TestRunUnresolvedFuncFails(t *testing.T) {
	f := newFixture(t)
	csvPath := writeWorkflow(t, `GraphName,Node,AgentType,Edge
flow,route,default,func:ghost
`)
	_, err := f.runner.Run(context.Background(), csvPath, "flow", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ghost"`)
}

func TestRunUnknownAgentTypeFails(t *testing.T) {
	f := newFixture(t)
	csvPath := writeWorkflow(t, `GraphName,Node,AgentType
flow,start,mystery
`)
	_, err := f.runner.Run(context.Background(), csvPath, "flow", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery")
}

func TestRunPolicyFinalNode(t *testing.T) {
	cacheDir := t.TempDir()
	agents := agent.NewRegistry()
	agent.RegisterBuiltins(agents)
	registry := bundle.NewRegistry(filepath.Join(cacheDir, bundle.RegistryFileName))
	bundles := bundle.NewService(cacheDir, registry,
		bundle.NewAnalyzer(agents, service.NewDeclarationRegistry()))
	r := New(agents, nil, bundles, WithPolicy(PolicyConfig{Type: PolicyFinalNode}))

	// The middle node fails but routes onward; final_node accepts the run.
	csvPath := writeWorkflow(t, `GraphName,Node,AgentType,Success_Next,Failure_Next
flow,flaky,failure,finish,finish
flow,finish,success,,
`)
	result, err := r.Run(context.Background(), csvPath, "flow", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestRunInterruptionAndResume(t *testing.T) {
	f := newFixture(t)
	csvPath := writeWorkflow(t, `GraphName,Node,AgentType,Prompt,Input_Fields,Output_Field,Edge
flow,ask,input,What is your name?,,name,greet
flow,greet,echo,,name,greeting,
`)
	result, err := f.runner.Run(context.Background(), csvPath, "flow",
		map[string]any{"seed": "x"})
	require.NoError(t, err)
	assert.True(t, result.Interrupted)
	assert.False(t, result.Success)
	assert.Empty(t, result.Error)
	require.NotEmpty(t, result.ThreadID)

	// The pause is persisted: paused thread plus pending request.
	record, err := f.interactions.Store().GetThread(result.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, interaction.StatusPaused, record.Status)
	assert.Equal(t, "ask", record.NodeName)
	require.NotEmpty(t, record.PendingInteractionID)
	req, err := f.interactions.Store().GetRequest(record.PendingInteractionID)
	require.NoError(t, err)
	assert.Equal(t, "What is your name?", req.Prompt)

	// Resume with the response; the graph continues past the input node.
	resumed, err := f.runner.ResumeThread(context.Background(), result.ThreadID, "Ada")
	require.NoError(t, err)
	assert.True(t, resumed.Success)
	assert.False(t, resumed.Interrupted)
	assert.Equal(t, "Ada", resumed.FinalState["name"])
	assert.Equal(t, "Ada", resumed.FinalState["greeting"])

	record, err = f.interactions.Store().GetThread(result.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, interaction.StatusCompleted, record.Status)
	assert.Empty(t, record.PendingInteractionID)
}

func TestResumeThreadErrors(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.ResumeThread(context.Background(), "ghost", "x")
	require.Error(t, err)

	// A completed thread cannot be resumed again.
	record := &interaction.ThreadRecord{
		ThreadID: "done",
		Status:   interaction.StatusCompleted,
	}
	require.NoError(t, f.interactions.Store().SaveThread(record))
	_, err = f.runner.ResumeThread(context.Background(), "done", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not paused")
}

func TestResumeThreadWithoutOutputField(t *testing.T) {
	f := newFixture(t)
	csvPath := writeWorkflow(t, `GraphName,Node,AgentType,Prompt
flow,ask,input,Say something
`)
	result, err := f.runner.Run(context.Background(), csvPath, "flow", nil)
	require.NoError(t, err)
	require.True(t, result.Interrupted)

	// The paused node declares no output field, so there is nowhere to
	// bind the response.
	_, err = f.runner.ResumeThread(context.Background(), result.ThreadID, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no output field")
	assert.Contains(t, err.Error(), `"ask"`)
}

func TestRunSubgraphNode(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, RegisterGraphAgentType(f.runner.agents, f.runner))

	dir := t.TempDir()
	innerPath := filepath.Join(dir, "inner.csv")
	require.NoError(t, os.WriteFile(innerPath, []byte(`GraphName,Node,AgentType,Input_Fields,Output_Field
inner,double,echo,seed,inner_result
`), 0o644))

	outerPath := filepath.Join(dir, "outer.csv")
	outerCSV := `GraphName,Node,AgentType,Context,Output_Field,Edge
outer,nested,graph,"workflow:` + innerPath + `,subgraph:inner",sub_out,finish
outer,finish,success,,done,
`
	require.NoError(t, os.WriteFile(outerPath, []byte(outerCSV), 0o644))

	result, err := f.runner.Run(context.Background(), outerPath, "outer",
		map[string]any{"seed": "payload"})
	require.NoError(t, err)
	assert.True(t, result.Success)

	sub, ok := result.FinalState["sub_out"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "payload", sub["inner_result"])
	require.Len(t, result.Summary.SubExecutions, 1)
	assert.Equal(t, "inner", result.Summary.SubExecutions[0].GraphName)
}

func TestNodeRegistryService(t *testing.T) {
	svc := NewNodeRegistryService()
	nodes := []*graph.NodeSpec{
		{Name: "a", AgentType: "echo", Prompt: "p", Inputs: []string{"x"}, Output: "y"},
		{Name: "b", Context: map[string]any{"description": "from context"}},
	}
	registry := svc.BuildRegistry(nodes, "flow", false)
	assert.Equal(t, "echo", registry["a"].Type)
	assert.Equal(t, "p", registry["a"].Prompt)
	assert.Equal(t, "from context", registry["b"].Description)

	// Memoized per graph name.
	again := svc.BuildRegistry(nil, "flow", false)
	assert.Len(t, again, 2)
	rebuilt := svc.BuildRegistry(nodes[:1], "flow", true)
	assert.Len(t, rebuilt, 1)
}

func TestVerifyPreCompilationInjection(t *testing.T) {
	svc := NewNodeRegistryService()

	v := svc.VerifyPreCompilationInjection(InjectionStats{})
	assert.False(t, v.HasOrchestrators)
	assert.True(t, v.AllInjected)
	assert.Equal(t, 1.0, v.SuccessRate)

	v = svc.VerifyPreCompilationInjection(InjectionStats{Orchestrators: 2, Injected: 1})
	assert.True(t, v.HasOrchestrators)
	assert.False(t, v.AllInjected)
	assert.Equal(t, 0.5, v.SuccessRate)
}
